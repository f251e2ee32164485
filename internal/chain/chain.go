// Package chain is the narrow view of the blockchain the gateway depends on:
// height and balance reads, the two contract reads, and signed submission.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lifechain.ai/internal/grid"
)

// Contract entry points.
const (
	MethodGetCells   = "getCells"
	MethodGetMyBlock = "getMyBlock"
	MethodSetCells   = "setCells"
	MethodStep       = "step"
)

type Client interface {
	// Caller is the address derived from the signing key.
	Caller() common.Address
	Contract() common.Address

	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	Cells(ctx context.Context) (grid.Packed, error)
	LastStepHeight(ctx context.Context) (uint64, error)

	// Submit builds, signs and sends a state-changing contract call.
	Submit(ctx context.Context, call Call) (Tx, error)
}

type Call struct {
	Method string
	Args   []any
}

func SetCellsCall(p grid.Packed) Call {
	return Call{Method: MethodSetCells, Args: p.Args()}
}

func StepCall() Call {
	return Call{Method: MethodStep}
}

// Tx is the submitted transaction as reported back to clients.
type Tx struct {
	ChainID  *big.Int `json:"chainId"`
	Nonce    uint64   `json:"nonce"`
	GasPrice *big.Int `json:"gasPrice"`
	Gas      uint64   `json:"gas"`
	To       string   `json:"to"`
	Value    *big.Int `json:"value"`
	Data     string   `json:"data"`
	Hash     string   `json:"hash"`
}
