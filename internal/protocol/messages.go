package protocol

import (
	"math/big"

	"lifechain.ai/internal/chain"
	"lifechain.ai/internal/grid"
)

// SetCellsRequest is the /setcells body.
type SetCellsRequest struct {
	Cells grid.Grid `json:"cells"`
}

// StateResponse is the /data body.
type StateResponse struct {
	Status          string    `json:"status"`
	Network         string    `json:"network"`
	Block           uint64    `json:"block"`
	MyBlock         uint64    `json:"myblock"`
	CallerAddress   string    `json:"caller_address"`
	CallerBalance   string    `json:"caller_balance"` // ether
	ContractAddress string    `json:"contract_address"`
	ContractBalance *big.Int  `json:"contract_balance"` // wei
	Target          uint64    `json:"target"`
	Rows            int       `json:"rows"`
	Cols            int       `json:"cols"`
	Cells           grid.Grid `json:"cells"`
}

// SubmitResponse reports a submitted (or failed) transaction. The transaction
// fields are inlined and absent when submission failed.
type SubmitResponse struct {
	*chain.Tx

	Status        string   `json:"status"`
	Code          string   `json:"code,omitempty"`
	Command       string   `json:"command"`
	Block         uint64   `json:"block"`
	BalanceBefore *big.Int `json:"balance_before"`
	BalanceAfter  *big.Int `json:"balance_after"`
	Cost          *big.Int `json:"cost"`
	MyBlock       uint64   `json:"myblock"`
	// Error is set when metadata could not be refreshed after submission.
	Error string `json:"error,omitempty"`
}

// RefusalResponse is returned by /step while the contract is cooling down.
type RefusalResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	State   string `json:"state"`
	Block   uint64 `json:"block"`
	MyBlock uint64 `json:"myblock"`
	Target  uint64 `json:"target"`
}

type ErrorResponse struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	// UnknownCommand echoes an unrecognized path.
	UnknownCommand string `json:"unknown cmd,omitempty"`
}

// StateMsg is pushed on the state feed whenever the observed block changes.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	StateResponse
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
