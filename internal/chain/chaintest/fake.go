// Package chaintest provides an in-memory chain.Client for tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"lifechain.ai/internal/chain"
	"lifechain.ai/internal/grid"
)

// Failure injection keys for Fake.Fail.
const (
	OpBlock    = "block"
	OpBalance  = "balance"
	OpCells    = "cells"
	OpLastStep = "last_step"
	OpSubmit   = "submit"
)

var (
	CallerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	ContractAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

// Fake mimics the deployed contract: setCells overwrites the words and step
// advances a generation and records the current block as the last step height.
type Fake struct {
	mu sync.Mutex

	block    uint64
	lastStep uint64
	words    grid.Packed
	balances map[common.Address]*big.Int
	fee      *big.Int
	nonce    uint64
	fail     map[string]error
	calls    []chain.Call
	reads    map[string]int
}

func New() *Fake {
	f := &Fake{
		balances: map[common.Address]*big.Int{
			CallerAddr:   new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18)),
			ContractAddr: big.NewInt(0),
		},
		fee:   big.NewInt(21000 * 1e9),
		fail:  map[string]error{},
		reads: map[string]int{},
	}
	f.words = grid.Encode(grid.Grid{})
	return f
}

func (f *Fake) SetBlock(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = n
}

func (f *Fake) SetLastStep(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastStep = n
}

func (f *Fake) SetWords(p grid.Packed) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.words = p
}

func (f *Fake) Words() grid.Packed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.words
}

// Fail makes op return err until cleared with a nil err.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *Fake) Calls() []chain.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chain.Call(nil), f.calls...)
}

// Reads reports how many times op was read.
func (f *Fake) Reads(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[op]
}

func (f *Fake) Caller() common.Address   { return CallerAddr }
func (f *Fake) Contract() common.Address { return ContractAddr }

func (f *Fake) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[OpBlock]++
	if err := f.fail[OpBlock]; err != nil {
		return 0, err
	}
	return f.block, nil
}

func (f *Fake) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[OpBalance]++
	if err := f.fail[OpBalance]; err != nil {
		return nil, err
	}
	b, ok := f.balances[addr]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(b), nil
}

func (f *Fake) Cells(ctx context.Context) (grid.Packed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[OpCells]++
	if err := f.fail[OpCells]; err != nil {
		return grid.Packed{}, err
	}
	return f.words, nil
}

func (f *Fake) LastStepHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[OpLastStep]++
	if err := f.fail[OpLastStep]; err != nil {
		return 0, err
	}
	return f.lastStep, nil
}

func (f *Fake) Submit(ctx context.Context, call chain.Call) (chain.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[OpSubmit]; err != nil {
		return chain.Tx{}, err
	}
	switch call.Method {
	case chain.MethodSetCells:
		if len(call.Args) != grid.Words {
			return chain.Tx{}, fmt.Errorf("setCells: want %d args, got %d", grid.Words, len(call.Args))
		}
		var p grid.Packed
		for i, a := range call.Args {
			w, ok := a.(*big.Int)
			if !ok {
				return chain.Tx{}, fmt.Errorf("setCells: arg %d is %T", i, a)
			}
			p[i] = new(big.Int).Set(w)
		}
		f.words = p
	case chain.MethodStep:
		g, err := grid.Decode(f.words)
		if err != nil {
			return chain.Tx{}, err
		}
		f.words = grid.Encode(grid.Next(g))
		f.lastStep = f.block
	default:
		return chain.Tx{}, errors.New("execution reverted: unknown method " + call.Method)
	}
	f.calls = append(f.calls, call)

	bal := f.balances[CallerAddr]
	f.balances[CallerAddr] = new(big.Int).Sub(bal, f.fee)

	tx := chain.Tx{
		ChainID:  big.NewInt(42),
		Nonce:    f.nonce,
		GasPrice: big.NewInt(1e9),
		Gas:      21000,
		To:       ContractAddr.Hex(),
		Value:    new(big.Int),
		Data:     "0x",
		Hash:     fmt.Sprintf("0x%064x", f.nonce+1),
	}
	f.nonce++
	return tx, nil
}

var _ chain.Client = (*Fake)(nil)
