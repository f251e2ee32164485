// Package gateway maps the three client commands onto chain reads and
// signed contract calls. It holds no state between requests.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"time"

	"lifechain.ai/internal/chain"
	"lifechain.ai/internal/grid"
	"lifechain.ai/internal/protocol"
)

// SubmissionRecord is one journal entry per attempted transaction.
type SubmissionRecord struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Command string    `json:"command"`
	OK      bool      `json:"ok"`
	Status  string    `json:"status"`
	TxHash  string    `json:"tx_hash,omitempty"`
	Nonce   uint64    `json:"nonce"`
	Gas     uint64    `json:"gas"`
	Block   uint64    `json:"block"`
	MyBlock uint64    `json:"myblock"`
	CostWei string    `json:"cost_wei"`
	Words   []string  `json:"words,omitempty"`
}

type SubmissionRecorder interface {
	RecordSubmission(rec SubmissionRecord) error
}

type Options struct {
	Network      string
	GapThreshold uint64
	Logger       *log.Logger
	// Recorder is optional.
	Recorder SubmissionRecorder
	Now      func() time.Time
}

type Gateway struct {
	chain   chain.Client
	network string
	gate    Gate
	log     *log.Logger
	rec     SubmissionRecorder
	now     func() time.Time
}

func New(c chain.Client, opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		chain:   c,
		network: opts.Network,
		gate:    Gate{Gap: opts.GapThreshold},
		log:     logger,
		rec:     opts.Recorder,
		now:     now,
	}
}

func (g *Gateway) Gate() Gate { return g.gate }

// GetState reads the board and account metadata. Any failed read is
// returned as an *ExternalCallError; partial data is never returned.
func (g *Gateway) GetState(ctx context.Context) (protocol.StateResponse, error) {
	var resp protocol.StateResponse

	packed, err := g.chain.Cells(ctx)
	if err != nil {
		return resp, &ExternalCallError{Op: chain.MethodGetCells, Err: err}
	}
	cells, err := grid.Decode(packed)
	if err != nil {
		return resp, &ExternalCallError{Op: chain.MethodGetCells, Err: err}
	}
	caller := g.chain.Caller()
	callerBal, err := g.chain.BalanceAt(ctx, caller)
	if err != nil {
		return resp, &ExternalCallError{Op: "balance caller", Err: err}
	}
	block, err := g.chain.BlockNumber(ctx)
	if err != nil {
		return resp, &ExternalCallError{Op: "block number", Err: err}
	}
	myblock, err := g.chain.LastStepHeight(ctx)
	if err != nil {
		return resp, &ExternalCallError{Op: chain.MethodGetMyBlock, Err: err}
	}
	contract := g.chain.Contract()
	contractBal, err := g.chain.BalanceAt(ctx, contract)
	if err != nil {
		return resp, &ExternalCallError{Op: "balance contract", Err: err}
	}

	return protocol.StateResponse{
		Status:          protocol.StatusOK,
		Network:         g.network,
		Block:           block,
		MyBlock:         myblock,
		CallerAddress:   caller.Hex(),
		CallerBalance:   chain.FormatEther(callerBal),
		ContractAddress: contract.Hex(),
		ContractBalance: contractBal,
		Target:          g.gate.Target(myblock),
		Rows:            grid.Rows,
		Cols:            grid.Cols,
		Cells:           cells,
	}, nil
}

// SetCells validates the body, packs the grid and submits setCells. It is
// not gated. A rejected body returns *ValidationError without touching the chain.
func (g *Gateway) SetCells(ctx context.Context, body []byte) (protocol.SubmitResponse, error) {
	req, err := protocol.DecodeSetCells(body)
	if err != nil {
		return protocol.SubmitResponse{}, &ValidationError{Field: "cells", Reason: err.Error()}
	}
	packed := grid.Encode(req.Cells)
	g.log.Printf("setcells alive=%d words=%s", req.Cells.Alive(), packed)
	return g.submit(ctx, CommandSetCells, chain.SetCellsCall(packed))
}

// StepResult carries the gate decision and, when the gate was open, the submission.
type StepResult struct {
	Decision GateDecision
	Submit   *protocol.SubmitResponse
}

func (r StepResult) Refused() bool { return r.Submit == nil && r.Decision.State == GateCooling }

func (r StepResult) Refusal() protocol.RefusalResponse {
	return protocol.RefusalResponse{
		Status:  r.Decision.Reason(),
		Code:    protocol.ErrCooldown,
		State:   r.Decision.State.String(),
		Block:   r.Decision.Current,
		MyBlock: r.Decision.LastStep,
		Target:  r.Decision.Target,
	}
}

// Step submits a step transaction once the chain has passed the gate target.
// A refusal is a normal result, not an error.
func (g *Gateway) Step(ctx context.Context) (StepResult, error) {
	last, err := g.chain.LastStepHeight(ctx)
	if err != nil {
		return StepResult{}, &ExternalCallError{Op: chain.MethodGetMyBlock, Err: err}
	}
	current, err := g.chain.BlockNumber(ctx)
	if err != nil {
		return StepResult{}, &ExternalCallError{Op: "block number", Err: err}
	}
	d := g.gate.Check(current, last)
	if !d.Allowed() {
		g.log.Printf("step refused: %s", d.Reason())
		return StepResult{Decision: d}, nil
	}
	resp, err := g.submit(ctx, CommandStep, chain.StepCall())
	if err != nil {
		return StepResult{Decision: d}, err
	}
	return StepResult{Decision: d, Submit: &resp}, nil
}

func (g *Gateway) submit(ctx context.Context, cmd Command, call chain.Call) (protocol.SubmitResponse, error) {
	caller := g.chain.Caller()
	before, err := g.chain.BalanceAt(ctx, caller)
	if err != nil {
		return protocol.SubmitResponse{}, &ExternalCallError{Op: "balance before", Err: err}
	}
	resp := protocol.SubmitResponse{
		Command:       cmd.String(),
		BalanceBefore: before,
	}

	tx, err := g.chain.Submit(ctx, call)
	if err != nil {
		resp.Status = err.Error()
		resp.Code = protocol.ErrSubmitFailed
		g.log.Printf("%s submit failed: %v", cmd, err)
	} else {
		resp.Tx = &tx
		resp.Status = protocol.StatusOK
		g.log.Printf("%s submitted tx=%s nonce=%d gas=%d", cmd, tx.Hash, tx.Nonce, tx.Gas)
	}

	if err := g.refresh(ctx, &resp); err != nil {
		resp.Error = err.Error()
		g.log.Printf("%s metadata refresh: %v", cmd, err)
	}
	g.record(cmd, call, resp)
	return resp, nil
}

// refresh fills post-submission balance, cost and height fields.
func (g *Gateway) refresh(ctx context.Context, resp *protocol.SubmitResponse) error {
	var errs []error
	after, err := g.chain.BalanceAt(ctx, g.chain.Caller())
	if err != nil {
		errs = append(errs, &ExternalCallError{Op: "balance after", Err: err})
	} else {
		resp.BalanceAfter = after
		resp.Cost = new(big.Int).Sub(resp.BalanceBefore, after)
	}
	if resp.Block, err = g.chain.BlockNumber(ctx); err != nil {
		errs = append(errs, &ExternalCallError{Op: "block number", Err: err})
	}
	if resp.MyBlock, err = g.chain.LastStepHeight(ctx); err != nil {
		errs = append(errs, &ExternalCallError{Op: chain.MethodGetMyBlock, Err: err})
	}
	return errors.Join(errs...)
}

func (g *Gateway) record(cmd Command, call chain.Call, resp protocol.SubmitResponse) {
	if g.rec == nil {
		return
	}
	rec := SubmissionRecord{
		Time:    g.now().UTC(),
		Command: cmd.String(),
		OK:      resp.Tx != nil,
		Status:  resp.Status,
		Block:   resp.Block,
		MyBlock: resp.MyBlock,
	}
	if resp.Tx != nil {
		rec.TxHash = resp.Tx.Hash
		rec.Nonce = resp.Tx.Nonce
		rec.Gas = resp.Tx.Gas
	}
	if resp.Cost != nil {
		rec.CostWei = resp.Cost.String()
	}
	for _, a := range call.Args {
		if w, ok := a.(*big.Int); ok {
			rec.Words = append(rec.Words, fmt.Sprintf("%#x", w))
		}
	}
	if err := g.rec.RecordSubmission(rec); err != nil {
		g.log.Printf("journal: %v", err)
	}
}
