package protocol_test

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"lifechain.ai/internal/chain"
	"lifechain.ai/internal/grid"
	"lifechain.ai/internal/protocol"
)

func cellsBody(t *testing.T, vals []int) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{"cells": vals})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestValidateSetCells(t *testing.T) {
	vals := make([]int, grid.Size)
	vals[3] = 1
	req, err := protocol.DecodeSetCells(cellsBody(t, vals))
	if err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
	if !req.Cells[3] || req.Cells.Alive() != 1 {
		t.Fatalf("decoded grid mismatch")
	}

	bad := [][]byte{
		[]byte(`not json`),
		[]byte(`{}`),
		[]byte(`{"cells": "0101"}`),
		cellsBody(t, make([]int, grid.Size-1)),
		cellsBody(t, make([]int, grid.Size+1)),
		func() []byte { v := make([]int, grid.Size); v[9] = 2; return cellsBody(t, v) }(),
		[]byte(`{"cells": [` + strings.Repeat(`0.5,`, grid.Size-1) + `0]}`),
	}
	for i, b := range bad {
		if _, err := protocol.DecodeSetCells(b); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestSchema_CompilesStandalone(t *testing.T) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("setcells.schema.json", strings.NewReader(protocol.SetCellsSchema())); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	s, err := c.Compile("setcells.schema.json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var v any
	_ = json.Unmarshal([]byte(`{"cells":[1]}`), &v)
	if err := s.Validate(v); err == nil {
		t.Fatalf("expected short payload to fail schema")
	}
}

func TestSubmitResponse_InlinesTransaction(t *testing.T) {
	resp := protocol.SubmitResponse{
		Tx:      &chain.Tx{Nonce: 7, Hash: "0xabc", ChainID: big.NewInt(42)},
		Status:  protocol.StatusOK,
		Command: "step",
		Cost:    big.NewInt(21000),
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["nonce"] != float64(7) || m["hash"] != "0xabc" || m["chainId"] != float64(42) {
		t.Fatalf("tx fields not inlined: %s", b)
	}

	resp.Tx = nil
	resp.Status = "insufficient funds"
	b, _ = json.Marshal(resp)
	if strings.Contains(string(b), `"hash"`) {
		t.Fatalf("failed submission should not carry tx fields: %s", b)
	}
}
