package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"lifechain.ai/internal/gateway"
	"lifechain.ai/internal/grid"
	"lifechain.ai/internal/persistence/journal"
	"lifechain.ai/internal/protocol"
)

func TestShift_WrapsAroundBoard(t *testing.T) {
	var g grid.Grid
	g.Set(0, 0, true)
	g.Set(31, 31, true)

	out := shift(g, 1, -1)
	if !out.At(1, 31) || !out.At(0, 30) {
		t.Fatalf("shifted cells missing:\n%s", grid.Render(out))
	}
	if out.Alive() != 2 {
		t.Fatalf("alive=%d want 2", out.Alive())
	}
}

func TestSubmitted(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{`{"status":"ok","hash":"0xabc"}`, true},
		{`{"status":"cooling","code":"E_COOLDOWN","block":3}`, false},
		{`{"status":"nonce too low","code":"E_SUBMIT_FAILED"}`, false},
		{`not json`, false},
	}
	for _, tc := range cases {
		if got := submitted([]byte(tc.body)); got != tc.want {
			t.Fatalf("submitted(%s)=%v want %v", tc.body, got, tc.want)
		}
	}
}

func TestDescribeState_RendersNextGeneration(t *testing.T) {
	var g grid.Grid
	g.Set(5, 4, true)
	g.Set(5, 5, true)
	g.Set(5, 6, true)
	out := describeState(protocol.StateResponse{Network: "testnet", Block: 30, MyBlock: 10, Target: 25, Cells: g}, true)

	if !strings.HasPrefix(out, "network=testnet block=30 myblock=10 target=25 alive=3\n") {
		t.Fatalf("header: %q", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, "next generation alive=3") {
		t.Fatalf("missing next generation:\n%s", out)
	}
	// Horizontal blinker becomes vertical.
	lines := strings.Split(out, "\n")
	if lines[1+5][4:7] != "OOO" {
		t.Fatalf("current row 5: %q", lines[1+5])
	}
	nextStart := 1 + grid.Rows + 2
	if lines[nextStart+4][5] != 'O' || lines[nextStart+6][5] != 'O' {
		t.Fatalf("next generation not vertical:\n%s", out)
	}
}

func TestTxs_FromFilesAndIndex(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.Open(dir, journal.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	recs := []gateway.SubmissionRecord{
		{Time: base, Command: "setcells", OK: true, Status: "ok", TxHash: "0x01", Nonce: 0, Gas: 120000, CostWei: "120000000000000"},
		{Time: base.Add(time.Minute), Command: "step", OK: true, Status: "ok", TxHash: "0x02", Nonce: 1, Gas: 95000, CostWei: "95000000000000"},
		{Time: base.Add(2 * time.Minute), Command: "step", OK: false, Status: "insufficient funds", CostWei: "0"},
	}
	for _, r := range recs {
		if err := j.RecordSubmission(r); err != nil {
			t.Fatalf("RecordSubmission: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fromFiles, err := recentFromFiles(dir, "step", 10)
	if err != nil {
		t.Fatalf("recentFromFiles: %v", err)
	}
	if len(fromFiles) != 2 || fromFiles[0].Status != "insufficient funds" || fromFiles[1].TxHash != "0x02" {
		t.Fatalf("files: %+v", fromFiles)
	}

	fromIndex, err := recentFromIndex(journal.IndexPath(dir), "", 2)
	if err != nil {
		t.Fatalf("recentFromIndex: %v", err)
	}
	if len(fromIndex) != 2 || fromIndex[0].Command != "step" || fromIndex[1].TxHash != "0x02" {
		t.Fatalf("index: %+v", fromIndex)
	}

	var buf bytes.Buffer
	writeTable(&buf, fromFiles[1:], base.Add(time.Hour))
	out := buf.String()
	for _, want := range []string{"COMMAND", "step", "95,000", "0.000095", "0x02", "ago"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRecentFromIndex_MissingDB(t *testing.T) {
	if _, err := recentFromIndex(journal.IndexPath(t.TempDir()), "", 5); err == nil {
		t.Fatalf("expected error for missing index")
	}
}
