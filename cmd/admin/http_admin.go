package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"lifechain.ai/internal/grid"
	"lifechain.ai/internal/protocol"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "gateway base url")
	_ = fs.Parse(args)

	b, ok := call(http.MethodGet, endpoint(*baseURL, "data"), nil, 10*time.Second)
	fmt.Println(string(b))
	if !ok {
		os.Exit(1)
	}
}

func gridCmd(args []string) {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "gateway base url")
	next := fs.Bool("next", false, "also render the following generation")
	_ = fs.Parse(args)

	b, ok := call(http.MethodGet, endpoint(*baseURL, "data"), nil, 10*time.Second)
	if !ok {
		fmt.Fprintln(os.Stderr, string(b))
		os.Exit(1)
	}
	var st protocol.StateResponse
	if err := json.Unmarshal(b, &st); err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	fmt.Print(describeState(st, *next))
}

func setCmd(args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "gateway base url")
	file := fs.String("file", "", "pattern in plaintext .cells format (required)")
	row := fs.Int("row", 0, "row offset; wraps around the board")
	col := fs.Int("col", 0, "column offset; wraps around the board")
	dryRun := fs.Bool("dry_run", false, "print the packed words without sending")
	_ = fs.Parse(args)

	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(2)
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	g, err := grid.ParseText(string(raw))
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse:", err)
		os.Exit(1)
	}
	g = shift(g, *row, *col)

	if *dryRun {
		fmt.Print(grid.Render(g))
		fmt.Println(grid.Encode(g).String())
		return
	}
	body, _ := json.Marshal(protocol.SetCellsRequest{Cells: g})
	b, ok := call(http.MethodPost, endpoint(*baseURL, "setcells"), body, 60*time.Second)
	fmt.Println(string(b))
	if !ok || !submitted(b) {
		os.Exit(1)
	}
}

func stepCmd(args []string) {
	fs := flag.NewFlagSet("step", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "gateway base url")
	_ = fs.Parse(args)

	b, ok := call(http.MethodPost, endpoint(*baseURL, "step"), nil, 60*time.Second)
	fmt.Println(string(b))
	if !ok || !submitted(b) {
		os.Exit(1)
	}
}

func endpoint(base, cmd string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/" + cmd
}

// call returns the body and whether the status was 2xx.
func call(method, u string, body []byte, timeout time.Duration) ([]byte, bool) {
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return b, resp.StatusCode/100 == 2
}

// submitted reports whether a /step or /setcells body carries a transaction.
func submitted(b []byte) bool {
	var m struct {
		Hash string `json:"hash"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return false
	}
	return m.Code == "" && m.Hash != ""
}

func shift(g grid.Grid, dr, dc int) grid.Grid {
	var out grid.Grid
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			if g.At(r, c) {
				out.Set(r+dr, c+dc, true)
			}
		}
	}
	return out
}

func describeState(st protocol.StateResponse, next bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "network=%s block=%d myblock=%d target=%d alive=%d\n",
		st.Network, st.Block, st.MyBlock, st.Target, st.Cells.Alive())
	sb.WriteString(grid.Render(st.Cells))
	if next {
		n := grid.Next(st.Cells)
		fmt.Fprintf(&sb, "\nnext generation alive=%d\n", n.Alive())
		sb.WriteString(grid.Render(n))
	}
	return sb.String()
}
