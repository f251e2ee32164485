package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"lifechain.ai/internal/chain"
	"lifechain.ai/internal/gateway"
	"lifechain.ai/internal/persistence/journal"
)

func txsCmd(args []string) {
	fs := flag.NewFlagSet("txs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite index path (optional; defaults to <data>/index/journal.sqlite)")
	command := fs.String("command", "", "filter by command (step or setcells)")
	limit := fs.Int("limit", 20, "result limit")
	fromJSONL := fs.Bool("jsonl", false, "read the compressed JSONL files instead of the index")
	asJSON := fs.Bool("json", false, "print records as JSON")
	_ = fs.Parse(args)

	var (
		recs []gateway.SubmissionRecord
		err  error
	)
	if *fromJSONL {
		recs, err = recentFromFiles(*dataDir, *command, *limit)
	} else {
		path := strings.TrimSpace(*dbPath)
		if path == "" {
			path = journal.IndexPath(*dataDir)
		}
		recs, err = recentFromIndex(path, *command, *limit)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "txs:", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(recs)
		return
	}
	writeTable(os.Stdout, recs, time.Now())
}

func recentFromIndex(path, command string, limit int) ([]gateway.SubmissionRecord, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return journal.QueryRecent(ctx, db, command, limit)
}

// recentFromFiles scans every journal file and returns the newest records first.
func recentFromFiles(dataDir, command string, limit int) ([]gateway.SubmissionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	files, err := journal.SubmissionFiles(dataDir)
	if err != nil {
		return nil, err
	}
	command = strings.TrimSpace(command)
	var all []gateway.SubmissionRecord
	for _, f := range files {
		err := journal.ReadJSONL(f, func(line []byte) error {
			var r gateway.SubmissionRecord
			if err := json.Unmarshal(line, &r); err != nil {
				return err
			}
			if command == "" || r.Command == command {
				all = append(all, r)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
	}
	out := make([]gateway.SubmissionRecord, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func writeTable(w io.Writer, recs []gateway.SubmissionRecord, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCOMMAND\tOK\tBLOCK\tNONCE\tGAS\tCOST (ETH)\tTX")
	for _, r := range recs {
		cost := "-"
		if wei, ok := new(big.Int).SetString(r.CostWei, 10); ok {
			cost = chain.FormatEther(wei)
		}
		tx := r.TxHash
		if tx == "" {
			tx = r.Status
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\t%s\t%s\t%s\n",
			humanize.RelTime(r.Time, now, "ago", "from now"),
			r.Command, r.OK, r.Block, r.Nonce,
			humanize.Comma(int64(r.Gas)), cost, tx)
	}
	_ = tw.Flush()
}
