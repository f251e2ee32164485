package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"lifechain.ai/internal/gateway"
)

// SQLiteIndex is a queryable copy of the submission journal. Writes are
// queued to a single writer goroutine and dropped when the queue is full.
type SQLiteIndex struct {
	db *sql.DB
	wg sync.WaitGroup

	// mu guards closing ch against concurrent sends.
	mu     sync.RWMutex
	ch     chan gateway.SubmissionRecord
	closed bool

	dropTotal    atomic.Uint64
	writtenTotal atomic.Uint64
	failTotal    atomic.Uint64
}

// recordedAtLayout sorts lexicographically in time order.
const recordedAtLayout = "2006-01-02T15:04:05.000000000Z"

const (
	indexQueueSize = 1024
	schemaVersion  = "1"
)

// indexPragmas are applied by the driver on every new connection.
var indexPragmas = []string{"busy_timeout(5000)", "journal_mode(WAL)", "synchronous(NORMAL)"}

var indexSchema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id          TEXT PRIMARY KEY,
		recorded_at TEXT NOT NULL,
		command     TEXT NOT NULL,
		ok          INTEGER NOT NULL,
		status      TEXT NOT NULL,
		tx_hash     TEXT,
		nonce       INTEGER NOT NULL,
		gas         INTEGER NOT NULL,
		block       INTEGER NOT NULL,
		myblock     INTEGER NOT NULL,
		cost_wei    TEXT NOT NULL,
		words_json  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_recorded_at ON submissions(recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_command ON submissions(command, recorded_at)`,
}

type IndexStats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
	WrittenTotal  uint64
	FailTotal     uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: empty index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	q := url.Values{}
	for _, p := range indexPragmas {
		q.Add("_pragma", p)
	}
	db, err := sql.Open("sqlite", path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	// A single connection serialises the writer loop with Recent.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migrate %s: %w", path, err)
	}

	s := &SQLiteIndex{db: db, ch: make(chan gateway.SubmissionRecord, indexQueueSize)}
	s.wg.Add(1)
	go s.loop()
	return s, nil
}

func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range indexSchema {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}

// Close drains queued records and closes the database. It is idempotent.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.wg.Wait()
	return s.db.Close()
}

// RecordSubmission never blocks; a full queue drops the record and counts it.
func (s *SQLiteIndex) RecordSubmission(rec gateway.SubmissionRecord) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- rec:
	default:
		// The JSONL journal remains the source of truth.
		s.dropTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() IndexStats {
	if s == nil {
		return IndexStats{}
	}
	return IndexStats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropTotal.Load(),
		WrittenTotal:  s.writtenTotal.Load(),
		FailTotal:     s.failTotal.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	defer s.wg.Done()
	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO submissions(id,recorded_at,command,ok,status,tx_hash,nonce,gas,block,myblock,cost_wei,words_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		for range s.ch {
			s.failTotal.Add(1)
		}
		return
	}
	defer insert.Close()

	for rec := range s.ch {
		words, _ := json.Marshal(rec.Words)
		if rec.Words == nil {
			words = []byte("[]")
		}
		ok := 0
		if rec.OK {
			ok = 1
		}
		_, err := insert.Exec(
			rec.ID,
			rec.Time.UTC().Format(recordedAtLayout),
			rec.Command,
			ok,
			rec.Status,
			rec.TxHash,
			int64(rec.Nonce),
			int64(rec.Gas),
			int64(rec.Block),
			int64(rec.MyBlock),
			rec.CostWei,
			string(words),
		)
		if err != nil {
			s.failTotal.Add(1)
			continue
		}
		s.writtenTotal.Add(1)
	}
}

// Recent returns the newest submissions first. An empty command matches all.
func (s *SQLiteIndex) Recent(ctx context.Context, command string, limit int) ([]gateway.SubmissionRecord, error) {
	return QueryRecent(ctx, s.db, command, limit)
}

// QueryRecent reads submissions from an open journal database.
func QueryRecent(ctx context.Context, db *sql.DB, command string, limit int) ([]gateway.SubmissionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id,recorded_at,command,ok,status,COALESCE(tx_hash,''),nonce,gas,block,myblock,cost_wei,words_json FROM submissions`
	args := []any{}
	if c := strings.TrimSpace(command); c != "" {
		q += ` WHERE command=?`
		args = append(args, c)
	}
	q += ` ORDER BY recorded_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []gateway.SubmissionRecord
	for rows.Next() {
		var (
			r        gateway.SubmissionRecord
			at       string
			ok       int
			nonce    int64
			gas      int64
			block    int64
			myblock  int64
			wordsRaw string
		)
		if err := rows.Scan(&r.ID, &at, &r.Command, &ok, &r.Status, &r.TxHash, &nonce, &gas, &block, &myblock, &r.CostWei, &wordsRaw); err != nil {
			return nil, err
		}
		r.Time, _ = time.Parse(recordedAtLayout, at)
		r.OK = ok != 0
		r.Nonce = uint64(nonce)
		r.Gas = uint64(gas)
		r.Block = uint64(block)
		r.MyBlock = uint64(myblock)
		_ = json.Unmarshal([]byte(wordsRaw), &r.Words)
		if len(r.Words) == 0 {
			r.Words = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
