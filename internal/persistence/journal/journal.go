// Package journal keeps an append-only audit trail of submitted
// transactions. Nothing in the request path reads it back.
package journal

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/google/uuid"

	"lifechain.ai/internal/gateway"
)

const filePrefix = "submissions"

type Options struct {
	// DisableIndex skips the SQLite index; JSONL files are always written.
	DisableIndex bool
}

type Journal struct {
	files *SegmentWriter
	index *SQLiteIndex
}

// Open creates <dir>/submissions/*.jsonl.zst and <dir>/index/journal.sqlite.
func Open(dir string, opts Options) (*Journal, error) {
	j := &Journal{
		files: NewSegmentWriter(FilesDir(dir), filePrefix),
	}
	if !opts.DisableIndex {
		idx, err := OpenSQLite(IndexPath(dir))
		if err != nil {
			return nil, err
		}
		j.index = idx
	}
	return j, nil
}

func FilesDir(dir string) string  { return filepath.Join(dir, "submissions") }
func IndexPath(dir string) string { return filepath.Join(dir, "index", "journal.sqlite") }

// SubmissionFiles lists journal files under dir, oldest first.
func SubmissionFiles(dir string) ([]string, error) { return Files(FilesDir(dir), filePrefix) }

func (j *Journal) RecordSubmission(rec gateway.SubmissionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	err := j.files.Write(rec)
	if j.index != nil {
		_ = j.index.RecordSubmission(rec)
	}
	return err
}

func (j *Journal) Recent(ctx context.Context, command string, limit int) ([]gateway.SubmissionRecord, error) {
	if j.index == nil {
		return nil, errors.New("journal: index disabled")
	}
	return j.index.Recent(ctx, command, limit)
}

func (j *Journal) IndexStats() IndexStats { return j.index.Stats() }

func (j *Journal) Close() error {
	err := j.files.Close()
	if j.index != nil {
		err = errors.Join(err, j.index.Close())
	}
	return err
}

var _ gateway.SubmissionRecorder = (*Journal)(nil)
