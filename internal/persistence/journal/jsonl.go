package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	segmentLayout = "2006-01-02-15"
	segmentExt    = ".jsonl.zst"
)

// SegmentWriter appends JSON lines to zstd segments, one per UTC hour.
// Every Write ends a zstd block, so a crash loses at most the record in flight.
type SegmentWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	seg *segment
}

type segment struct {
	key string
	f   *os.File
	zw  *zstd.Encoder
	enc *json.Encoder
}

func NewSegmentWriter(dir, prefix string) *SegmentWriter {
	return &SegmentWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *SegmentWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := w.now().UTC().Format(segmentLayout)
	if w.seg == nil || w.seg.key != key {
		if err := w.closeSegment(); err != nil {
			return err
		}
		seg, err := openSegment(w.path(key), key)
		if err != nil {
			return err
		}
		w.seg = seg
	}
	if err := w.seg.enc.Encode(v); err != nil {
		return err
	}
	return w.seg.zw.Flush()
}

func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeSegment()
}

func (w *SegmentWriter) closeSegment() error {
	if w.seg == nil {
		return nil
	}
	err := errors.Join(w.seg.zw.Close(), w.seg.f.Close())
	w.seg = nil
	return err
}

func (w *SegmentWriter) path(key string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s%s", w.prefix, key, segmentExt))
}

func openSegment(path, key string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Appending after a restart starts a new zstd frame in the same file.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{key: key, f: f, zw: zw, enc: json.NewEncoder(zw)}, nil
}

// Files lists the segments under dir for prefix, oldest first.
func Files(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// ReadJSONL calls fn for every non-empty line of a segment, across all of
// its concatenated frames.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	r := bufio.NewReaderSize(dec, 64*1024)
	for {
		line, err := r.ReadBytes('\n')
		if line = bytes.TrimSuffix(line, []byte{'\n'}); len(line) > 0 {
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}
	}
}
