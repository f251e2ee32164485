package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"lifechain.ai/internal/persistence/journal"
)

// openJournal picks the submission journal backend from LIFECHAIN_JOURNAL_BACKEND.
// A nil journal means submissions are not recorded.
func openJournal(dataDir string, disable bool) (*journal.Journal, error) {
	if disable {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("LIFECHAIN_JOURNAL_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return journal.Open(dataDir, journal.Options{})
	case "jsonl":
		return journal.Open(dataDir, journal.Options{DisableIndex: true})
	default:
		return nil, fmt.Errorf("unsupported LIFECHAIN_JOURNAL_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
