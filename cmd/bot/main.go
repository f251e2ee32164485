package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"lifechain.ai/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "state feed ws url")
		apiURL = flag.String("api", "http://localhost:8080", "gateway base url for /step")
		dryRun = flag.Bool("dry_run", false, "log when a step would be sent without sending it")
		retry  = flag.Uint64("retry_blocks", 15, "blocks to wait before retrying a step that sent no transaction")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	cl := &http.Client{Timeout: 60 * time.Second}
	stepURL := strings.TrimRight(strings.TrimSpace(*apiURL), "/") + "/step"
	s := stepper{retryBlocks: *retry}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			if !s.due(st.Block, st.Target) {
				continue
			}
			logger.Printf("block=%d target=%d alive=%d: stepping", st.Block, st.Target, st.Cells.Alive())
			if *dryRun {
				s.result(true)
				continue
			}
			body, err := postStep(cl, stepURL)
			if err != nil {
				logger.Printf("step: %v", err)
				s.result(false)
				continue
			}
			sent := txSent(body)
			s.result(sent)
			if !sent {
				logger.Printf("step sent no transaction, retrying after %d blocks: %s", *retry, body)
				continue
			}
			logger.Printf("step: %s", body)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("feed error %s: %s", e.Code, e.Message)
		}
	}
}

// stepper decides when to request a step. Once a step for a gate target
// carries a transaction it is not repeated; an attempt that sent nothing is
// retried every retryBlocks until one does or the target moves.
type stepper struct {
	retryBlocks uint64

	tried   bool
	target  uint64
	triedAt uint64
	sent    bool
}

func (s *stepper) due(block, target uint64) bool {
	if block < target {
		return false
	}
	if s.tried && s.target == target {
		if s.sent || block < s.triedAt+s.retryBlocks {
			return false
		}
	}
	s.tried = true
	s.target = target
	s.triedAt = block
	s.sent = false
	return true
}

// result records whether the last attempt put a transaction on the wire.
func (s *stepper) result(sent bool) { s.sent = sent }

// txSent reports whether a /step body carries a submitted transaction.
func txSent(body string) bool {
	var m struct {
		Hash string `json:"hash"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return false
	}
	return m.Code == "" && m.Hash != ""
}

func postStep(cl *http.Client, u string) (string, error) {
	resp, err := cl.Post(u, "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return strings.TrimSpace(string(b)), err
}
