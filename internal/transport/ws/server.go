package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"lifechain.ai/internal/protocol"
)

// StateSource is satisfied by *gateway.Gateway.
type StateSource interface {
	GetState(ctx context.Context) (protocol.StateResponse, error)
}

// Server pushes a STATE message on connect and whenever the observed block
// or last step height changes. Each connection polls independently.
type Server struct {
	src  StateSource
	log  *log.Logger
	poll time.Duration

	upgrader websocket.Upgrader
}

func NewServer(src StateSource, poll time.Duration, logger *log.Logger) *Server {
	if poll <= 0 {
		poll = 4 * time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		src:  src,
		log:  logger,
		poll: poll,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			// The HTTP API is open to any origin; the feed matches it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Reader loop: clients have nothing to say; it only detects close.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()

		var (
			sent          bool
			lastBlock     uint64
			lastStepBlock uint64
		)
		for {
			st, err := s.src.GetState(ctx)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				if werr := writeJSON(conn, protocol.ErrorMsg{
					Type:            protocol.TypeError,
					ProtocolVersion: protocol.Version,
					Code:            protocol.ErrExternalCall,
					Message:         err.Error(),
				}); werr != nil {
					return
				}
			case !sent || st.Block != lastBlock || st.MyBlock != lastStepBlock:
				if werr := writeJSON(conn, protocol.StateMsg{
					Type:            protocol.TypeState,
					ProtocolVersion: protocol.Version,
					StateResponse:   st,
				}); werr != nil {
					return
				}
				sent = true
				lastBlock = st.Block
				lastStepBlock = st.MyBlock
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
