package protocol

import "encoding/json"

const Version = "1.0"

// Feed message types.
const (
	TypeState = "STATE"
	TypeError = "ERROR"
)

// Status values carried in the "status" field of successful bodies.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseMessage lets feed clients route JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
