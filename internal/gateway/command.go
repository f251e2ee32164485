package gateway

import "strings"

// Command is the closed set of operations the gateway serves.
type Command int

const (
	CommandUnknown Command = iota
	CommandData
	CommandStep
	CommandSetCells
)

func (c Command) String() string {
	switch c {
	case CommandData:
		return "data"
	case CommandStep:
		return "step"
	case CommandSetCells:
		return "setcells"
	default:
		return "unknown"
	}
}

// Commands lists every known command.
func Commands() []Command {
	return []Command{CommandData, CommandStep, CommandSetCells}
}

// ParseCommand maps a request path to a command.
func ParseCommand(path string) Command {
	switch strings.TrimSuffix(path, "/") {
	case "/data":
		return CommandData
	case "/step":
		return CommandStep
	case "/setcells":
		return CommandSetCells
	default:
		return CommandUnknown
	}
}

// Mutates reports whether the command submits a transaction.
func (c Command) Mutates() bool {
	return c == CommandStep || c == CommandSetCells
}
