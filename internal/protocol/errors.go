package protocol

const (
	// Request payload failed validation; nothing was sent to the chain.
	ErrBadRequest = "E_BAD_REQUEST"

	// Step refused because the contract is still cooling down.
	ErrCooldown = "E_COOLDOWN"

	// A chain read failed.
	ErrExternalCall = "E_EXTERNAL_CALL"

	// Building, signing or sending a transaction failed.
	ErrSubmitFailed = "E_SUBMIT_FAILED"

	ErrUnknownCommand = "E_UNKNOWN_COMMAND"

	// Known command path requested with a verb other than GET, POST or OPTIONS.
	ErrMethodNotAllowed = "E_METHOD_NOT_ALLOWED"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:       {},
	ErrCooldown:         {},
	ErrExternalCall:     {},
	ErrSubmitFailed:     {},
	ErrUnknownCommand:   {},
	ErrMethodNotAllowed: {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
