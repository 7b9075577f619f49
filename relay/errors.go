package relay

import (
	"errors"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/omni/festival-greetings/greeting"
)

const (
	MsgChainNotSelected    = "Please select both source and destination chains."
	MsgSubmissionFailed    = "Failed to send greeting"
	MsgInvalidGreetingData = "Invalid greeting data"
	MsgNoGreetingsReceived = "No greetings received yet"
)

var (
	ErrChainNotSelected       = errors.New("source and destination chains are not selected")
	ErrUnknownChain           = errors.New("unknown chain")
	ErrUnsupportedSourceChain = errors.New("greetings can't be sent from the selected source chain")
)

// ValidationError reports field-level problems found by the form gate.
type ValidationError struct {
	Fields greeting.FieldErrors
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

// SubmissionError is returned when the sender transaction could not be broadcast.
// Message is safe to show to the user.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return "can't submit greeting: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// submissionMessage extracts the node provided reason when there is one.
func submissionMessage(err error) string {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.Error() != "" {
		return rpcErr.Error()
	}
	return MsgSubmissionFailed
}
