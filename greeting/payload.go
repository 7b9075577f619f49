package greeting

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/omni/festival-greetings/entity"
)

// TimestampLayout matches the millisecond ISO-8601 form used by browsers.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var ErrInvalidPayload = errors.New("invalid greeting payload")

// Payload is the JSON document placed in the festivalData argument of the sender contract.
type Payload struct {
	Greeting  string `json:"greeting"`
	Name      string `json:"name"`
	Festival  string `json:"festival"`
	Timestamp string `json:"timestamp"`
	Nonce     string `json:"nonce,omitempty"`
}

func NewPayload(in Input, now time.Time, nonce string) *Payload {
	return &Payload{
		Greeting:  in.Greeting,
		Name:      in.Name,
		Festival:  in.Festival,
		Timestamp: FormatTimestamp(now),
		Nonce:     nonce,
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func (p *Payload) Encode() (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("can't encode greeting payload: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// ParsePayload decodes festivalData. Malformed documents yield ErrInvalidPayload.
func ParsePayload(raw string) (*Payload, error) {
	p := new(Payload)
	if err := json.Unmarshal([]byte(raw), p); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}
	if p.Greeting == "" || p.Name == "" || p.Festival == "" {
		return nil, fmt.Errorf("%w: missing greeting fields", ErrInvalidPayload)
	}
	return p, nil
}

// Matches reports whether the greeting was built from the same payload.
// Nonces are compared when both sides carry one, otherwise the content tuple is used.
func (p *Payload) Matches(g *entity.Greeting) bool {
	if p.Nonce != "" && g.Nonce != "" {
		return p.Nonce == g.Nonce
	}
	return p.Greeting == g.Greeting &&
		p.Name == g.Name &&
		p.Festival == g.Festival &&
		p.Timestamp == g.Timestamp
}

func (p *Payload) Key() entity.GreetingKey {
	return entity.GreetingKey{
		Nonce:     p.Nonce,
		Greeting:  p.Greeting,
		Name:      p.Name,
		Festival:  p.Festival,
		Timestamp: p.Timestamp,
	}
}
