package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/festival-greetings/greeting"
	"github.com/omni/festival-greetings/logging"
)

type ReceiverReader interface {
	LastReceivedFestivalData(ctx context.Context) (common.Hash, string, error)
}

// LastReceived is the last payload delivered to the receiver contract.
type LastReceived struct {
	MessageID common.Hash
	Raw       string
	Payload   *greeting.Payload
	FetchedAt time.Time
}

func (l *LastReceived) Received() bool {
	return l != nil && (l.MessageID != common.Hash{} || l.Raw != "")
}

// Fallback returns the text shown instead of the greeting, or an empty string when the payload is valid.
func (l *LastReceived) Fallback() string {
	switch {
	case !l.Received():
		return MsgNoGreetingsReceived
	case l.Payload == nil:
		return MsgInvalidGreetingData
	default:
		return ""
	}
}

// ReadBack caches the receiver contract's last delivered greeting.
type ReadBack struct {
	logger   logging.Logger
	receiver ReceiverReader
	now      func() time.Time

	mu   sync.RWMutex
	last *LastReceived
}

func NewReadBack(logger logging.Logger, receiver ReceiverReader) *ReadBack {
	return &ReadBack{
		logger:   logger,
		receiver: receiver,
		now:      time.Now,
	}
}

// Refresh refetches the receiver state. A malformed payload is not an error.
func (b *ReadBack) Refresh(ctx context.Context) (*LastReceived, error) {
	messageID, raw, err := b.receiver.LastReceivedFestivalData(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't read last received festival data: %w", err)
	}
	last := &LastReceived{
		MessageID: messageID,
		Raw:       raw,
		FetchedAt: b.now(),
	}
	if last.Received() {
		last.Payload, err = greeting.ParsePayload(raw)
		if err != nil {
			InvalidPayloads.WithLabelValues("read_back").Inc()
			b.logger.WithError(err).WithField("message_id", messageID).Warn("receiver holds invalid greeting data")
		}
	}

	b.mu.Lock()
	b.last = last
	b.mu.Unlock()
	return last, nil
}

// Latest returns the cached value, nil if Refresh never succeeded.
func (b *ReadBack) Latest() *LastReceived {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}
