package greeting

import (
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/omni/festival-greetings/entity"
)

const DefaultRecentCapacity = 5

type ReconcileOutcome int

const (
	ReconcileMatched ReconcileOutcome = iota
	ReconcileSynthesized
	ReconcileDuplicate
)

func (o ReconcileOutcome) String() string {
	switch o {
	case ReconcileMatched:
		return "matched"
	case ReconcileSynthesized:
		return "synthesized"
	case ReconcileDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// SentEvent is a decoded FestivalDataSent log of the sender contract.
type SentEvent struct {
	MessageID                common.Hash
	DestinationChainSelector uint64
	Receiver                 common.Address
	FestivalData             string
	FeeToken                 common.Address
	Fees                     *big.Int
	TransactionHash          common.Hash
	BlockNumber              uint
}

// RecentList keeps the latest greetings, newest first. When full, the oldest entry is evicted.
type RecentList struct {
	mu       sync.Mutex
	capacity int
	items    []*entity.Greeting
}

func NewRecentList(capacity int) *RecentList {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &RecentList{
		capacity: capacity,
		items:    make([]*entity.Greeting, 0, capacity),
	}
}

func (l *RecentList) Capacity() int {
	return l.capacity
}

func (l *RecentList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Prepend inserts a copy of g at the front and returns the evicted entries, if any.
func (l *RecentList) Prepend(g *entity.Greeting) []*entity.Greeting {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prepend(clone(g))
}

func (l *RecentList) prepend(g *entity.Greeting) []*entity.Greeting {
	l.items = append(l.items, nil)
	copy(l.items[1:], l.items)
	l.items[0] = g
	if len(l.items) <= l.capacity {
		return nil
	}
	evicted := make([]*entity.Greeting, len(l.items)-l.capacity)
	copy(evicted, l.items[l.capacity:])
	for i := l.capacity; i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = l.items[:l.capacity]
	return evicted
}

func (l *RecentList) Get(id string) (*entity.Greeting, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(id); i >= 0 {
		return clone(l.items[i]), true
	}
	return nil, false
}

// SetTransactionHash records the hash of the transaction that carries the greeting with the given id.
func (l *RecentList) SetTransactionHash(id string, txHash common.Hash) (*entity.Greeting, bool) {
	return l.update(id, func(g *entity.Greeting) {
		if g.TransactionHash == nil {
			g.TransactionHash = &txHash
		}
	})
}

func (l *RecentList) SetError(id string, msg string) (*entity.Greeting, bool) {
	return l.update(id, func(g *entity.Greeting) {
		g.Error = &msg
	})
}

func (l *RecentList) update(id string, f func(g *entity.Greeting)) (*entity.Greeting, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return nil, false
	}
	g := clone(l.items[i])
	f(g)
	l.items[i] = g
	return clone(g), true
}

// Reconcile merges a confirmation event into the list. Each event is applied to at most one entry:
// entries already holding a message id are never matched again, and a repeated message id is a no-op.
// When no pending entry matches, a new entry is synthesized from the event without chain selection.
func (l *RecentList) Reconcile(ev *SentEvent, p *Payload, now time.Time) (*entity.Greeting, ReconcileOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, g := range l.items {
		if g.MessageID != nil && *g.MessageID == ev.MessageID {
			return clone(g), ReconcileDuplicate
		}
	}

	for i, g := range l.items {
		if g.MessageID != nil {
			continue
		}
		if g.TransactionHash != nil && *g.TransactionHash != ev.TransactionHash {
			continue
		}
		if !p.Matches(g) {
			continue
		}
		updated := clone(g)
		applyEvent(updated, ev, now)
		l.items[i] = updated
		return clone(updated), ReconcileMatched
	}

	synthesized := &entity.Greeting{
		ID:        uuid.NewString(),
		Greeting:  p.Greeting,
		Name:      p.Name,
		Festival:  p.Festival,
		Timestamp: p.Timestamp,
		Nonce:     p.Nonce,
		CreatedAt: &now,
	}
	applyEvent(synthesized, ev, now)
	l.prepend(synthesized)
	return clone(synthesized), ReconcileSynthesized
}

// Snapshot returns copies of the current entries, newest first.
func (l *RecentList) Snapshot() []*entity.Greeting {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]*entity.Greeting, len(l.items))
	for i, g := range l.items {
		res[i] = clone(g)
	}
	return res
}

func (l *RecentList) indexOf(id string) int {
	for i, g := range l.items {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func applyEvent(g *entity.Greeting, ev *SentEvent, now time.Time) {
	txHash, msgID := ev.TransactionHash, ev.MessageID
	g.TransactionHash = &txHash
	g.MessageID = &msgID
	g.DestinationChainSelector = strconv.FormatUint(ev.DestinationChainSelector, 10)
	g.Error = nil
	g.ConfirmedAt = &now
}

func clone(g *entity.Greeting) *entity.Greeting {
	c := *g
	return &c
}
