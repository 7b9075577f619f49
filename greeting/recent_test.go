package greeting_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/greeting"
)

var (
	txHash1 = common.HexToHash("0x01")
	txHash2 = common.HexToHash("0x02")
	msgID1  = common.HexToHash("0xaa")
	msgID2  = common.HexToHash("0xbb")
)

func newPending(id, text, timestamp string) *entity.Greeting {
	return &entity.Greeting{
		ID:        id,
		Greeting:  text,
		Name:      "Ana",
		Festival:  "Diwali",
		Timestamp: timestamp,
		FromChain: "43113",
		ToChain:   "11155111",
	}
}

func payloadOf(g *entity.Greeting) *greeting.Payload {
	return &greeting.Payload{Greeting: g.Greeting, Name: g.Name, Festival: g.Festival, Timestamp: g.Timestamp, Nonce: g.Nonce}
}

func ids(items []*entity.Greeting) []string {
	res := make([]string, len(items))
	for i, g := range items {
		res[i] = g.ID
	}
	return res
}

func TestRecentList_PrependEvictsOldest(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(3)
	for i := 1; i <= 3; i++ {
		require.Empty(t, l.Prepend(newPending(fmt.Sprint(i), "hi", "t")))
	}
	require.Equal(t, []string{"3", "2", "1"}, ids(l.Snapshot()))

	evicted := l.Prepend(newPending("4", "hi", "t"))
	require.Equal(t, []string{"1"}, ids(evicted))
	require.Equal(t, []string{"4", "3", "2"}, ids(l.Snapshot()))
	require.Equal(t, 3, l.Len())
}

func TestRecentList_DefaultCapacity(t *testing.T) {
	t.Parallel()

	require.Equal(t, greeting.DefaultRecentCapacity, greeting.NewRecentList(0).Capacity())
	require.Equal(t, greeting.DefaultRecentCapacity, greeting.NewRecentList(-1).Capacity())
}

func TestRecentList_SnapshotIsDetached(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(2)
	l.Prepend(newPending("1", "hi", "t"))
	snapshot := l.Snapshot()
	snapshot[0].Name = "changed"

	g, ok := l.Get("1")
	require.True(t, ok)
	require.Equal(t, "Ana", g.Name)
}

func TestRecentList_SetTransactionHash(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(5)
	l.Prepend(newPending("1", "first", "t1"))
	l.Prepend(newPending("2", "second", "t2"))

	g, ok := l.SetTransactionHash("1", txHash1)
	require.True(t, ok)
	require.Equal(t, txHash1, *g.TransactionHash)
	require.Equal(t, entity.GreetingStatusSubmitted, g.Status())

	latest, ok := l.Get("2")
	require.True(t, ok)
	require.Nil(t, latest.TransactionHash)

	_, ok = l.SetTransactionHash("missing", txHash1)
	require.False(t, ok)
}

func TestRecentList_SetError(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(5)
	l.Prepend(newPending("1", "first", "t1"))
	g, ok := l.SetError("1", "user rejected")
	require.True(t, ok)
	require.Equal(t, entity.GreetingStatusFailed, g.Status())
	require.Equal(t, "user rejected", *g.Error)
}

func TestRecentList_ReconcileMatchesPendingEntry(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(5)
	pending := newPending("1", "Happy Diwali!", "2024-11-01T10:30:15.123Z")
	l.Prepend(pending)
	l.Prepend(newPending("2", "other", "2024-11-01T10:30:16.000Z"))
	l.SetTransactionHash("1", txHash1)

	ev := &greeting.SentEvent{MessageID: msgID1, TransactionHash: txHash1, DestinationChainSelector: 16015286601757825753}
	g, outcome := l.Reconcile(ev, payloadOf(pending), testTime)
	require.Equal(t, greeting.ReconcileMatched, outcome)
	require.Equal(t, "1", g.ID)
	require.Equal(t, txHash1, *g.TransactionHash)
	require.Equal(t, msgID1, *g.MessageID)
	require.Equal(t, "16015286601757825753", g.DestinationChainSelector)
	require.Equal(t, "43113", g.FromChain)
	require.Equal(t, "11155111", g.ToChain)
	require.Equal(t, entity.GreetingStatusConfirmed, g.Status())
	require.Equal(t, 2, l.Len())
}

func TestRecentList_ReconcileBeforeTransactionHash(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(5)
	pending := newPending("1", "Happy Holi", "t1")
	l.Prepend(pending)

	ev := &greeting.SentEvent{MessageID: msgID1, TransactionHash: txHash1}
	g, outcome := l.Reconcile(ev, payloadOf(pending), testTime)
	require.Equal(t, greeting.ReconcileMatched, outcome)
	require.Equal(t, txHash1, *g.TransactionHash)

	g, ok := l.SetTransactionHash("1", txHash2)
	require.True(t, ok)
	require.Equal(t, txHash1, *g.TransactionHash)
	require.Equal(t, msgID1, *g.MessageID)
}

func TestRecentList_ReconcileIsIdempotent(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(5)
	pending := newPending("1", "Happy Holi", "t1")
	l.Prepend(pending)

	ev := &greeting.SentEvent{MessageID: msgID1, TransactionHash: txHash1}
	_, outcome := l.Reconcile(ev, payloadOf(pending), testTime)
	require.Equal(t, greeting.ReconcileMatched, outcome)
	g, outcome := l.Reconcile(ev, payloadOf(pending), testTime)
	require.Equal(t, greeting.ReconcileDuplicate, outcome)
	require.Equal(t, "1", g.ID)
	require.Equal(t, 1, l.Len())
}

func TestRecentList_ReconcileMatchesAtMostOneEntry(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(5)
	older := newPending("1", "same", "t")
	newer := newPending("2", "same", "t")
	l.Prepend(older)
	l.Prepend(newer)

	g, outcome := l.Reconcile(&greeting.SentEvent{MessageID: msgID1, TransactionHash: txHash1}, payloadOf(older), testTime)
	require.Equal(t, greeting.ReconcileMatched, outcome)
	require.Equal(t, "2", g.ID)

	g, outcome = l.Reconcile(&greeting.SentEvent{MessageID: msgID2, TransactionHash: txHash2}, payloadOf(older), testTime)
	require.Equal(t, greeting.ReconcileMatched, outcome)
	require.Equal(t, "1", g.ID)

	for _, g := range l.Snapshot() {
		require.NotNil(t, g.MessageID)
	}
	require.Equal(t, 2, l.Len())
}

func TestRecentList_ReconcileSkipsEntryWithOtherTransaction(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(5)
	pending := newPending("1", "same", "t")
	l.Prepend(pending)
	l.SetTransactionHash("1", txHash2)

	g, outcome := l.Reconcile(&greeting.SentEvent{MessageID: msgID1, TransactionHash: txHash1}, payloadOf(pending), testTime)
	require.Equal(t, greeting.ReconcileSynthesized, outcome)
	require.NotEqual(t, "1", g.ID)
}

func TestRecentList_ReconcileByNonce(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(5)
	first := newPending("1", "same", "t")
	first.Nonce = "nonce-1"
	second := newPending("2", "same", "t")
	second.Nonce = "nonce-2"
	l.Prepend(first)
	l.Prepend(second)

	g, outcome := l.Reconcile(&greeting.SentEvent{MessageID: msgID1, TransactionHash: txHash1}, payloadOf(first), testTime)
	require.Equal(t, greeting.ReconcileMatched, outcome)
	require.Equal(t, "1", g.ID)
}

func TestRecentList_ReconcileSynthesizesWhenEvicted(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(1)
	evictedEntry := newPending("1", "first", "t1")
	l.Prepend(evictedEntry)
	l.Prepend(newPending("2", "second", "t2"))

	ev := &greeting.SentEvent{MessageID: msgID1, TransactionHash: txHash1, DestinationChainSelector: 14767482510784806043}
	g, outcome := l.Reconcile(ev, payloadOf(evictedEntry), testTime)
	require.Equal(t, greeting.ReconcileSynthesized, outcome)
	require.NotEmpty(t, g.ID)
	require.Equal(t, "first", g.Greeting)
	require.Equal(t, "Ana", g.Name)
	require.Equal(t, "Diwali", g.Festival)
	require.Equal(t, "t1", g.Timestamp)
	require.Empty(t, g.FromChain)
	require.Empty(t, g.ToChain)
	require.Equal(t, txHash1, *g.TransactionHash)
	require.Equal(t, msgID1, *g.MessageID)

	snapshot := l.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, g.ID, snapshot[0].ID)
}

func TestRecentList_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	l := greeting.NewRecentList(10)
	wg := new(sync.WaitGroup)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := newPending(fmt.Sprint(i), fmt.Sprint("greeting ", i), "t")
			l.Prepend(g)
			l.SetTransactionHash(g.ID, common.BigToHash(common.Big1))
			l.Reconcile(&greeting.SentEvent{MessageID: common.BytesToHash([]byte{byte(i)}), TransactionHash: common.BigToHash(common.Big1)}, payloadOf(g), testTime)
			l.Snapshot()
		}(i)
	}
	wg.Wait()
	require.Equal(t, 10, l.Len())
}
