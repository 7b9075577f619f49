package relay

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/omni/festival-greetings/db"
	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/greeting"
	"github.com/omni/festival-greetings/logging"
)

type Sender interface {
	SendFestivalData(ctx context.Context, receiver common.Address, data string) (common.Hash, error)
}

type Config struct {
	// SenderChainID is the chain the sender contract is deployed on.
	SenderChainID string
	// Receiver is passed as the first argument of every sendFestivalData call.
	Receiver         common.Address
	KnownChains      []string
	RecentCapacity   int
	CorrelationNonce bool
}

type SubmitRequest struct {
	Input     greeting.Input
	FromChain string
	ToChain   string
}

// Service sends greetings and keeps the recent list in sync with the sender contract events.
type Service struct {
	logger   logging.Logger
	cfg      Config
	sender   Sender
	repo     entity.GreetingsRepo
	readBack *ReadBack
	recent   *greeting.RecentList
	sending  int32
	now      func() time.Time
}

// NewService wires the relay. repo may be nil, in which case greetings are kept in memory only.
func NewService(logger logging.Logger, cfg Config, sender Sender, receiver ReceiverReader, repo entity.GreetingsRepo) *Service {
	return &Service{
		logger:   logger,
		cfg:      cfg,
		sender:   sender,
		repo:     repo,
		readBack: NewReadBack(logger.WithField("component", "read_back"), receiver),
		recent:   greeting.NewRecentList(cfg.RecentCapacity),
		now:      time.Now,
	}
}

// Restore loads the newest persisted greetings into the recent list.
func (s *Service) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	greetings, err := s.repo.FindRecent(ctx, uint64(s.recent.Capacity()))
	if err != nil {
		return fmt.Errorf("can't load recent greetings: %w", err)
	}
	for i := len(greetings) - 1; i >= 0; i-- {
		s.recent.Prepend(greetings[i])
	}
	s.logger.WithField("count", len(greetings)).Info("restored recent greetings")
	return nil
}

// Start performs the initial read-back.
func (s *Service) Start(ctx context.Context) {
	s.refreshReadBack(ctx)
}

func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*entity.Greeting, error) {
	in, fieldErrs := greeting.Validate(req.Input)
	if fieldErrs != nil {
		return nil, &ValidationError{Fields: fieldErrs}
	}
	if req.FromChain == "" || req.ToChain == "" {
		return nil, ErrChainNotSelected
	}
	for _, chainID := range []string{req.FromChain, req.ToChain} {
		if !s.isKnownChain(chainID) {
			return nil, fmt.Errorf("chain %s: %w", chainID, ErrUnknownChain)
		}
	}
	if req.FromChain != s.cfg.SenderChainID {
		return nil, fmt.Errorf("chain %s: %w", req.FromChain, ErrUnsupportedSourceChain)
	}

	now := s.now()
	nonce := ""
	if s.cfg.CorrelationNonce {
		nonce = uuid.NewString()
	}
	payload := greeting.NewPayload(in, now, nonce)
	raw, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	entry := &entity.Greeting{
		ID:        uuid.NewString(),
		Greeting:  payload.Greeting,
		Name:      payload.Name,
		Festival:  payload.Festival,
		Timestamp: payload.Timestamp,
		Nonce:     payload.Nonce,
		FromChain: req.FromChain,
		ToChain:   req.ToChain,
		CreatedAt: &now,
	}
	logger := s.logger.WithFields(logrus.Fields{
		"greeting_id": entry.ID,
		"from_chain":  req.FromChain,
		"to_chain":    req.ToChain,
	})
	for _, evicted := range s.recent.Prepend(entry) {
		logger.WithField("evicted_id", evicted.ID).Debug("evicted oldest greeting from recent list")
	}
	s.persist(ctx, logger, entry)

	txHash, err := s.send(ctx, raw)
	if err != nil {
		msg := submissionMessage(err)
		entry.Error = &msg
		if updated, ok := s.recent.SetError(entry.ID, msg); ok {
			entry = updated
		}
		FailedGreetings.WithLabelValues(req.FromChain, req.ToChain).Inc()
		logger.WithError(err).Error("failed to send greeting")
		s.persist(ctx, logger, entry)
		return entry, &SubmissionError{Message: msg, Err: err}
	}

	if updated, ok := s.recent.SetTransactionHash(entry.ID, txHash); ok {
		entry = updated
	} else if entry.TransactionHash == nil {
		entry.TransactionHash = &txHash
	}
	SubmittedGreetings.WithLabelValues(req.FromChain, req.ToChain).Inc()
	logger.WithField("tx_hash", txHash).Info("greeting transaction sent")
	s.persist(ctx, logger, entry)
	s.refreshReadBack(ctx)
	return entry, nil
}

func (s *Service) send(ctx context.Context, raw string) (common.Hash, error) {
	atomic.AddInt32(&s.sending, 1)
	SendingGreetings.Inc()
	defer func() {
		atomic.AddInt32(&s.sending, -1)
		SendingGreetings.Dec()
	}()
	return s.sender.SendFestivalData(ctx, s.cfg.Receiver, raw)
}

// Sending reports whether a greeting transaction is being submitted right now.
func (s *Service) Sending() bool {
	return atomic.LoadInt32(&s.sending) > 0
}

// HandleFestivalDataSent merges a confirmed event into the recent list and the store.
// Undecodable payloads are logged and skipped. Handling the same event twice is a no-op.
func (s *Service) HandleFestivalDataSent(ctx context.Context, ev *greeting.SentEvent) error {
	logger := s.logger.WithFields(logrus.Fields{
		"message_id":   ev.MessageID,
		"tx_hash":      ev.TransactionHash,
		"block_number": ev.BlockNumber,
	})
	payload, err := greeting.ParsePayload(ev.FestivalData)
	if err != nil {
		InvalidPayloads.WithLabelValues("event").Inc()
		logger.WithError(err).Warn("skipping event with invalid festival data")
		return nil
	}

	g, outcome := s.recent.Reconcile(ev, payload, s.now())
	ReconciledEvents.WithLabelValues(outcome.String()).Inc()
	logger = logger.WithFields(logrus.Fields{
		"greeting_id": g.ID,
		"outcome":     outcome.String(),
	})
	logger.Info("reconciled festival data event")

	if s.repo != nil {
		if outcome == greeting.ReconcileSynthesized {
			g, err = s.confirmStored(ctx, ev, payload, g)
			if err != nil {
				return err
			}
		}
		if err = s.repo.Ensure(ctx, g); err != nil {
			return fmt.Errorf("can't save confirmed greeting: %w", err)
		}
	}
	if outcome != greeting.ReconcileDuplicate {
		s.refreshReadBack(ctx)
	}
	return nil
}

// confirmStored prefers a persisted unconfirmed greeting over the synthesized one,
// so that greetings evicted from memory keep their id and chain selection in the store.
func (s *Service) confirmStored(ctx context.Context, ev *greeting.SentEvent, payload *greeting.Payload, synthesized *entity.Greeting) (*entity.Greeting, error) {
	stored, err := s.repo.GetByMessageID(ctx, ev.MessageID)
	if err = db.IgnoreErrNotFound(err); err != nil {
		return nil, fmt.Errorf("can't look up greeting by message id: %w", err)
	}
	if stored != nil {
		return stored, nil
	}
	stored, err = s.repo.GetUnconfirmedByKey(ctx, payload.Key())
	if err = db.IgnoreErrNotFound(err); err != nil {
		return nil, fmt.Errorf("can't look up unconfirmed greeting: %w", err)
	}
	if stored == nil {
		return synthesized, nil
	}
	if stored.TransactionHash != nil && *stored.TransactionHash != ev.TransactionHash {
		return synthesized, nil
	}
	stored.TransactionHash = synthesized.TransactionHash
	stored.MessageID = synthesized.MessageID
	stored.DestinationChainSelector = synthesized.DestinationChainSelector
	stored.ConfirmedAt = synthesized.ConfirmedAt
	stored.Error = nil
	return stored, nil
}

func (s *Service) persist(ctx context.Context, logger logging.Logger, g *entity.Greeting) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Ensure(ctx, g); err != nil {
		logger.WithError(err).Error("failed to save greeting")
	}
}

func (s *Service) refreshReadBack(ctx context.Context) {
	if _, err := s.readBack.Refresh(ctx); err != nil {
		s.logger.WithError(err).Warn("failed to refresh last received greeting")
	}
}

func (s *Service) isKnownChain(chainID string) bool {
	for _, known := range s.cfg.KnownChains {
		if known == chainID {
			return true
		}
	}
	return false
}

// Recent returns a snapshot of the recent greetings, newest first.
func (s *Service) Recent() []*entity.Greeting {
	return s.recent.Snapshot()
}

func (s *Service) History(ctx context.Context, limit uint64) ([]*entity.Greeting, error) {
	if s.repo == nil {
		return s.recent.Snapshot(), nil
	}
	return s.repo.FindRecent(ctx, limit)
}

func (s *Service) ReadBack() *ReadBack {
	return s.readBack
}
