package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/greeting"
	"github.com/omni/festival-greetings/logging"
	"github.com/omni/festival-greetings/presenter/http/middleware"
	"github.com/omni/festival-greetings/presenter/http/render"
	"github.com/omni/festival-greetings/relay"
)

const (
	maxRequestBodySize = 64 << 10
	maxConcurrentReqs  = 10
	shutdownTimeout    = 5 * time.Second
)

type Relay interface {
	Submit(ctx context.Context, req relay.SubmitRequest) (*entity.Greeting, error)
	Recent() []*entity.Greeting
	History(ctx context.Context, limit uint64) ([]*entity.Greeting, error)
	Sending() bool
	ReadBack() *relay.ReadBack
}

type Presenter struct {
	logger   logging.Logger
	cfg      *config.Config
	relay    Relay
	isSynced func() bool
	explorer *Explorer
	root     chi.Router
}

// NewPresenter builds the HTTP API. isSynced may be nil when no contract monitor is running.
func NewPresenter(logger logging.Logger, cfg *config.Config, r Relay, isSynced func() bool) *Presenter {
	p := &Presenter{
		logger:   logger,
		cfg:      cfg,
		relay:    r,
		isSynced: isSynced,
		explorer: NewExplorer(cfg.Explorer),
		root:     chi.NewMux(),
	}
	p.root.Use(chimiddleware.Throttle(maxConcurrentReqs))
	p.root.Use(chimiddleware.RequestID)
	p.root.Use(middleware.NewLoggerMiddleware(p.logger))
	p.root.Use(middleware.Recoverer)

	p.root.Route("/chains", func(r chi.Router) {
		r.Get("/", p.GetChains)
		r.With(middleware.GetChainConfigMiddleware(cfg)).Get("/{chainID:[0-9]+}", p.GetChain)
	})
	p.root.Route("/greetings", func(r chi.Router) {
		r.Get("/", p.GetRecentGreetings)
		r.Post("/", p.SendGreeting)
		r.Post("/validate", p.ValidateGreeting)
		r.With(middleware.GetLimitMiddleware, middleware.GetFilterMiddleware).Get("/history", p.GetGreetingsHistory)
		r.With(middleware.GetRefreshMiddleware, middleware.GetFilterMiddleware).Get("/last", p.GetLastReceived)
	})
	p.root.Get("/status", p.GetStatus)
	return p
}

func (p *Presenter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.root.ServeHTTP(w, r)
}

func (p *Presenter) Serve(ctx context.Context, addr string) error {
	p.logger.WithField("addr", addr).Info("starting presenter service")
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			p.logger.WithError(err).Error("failed to shutdown presenter service")
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("presenter service failed: %w", err)
	}
	return nil
}

func (p *Presenter) GetChains(w http.ResponseWriter, r *http.Request) {
	chains := p.cfg.SortedChains()
	res := &ChainsResult{
		Chains:           make([]*ChainInfo, 0, len(chains)),
		DefaultFromChain: p.cfg.Greetings.DefaultFromChain,
		DefaultToChain:   p.cfg.Greetings.DefaultToChain,
	}
	for _, chain := range chains {
		res.Chains = append(res.Chains, chainToInfo(chain, p.cfg.Sender.Chain.ChainID, p.cfg.Receiver.Chain.ChainID))
	}
	render.JSON(w, r, http.StatusOK, res)
}

func (p *Presenter) GetChain(w http.ResponseWriter, r *http.Request) {
	chain := middleware.ChainConfig(r.Context())
	if chain == nil {
		render.Error(w, r, http.StatusNotFound, "chain not found", config.ErrUnknownChain)
		return
	}
	render.JSON(w, r, http.StatusOK, chainToInfo(chain, p.cfg.Sender.Chain.ChainID, p.cfg.Receiver.Chain.ChainID))
}

func (p *Presenter) ValidateGreeting(w http.ResponseWriter, r *http.Request) {
	var in greeting.Input
	if !decodeBody(w, r, &in) {
		return
	}
	_, fieldErrs := greeting.Validate(in)
	render.JSON(w, r, http.StatusOK, &ValidationResult{
		Valid:  fieldErrs == nil,
		Errors: fieldErrs,
	})
}

func (p *Presenter) SendGreeting(w http.ResponseWriter, r *http.Request) {
	var req SendGreetingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := p.relay.Submit(r.Context(), relay.SubmitRequest{
		Input:     req.Input,
		FromChain: req.FromChain,
		ToChain:   req.ToChain,
	})
	if err != nil {
		p.renderRelayError(w, r, err)
		return
	}
	render.JSON(w, r, http.StatusAccepted, p.greetingToInfo(g))
}

func (p *Presenter) GetRecentGreetings(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, http.StatusOK, p.greetingsToInfo(p.relay.Recent()))
}

func (p *Presenter) GetGreetingsHistory(w http.ResponseWriter, r *http.Request) {
	filter := middleware.GetFilterContext(r.Context())
	greetings, err := p.relay.History(r.Context(), filter.Limit)
	if err != nil {
		render.Error(w, r, http.StatusInternalServerError, "can't load greetings history", err)
		return
	}
	render.JSON(w, r, http.StatusOK, p.greetingsToInfo(greetings))
}

func (p *Presenter) GetLastReceived(w http.ResponseWriter, r *http.Request) {
	filter := middleware.GetFilterContext(r.Context())
	readBack := p.relay.ReadBack()
	last := readBack.Latest()
	if filter.Refresh || last == nil {
		var err error
		last, err = readBack.Refresh(r.Context())
		if err != nil {
			render.Error(w, r, http.StatusBadGateway, "can't read the receiver contract", err)
			return
		}
	}
	render.JSON(w, r, http.StatusOK, lastReceivedToInfo(last))
}

func (p *Presenter) GetStatus(w http.ResponseWriter, r *http.Request) {
	res := &StatusResult{
		Sending:         p.relay.Sending(),
		SenderChainID:   p.cfg.Sender.Chain.ChainID,
		ReceiverChainID: p.cfg.Receiver.Chain.ChainID,
		RecentCount:     len(p.relay.Recent()),
	}
	if p.isSynced != nil {
		res.Synced = p.isSynced()
	}
	render.JSON(w, r, http.StatusOK, res)
}

func (p *Presenter) renderRelayError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *relay.ValidationError
	var submissionErr *relay.SubmissionError
	switch {
	case errors.As(err, &validationErr):
		render.ValidationError(w, r, validationErr.Fields)
	case errors.Is(err, relay.ErrChainNotSelected):
		render.Error(w, r, http.StatusBadRequest, relay.MsgChainNotSelected, err)
	case errors.Is(err, relay.ErrUnknownChain), errors.Is(err, relay.ErrUnsupportedSourceChain):
		render.Error(w, r, http.StatusBadRequest, err.Error(), err)
	case errors.As(err, &submissionErr):
		render.Error(w, r, http.StatusBadGateway, submissionErr.Message, err)
	default:
		render.Error(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		render.Error(w, r, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}
