package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/presenter/http/render"
)

type ctxKey int

const (
	chainCfgCtxKey ctxKey = iota
	limitCtxKey
	refreshCtxKey
	filterCtxKey
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var (
	ErrInvalidLimit   = errors.New("invalid limit parameter")
	ErrInvalidRefresh = errors.New("invalid refresh parameter")
)

type FilterContext struct {
	Limit   uint64
	Refresh bool
}

func GetChainConfigMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chainID := chi.URLParam(r, "chainID")

			if chainID == "" {
				chainID = r.URL.Query().Get("chainId")
				if chainID == "" {
					next.ServeHTTP(w, r)
					return
				}
			}

			chainCfg := cfg.GetChainConfig(chainID)
			if chainCfg == nil {
				render.Error(w, r, http.StatusNotFound, fmt.Sprintf("chain with id %s not found", chainID), config.ErrUnknownChain)
				return
			}

			ctx := context.WithValue(r.Context(), chainCfgCtxKey, chainCfg)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ChainConfig(ctx context.Context) *config.ChainConfig {
	if cfg, ok := ctx.Value(chainCfgCtxKey).(*config.ChainConfig); ok {
		return cfg
	}
	return nil
}

func GetLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limitStr := r.URL.Query().Get("limit")
		if limitStr == "" {
			next.ServeHTTP(w, r)
			return
		}

		limit, err := strconv.ParseUint(limitStr, 10, 32)
		if err != nil || limit == 0 {
			render.Error(w, r, http.StatusBadRequest, "limit must be a positive integer", fmt.Errorf("%q: %w", limitStr, ErrInvalidLimit))
			return
		}
		if limit > MaxLimit {
			render.Error(w, r, http.StatusBadRequest, fmt.Sprintf("cannot request more than %d greetings", MaxLimit), fmt.Errorf("%d: %w", limit, ErrInvalidLimit))
			return
		}

		ctx := context.WithValue(r.Context(), limitCtxKey, limit)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRefreshMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshStr := r.URL.Query().Get("refresh")
		if refreshStr == "" {
			next.ServeHTTP(w, r)
			return
		}

		refresh, err := strconv.ParseBool(refreshStr)
		if err != nil {
			render.Error(w, r, http.StatusBadRequest, "refresh must be a boolean", fmt.Errorf("%q: %w", refreshStr, ErrInvalidRefresh))
			return
		}

		ctx := context.WithValue(r.Context(), refreshCtxKey, refresh)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetFilterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filter := &FilterContext{Limit: DefaultLimit}

		if limit, ok := ctx.Value(limitCtxKey).(uint64); ok {
			filter.Limit = limit
		}
		if refresh, ok := ctx.Value(refreshCtxKey).(bool); ok {
			filter.Refresh = refresh
		}

		ctx = context.WithValue(ctx, filterCtxKey, filter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetFilterContext(ctx context.Context) *FilterContext {
	if cfg, ok := ctx.Value(filterCtxKey).(*FilterContext); ok {
		return cfg
	}
	return &FilterContext{Limit: DefaultLimit}
}
