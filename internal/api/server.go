// Package api exposes the listing proxy over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"forseti-scan/internal/domain"
	"forseti-scan/internal/listing"
	"forseti-scan/internal/observability"
	"forseti-scan/internal/storage"
)

// FeedFetcher proxies the upstream candle feed.
type FeedFetcher interface {
	TokenFeed(ctx context.Context, tokenID string) ([]*domain.Candle, error)
}

// Options configures Server.
type Options struct {
	Listing   *listing.Service
	Feed      FeedFetcher
	Snapshots storage.SnapshotStore // optional
	Candles   storage.CandleStore   // optional feed fallback
	Stream    http.Handler          // optional /ws handler
	Logger    *log.Logger
}

// Server holds the HTTP handlers for the listing proxy.
type Server struct {
	listing   *listing.Service
	feed      FeedFetcher
	snapshots storage.SnapshotStore
	candles   storage.CandleStore
	stream    http.Handler
	logger    *log.Logger
	started   time.Time
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[api] ", log.LstdFlags)
	}
	return &Server{
		listing:   opts.Listing,
		feed:      opts.Feed,
		snapshots: opts.Snapshots,
		candles:   opts.Candles,
		stream:    opts.Stream,
		logger:    logger,
		started:   time.Now(),
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tokens", s.handleTokens)
	mux.HandleFunc("GET /api/tokens/{id}/feed", s.handleFeed)
	mux.HandleFunc("GET /api/tokens/{id}/history", s.handleHistory)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", observability.Handler())

	if s.stream != nil {
		mux.Handle("GET /ws", s.stream)
	}

	return mux
}

// errorResponse is the JSON body for error replies.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// handleTokens serves one page of the cached listing.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", listing.DefaultPageLimit)

	result, err := s.listing.GetTokens(r.Context(), page, limit)
	if err != nil {
		s.logger.Printf("fetch tokens: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to fetch tokens",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleFeed proxies the candle feed for one token, falling back to the
// candle store when the upstream call fails.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	tokenID := r.PathValue("id")

	feed, err := s.feed.TokenFeed(r.Context(), tokenID)
	if err != nil && s.candles != nil {
		feed, err = s.candles.GetByTokenID(r.Context(), tokenID)
	}
	if err != nil {
		s.logger.Printf("fetch feed for %s: %v", tokenID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to fetch feed",
			Details: err.Error(),
		})
		return
	}

	if feed == nil {
		feed = []*domain.Candle{}
	}
	writeJSON(w, http.StatusOK, feed)
}

// historyResponse wraps persisted risk snapshots for one token.
type historyResponse struct {
	TokenID   string            `json:"token_id"`
	Snapshots []snapshotPayload `json:"snapshots"`
}

// snapshotPayload is the JSON shape of one persisted snapshot.
type snapshotPayload struct {
	Risk       domain.RiskLevel `json:"risk"`
	VolumeBTC  float64          `json:"volume_btc"`
	VolumeUSD  float64          `json:"volume_usd"`
	CapturedAt int64            `json:"captured_at"`
}

// handleHistory serves the persisted risk history for one token, newest
// first. Without a snapshot store the history is always empty.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	tokenID := r.PathValue("id")

	resp := historyResponse{TokenID: tokenID, Snapshots: []snapshotPayload{}}

	if s.snapshots != nil {
		snaps, err := s.snapshots.GetByTokenID(r.Context(), tokenID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Printf("fetch history for %s: %v", tokenID, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Failed to fetch history",
				Details: err.Error(),
			})
			return
		}
		for _, snap := range snaps {
			resp.Snapshots = append(resp.Snapshots, snapshotPayload{
				Risk:       snap.Risk,
				VolumeBTC:  snap.VolumeBTC,
				VolumeUSD:  snap.VolumeUSD,
				CapturedAt: snap.CapturedAt,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// statusResponse is the JSON response for the /status endpoint.
type statusResponse struct {
	Status  string         `json:"status"`
	Uptime  string         `json:"uptime"`
	Listing listing.Status `json:"listing"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "running",
		Uptime:  time.Since(s.started).String(),
		Listing: s.listing.Status(),
	})
}

// queryInt parses an integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
