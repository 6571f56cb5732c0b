package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tradesim/internal/engine"
	"tradesim/internal/journal"
	"tradesim/internal/ledger"
	"tradesim/internal/marketdata"
	"tradesim/internal/rulebook"
	"tradesim/internal/session"
	"tradesim/internal/watchset"
)

// Server serves the trading session API.
type Server struct {
	sess      *session.Session
	engine    *engine.Engine
	scheduler *engine.Scheduler
	journal   *journal.Journal
	interval  time.Duration // default poll interval for engine start
	log       *slog.Logger
}

// NewServer wires the API over an existing session and engine. journal may
// be nil, in which case the journal endpoint reports an empty history.
func NewServer(sess *session.Session, eng *engine.Engine, sched *engine.Scheduler, jrnl *journal.Journal, interval time.Duration, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		sess:      sess,
		engine:    eng,
		scheduler: sched,
		journal:   jrnl,
		interval:  interval,
		log:       log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("PUT /api/cash", s.handleSetCash)

	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("PUT /api/watchlist/{symbol}", s.handleAddWatchlist)
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", s.handleRemoveWatchlist)

	mux.HandleFunc("GET /api/rules", s.handleGetRules)
	mux.HandleFunc("POST /api/rules", s.handleAddRule)
	mux.HandleFunc("DELETE /api/rules/{id}", s.handleRemoveRule)

	mux.HandleFunc("POST /api/trade/buy", s.handleBuy)
	mux.HandleFunc("POST /api/trade/sell", s.handleSell)

	mux.HandleFunc("POST /api/engine/start", s.handleEngineStart)
	mux.HandleFunc("POST /api/engine/stop", s.handleEngineStop)
	mux.HandleFunc("GET /api/engine/status", s.handleEngineStatus)

	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/journal", s.handleJournal)
}

// Handler returns the full API handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP statuses: validation faults are 400,
// business-rule rejections 409, lookups 404, and a missing quote 503 since
// the condition is transient.
func statusFor(err error) int {
	switch {
	case errors.Is(err, marketdata.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientShares),
		errors.Is(err, ledger.ErrNotHeld),
		errors.Is(err, rulebook.ErrUnownedShares),
		errors.Is(err, watchset.ErrHeld):
		return http.StatusConflict
	case errors.Is(err, rulebook.ErrNotFound),
		errors.Is(err, watchset.ErrNotWatched):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	p := s.engine.Portfolio(r.Context())
	writeJSON(w, PortfolioResponse{
		Cash:     p.Cash,
		Holdings: p.Holdings,
		Total:    p.Total,
		Unpriced: p.Unpriced,
	})
}

func (s *Server) handleSetCash(w http.ResponseWriter, r *http.Request) {
	var req SetCashRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.sess.Ledger.SetCash(req.Cash); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, map[string]any{"cash": s.sess.Ledger.Cash()})
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, WatchlistResponse{Symbols: s.sess.Watch.List()})
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	// Adding an already-watched symbol is a no-op, not an error.
	s.sess.Watch.Add(r.PathValue("symbol"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if err := s.sess.Watch.Remove(symbol); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	rules := s.sess.Rules.List()
	out := make([]RuleJSON, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleToJSON(rule))
	}
	writeJSON(w, RulesResponse{Rules: out})
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var req AddRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := s.sess.Rules.Add(rulebook.Spec{
		Symbol:      req.Symbol,
		Kind:        req.Kind,
		TargetPrice: req.TargetPrice,
		Quantity:    req.Quantity,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ruleToJSON(rule))
}

func (s *Server) handleRemoveRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	if err := s.sess.Rules.Remove(id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, err := s.engine.Buy(r.Context(), req.Symbol, req.Quantity)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, TradeResponse{Symbol: req.Symbol, Quantity: req.Quantity, Price: price})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, err := s.engine.Sell(r.Context(), req.Symbol, req.Quantity)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, TradeResponse{Symbol: req.Symbol, Quantity: req.Quantity, Price: price})
}

func (s *Server) handleEngineStart(w http.ResponseWriter, r *http.Request) {
	interval := s.interval
	if r.ContentLength > 0 {
		var req EngineStartRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.IntervalSeconds < 0 {
			writeError(w, http.StatusBadRequest, "interval must not be negative")
			return
		}
		if req.IntervalSeconds > 0 {
			interval = time.Duration(req.IntervalSeconds) * time.Second
		}
	}

	// Starting a running engine is a no-op, not an error.
	s.scheduler.Start(interval)
	writeJSON(w, s.status())
}

func (s *Server) handleEngineStop(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Stop()
	writeJSON(w, s.status())
}

func (s *Server) handleEngineStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.status())
}

func (s *Server) status() EngineStatusResponse {
	return EngineStatusResponse{
		Running:         s.scheduler.Running(),
		IntervalSeconds: int(s.scheduler.Interval() / time.Second),
	}
}

// handleEvents streams session notifications as server-sent events until the
// client disconnects. A slow client misses events rather than stalling the
// trading path.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	id, events := s.sess.Bus.Subscribe(64)
	defer s.sess.Bus.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: ", ev.Type)
			if err := enc.Encode(ev); err != nil {
				return
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, map[string]any{"trades": []journal.Entry{}})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.journal.List(limit)
	if err != nil {
		s.log.Error("listing journal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, map[string]any{"trades": entries})
}
