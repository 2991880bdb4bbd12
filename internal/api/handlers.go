package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/allenday/tacos/internal/config"
	"github.com/allenday/tacos/internal/domain"
	"github.com/allenday/tacos/internal/ledger"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tacos_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tacos_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	givesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tacos_gives_recorded_total",
		Help: "Give transactions successfully appended to the ledger",
	})

	limitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tacos_limit_rejections_total",
		Help: "Give requests rejected by the rolling 24h limit",
	})
)

type Handler struct {
	service *ledger.Service
	cfg     *config.Config
}

func NewHandler(service *ledger.Service, cfg *config.Config) *Handler {
	return &Handler{service: service, cfg: cfg}
}

type giveRequest struct {
	Giver         string `json:"giver"`
	Recipient     string `json:"recipient"`
	Amount        int    `json:"amount"`
	Note          string `json:"note"`
	SourceChannel string `json:"source_channel"`
}

type giveResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
	Remaining   int                 `json:"remaining"`
	Unit        string              `json:"unit"`
}

func (h *Handler) CreateGiveHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/gives"))
	defer timer.ObserveDuration()

	var req giveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/gives")
		return
	}
	if req.Giver == "" || req.Recipient == "" {
		h.respondError(w, http.StatusBadRequest, "Giver and recipient are required", "POST", "/gives")
		return
	}

	tx, err := h.service.RecordGive(r.Context(), domain.TransactionDraft{
		Giver:         req.Giver,
		Recipient:     req.Recipient,
		Amount:        req.Amount,
		Note:          req.Note,
		SourceChannel: req.SourceChannel,
	})
	if err != nil {
		var limitErr *ledger.LimitExceededError
		switch {
		case errors.Is(err, ledger.ErrSelfGive):
			h.respondError(w, http.StatusUnprocessableEntity, "Self-give not allowed", "POST", "/gives")
		case errors.Is(err, ledger.ErrInvalidAmount):
			h.respondError(w, http.StatusUnprocessableEntity, "Positive amount required", "POST", "/gives")
		case errors.As(err, &limitErr):
			limitRejections.Inc()
			h.respondJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":     limitErr.Error(),
				"remaining": limitErr.Remaining,
				"limit":     limitErr.Limit,
			}, "POST", "/gives")
		default:
			h.respondError(w, http.StatusInternalServerError, "Internal Server Error", "POST", "/gives")
		}
		return
	}

	remaining, err := h.service.GetRemaining(r.Context(), tx.Giver)
	if err != nil {
		// The give itself is recorded; report it without the quota.
		remaining = -1
	}

	givesRecorded.Inc()
	unit := h.cfg.UnitNamePlural
	if tx.Amount == 1 {
		unit = h.cfg.UnitName
	}
	h.respondJSON(w, http.StatusCreated, giveResponse{Transaction: tx, Remaining: remaining, Unit: unit}, "POST", "/gives")
}

func (h *Handler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", h.cfg.LeaderboardLimit)
	if limit < 1 {
		limit = h.cfg.LeaderboardLimit
	}
	if limit > h.cfg.MaxHistoryLines {
		limit = h.cfg.MaxHistoryLines
	}

	entries, err := h.service.GetLeaderboard(r.Context(), limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", "GET", "/leaderboard")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"leaders": entries,
		"unit":    h.cfg.UnitNamePlural,
	}, "GET", "/leaderboard")
}

func (h *Handler) GivingHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["id"]
	txs, err := h.service.GetGivingHistory(r.Context(), user, queryInt(r, "lines", 0))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", "GET", "/users/{id}/given")
		return
	}
	h.respondJSON(w, http.StatusOK, transactionList(txs), "GET", "/users/{id}/given")
}

func (h *Handler) ReceivingHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["id"]
	txs, err := h.service.GetReceivingHistory(r.Context(), user, queryInt(r, "lines", 0))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", "GET", "/users/{id}/received")
		return
	}
	h.respondJSON(w, http.StatusOK, transactionList(txs), "GET", "/users/{id}/received")
}

func (h *Handler) RecentActivityHandler(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.GetRecentActivity(r.Context(), queryInt(r, "lines", 0))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", "GET", "/history")
		return
	}
	h.respondJSON(w, http.StatusOK, transactionList(txs), "GET", "/history")
}

func (h *Handler) RemainingHandler(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["id"]
	remaining, err := h.service.GetRemaining(r.Context(), user)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", "GET", "/users/{id}/remaining")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"remaining": remaining,
		"limit":     h.service.DailyLimit(),
	}, "GET", "/users/{id}/remaining")
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// transactionList keeps empty histories as [] rather than null in the
// response body.
func transactionList(txs []domain.Transaction) map[string]any {
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return map[string]any{"transactions": txs}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, message, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": message}, method, endpoint)
}
