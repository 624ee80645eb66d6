package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"sms-webhook/internal/metrics"
	"sms-webhook/internal/model"
	"sms-webhook/internal/signature"
	"sms-webhook/internal/storage"
)

// resultInvalidSignature is the outcome label for rejected deliveries;
// accepted ones carry the storage.InsertResult value.
const resultInvalidSignature = "invalid_signature"

const maxWebhookBody = 64 * 1024

func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(a.Logger))
	r.Use(chimw.Recoverer)

	r.Post("/webhook", a.Webhook)
	r.Get("/messages", a.ListMessages)
	r.Get("/stats", a.Stats)
	r.Get("/health/live", a.Live)
	r.Get("/health/ready", a.Ready)
	r.Handle("/metrics", metrics.Handler())

	return r
}

// @Summary Receive a signed SMS webhook
// @Tags Webhook
// @Accept json
// @Produce json
// @Param X-Signature header string true "Hex HMAC-SHA256 of the raw body"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /webhook [post]
func (a *API) Webhook(w http.ResponseWriter, r *http.Request) {
	// The signature covers the exact bytes received, so the body is
	// read before any parsing.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		a.Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if !signature.Verify(body, r.Header.Get("X-Signature"), a.Cfg.WebhookSecret) {
		metrics.WebhookRequests.WithLabelValues(resultInvalidSignature).Inc()
		a.Logger.Error().
			Str("path", "/webhook").
			Str("result", resultInvalidSignature).
			Msg("webhook rejected")
		a.Error(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload model.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		a.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := payload.Validate(); err != nil {
		a.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.Store.InsertMessage(r.Context(), payload.Message())
	if err != nil {
		a.Logger.Error().Err(err).
			Str("message_id", payload.MessageID).
			Msg("failed to store message")
		a.Error(w, http.StatusInternalServerError, "storage error")
		return
	}

	metrics.WebhookRequests.WithLabelValues(string(result)).Inc()
	a.Logger.Info().
		Str("message_id", payload.MessageID).
		Bool("dup", result == storage.ResultDuplicate).
		Str("result", string(result)).
		Msg("webhook accepted")

	a.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Summary List stored messages
// @Tags Messages
// @Produce json
// @Param limit query int false "Page size (1-100, default 50)"
// @Param offset query int false "Page offset"
// @Param from query string false "Sender MSISDN"
// @Param since query string false "Minimum timestamp"
// @Param q query string false "Substring match on body text"
// @Success 200 {object} model.MessagePage
// @Router /messages [get]
func (a *API) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if s := q.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := q.Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}

	page, err := a.Store.ListMessages(r.Context(), model.MessageFilter{
		From:   q.Get("from"),
		Since:  q.Get("since"),
		Query:  q.Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to list messages")
		a.Error(w, http.StatusInternalServerError, "storage error")
		return
	}

	a.JSON(w, http.StatusOK, page)
}

// @Summary Aggregate message statistics
// @Tags Messages
// @Produce json
// @Success 200 {object} model.Stats
// @Router /stats [get]
func (a *API) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Store.Stats(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to compute stats")
		a.Error(w, http.StatusInternalServerError, "storage error")
		return
	}

	a.JSON(w, http.StatusOK, stats)
}

// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func (a *API) Live(w http.ResponseWriter, r *http.Request) {
	a.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health/ready [get]
func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if a.Cfg.WebhookSecret == "" || a.Store.Ping(ctx) != nil {
		a.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	a.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
