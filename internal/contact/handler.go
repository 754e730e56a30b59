package contact

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"cherrycake/internal/logging"
)

const (
	maxBodyBytes   = 64 << 10
	limiterIdleTTL = 10 * time.Minute

	msgSuccess     = "메시지가 성공적으로 전송되었습니다."
	msgMalformed   = "요청 형식이 올바르지 않습니다."
	msgRateLimited = "잠시 후 다시 시도해 주세요."
	msgServerError = "서버 오류가 발생했습니다."
)

// Response is the success body of POST /api/contact.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handler serves POST /api/contact with a per-client token bucket.
type Handler struct {
	service *Service
	logger  *slog.Logger
	limit   rate.Limit
	burst   int
	now     func() time.Time

	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewHandler returns the HTTP handler. A non-positive perMinute disables
// rate limiting.
func NewHandler(service *Service, perMinute float64, burst int, logger *slog.Logger) *Handler {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60.0)
	}
	if burst < 1 {
		burst = 1
	}
	return &Handler{
		service:  service,
		logger:   logging.NewComponentLogger(logger, "contact-http"),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*clientLimiter),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	client := ClientAddr(r)
	if !h.allow(client) {
		w.Header().Set("Retry-After", "60")
		h.writeError(w, http.StatusTooManyRequests, msgRateLimited)
		return
	}

	var sub Submission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&sub); err != nil {
		h.logger.Debug("malformed contact body", logging.String("remote", client), logging.Error(err))
		h.writeError(w, http.StatusBadRequest, msgMalformed)
		return
	}

	_, err := h.service.Submit(r.Context(), sub, client)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Message)
	case err != nil:
		logging.ErrorWithContext(logging.WithContext(r.Context(), h.logger), "contact submission failed", "contact_store_failed",
			logging.String("remote", client),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the inbox database under paths.state_dir"),
		)
		h.writeError(w, http.StatusInternalServerError, msgServerError)
	default:
		h.writeJSON(w, http.StatusOK, Response{Success: true, Message: msgSuccess})
	}
}

func (h *Handler) allow(client string) bool {
	if h.limit == rate.Inf {
		return true
	}
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, entry := range h.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(h.limiters, key)
		}
	}
	entry, ok := h.limiters[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(h.limit, h.burst)}
		h.limiters[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// ClientAddr returns the host part of the request's remote address.
func ClientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
