package admission

import (
	"encoding/json"
	"net/http"
	"strconv"

	"admission-gateway/middleware/admission/domain"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"

	tooManyRequestsMessage = "Too many requests, please try again later."
	busyMessage            = "Server is busy, please try again later."
)

// ErrorBody é o corpo JSON das respostas de rejeição (429 e 503).
type ErrorBody struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// X-RateLimit-Reset vai em segundos desde epoch.
func writeQuotaHeaders(w http.ResponseWriter, dec domain.Decision) {
	h := w.Header()
	h.Set(HeaderLimit, strconv.Itoa(dec.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(max(dec.Remaining, 0)))
	h.Set(HeaderReset, strconv.FormatInt(dec.ResetAt.Unix(), 10))
}

func writeTooManyRequests(w http.ResponseWriter, dec domain.Decision) {
	writeRejection(w, http.StatusTooManyRequests, tooManyRequestsMessage, dec.RetryAfterSeconds())
}

func writeRejection(w http.ResponseWriter, status int, msg string, retryAfter int) {
	w.Header().Set(HeaderRetryAfter, strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{
		Success:    false,
		Error:      msg,
		RetryAfter: retryAfter,
	})
}
