package httpapi

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"fitcoach-backend-go/internal/services"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type ErrorItem struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Errors: []ErrorItem{{Message: message}}})
}

// WriteServiceError maps an error to its response. Anything that is not a
// ServiceError is logged with a stack trace and answered with a generic 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if serr, ok := services.AsServiceError(err); ok {
		if len(serr.Errors) > 0 {
			items := make([]ErrorItem, 0, len(serr.Errors))
			for _, fe := range serr.Errors {
				items = append(items, ErrorItem{Field: fe.Field, Message: fe.Message})
			}
			WriteJSON(w, serr.Status, ErrorResponse{Errors: items})
			return
		}
		if serr.Kind == services.KindUpstream {
			log.Warnf("%s %s: %s", r.Method, r.URL.Path, serr.Message)
			WriteError(w, serr.Status, strings.SplitN(serr.Message, ":", 2)[0])
			return
		}
		WriteError(w, serr.Status, serr.Message)
		return
	}
	log.Errorf("%s %s: %s\n%s", r.Method, r.URL.Path, err, debug.Stack())
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON reads the body into dst. A malformed body is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Debugf("%s %s: invalid payload: %s", r.Method, r.URL.Path, err)
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return false
	}
	return true
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDecimal(value string) *decimal.Decimal {
	if value == "" {
		return nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil
	}
	return &d
}
