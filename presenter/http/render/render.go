package render

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/omni/festival-greetings/logging"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, res interface{}) {
	enc := json.NewEncoder(w)

	if pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty")); pretty {
		enc.SetIndent("", "  ")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := enc.Encode(res); err != nil {
		logging.LoggerFromContext(r.Context()).WithError(err).Error("failed to marshal JSON result")
	}
}

// Error logs err and responds with its user-facing message.
func Error(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	logger := logging.LoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.WithError(err).Error("request handling failed")
	} else {
		logger.WithError(err).Warn("request rejected")
	}
	JSON(w, r, status, &ErrorResponse{Error: msg})
}

func ValidationError(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	JSON(w, r, http.StatusBadRequest, &ErrorResponse{
		Error:  "invalid greeting",
		Fields: fields,
	})
}
