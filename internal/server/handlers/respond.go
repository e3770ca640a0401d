// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trendwise/internal/domain/trend"
)

// envelope is the body of every successful API response
type envelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data"`
	Summary *trend.Summary `json:"summary,omitempty"`
	Meta    *responseMeta  `json:"meta,omitempty"`
}

type responseMeta struct {
	Timestamp        time.Time           `json:"timestamp"`
	ProcessingTimeMs int64               `json:"processingTimeMs"`
	TotalTimeMs      int64               `json:"totalTimeMs,omitempty"`
	Geo              string              `json:"geo,omitempty"`
	Period           trend.Period        `json:"period,omitempty"`
	Category         string              `json:"category,omitempty"`
	Sources          []trend.SourceKind  `json:"sources,omitempty"`
	Errors           []trend.SourceError `json:"errors"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, data interface{}, summary *trend.Summary, meta *responseMeta) {
	respondWithJSON(w, http.StatusOK, envelope{Success: true, Data: data, Summary: summary, Meta: meta})
}

// Helper for error responses. Server errors are logged.
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	body := errorBody{Error: message, Message: message}
	if err != nil {
		body.Message = err.Error()
		if code >= 500 {
			slog.Default().Error("http_error",
				slog.Int("code", code),
				slog.String("message", message),
				slog.String("error", err.Error()))
		}
	}
	respondWithJSON(w, code, body)
}

func boolParam(q url.Values, name string, def bool) bool {
	if v, err := strconv.ParseBool(q.Get(name)); err == nil {
		return v
	}
	return def
}

func intParam(q url.Values, name string, def int) int {
	if v, err := strconv.Atoi(q.Get(name)); err == nil {
		return v
	}
	return def
}
