package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/muurk/mikettle/internal/kettle"
	"github.com/muurk/mikettle/internal/logging"
	"github.com/muurk/mikettle/internal/version"
	"go.uber.org/zap"
)

// StatusResponse is the body of /status and of websocket replies
type StatusResponse struct {
	Address  string         `json:"address"`
	Status   *kettle.Status `json:"status,omitempty"`
	LastRead *time.Time     `json:"last_read,omitempty"`
	Error    string         `json:"error,omitempty"`
	Hint     string         `json:"hint,omitempty"`
}

// readStatus pulls a reading from the source and builds the response.
// ok is false when no reading is available.
func (s *Server) readStatus(fresh bool) (resp StatusResponse, ok bool) {
	resp.Address = s.source.Address()

	status, err := s.source.Status(!fresh)
	if err != nil {
		resp.Error = kettle.ShortErrorMessage(err)
		resp.Hint = kettle.TroubleshootingHint(err)
		return resp, false
	}

	resp.Status = &status
	if t := s.source.LastRead(); !t.IsZero() {
		resp.LastRead = &t
	}
	return resp, true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, StatusResponse{Error: "method not allowed"})
		return
	}

	resp, ok := s.readStatus(isFresh(r))
	if !ok {
		logging.Warn("Status unavailable",
			zap.String("kettle", resp.Address),
			zap.String("error", resp.Error),
		)
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"kettle":          s.source.Address(),
		"websocket_conns": s.GetActiveConnections(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// isFresh reports whether the request asks to bypass the cache
func isFresh(r *http.Request) bool {
	v := r.URL.Query().Get("fresh")
	if v == "" {
		return false
	}
	fresh, err := strconv.ParseBool(v)
	return err == nil && fresh
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to write response", zap.Error(err))
	}
}

// logRequests logs every request before handing it to next
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
