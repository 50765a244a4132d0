package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/muurk/mikettle/internal/logging"
	"go.uber.org/zap"
)

// Commands accepted over the websocket
const (
	CommandStatus  = "status"  // cached reading when fresh enough
	CommandRefresh = "refresh" // always polls the kettle
)

// handleWebSocket answers each text command with one StatusResponse.
// The server never pushes unsolicited readings.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := r.RemoteAddr
	s.wg.Add(1)
	s.track(remoteAddr, conn)
	logging.LogConnection(remoteAddr, "websocket_opened")

	defer func() {
		_ = conn.Close()
		s.untrack(remoteAddr)
		s.wg.Done()
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn("WebSocket read failed",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogWebSocketMessage(remoteAddr, "received", msgType, data)

		if msgType != websocket.TextMessage {
			if err := s.reply(conn, remoteAddr, StatusResponse{Error: "expected a text command"}); err != nil {
				return
			}
			continue
		}

		var resp StatusResponse
		switch cmd := strings.ToLower(strings.TrimSpace(string(data))); cmd {
		case CommandStatus:
			resp, _ = s.readStatus(false)
		case CommandRefresh:
			resp, _ = s.readStatus(true)
		default:
			resp = StatusResponse{
				Address: s.source.Address(),
				Error:   fmt.Sprintf("unknown command %q, want %s or %s", cmd, CommandStatus, CommandRefresh),
			}
		}

		if err := s.reply(conn, remoteAddr, resp); err != nil {
			return
		}
	}
}

func (s *Server) reply(conn *websocket.Conn, remoteAddr string, resp StatusResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	logging.LogWebSocketMessage(remoteAddr, "sent", websocket.TextMessage, data)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Warn("WebSocket write failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return err
	}
	return nil
}
