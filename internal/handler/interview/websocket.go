package interview

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

// Frame types.
const (
	frameChat   = "chat"
	frameEnd    = "end"
	frameReply  = "reply"
	frameReport = "report"
	frameError  = "error"
)

type inboundFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
}

type outboundFrame struct {
	Type      string                   `json:"type"`
	SessionID string                   `json:"sessionId,omitempty"`
	Message   string                   `json:"message,omitempty"`
	Report    string                   `json:"report,omitempty"`
	Parsed    *interviewService.Report `json:"parsed,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

// handleWebSocket carries chat turns and report requests over one socket.
// Each inbound frame is answered by exactly one outbound frame holding the
// whole reply.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var in inboundFrame
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read failed: %v", err)
			}
			return
		}

		out := h.dispatch(r, in)
		if err := conn.WriteJSON(out); err != nil {
			log.Printf("[ws] write failed: %v", err)
			return
		}
	}
}

func (h *Handler) dispatch(r *http.Request, in inboundFrame) outboundFrame {
	ctx := r.Context()

	switch in.Type {
	case frameChat:
		result, err := h.svc.Chat(ctx, in.SessionID, in.Message)
		if err != nil {
			return errorFrame(in.SessionID, err)
		}
		return outboundFrame{Type: frameReply, SessionID: result.SessionID, Message: result.Reply}
	case frameEnd:
		result, err := h.svc.EndInterview(ctx, in.SessionID)
		if errors.Is(err, interviewService.ErrMalformedReport) {
			return outboundFrame{Type: frameError, SessionID: result.SessionID, Report: result.Report, Error: err.Error()}
		}
		if err != nil {
			return errorFrame(in.SessionID, err)
		}
		if result.NoHistory {
			return outboundFrame{Type: frameError, SessionID: result.SessionID, Error: noHistoryMessage}
		}
		parsed := result.Parsed
		return outboundFrame{Type: frameReport, SessionID: result.SessionID, Report: result.Report, Parsed: &parsed}
	default:
		return outboundFrame{Type: frameError, SessionID: in.SessionID, Error: "unknown frame type: " + in.Type}
	}
}

func errorFrame(sessionID string, err error) outboundFrame {
	_, message := statusFor(err)
	return outboundFrame{Type: frameError, SessionID: sessionID, Error: message}
}
