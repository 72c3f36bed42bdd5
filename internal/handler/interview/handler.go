// Package interview exposes the interview flows over HTTP and WebSocket.
package interview

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/session"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

const (
	defaultMaxUpload = 10 << 20

	noHistoryMessage = "No chat history found for this session"
)

// Options tune the transport layer.
type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Handler serves upload, chat, report and transcript requests.
type Handler struct {
	svc       *interviewService.Service
	maxUpload int64
	upgrader  websocket.Upgrader
}

// New creates the interview handler.
func New(svc *interviewService.Service, opts Options) *Handler {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	origins := opts.AllowedOrigins
	return &Handler{
		svc:       svc,
		maxUpload: maxUpload,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(origins, r.Header.Get("Origin"))
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the interview routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.handleUpload)
	r.Post("/chat", h.handleChat)
	r.Post("/endInterview", h.handleEndInterview)
	r.Post("/end_interview", h.handleEndInterview)
	r.Get("/transcript/{sessionID}", h.handleTranscript)
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := h.svc.Upload(r.Context(), interviewService.UploadInput{
		Filename:  header.Filename,
		Data:      data,
		PersonaID: r.FormValue("personaId"),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message":       "Resume processed. Interview context created.",
		"contextLength": result.ContextLength,
		"sessionId":     result.SessionID,
	})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Chat(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"response":  result.Reply,
		"sessionId": result.SessionID,
	})
}

func (h *Handler) handleEndInterview(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.EndInterview(r.Context(), payload.SessionID)
	if errors.Is(err, interviewService.ErrMalformedReport) {
		utils.RespondJSON(w, http.StatusBadGateway, map[string]string{
			"error":     err.Error(),
			"raw":       result.Report,
			"sessionId": result.SessionID,
		})
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if result.NoHistory {
		utils.RespondError(w, http.StatusOK, noHistoryMessage)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"report":    result.Report,
		"parsed":    result.Parsed,
		"sessionId": result.SessionID,
	})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID, messages, err := h.svc.Transcript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

// statusFor maps service errors onto HTTP statuses and client-facing text.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, interviewService.ErrInvalidFormat):
		return http.StatusBadRequest, "Only PDF files are allowed"
	case errors.Is(err, interviewService.ErrProcessing):
		return http.StatusInternalServerError, "Failed to process PDF"
	case errors.Is(err, interviewService.ErrUnknownPersona),
		errors.Is(err, interviewService.ErrEmptyMessage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, interviewService.ErrGeneratorNotConfigured),
		errors.Is(err, interviewService.ErrGenerator):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[interview] request failed: %v", err)
	}
	utils.RespondError(w, status, message)
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
