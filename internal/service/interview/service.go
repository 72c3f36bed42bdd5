// Package interview runs the upload, chat and report flows of a mock
// interview on top of the session state and the transcript store.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	"github.com/zhouzirui/z-interview/backend/internal/service/resume"
	"github.com/zhouzirui/z-interview/backend/internal/service/session"
)

var (
	ErrInvalidFormat          = errors.New("only PDF files are allowed")
	ErrProcessing             = errors.New("failed to process resume")
	ErrUnknownPersona         = errors.New("persona not found")
	ErrEmptyMessage           = errors.New("message is required")
	ErrGeneratorNotConfigured = errors.New("generator API key not configured")
	ErrGenerator              = errors.New("generator call failed")
	ErrMalformedReport        = errors.New("report unavailable: generator output did not match the report schema")
)

// Transcripts is the durable message store the service writes through.
type Transcripts interface {
	Write(ctx context.Context, msg chat.Message) (chat.Message, error)
	ReadSession(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// Service orchestrates interviews.
type Service struct {
	state     *session.State
	store     Transcripts
	generator ai.Generator
	extractor resume.Extractor
	personas  persona.Store
}

// NewService wires the orchestrator. generator may be nil, in which case chat
// and report calls fail with ErrGeneratorNotConfigured.
func NewService(state *session.State, store Transcripts, generator ai.Generator, extractor resume.Extractor, personas persona.Store) *Service {
	return &Service{
		state:     state,
		store:     store,
		generator: generator,
		extractor: extractor,
		personas:  personas,
	}
}

// UploadInput is a résumé upload.
type UploadInput struct {
	Filename  string
	Data      []byte
	PersonaID string
}

// UploadResult reports the new session.
type UploadResult struct {
	SessionID     string
	ContextLength int
}

// Upload extracts the résumé text and starts a new session seeded with it.
func (s *Service) Upload(_ context.Context, in UploadInput) (UploadResult, error) {
	if !strings.HasSuffix(strings.ToLower(in.Filename), ".pdf") {
		return UploadResult{}, ErrInvalidFormat
	}

	personaID := in.PersonaID
	if personaID == "" {
		personaID = persona.DefaultID
	}
	p, ok := s.personas.FindByID(personaID)
	if !ok {
		return UploadResult{}, ErrUnknownPersona
	}

	text, err := s.extractor.Extract(in.Data)
	if err != nil {
		log.Printf("[interview] extracting %s failed: %v", in.Filename, err)
		return UploadResult{}, fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	if strings.TrimSpace(text) == "" {
		return UploadResult{}, fmt.Errorf("%w: no text in document", ErrProcessing)
	}

	interviewContext := buildContext(p, text)
	started := s.state.Begin(p.ID, interviewContext)

	log.Printf("[interview] session=%s started with persona=%s from %s", started.ID, p.ID, in.Filename)
	return UploadResult{
		SessionID:     started.ID,
		ContextLength: utf8.RuneCountInString(interviewContext),
	}, nil
}

// ChatResult carries the interviewer's reply.
type ChatResult struct {
	SessionID string
	Reply     string
}

// Chat records the candidate's message, asks the generator for the
// interviewer's reply and records that too. An empty sessionID targets the
// current session. Store failures are logged and do not abort the turn.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (ChatResult, error) {
	if s.generator == nil {
		return ChatResult{}, ErrGeneratorNotConfigured
	}
	if strings.TrimSpace(message) == "" {
		return ChatResult{}, ErrEmptyMessage
	}

	current, err := s.state.Resolve(sessionID)
	if err != nil {
		return ChatResult{}, err
	}

	s.record(ctx, current.ID, chat.RoleUser, message)

	reply, err := s.generator.Generate(ctx, buildChatPrompt(current.Context, message))
	if err != nil {
		log.Printf("[interview] generator failed for session=%s: %v", current.ID, err)
		return ChatResult{}, fmt.Errorf("%w: %v", ErrGenerator, err)
	}

	s.record(ctx, current.ID, chat.RoleAssistant, reply)

	return ChatResult{SessionID: current.ID, Reply: reply}, nil
}

func (s *Service) record(ctx context.Context, sessionID string, role chat.Role, content string) {
	msg := chat.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: s.state.Stamp(sessionID),
	}
	if _, err := s.store.Write(ctx, msg); err != nil {
		log.Printf("[interview] dropping %s turn for session=%s: %v", role, sessionID, err)
	}
}

// EndResult is the outcome of EndInterview. NoHistory is set when nothing was
// recorded for the session; Report and Parsed are empty then.
type EndResult struct {
	SessionID string
	NoHistory bool
	Report    string
	Parsed    Report
}

// EndInterview builds the performance report for a session. On
// ErrMalformedReport the returned result still carries the raw text.
func (s *Service) EndInterview(ctx context.Context, sessionID string) (EndResult, error) {
	if sessionID == "" {
		sessionID = s.state.Current().ID
	}

	history, err := s.store.ReadSession(ctx, sessionID)
	if err != nil {
		return EndResult{}, fmt.Errorf("load transcript: %w", err)
	}
	if len(history) == 0 {
		return EndResult{SessionID: sessionID, NoHistory: true}, nil
	}

	if s.generator == nil {
		return EndResult{}, ErrGeneratorNotConfigured
	}

	response, err := s.generator.Generate(ctx, buildAnalysisPrompt(formatTranscript(history)))
	if err != nil {
		log.Printf("[interview] report generation failed for session=%s: %v", sessionID, err)
		return EndResult{}, fmt.Errorf("%w: %v", ErrGenerator, err)
	}

	result := EndResult{SessionID: sessionID, Report: stripCodeFences(response)}
	parsed, err := parseReport(result.Report)
	if err != nil {
		log.Printf("[interview] report for session=%s failed validation: %v", sessionID, err)
		return result, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	result.Parsed = parsed
	return result, nil
}

// Transcript returns the ordered messages of a session. An empty sessionID
// targets the current session.
func (s *Service) Transcript(ctx context.Context, sessionID string) (string, []chat.Message, error) {
	if sessionID == "" {
		sessionID = s.state.Current().ID
	}
	messages, err := s.store.ReadSession(ctx, sessionID)
	if err != nil {
		return sessionID, nil, fmt.Errorf("load transcript: %w", err)
	}
	return sessionID, messages, nil
}

// Personas lists the available interviewers.
func (s *Service) Personas() []persona.Persona {
	return s.personas.List()
}
