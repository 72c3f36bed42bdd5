package chat

import "time"

// Session captures one interview attempt, from a résumé upload until the next one.
type Session struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"personaId,omitempty"`
	Context   string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
