// Package domain contains core domain types for chat sessions and their per-user index.
package domain

import (
	"encoding/json"
	"time"
)

// TitleMaxLength is the number of characters of the first user message kept as a session title.
const TitleMaxLength = 40

// Session is one conversation transcript owned by one user.
// History is append-only and never empty once the session exists.
type Session struct {
	ID        string
	OwnerID   string
	History   []Turn
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionRecord is the flat wire form of a Session.
type SessionRecord struct {
	ID        string       `json:"id" yaml:"id"`
	OwnerID   string       `json:"owner_id" yaml:"owner_id"`
	History   []TurnRecord `json:"history" yaml:"history"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"updated_at"`
}

// Record flattens the session for encoding.
func (s *Session) Record() SessionRecord {
	return SessionRecord{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		History:   RecordsOf(s.History),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// MarshalJSON encodes the session in its wire form.
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// UnmarshalJSON decodes the wire form, validating every turn.
func (s *Session) UnmarshalJSON(data []byte) error {
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	history, err := TurnsOf(rec.History)
	if err != nil {
		return err
	}
	*s = Session{
		ID:        rec.ID,
		OwnerID:   rec.OwnerID,
		History:   history,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	return nil
}

// FirstUserText returns the text of the first part of the first user turn.
func (s *Session) FirstUserText() string {
	for _, t := range s.History {
		if t.Role() != RoleUser {
			continue
		}
		if parts := t.Parts(); len(parts) > 0 {
			return parts[0].Text
		}
	}
	return ""
}

// SessionSummary is a lightweight pointer into the session store used for listings.
type SessionSummary struct {
	ID        string    `json:"id" bson:"id" yaml:"id"`
	Title     string    `json:"title" bson:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" yaml:"created_at"`
}

// SessionIndex is the per-user directory of session summaries in creation order.
type SessionIndex struct {
	OwnerID string           `json:"owner_id"`
	Chats   []SessionSummary `json:"chats"`
}

// Contains reports whether the index already lists the session.
func (i *SessionIndex) Contains(sessionID string) bool {
	for _, c := range i.Chats {
		if c.ID == sessionID {
			return true
		}
	}
	return false
}

// Title derives a session title from the first user message.
// Characters are counted as code points so multi-byte text is never split.
func Title(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleMaxLength {
		return text
	}
	return string(runes[:TitleMaxLength])
}

// SummaryOf builds the index entry for a freshly created session.
func SummaryOf(s *Session) SessionSummary {
	return SessionSummary{
		ID:        s.ID,
		Title:     Title(s.FirstUserText()),
		CreatedAt: s.CreatedAt,
	}
}
