package domain

import (
	"encoding/json"
	"fmt"
)

// Role tags who produced a turn.
type Role string

const (
	// RoleUser marks human input.
	RoleUser Role = "user"
	// RoleModel marks generated output.
	RoleModel Role = "model"
)

// Part is one content fragment of a turn.
type Part struct {
	Text string `json:"text" bson:"text" yaml:"text"`
}

// Turn is one message in a session transcript. The set of implementations
// is closed: UserTurn and ModelTurn.
type Turn interface {
	Role() Role
	Parts() []Part
	isTurn()
}

// UserTurn is human input, optionally carrying a reference to uploaded media.
type UserTurn struct {
	Content []Part
	Image   string
}

// ModelTurn is generated output. It can never carry an image.
type ModelTurn struct {
	Content []Part
}

// NewUserTurn returns a single-part user turn.
func NewUserTurn(text, image string) UserTurn {
	return UserTurn{Content: []Part{{Text: text}}, Image: image}
}

// NewModelTurn returns a single-part model turn.
func NewModelTurn(text string) ModelTurn {
	return ModelTurn{Content: []Part{{Text: text}}}
}

func (UserTurn) Role() Role      { return RoleUser }
func (t UserTurn) Parts() []Part { return t.Content }
func (UserTurn) isTurn()         {}

func (ModelTurn) Role() Role      { return RoleModel }
func (t ModelTurn) Parts() []Part { return t.Content }
func (ModelTurn) isTurn()         {}

// MarshalJSON encodes the turn in its wire form.
func (t UserTurn) MarshalJSON() ([]byte, error) { return json.Marshal(RecordOf(t)) }

// MarshalJSON encodes the turn in its wire form.
func (t ModelTurn) MarshalJSON() ([]byte, error) { return json.Marshal(RecordOf(t)) }

// TurnRecord is the flat storage and wire form of a Turn.
type TurnRecord struct {
	Role  Role   `json:"role" bson:"role" yaml:"role"`
	Parts []Part `json:"parts" bson:"parts" yaml:"parts"`
	Image string `json:"img,omitempty" bson:"img,omitempty" yaml:"img,omitempty"`
}

// RecordOf flattens a turn into its record form.
func RecordOf(t Turn) TurnRecord {
	rec := TurnRecord{Role: t.Role(), Parts: append([]Part(nil), t.Parts()...)}
	if u, ok := t.(UserTurn); ok {
		rec.Image = u.Image
	}
	return rec
}

// Turn rebuilds the typed turn, rejecting records that no variant can hold.
func (r TurnRecord) Turn() (Turn, error) {
	if len(r.Parts) == 0 {
		return nil, fmt.Errorf("turn with role %q has no parts", r.Role)
	}
	parts := append([]Part(nil), r.Parts...)
	switch r.Role {
	case RoleUser:
		return UserTurn{Content: parts, Image: r.Image}, nil
	case RoleModel:
		if r.Image != "" {
			return nil, fmt.Errorf("model turn cannot carry an image")
		}
		return ModelTurn{Content: parts}, nil
	default:
		return nil, fmt.Errorf("unknown turn role %q", r.Role)
	}
}

// RecordsOf flattens a transcript.
func RecordsOf(turns []Turn) []TurnRecord {
	out := make([]TurnRecord, 0, len(turns))
	for _, t := range turns {
		out = append(out, RecordOf(t))
	}
	return out
}

// TurnsOf rebuilds a transcript from records.
func TurnsOf(records []TurnRecord) ([]Turn, error) {
	out := make([]Turn, 0, len(records))
	for i, rec := range records {
		t, err := rec.Turn()
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}
