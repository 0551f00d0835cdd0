package models

import "encoding/json"

// Wire message types. Every frame is a flat JSON object with a "type"
// discriminator; type-specific fields sit alongside it.
const (
	TypeJoin             = "join"
	TypeWelcome          = "welcome"
	TypeParticipantJoin  = "participant_join"
	TypeParticipantLeave = "participant_leave"
	TypeCodeChange       = "code_change"
	TypeCodeUpdate       = "code_update"
	TypeLanguageChange   = "language_change"
	TypeLanguageUpdate   = "language_update"
	TypeCursorPosition   = "cursor_position"
	TypeCursorUpdate     = "cursor_update"
	TypeSelectionChange  = "selection_change"
	TypeSelectionUpdate  = "selection_update"
)

/*** Client -> server ***/

type JoinMessage struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type CodeChangeMessage struct {
	Type     string `json:"type"`
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type LanguageChangeMessage struct {
	Type     string `json:"type"`
	Language string `json:"language"`
}

type CursorPositionMessage struct {
	Type     string    `json:"type"`
	Position *Position `json:"position"`
}

type SelectionChangeMessage struct {
	Type      string     `json:"type"`
	Selection *Selection `json:"selection"`
}

/*** Server -> client ***/

type WelcomeMessage struct {
	Type         string        `json:"type"`
	UserID       string        `json:"userId"`
	DisplayName  string        `json:"displayName"`
	Color        string        `json:"color"`
	Code         string        `json:"code"`
	Language     string        `json:"language"`
	Participants []Participant `json:"participants"`
}

type ParticipantJoinMessage struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

type ParticipantLeaveMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type CodeUpdateMessage struct {
	Type     string `json:"type"`
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type LanguageUpdateMessage struct {
	Type     string `json:"type"`
	Language string `json:"language"`
}

type CursorUpdateMessage struct {
	Type     string    `json:"type"`
	UserID   string    `json:"userId"`
	Position *Position `json:"position"`
}

type SelectionUpdateMessage struct {
	Type      string     `json:"type"`
	UserID    string     `json:"userId"`
	Selection *Selection `json:"selection"`
}

// DecodeClientMessage parses one inbound frame on the server side. A nil
// result with a nil error means the type is unrecognized and the frame should
// be dropped, matching the forward-compatibility policy.
func DecodeClientMessage(data []byte) (any, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	var m any
	switch env.Type {
	case TypeJoin:
		m = &JoinMessage{}
	case TypeCodeChange:
		m = &CodeChangeMessage{}
	case TypeLanguageChange:
		m = &LanguageChangeMessage{}
	case TypeCursorPosition:
		m = &CursorPositionMessage{}
	case TypeSelectionChange:
		m = &SelectionChangeMessage{}
	default:
		return nil, nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeServerMessage parses one inbound frame on the client side. Unknown
// types are dropped the same way as on the server.
func DecodeServerMessage(data []byte) (any, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	var m any
	switch env.Type {
	case TypeWelcome:
		m = &WelcomeMessage{}
	case TypeParticipantJoin:
		m = &ParticipantJoinMessage{}
	case TypeParticipantLeave:
		m = &ParticipantLeaveMessage{}
	case TypeCodeUpdate:
		m = &CodeUpdateMessage{}
	case TypeLanguageUpdate:
		m = &LanguageUpdateMessage{}
	case TypeCursorUpdate:
		m = &CursorUpdateMessage{}
	case TypeSelectionUpdate:
		m = &SelectionUpdateMessage{}
	default:
		return nil, nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
