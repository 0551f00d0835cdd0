package models

import "time"

// Position is a 1-indexed cursor location inside the shared document.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Selection is a 1-indexed text range inside the shared document.
type Selection struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// Participant is one connected actor's presence state in a room.
type Participant struct {
	UserID      string     `json:"userId"`
	DisplayName string     `json:"displayName"`
	Color       string     `json:"color"`
	Cursor      *Position  `json:"cursor,omitempty"`
	Selection   *Selection `json:"selection,omitempty"`
}

// Document is the shared editor content plus its language tag.
type Document struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

/*** REST DTOs ***/

type SessionCreateRequest struct {
	Title    *string `json:"title,omitempty"`
	Language string  `json:"language"`
}

type SessionResponse struct {
	ID          string    `json:"id"`
	SessionCode string    `json:"sessionCode"`
	Title       *string   `json:"title"`
	Language    string    `json:"language"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"createdAt"`
	ActiveUsers int       `json:"activeUsers"`
}

type ExecutionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type ExecutionResponse struct {
	Output string `json:"output"`
	Error  string `json:"error"`
}

type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

type GenerateResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
