package types

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "System"
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one turn of a conversation. Position in the surrounding slice
// encodes turn order.
type Message struct {
	// Author of the message.
	// example: User
	Role Role `json:"role" example:"User"`
	// Text of the message.
	// example: hi
	Content string `json:"content" example:"hi"`
}

// Encode returns the JSON text form used when messages cross execution
// contexts.
func (m Message) Encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeMessage parses the JSON text form produced by Message.Encode.
func DecodeMessage(s string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if !m.Role.Valid() {
		return Message{}, fmt.Errorf("decode message: unknown role %q", m.Role)
	}
	return m, nil
}

// Update is one delivery to the presentation layer: the full conversation to
// render and whether generation for it has finished.
type Update struct {
	// Conversation snapshot to render.
	Messages []Message `json:"messages"`
	// True once no further updates will follow for this submission.
	// example: false
	IsFinished bool `json:"is_finished" example:"false"`
}

// Model represents a model file on disk usable by the native backend.
type Model struct {
	// Stable identifier for the model.
	// example: llama-3.1-8b-q4_k_m.gguf
	ID string `json:"id" example:"llama-3.1-8b-q4_k_m.gguf"`
	// Human-friendly name.
	Name string `json:"name"`
	// Absolute path to the model file on disk.
	Path string `json:"path"`
}
