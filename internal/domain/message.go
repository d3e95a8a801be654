package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	// RoleMentor is the scripted coding mentor.
	RoleMentor Role = "mentor"
	// RoleUser is the learner.
	RoleUser Role = "user"
	// RoleSystem carries service notices such as apologies and timeouts.
	RoleSystem Role = "system"
)

// Kind is a rendering hint. It never influences dispatch.
type Kind string

const (
	KindText     Kind = "text"
	KindCode     Kind = "code"
	KindStrategy Kind = "strategy"
	KindDrill    Kind = "drill"
)

// CodeFence delimits code blocks embedded in message content.
const CodeFence = "```"

// ChatMessage is one immutable turn of a conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage builds a message with a fresh time-ordered ID. An empty kind
// defaults to KindText.
func NewMessage(role Role, kind Kind, content string) ChatMessage {
	if kind == "" {
		kind = KindText
	}
	return ChatMessage{
		ID:        newMessageID(),
		Role:      role,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Segment is a slice of message content; Code segments sat between fences.
type Segment struct {
	Text string `json:"text"`
	Code bool   `json:"code"`
}

// Segments splits content on the code fence. Odd-indexed parts are code.
func (m ChatMessage) Segments() []Segment {
	parts := strings.Split(m.Content, CodeFence)
	segments := make([]Segment, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		segments = append(segments, Segment{Text: p, Code: i%2 == 1})
	}
	return segments
}
