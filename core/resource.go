package core

import "time"

// ResourceKind names a kind of member-authored content.
type ResourceKind string

const (
	KindConversation ResourceKind = "conversation"
	KindMessage      ResourceKind = "message"
)

func (k ResourceKind) Valid() bool {
	return k == KindConversation || k == KindMessage
}

// Resource is the slice of a conversation or message the gate needs:
// who wrote it, plus the editable fields.
type Resource struct {
	ID       string       `json:"id"`
	Kind     ResourceKind `json:"kind"`
	AuthorID string       `json:"authorId"`
	// ConversationID is set on messages only.
	ConversationID string    `json:"conversationId,omitempty"`
	Title          *string   `json:"title,omitempty"`
	Content        *string   `json:"content,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ResourceUpdate holds the fields an author may change. Nil means unchanged.
type ResourceUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

func (u ResourceUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil
}
