package entity

import (
	"time"

	"github.com/google/uuid"
)

// MaxCommentLength - предел длины комментария в символах
const MaxCommentLength = 5000

type Comment struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticketId"`
	UserID      string    `json:"userId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	IsInternal  bool      `json:"isInternal"`
	Attachments []string  `json:"attachments"`
}

func NewComment(ticketID, userID, content string, internal bool, attachments []string, now time.Time) *Comment {
	if attachments == nil {
		attachments = []string{}
	}
	return &Comment{
		ID:          uuid.New().String(),
		TicketID:    ticketID,
		UserID:      userID,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
		IsInternal:  internal,
		Attachments: attachments,
	}
}
