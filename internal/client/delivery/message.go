// Package delivery is the client side of a conversation: it sequences one
// outbound turn at a time, tracks each user message through sending, sent
// and seen, and reveals the assistant reply progressively.
package delivery

import (
	"time"

	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

// Status is the delivery status of a user-authored message.
type Status string

const (
	StatusNone    Status = ""
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusSeen    Status = "seen"
)

func (s Status) rank() int {
	switch s {
	case StatusSending:
		return 1
	case StatusSent:
		return 2
	case StatusSeen:
		return 3
	default:
		return 0
	}
}

// advance returns next if it is further along than s, otherwise s.
func (s Status) advance(next Status) Status {
	if next.rank() > s.rank() {
		return next
	}
	return s
}

// DisplayMessage is one rendered transcript entry. Only user messages carry a Status.
type DisplayMessage struct {
	ID      string
	Role    chat.Role
	Content string
	SentAt  time.Time
	Status  Status
}
