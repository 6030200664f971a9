package chat

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// NormalizeRole maps an omitted or unrecognized role to RoleUser.
func NormalizeRole(raw string) Role {
	switch Role(raw) {
	case RoleSystem, RoleUser, RoleAssistant:
		return Role(raw)
	default:
		return RoleUser
	}
}

// Message is a single entry of a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turn is the cumulative conversation submitted for one exchange. Message
// order is conversation order.
type Turn struct {
	Messages []Message `json:"messages"`
	Country  string    `json:"country,omitempty"`
}

// LastUserContent scans from the end of the turn for the most recent user message.
func (t Turn) LastUserContent() (string, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleUser {
			return t.Messages[i].Content, true
		}
	}
	return "", false
}
