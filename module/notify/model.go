package notify

import "time"

// Type tags a notification. Unknown wire strings map to TypeGeneric so
// a newer backend never breaks an older client.
type Type int

const (
	TypeGeneric Type = iota
	TypeConsultation
	TypeEmergency
	TypeChatActivated
	TypeVideoActivated
)

func ParseType(s string) Type {
	switch s {
	case "consultation":
		return TypeConsultation
	case "emergency":
		return TypeEmergency
	case "chat_activated":
		return TypeChatActivated
	case "video_activated":
		return TypeVideoActivated
	}
	return TypeGeneric
}

func (t Type) String() string {
	switch t {
	case TypeConsultation:
		return "consultation"
	case TypeEmergency:
		return "emergency"
	case TypeChatActivated:
		return "chat_activated"
	case TypeVideoActivated:
		return "video_activated"
	}
	return "generic"
}

// Notification is one entry of the user's notification list. Entries
// are only mutated by explicit read/delete actions, never by the
// arrival of newer notifications.
type Notification struct {
	ID        string
	Type      Type
	Message   string
	CreatedAt time.Time
	IsRead    bool
}
