package model

const (
	RoomsTable = "Rooms"
	UsersTable = "Users"
)

// Participant is one entry of a room's durable participant list.
type Participant struct {
	UserID   string `dynamodbav:"userId" json:"userId"`
	Username string `dynamodbav:"username" json:"username"`
	JoinedAt string `dynamodbav:"joinedAt" json:"joinedAt"`
}

type RoomItem struct {
	RoomID                string        `dynamodbav:"roomId" json:"roomId"`
	Name                  string        `dynamodbav:"name" json:"name"`
	Description           string        `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Technology            []string      `dynamodbav:"technology,omitempty" json:"technology,omitempty"`
	Participants          []Participant `dynamodbav:"participants" json:"participants"`
	MaxParticipants       int           `dynamodbav:"maxParticipants" json:"maxParticipants"`
	IsPrivate             bool          `dynamodbav:"isPrivate" json:"isPrivate"`
	AllowedUsers          []string      `dynamodbav:"allowedUsers,omitempty" json:"-"`
	PasswordHash          string        `dynamodbav:"passwordHash,omitempty" json:"-"`
	CreatedBy             string        `dynamodbav:"createdBy" json:"createdBy"`
	LastParticipantLeftAt string        `dynamodbav:"lastParticipantLeftAt,omitempty" json:"lastParticipantLeftAt,omitempty"`
	// Version guards optimistic concurrency on participant-list writes.
	Version   int64  `dynamodbav:"version" json:"-"`
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
}

type UserItem struct {
	UserID       string `dynamodbav:"userId" json:"userId"`
	Fullname     string `dynamodbav:"fullname" json:"fullname"`
	Email        string `dynamodbav:"email" json:"-"`
	ProfileImage string `dynamodbav:"profileImage,omitempty" json:"profileImage,omitempty"`
}

// HasParticipant reports whether userID is already on the participant list.
func (r *RoomItem) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether the participant list has reached capacity.
func (r *RoomItem) IsFull() bool {
	return len(r.Participants) >= r.MaxParticipants
}

// WithoutParticipant returns a copy of the participant list with userID removed.
func (r *RoomItem) WithoutParticipant(userID string) []Participant {
	out := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		if p.UserID != userID {
			out = append(out, p)
		}
	}
	return out
}
