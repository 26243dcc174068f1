package room

import (
	"devconnect-backend/internal/model"

	"golang.org/x/crypto/bcrypt"
)

// CanJoin checks private-room access and capacity against plain room data.
// It performs no I/O; the caller supplies the room record it read.
//
// Private rooms admit a user if they are on the allow list or present the
// room password. A user already on the participant list always passes the
// capacity check (their seat is taken, not a new one).
func CanJoin(r model.RoomItem, userID, password string) *Error {
	if r.IsPrivate && !isAllowed(r, userID) && !passwordMatches(r, password) {
		return newError(ErrorCodeUnauthorized, "Not authorized to join this private room", nil)
	}

	if !r.HasParticipant(userID) && r.IsFull() {
		return newError(ErrorCodeRoomFull, "Room is full", nil)
	}

	return nil
}

func isAllowed(r model.RoomItem, userID string) bool {
	for _, id := range r.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func passwordMatches(r model.RoomItem, password string) bool {
	if r.PasswordHash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password)) == nil
}
