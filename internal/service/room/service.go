package room

import (
	"context"
	"errors"
	"time"

	"devconnect-backend/internal/database"
	"devconnect-backend/internal/model"
)

// Service owns durable room membership. The signaling hub calls it for joins
// and disconnect cleanup; it never touches the in-memory presence tables.
type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

type JoinResult struct {
	Room model.RoomItem
	User model.UserItem
	// PreviousRoomID is the room the user was moved out of, if any.
	PreviousRoomID string
	// Rejoined is set when the user was already a durable participant of the
	// target room (a reconnect); no durable write happened.
	Rejoined bool
}

// Join makes userID a durable participant of roomID, moving them out of any
// prior room in the same transaction. On any error durable state is unchanged.
func (s *Service) Join(ctx context.Context, userID, roomID, password string) (JoinResult, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return JoinResult{}, newError(ErrorCodeNotFound, "User not found", err)
		}
		return JoinResult{}, newError(ErrorCodeTransient, "Failed to join room", err)
	}

	target, err := s.repo.FindRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return JoinResult{}, newError(ErrorCodeNotFound, "Room not found", err)
		}
		return JoinResult{}, newError(ErrorCodeTransient, "Failed to join room", err)
	}

	if verr := CanJoin(target, userID, password); verr != nil {
		return JoinResult{}, verr
	}

	if target.HasParticipant(userID) {
		// Reconnect of a user whose participant record survived; the durable
		// list is already correct.
		return JoinResult{Room: target, User: user, Rejoined: true}, nil
	}

	now := s.now().UTC()

	write := JoinWrite{NewRoomReadVersion: target.Version}
	var previousRoomID string

	prev, err := s.repo.FindRoomOfParticipant(ctx, userID)
	switch {
	case err == nil && prev.RoomID != roomID:
		previousRoomID = prev.RoomID
		old := prev
		oldRead := old.Version
		old.Participants = old.WithoutParticipant(userID)
		if len(old.Participants) == 0 {
			old.LastParticipantLeftAt = now.Format(time.RFC3339)
		}
		old.Version = oldRead + 1
		write.OldRoom = &old
		write.OldRoomReadVersion = oldRead
	case err != nil && !errors.Is(err, ErrNotFound):
		return JoinResult{}, newError(ErrorCodeTransient, "Failed to join room", err)
	}

	target.Participants = append(target.Participants, model.Participant{
		UserID:   userID,
		Username: user.Fullname,
		JoinedAt: now.Format(time.RFC3339),
	})
	target.LastParticipantLeftAt = ""
	target.Version = write.NewRoomReadVersion + 1
	write.NewRoom = target

	if err := s.repo.CommitJoin(ctx, write); err != nil {
		// Includes lost version races; the client may retry.
		return JoinResult{}, newError(ErrorCodeTransient, "Failed to join room, try again", err)
	}

	return JoinResult{
		Room:           target,
		User:           user,
		PreviousRoomID: previousRoomID,
	}, nil
}

// Leave removes the durable participant record. Used by disconnect cleanup;
// best-effort by contract, the caller decides whether failure is fatal.
func (s *Service) Leave(ctx context.Context, userID, roomID string) error {
	return s.repo.RemoveParticipant(ctx, roomID, userID, s.now())
}
