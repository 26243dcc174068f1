package room

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"devconnect-backend/internal/database"
	"devconnect-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("room repository: not found")

// JoinWrite carries the full post-join room records. Both puts land in one
// transaction guarded by the versions the records were read at.
type JoinWrite struct {
	NewRoom            model.RoomItem
	NewRoomReadVersion int64
	// OldRoom is set when the user moves over from another room; its
	// participant list already has the user removed.
	OldRoom            *model.RoomItem
	OldRoomReadVersion int64
}

type Repository interface {
	FindUser(ctx context.Context, userID string) (model.UserItem, error)
	FindRoom(ctx context.Context, roomID string) (model.RoomItem, error)
	// FindRoomOfParticipant returns the room currently listing userID as a
	// participant, or ErrNotFound.
	FindRoomOfParticipant(ctx context.Context, userID string) (model.RoomItem, error)
	CommitJoin(ctx context.Context, write JoinWrite) error
	// RemoveParticipant drops userID from the room's participant list and
	// stamps lastParticipantLeftAt when the list empties. No-op if absent.
	RemoveParticipant(ctx context.Context, roomID, userID string, leftAt time.Time) error
	ListAbandonedRooms(ctx context.Context, emptySince time.Time) ([]model.RoomItem, error)
	DeleteRooms(ctx context.Context, roomIDs []string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) FindUser(ctx context.Context, userID string) (model.UserItem, error) {
	var user model.UserItem
	err := r.db.Client.GetItem(
		ctx,
		model.UsersTable,
		map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
		&user,
	)
	if err != nil {
		if isNotFound(err) {
			return model.UserItem{}, ErrNotFound
		}
		return model.UserItem{}, err
	}
	return user, nil
}

func (r *DynamoRepository) FindRoom(ctx context.Context, roomID string) (model.RoomItem, error) {
	var room model.RoomItem
	err := r.db.Client.GetItem(
		ctx,
		model.RoomsTable,
		map[string]types.AttributeValue{
			"roomId": &types.AttributeValueMemberS{Value: roomID},
		},
		&room,
	)
	if err != nil {
		if isNotFound(err) {
			return model.RoomItem{}, ErrNotFound
		}
		return model.RoomItem{}, err
	}
	return room, nil
}

func (r *DynamoRepository) FindRoomOfParticipant(ctx context.Context, userID string) (model.RoomItem, error) {
	// Participant entries are nested maps, which a filter expression cannot
	// address by key, so occupied rooms are scanned and matched client-side.
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.RoomsTable,
		"size(participants) > :zero",
		map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
		},
		nil,
	)
	if err != nil {
		return model.RoomItem{}, err
	}

	for _, item := range items {
		var room model.RoomItem
		if err := attributevalue.UnmarshalMap(item, &room); err != nil {
			return model.RoomItem{}, fmt.Errorf("unmarshal room: %w", err)
		}
		if room.HasParticipant(userID) {
			return room, nil
		}
	}
	return model.RoomItem{}, ErrNotFound
}

func (r *DynamoRepository) CommitJoin(ctx context.Context, write JoinWrite) error {
	puts := []database.TransactPut{
		versionedRoomPut(write.NewRoom, write.NewRoomReadVersion),
	}
	if write.OldRoom != nil {
		puts = append(puts, versionedRoomPut(*write.OldRoom, write.OldRoomReadVersion))
	}
	return r.db.Client.TransactWriteItems(ctx, puts)
}

func versionedRoomPut(room model.RoomItem, readVersion int64) database.TransactPut {
	return database.TransactPut{
		TableName:     model.RoomsTable,
		Item:          room,
		ConditionExpr: aws.String("version = :v"),
		ExprAttrValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(readVersion, 10)},
		},
	}
}

func (r *DynamoRepository) RemoveParticipant(ctx context.Context, roomID, userID string, leftAt time.Time) error {
	// Lost version races are retried once; after that the next join or the
	// sweeper reconciles the record.
	const attempts = 2
	var lastErr error
	for i := 0; i < attempts; i++ {
		room, err := r.FindRoom(ctx, roomID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if !room.HasParticipant(userID) {
			return nil
		}

		readVersion := room.Version
		room.Participants = room.WithoutParticipant(userID)
		if len(room.Participants) == 0 {
			room.LastParticipantLeftAt = leftAt.UTC().Format(time.RFC3339)
		}
		room.Version = readVersion + 1

		lastErr = r.db.Client.TransactWriteItems(ctx, []database.TransactPut{
			versionedRoomPut(room, readVersion),
		})
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (r *DynamoRepository) ListAbandonedRooms(ctx context.Context, emptySince time.Time) ([]model.RoomItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.RoomsTable,
		"size(participants) = :zero AND lastParticipantLeftAt < :cutoff",
		map[string]types.AttributeValue{
			":zero":   &types.AttributeValueMemberN{Value: "0"},
			":cutoff": &types.AttributeValueMemberS{Value: emptySince.UTC().Format(time.RFC3339)},
		},
		nil,
	)
	if err != nil {
		return nil, err
	}

	rooms := make([]model.RoomItem, 0, len(items))
	for _, item := range items {
		var room model.RoomItem
		if err := attributevalue.UnmarshalMap(item, &room); err != nil {
			return nil, fmt.Errorf("unmarshal room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *DynamoRepository) DeleteRooms(ctx context.Context, roomIDs []string) error {
	keys := make([]map[string]types.AttributeValue, 0, len(roomIDs))
	for _, id := range roomIDs {
		keys = append(keys, map[string]types.AttributeValue{
			"roomId": &types.AttributeValueMemberS{Value: id},
		})
	}
	return r.db.Client.BatchDeleteItems(ctx, model.RoomsTable, keys)
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
