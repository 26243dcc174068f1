package room

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const sweepLockKey = "devconnect:room-sweep-lock"

// Sweeper deletes rooms that have sat empty past the grace period. A Redis
// lock keeps a single instance sweeping when several servers run.
type Sweeper struct {
	repo     Repository
	redis    *redis.Client
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

func NewSweeper(repo Repository, rdb *redis.Client) *Sweeper {
	return &Sweeper{
		repo:     repo,
		redis:    rdb,
		interval: 5 * time.Minute,
		grace:    10 * time.Minute,
		now:      time.Now,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("[sweeper] sweep failed: %v", err)
			} else if deleted > 0 {
				log.Printf("[sweeper] deleted %d abandoned rooms", deleted)
			}
		}
	}
}

// Sweep runs one pass and returns how many rooms were deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if !s.acquireLock(ctx) {
		return 0, nil
	}

	cutoff := s.now().Add(-s.grace)
	rooms, err := s.repo.ListAbandonedRooms(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(rooms) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.RoomID)
	}
	if err := s.repo.DeleteRooms(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Sweeper) acquireLock(ctx context.Context) bool {
	if s.redis == nil {
		return true
	}
	ok, err := s.redis.SetNX(ctx, sweepLockKey, "1", s.interval).Result()
	if err != nil {
		log.Printf("[sweeper] lock acquire failed: %v", err)
		return false
	}
	return ok
}
