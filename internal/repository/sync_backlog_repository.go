package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const syncBacklogKey = "case-sync:pending"

// SyncBacklogRepository tracks protocols whose CRM sync has not succeeded yet.
// The backlog is advisory: losing it only delays opportunistic re-sync.
type SyncBacklogRepository interface {
	MarkPending(ctx context.Context, protocol string) error
	ClearPending(ctx context.Context, protocol string) error
	ListPending(ctx context.Context) ([]string, error)
	PendingCount(ctx context.Context) (int64, error)
}

type syncBacklogRepository struct {
	client *redis.Client
}

// NewSyncBacklogRepository instantiates the Redis-backed backlog.
func NewSyncBacklogRepository(client *redis.Client) SyncBacklogRepository {
	return &syncBacklogRepository{client: client}
}

func (r *syncBacklogRepository) MarkPending(ctx context.Context, protocol string) error {
	return r.client.SAdd(ctx, syncBacklogKey, protocol).Err()
}

func (r *syncBacklogRepository) ClearPending(ctx context.Context, protocol string) error {
	return r.client.SRem(ctx, syncBacklogKey, protocol).Err()
}

func (r *syncBacklogRepository) ListPending(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, syncBacklogKey).Result()
}

func (r *syncBacklogRepository) PendingCount(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, syncBacklogKey).Result()
}
