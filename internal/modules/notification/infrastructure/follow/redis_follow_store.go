package follow

import (
	"context"
	"sort"

	"Herald/internal/modules/notification/domain/repository"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "follow:person:"

// redisFollowStore keeps each user's followed people in a redis set.
type redisFollowStore struct {
	client redis.Cmdable
}

func NewRedisFollowStore(client redis.Cmdable) repository.FollowStore {
	return &redisFollowStore{client: client}
}

func followKey(userID string) string {
	return keyPrefix + userID
}

func (s *redisFollowStore) ListFollowedPersonIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, followKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *redisFollowStore) Follow(ctx context.Context, userID, personID string) error {
	return s.client.SAdd(ctx, followKey(userID), personID).Err()
}

func (s *redisFollowStore) Unfollow(ctx context.Context, userID, personID string) error {
	return s.client.SRem(ctx, followKey(userID), personID).Err()
}
