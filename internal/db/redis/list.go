package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/mindseye/internal/db"
)

// LRangeAll returns every element of the list at key (LRANGE key 0 -1).
func (s *Store) LRangeAll(ctx context.Context, key string) ([]string, error) {
	cmd := s.client.B().Lrange().Key(key).Start(0).Stop(-1).Build()
	vals, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return []string{}, nil
		}
		return nil, &db.Error{Op: db.OpLRange, Key: key, Err: err}
	}
	return vals, nil
}
