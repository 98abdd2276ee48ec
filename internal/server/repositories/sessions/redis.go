package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

const maxTxRetries = 5

// RedisRepository stores each session as a JSON value under
// "<prefix>session:<id>" and indexes session IDs per account in a set under
// "<prefix>account:<accountID>:sessions".
type RedisRepository struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRedisRepository returns a store on client. Keys get prefix prepended.
// A positive retention expires session records that long after their last
// change; zero keeps them forever.
func NewRedisRepository(client redis.UniversalClient, prefix string, retention time.Duration) *RedisRepository {
	return &RedisRepository{
		client:    client,
		prefix:    prefix,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *RedisRepository) sessionKey(id string) string {
	return r.prefix + "session:" + id
}

func (r *RedisRepository) accountKey(accountID string) string {
	return r.prefix + "account:" + accountID + ":sessions"
}

func (r *RedisRepository) Create(ctx context.Context, accountID, userAgent string) (*models.Session, error) {
	now := r.now()
	s := &models.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Valid:     true,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("session: failed to marshal: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.sessionKey(s.ID), data, r.retention)
		p.SAdd(ctx, r.accountKey(accountID), s.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return s, nil
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	return r.get(ctx, r.client, id)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisRepository) get(ctx context.Context, c stringGetter, id string) (*models.Session, error) {
	val, err := c.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return &s, nil
}

func (r *RedisRepository) Invalidate(ctx context.Context, id string) error {
	_, err := r.invalidate(ctx, id)
	return err
}

// invalidate flips Valid under WATCH so a concurrent writer forces a retry
// instead of being overwritten. It reports whether the session changed.
func (r *RedisRepository) invalidate(ctx context.Context, id string) (bool, error) {
	key := r.sessionKey(id)
	changed := false

	txf := func(tx *redis.Tx) error {
		s, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.Valid {
			changed = false
			return nil
		}
		s.Valid = false
		s.UpdatedAt = r.now()
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("session: failed to marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, r.retention)
			return nil
		})
		if err == nil {
			changed = true
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return false, err
			}
			return false, fmt.Errorf("redis error: %w", err)
		}
		return changed, nil
	}
	return false, fmt.Errorf("redis error: invalidate %s: %w", id, redis.TxFailedErr)
}

func (r *RedisRepository) ListValid(ctx context.Context, accountID string) ([]models.Session, error) {
	all, err := r.list(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, s := range all {
		if s.Valid {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	sortByCreated(out)
	return out, nil
}

func (r *RedisRepository) InvalidateAll(ctx context.Context, accountID string) (int64, error) {
	ids, err := r.client.SMembers(ctx, r.accountKey(accountID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}

	var n int64
	for _, id := range ids {
		changed, err := r.invalidate(ctx, id)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		if changed {
			n++
		}
	}
	return n, nil
}

// list loads every indexed session of accountID. IDs whose records have
// expired are dropped from the index.
func (r *RedisRepository) list(ctx context.Context, accountID string) ([]models.Session, error) {
	idxKey := r.accountKey(accountID)
	ids, err := r.client.SMembers(ctx, idxKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	var stale []interface{}
	out := make([]models.Session, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var s models.Session
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
		}
		out = append(out, s)
	}
	if len(stale) > 0 {
		if err := r.client.SRem(ctx, idxKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis error: %w", err)
		}
	}
	return out, nil
}

var _ Repository = (*RedisRepository)(nil)
