package application

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// SessionMeta describes the client that opened a session.
type SessionMeta struct {
	IP        string
	UserAgent string
}

// SessionStore keeps one Redis hash per login plus a per-user index set, so a
// user can hold several sessions and revoke them one by one or all at once.
type SessionStore struct {
	Redis redis.Cmdable
	TTL   time.Duration
}

func NewSessionStore(rdb redis.Cmdable, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{Redis: rdb, TTL: ttl}
}

func (s *SessionStore) ready() error {
	if s == nil || s.Redis == nil {
		return ErrUnavailable
	}
	return nil
}

func (s *SessionStore) Create(ctx context.Context, u *entity.User, sid string, meta SessionMeta) error {
	if err := s.ready(); err != nil {
		return err
	}
	key := helpers.KeySession(u.ID, sid)
	index := helpers.KeySessionIndex(u.ID)
	fields := map[string]any{
		"user_id":    strconv.FormatInt(u.ID, 10),
		"email":      u.Email,
		"username":   u.Username,
		"sid":        sid,
		"is_guest":   strconv.FormatBool(u.IsGuest),
		"ip":         meta.IP,
		"user_agent": meta.UserAgent,
		"created_at": nowRFC3339(),
	}
	pipe := s.Redis.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.TTL)
	pipe.SAdd(ctx, index, sid)
	pipe.Expire(ctx, index, s.TTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Exists reports whether the session is still live.
func (s *SessionStore) Exists(ctx context.Context, uid int64, sid string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	n, err := s.Redis.Exists(ctx, helpers.KeySession(uid, sid)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Rotate moves a live session to a new id. It fails with ErrInvalidToken when
// the old session is gone.
func (s *SessionStore) Rotate(ctx context.Context, uid int64, oldSid, newSid string) error {
	if err := s.ready(); err != nil {
		return err
	}
	oldKey, newKey := helpers.KeySession(uid, oldSid), helpers.KeySession(uid, newSid)
	if err := s.Redis.Rename(ctx, oldKey, newKey).Err(); err != nil {
		if errors.Is(err, redis.Nil) || isNoSuchKey(err) {
			return ErrInvalidToken
		}
		return err
	}
	index := helpers.KeySessionIndex(uid)
	pipe := s.Redis.TxPipeline()
	pipe.HSet(ctx, newKey, map[string]any{"sid": newSid, "updated_at": nowRFC3339()})
	pipe.Expire(ctx, newKey, s.TTL)
	pipe.SRem(ctx, index, oldSid)
	pipe.SAdd(ctx, index, newSid)
	pipe.Expire(ctx, index, s.TTL)
	_, err := pipe.Exec(ctx)
	return err
}

func isNoSuchKey(err error) bool {
	return err != nil && err.Error() == "ERR no such key"
}

func (s *SessionStore) Revoke(ctx context.Context, uid int64, sid string) error {
	if err := s.ready(); err != nil {
		return err
	}
	pipe := s.Redis.TxPipeline()
	pipe.Del(ctx, helpers.KeySession(uid, sid))
	pipe.SRem(ctx, helpers.KeySessionIndex(uid), sid)
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAll drops every session of the user and returns how many were live.
func (s *SessionStore) RevokeAll(ctx context.Context, uid int64) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	index := helpers.KeySessionIndex(uid)
	sids, err := s.Redis.SMembers(ctx, index).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(sids)+1)
	for _, sid := range sids {
		keys = append(keys, helpers.KeySession(uid, sid))
	}
	keys = append(keys, index)
	n, err := s.Redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	// the index key itself is not a session
	live := int(n) - 1
	if live < 0 {
		live = 0
	}
	return live, nil
}
