package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/paperifyhq/paperify/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "session:"
	overridePrefix = "override:"
)

// Data is the session payload. TempUnlimitedUntil is the administrative
// override expiry in unix milliseconds; zero means no override. Keeping it
// session-scoped means the override dies with the session.
type Data struct {
	UserID             int64  `json:"user_id"`
	Email              string `json:"email"`
	TempUnlimitedUntil int64  `json:"temp_unlimited_until,omitempty"`
}

// OverrideExpiry converts the stored override into a timestamp, nil when
// no override was granted.
func (d Data) OverrideExpiry() *time.Time {
	if d.TempUnlimitedUntil == 0 {
		return nil
	}
	t := time.UnixMilli(d.TempUnlimitedUntil).UTC()
	return &t
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, cfg config.Config) *Store {
	return &Store{client: client, ttl: cfg.Server.SessionTTL}
}

func (s *Store) Create(ctx context.Context, data Data) (string, error) {
	token := uuid.NewString()
	if err := s.write(ctx, token, data); err != nil {
		return "", err
	}
	return token, nil
}

// Get returns nil for unknown or expired tokens.
func (s *Store) Get(ctx context.Context, token string) (*Data, error) {
	raw, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Save overwrites the payload and refreshes the TTL.
func (s *Store) Save(ctx context.Context, token string, data Data) error {
	return s.write(ctx, token, data)
}

func (s *Store) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, keyPrefix+token).Err()
}

// SetOverride grants a temporary unlimited override to an account. The key
// expires with the override so stale grants clean themselves up.
func (s *Store) SetOverride(ctx context.Context, email string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return s.client.Del(ctx, overridePrefix+email).Err()
	}
	return s.client.Set(ctx, overridePrefix+email, until.UnixMilli(), ttl).Err()
}

// Override returns the override expiry for an account, nil when none is
// active.
func (s *Store) Override(ctx context.Context, email string) (*time.Time, error) {
	millis, err := s.client.Get(ctx, overridePrefix+email).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	t := time.UnixMilli(millis).UTC()
	return &t, nil
}

func (s *Store) write(ctx context.Context, token string, data Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+token, raw, s.ttl).Err()
}
