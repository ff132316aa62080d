package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/repositories"
)

const (
	sessionPrefix = "session:"
	tokenPrefix   = "session_token:"
	activeSetKey  = "sessions:active"
)

// SessionRedis stores sessions as versioned JSON records with a TTL. A token
// index and a set of authenticated session ids are kept beside the records
// and written in the same MULTI block.
type SessionRedis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewSessionRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SessionRedis {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRedis{client: client, ttl: ttl, logger: logger}
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenPrefix + hex.EncodeToString(sum[:])
}

func (r *SessionRedis) Load(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, repositories.ErrSessionNotFound
	}

	raw, err := r.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		// the record expired on its own, its id must not stay active
		if serr := r.client.SRem(ctx, activeSetKey, id).Err(); serr != nil {
			r.logger.ErrorContext(ctx, "prune expired session", "session_id", id, "error", serr)
		}
		return nil, repositories.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil || s.Version != models.SessionVersion {
		// unreadable or older record shapes are dropped, the user signs in again
		r.logger.WarnContext(ctx, "discarding unreadable session record", "version", s.Version, "error", err)
		if derr := r.Delete(ctx, id); derr != nil {
			r.logger.ErrorContext(ctx, "delete unreadable session", "error", derr)
		}
		return nil, repositories.ErrSessionNotFound
	}
	return &s, nil
}

func (r *SessionRedis) Save(ctx context.Context, s *models.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("save session: missing id")
	}
	s.Version = models.SessionVersion

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionPrefix+s.ID, data, r.ttl)
		if s.Token != "" {
			pipe.Set(ctx, tokenKey(s.Token), s.ID, r.ttl)
			pipe.SAdd(ctx, activeSetKey, s.ID)
		} else {
			pipe.SRem(ctx, activeSetKey, s.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the record and its index entries. Deleting an absent session
// is not an error.
func (r *SessionRedis) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	var token string
	raw, err := r.client.Get(ctx, sessionPrefix+id).Bytes()
	if err == nil {
		var s models.Session
		if json.Unmarshal(raw, &s) == nil {
			token = s.Token
		}
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionPrefix+id)
		if token != "" {
			pipe.Del(ctx, tokenKey(token))
		}
		pipe.SRem(ctx, activeSetKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRedis) LookupToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", repositories.ErrSessionNotFound
	}
	id, err := r.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", repositories.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup token: %w", err)
	}
	return id, nil
}

func (r *SessionRedis) ActiveIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}
	return ids, nil
}

func (r *SessionRedis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
