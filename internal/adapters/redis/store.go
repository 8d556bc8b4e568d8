package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Journal implements ports.Journal with one Redis list per session.
// Session IDs are kept in a sorted set scored by their first append.
type Journal struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Journal)

// WithTTL sets the expiration of journaled sessions. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(j *Journal) {
		j.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// New creates a Redis journal with options.
func New(address, password string, db int, opts ...Option) *Journal {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis journal from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Journal {
	j := &Journal{
		client: client,
		prefix: "operant:journal:",
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) key(sessionID string) string {
	return j.prefix + sessionID
}

func (j *Journal) metaKey(sessionID string) string {
	return j.prefix + sessionID + ":meta"
}

func (j *Journal) indexKey() string {
	return j.prefix + "index"
}

// Begin stores the session's metadata under its own key, with the journal TTL.
func (j *Journal) Begin(ctx context.Context, meta domain.SessionMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal session metadata: %w", err)
	}
	if err := j.client.Set(ctx, j.metaKey(meta.SessionID), data, j.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session metadata: %w", err)
	}
	return nil
}

// Meta returns what Begin stored.
func (j *Journal) Meta(ctx context.Context, sessionID string) (domain.SessionMeta, error) {
	data, err := j.client.Get(ctx, j.metaKey(sessionID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return domain.SessionMeta{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionMeta{}, fmt.Errorf("failed to read session metadata: %w", err)
	}
	var meta domain.SessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.SessionMeta{}, fmt.Errorf("session %s metadata: %w", sessionID, err)
	}
	return meta, nil
}

// Append pushes rec to the tail of the session's list.
func (j *Journal) Append(ctx context.Context, sessionID string, rec domain.TrialRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := j.client.TxPipeline()
	pipe.RPush(ctx, j.key(sessionID), data)
	if j.ttl > 0 {
		pipe.Expire(ctx, j.key(sessionID), j.ttl)
		pipe.Expire(ctx, j.metaKey(sessionID), j.ttl)
	}
	// NX keeps the score of the first append.
	pipe.ZAddNX(ctx, j.indexKey(), backend.Z{
		Score:  float64(time.Now().Unix()),
		Member: sessionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// Load returns the session's records in append order.
func (j *Journal) Load(ctx context.Context, sessionID string) ([]domain.TrialRecord, error) {
	vals, err := j.client.LRange(ctx, j.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}
	if len(vals) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	records := make([]domain.TrialRecord, 0, len(vals))
	for i, v := range vals {
		var rec domain.TrialRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// List returns the journaled sessions, oldest first. Index entries whose list
// has expired are pruned.
func (j *Journal) List(ctx context.Context) ([]string, error) {
	sessions, err := j.client.ZRange(ctx, j.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if j.ttl == 0 {
		return sessions, nil
	}

	live := sessions[:0]
	for _, id := range sessions {
		n, err := j.client.Exists(ctx, j.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check session %s: %w", id, err)
		}
		if n == 0 {
			if err := j.client.ZRem(ctx, j.indexKey(), id).Err(); err != nil {
				return nil, fmt.Errorf("failed to prune expired session: %w", err)
			}
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Close closes the redis client.
func (j *Journal) Close() error {
	return j.client.Close()
}
