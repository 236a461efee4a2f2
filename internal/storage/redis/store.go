// Package redis stores the planner state as one JSON document in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
)

// ErrNotInitialized is returned by Load when the state key is missing.
var ErrNotInitialized = models.ErrNotInitialized

// Store persists the planner state under a single key. The id counter is
// mirrored under <key>:next_id so it can be inspected with redis-cli.
type Store struct {
	client  *redis.Client
	key     string
	display string
	timeout time.Duration
}

// New wraps an existing client. An empty key selects the default.
func New(client *redis.Client, key string) *Store {
	if key == "" {
		key = constants.RedisDefaultKey
	}
	opts := client.Options()
	return &Store{
		client:  client,
		key:     key,
		display: fmt.Sprintf("redis://%s/%d", opts.Addr, opts.DB),
		timeout: constants.RedisOpTimeout,
	}
}

// Open parses a redis:// URL. A "key" query parameter overrides the
// document key; every other parameter is handed to go-redis.
func Open(rawURL string) (*Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	q := u.Query()
	key := q.Get("key")
	q.Del("key")
	u.RawQuery = q.Encode()

	opts, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return New(redis.NewClient(opts), key), nil
}

func (s *Store) nextIDKey() string {
	return s.key + constants.RedisNextIDSuffix
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Init checks connectivity and writes an empty state if none exists.
func (s *Store) Init() error {
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	doc, err := sonic.Marshal(models.NewState())
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, s.key, doc, 0)
		pipe.SetNX(ctx, s.nextIDKey(), constants.InitialNextID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to initialize state: %w", err)
	}
	return nil
}

// Load reads and decodes the state document.
func (s *Store) Load() (models.State, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.State{}, ErrNotInitialized
		}
		return models.State{}, fmt.Errorf("failed to read state: %w", err)
	}

	var state models.State
	if err := sonic.Unmarshal(data, &state); err != nil {
		return models.State{}, fmt.Errorf("failed to parse state: %w", err)
	}

	// A counter bumped outside a full Save still wins.
	if raw, err := s.client.Get(ctx, s.nextIDKey()).Result(); err == nil {
		if mirrored, err := strconv.ParseInt(raw, 10, 64); err == nil && mirrored > state.NextID {
			state.NextID = mirrored
		}
	}

	state.Normalize()
	return state, nil
}

// Save writes the document and the counter mirror in one MULTI/EXEC.
func (s *Store) Save(state models.State) error {
	doc, err := sonic.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	ctx, cancel := s.ctx()
	defer cancel()

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key, doc, 0)
		pipe.Set(ctx, s.nextIDKey(), state.NextID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// GetConfigPath returns the server address without credentials.
func (s *Store) GetConfigPath() string {
	return s.display
}
