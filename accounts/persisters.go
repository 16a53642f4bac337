package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
)

// FilePersister keeps the state in a JSON file guarded by an advisory lock
// next to it
type FilePersister struct {
	path string
	lock *flock.Flock
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path, lock: flock.New(path + ".lock")}
}

func (p *FilePersister) Load(ctx context.Context) (State, bool, error) {
	// Nothing saved yet; Save creates the directory
	if _, err := os.Stat(filepath.Dir(p.path)); errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if _, err := p.lock.TryRLockContext(ctx, 50*time.Millisecond); err != nil {
		return State{}, false, fmt.Errorf("lock %s: %w", p.path, err)
	}
	defer p.lock.Unlock()

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read %s: %w", p.path, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("decode %s: %w", p.path, err)
	}
	return state, true, nil
}

func (p *FilePersister) Save(ctx context.Context, state State) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	if _, err := p.lock.TryLockContext(ctx, 50*time.Millisecond); err != nil {
		return fmt.Errorf("lock %s: %w", p.path, err)
	}
	defer p.lock.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, p.path)
}

// RedisPersister keeps the state under a single key
type RedisPersister struct {
	client *redis.Client
	key    string
}

// NewRedisPersister connects to redisURL and checks the connection
func NewRedisPersister(ctx context.Context, redisURL, key string) (*RedisPersister, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisPersisterWithClient(client, key), nil
}

func NewRedisPersisterWithClient(client *redis.Client, key string) *RedisPersister {
	if key == "" {
		key = "postboard:accounts"
	}
	return &RedisPersister{client: client, key: key}
}

func (p *RedisPersister) Load(ctx context.Context) (State, bool, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("load accounts: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("unmarshal accounts: %w", err)
	}
	return state, true, nil
}

func (p *RedisPersister) Save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	if err := p.client.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

func (p *RedisPersister) Close() error {
	return p.client.Close()
}
