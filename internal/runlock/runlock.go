// Package runlock keeps two postwatch runs from committing at the same time.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrLocked is returned by Acquire when another run holds the lock.
var ErrLocked = errors.New("another run holds the lock")

type Lock interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// New builds the lock for backend "file", "redis" or "none".
func New(ctx context.Context, backend, path, redisURL, owner string, ttl time.Duration) (Lock, error) {
	switch backend {
	case "file":
		return NewFile(path, ttl), nil
	case "redis":
		return NewRedis(ctx, redisURL, "postwatch:run-lock", owner, ttl)
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown lock backend: %s", backend)
	}
}

// File is an O_EXCL lock file. A lock file older than ttl is treated as
// left behind by a killed run and taken over.
type File struct {
	path string
	ttl  time.Duration
}

func NewFile(path string, ttl time.Duration) *File {
	return &File{path: path, ttl: ttl}
}

func (f *File) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := fh.WriteString(strconv.Itoa(os.Getpid()))
			cerr := fh.Close()
			return errors.Join(werr, cerr)
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create lock file: %w", err)
		}

		info, statErr := os.Stat(f.path)
		if statErr != nil || f.ttl <= 0 || time.Since(info.ModTime()) < f.ttl {
			return ErrLocked
		}
		ok, err := f.takeOver(info)
		if err != nil {
			return err
		}
		if !ok {
			return ErrLocked
		}
	}
	return ErrLocked
}

// takeOver moves the stale lock aside by rename, which only one process can
// win, and checks it moved the file it judged stale. If another run replaced
// the lock in between, that lock is linked back and takeOver reports false.
func (f *File) takeOver(stale fs.FileInfo) (bool, error) {
	aside := fmt.Sprintf("%s.stale-%d-%d", f.path, os.Getpid(), time.Now().UnixNano())
	if err := os.Rename(f.path, aside); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("move stale lock: %w", err)
	}
	defer os.Remove(aside)

	moved, err := os.Stat(aside)
	if err == nil && os.SameFile(moved, stale) {
		return true, nil
	}
	if err := os.Link(aside, f.path); err != nil && !errors.Is(err, fs.ErrExist) {
		return false, fmt.Errorf("restore lock: %w", err)
	}
	return false, nil
}

func (f *File) Release(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// Redis holds the lock as a SETNX key with an expiry, for deployments where
// runs may start on different machines.
type Redis struct {
	client *redis.Client
	key    string
	owner  string
	ttl    time.Duration
}

// releaseScript deletes the key only if this owner still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedis(ctx context.Context, redisURL, key, owner string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, key: key, owner: owner, ttl: ttl}, nil
}

func (r *Redis) Acquire(ctx context.Context) error {
	ok, err := r.client.SetNX(ctx, r.key, r.owner, r.ttl).Result()
	if err != nil {
		r.client.Close()
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		// Release is never called without the lock, so the client ends here.
		r.client.Close()
		return ErrLocked
	}
	return nil
}

func (r *Redis) Release(ctx context.Context) error {
	defer r.client.Close()
	if err := releaseScript.Run(ctx, r.client, []string{r.key}, r.owner).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}

// Noop never blocks; for schedulers that already guarantee one run at a time.
type Noop struct{}

func (Noop) Acquire(context.Context) error { return nil }
func (Noop) Release(context.Context) error { return nil }
