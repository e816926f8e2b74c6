package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/vea-digital/asistente/internal/core"
)

// BadgerCache is the hot tier: an embedded TTL key/value store holding
// JSON payloads. Entries expire passively; badger hides expired entries
// on read, which matches the "checked on read, never swept" contract.
type BadgerCache struct {
	db *badger.DB
}

var _ core.Cache = (*BadgerCache)(nil)

// quiet drops badger's own logging; the cache logs through the stdlib
// logger like the rest of the app.
type quiet struct{}

func (quiet) Errorf(msg string, args ...any)   { log.Printf("badger: "+msg, args...) }
func (quiet) Warningf(msg string, args ...any) { log.Printf("badger: "+msg, args...) }
func (quiet) Infof(string, ...any)             {}
func (quiet) Debugf(string, ...any)            {}

// Open opens the cache at path, creating the directory if needed.
// An empty path opens an in-memory instance (used by tests).
func Open(path string) (*BadgerCache, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = quiet{}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// Set stores value as JSON under key. A non-positive ttl stores the
// entry without expiry.
func (c *BadgerCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", key, err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", core.ErrCacheUnavailable, key, err)
	}
	return nil
}

func (c *BadgerCache) Get(ctx context.Context, key string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %v", core.ErrCacheUnavailable, key, err)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return false, fmt.Errorf("deserialize %s: %w", key, err)
		}
	}
	return true, nil
}

func (c *BadgerCache) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	existed, err := c.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %v", core.ErrCacheUnavailable, key, err)
	}
	return existed, nil
}

func (c *BadgerCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", core.ErrCacheUnavailable, key, err)
	}
	return true, nil
}

// Keys lists live keys under prefix. Badger skips expired entries during
// iteration, so the result only contains unexpired keys.
func (c *BadgerCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: false,
			Prefix:         []byte(prefix),
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := string(it.Item().KeyCopy(nil))
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", core.ErrCacheUnavailable, prefix, err)
	}
	return keys, nil
}
