package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/r37344422-pixel/news/internal/domain"
)

const defaultBoltPath = "data/harvester.db"

var (
	itemsBucket  = []byte("items")
	byDateBucket = []byte("byDate")
	present      = []byte{1}
)

// Bolt stores articles as JSON under items/<id> and the date index as
// nested buckets byDate/<YYYYMMDD>/<id>. Each upsert is one transaction.
type Bolt struct {
	mu     sync.RWMutex
	db     *bolt.DB
	closed bool
}

// OpenBolt opens (creating if needed) the database file at path.
func OpenBolt(path string, timeout time.Duration) (*Bolt, error) {
	if path == "" {
		path = defaultBoltPath
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{itemsBucket, byDateBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) UpsertArticles(ctx context.Context, articles map[string]domain.Article) error {
	if len(articles) == 0 {
		return nil
	}
	return b.update(ctx, func(tx *bolt.Tx) error {
		items := tx.Bucket(itemsBucket)
		for id, a := range articles {
			raw, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("encode %s: %w", id, err)
			}
			if err := items.Put([]byte(id), raw); err != nil {
				return fmt.Errorf("put %s: %w", id, err)
			}
		}
		return nil
	})
}

func (b *Bolt) UpsertDateIndex(ctx context.Context, index map[string]map[string]bool) error {
	if len(index) == 0 {
		return nil
	}
	return b.update(ctx, func(tx *bolt.Tx) error {
		root := tx.Bucket(byDateBucket)
		for day, ids := range index {
			bucket, err := root.CreateBucketIfNotExists([]byte(day))
			if err != nil {
				return fmt.Errorf("bucket %s: %w", day, err)
			}
			for id, ok := range ids {
				if !ok {
					continue
				}
				if err := bucket.Put([]byte(id), present); err != nil {
					return fmt.Errorf("index %s/%s: %w", day, id, err)
				}
			}
		}
		return nil
	})
}

func (b *Bolt) Latest(ctx context.Context, limit int) ([]domain.Article, error) {
	var out []domain.Article
	err := b.view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).ForEach(func(_, v []byte) error {
			var a domain.Article
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			out = append(out, a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PubDate != out[j].PubDate {
			return out[i].PubDate > out[j].PubDate
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *Bolt) IDsForDate(ctx context.Context, day string) ([]string, error) {
	var ids []string
	err := b.view(ctx, func(tx *bolt.Tx) error {
		bucket := tx.Bucket(byDateBucket).Bucket([]byte(day))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

func (b *Bolt) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func (b *Bolt) update(ctx context.Context, fn func(*bolt.Tx) error) error {
	return b.with(ctx, func() error { return b.db.Update(fn) })
}

func (b *Bolt) view(ctx context.Context, fn func(*bolt.Tx) error) error {
	return b.with(ctx, func() error { return b.db.View(fn) })
}

func (b *Bolt) with(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return fn()
}
