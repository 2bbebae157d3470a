package aisession

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	apperrors "github.com/yanqian/todoc/pkg/errors"
	"github.com/yanqian/todoc/pkg/metrics"
)

// DefaultKey is the namespaced key the session list is stored under.
const DefaultKey = "todoc_ai_sessions"

// KV is a persistent string store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Store is the session history surfaced to the UI.
type Store interface {
	List(ctx context.Context) ([]Session, error)
	Get(ctx context.Context, id string) (Session, bool, error)
	Upsert(ctx context.Context, session Session) error
	Delete(ctx context.Context, id string) error
}

// Cache keeps the whole session list as one JSON array under one key. Each
// read-modify-write holds the key's lock.
type Cache struct {
	kv      KV
	key     string
	locks   *keyLocks
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCache builds a session cache over kv.
func NewCache(kv KV, key string, m *metrics.Metrics, logger *slog.Logger) *Cache {
	if key == "" {
		key = DefaultKey
	}
	return &Cache{
		kv:      kv,
		key:     key,
		locks:   &keyLocks{locks: make(map[string]*sync.Mutex)},
		metrics: m,
		logger:  logger.With("component", "aisession.cache"),
	}
}

// Scoped returns a cache over the same store namespaced to one user.
func (c *Cache) Scoped(user string) *Cache {
	if user == "" {
		return c
	}
	scoped := *c
	scoped.key = c.key + ":" + user
	return &scoped
}

// Key returns the storage key.
func (c *Cache) Key() string {
	return c.key
}

func (c *Cache) List(ctx context.Context) ([]Session, error) {
	return c.load(ctx)
}

func (c *Cache) Get(ctx context.Context, id string) (Session, bool, error) {
	list, err := c.load(ctx)
	if err != nil {
		return Session{}, false, err
	}
	for _, s := range list {
		if s.ID == id {
			return s, true, nil
		}
	}
	return Session{}, false, nil
}

// Upsert replaces the session with the same id in place, or inserts it first.
func (c *Cache) Upsert(ctx context.Context, session Session) error {
	if session.ID == "" {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "session id is required", nil)
	}
	unlock := c.locks.lock(c.key)
	defer unlock()

	list, err := c.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].ID == session.ID {
			list[i] = session
			replaced = true
			break
		}
	}
	if !replaced {
		list = append([]Session{session}, list...)
	}
	return c.save(ctx, list)
}

// Delete removes the session with id. Unknown ids are ignored.
func (c *Cache) Delete(ctx context.Context, id string) error {
	unlock := c.locks.lock(c.key)
	defer unlock()

	list, err := c.load(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, s := range list {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	if len(kept) == 0 {
		if err := c.kv.Remove(ctx, c.key); err != nil {
			return apperrors.Wrap(apperrors.CodeStore, "session store write failed", err)
		}
		return nil
	}
	return c.save(ctx, kept)
}

func (c *Cache) load(ctx context.Context) ([]Session, error) {
	raw, ok, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStore, "session store read failed", err)
	}
	if !ok || len(raw) == 0 {
		return []Session{}, nil
	}
	var list []Session
	if err := json.Unmarshal(raw, &list); err != nil {
		c.metrics.SessionCorrupt()
		c.logger.Warn("session cache unreadable, treating as empty", "key", c.key, "error", err)
		return []Session{}, nil
	}
	if list == nil {
		list = []Session{}
	}
	return list, nil
}

func (c *Cache) save(ctx context.Context, list []Session) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStore, "encode sessions failed", err)
	}
	if err := c.kv.Set(ctx, c.key, raw); err != nil {
		return apperrors.Wrap(apperrors.CodeStore, "session store write failed", err)
	}
	return nil
}

type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}
