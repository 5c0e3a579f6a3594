package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parley/internal/logging"
)

const DefaultIdleTTL = 30 * time.Minute
const sweepInterval = time.Minute

// Registry maps room identifiers to their coordinator instances. A room is
// created lazily on first reference and the same identifier always resolves
// to the same instance for that instance's lifetime. The one-time load of
// persisted metadata acts as an initialization barrier: concurrent callers
// queue behind it instead of observing a half-initialized room.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*registryEntry

	store    MetaStore
	enqueuer Enqueuer
	logger   *logging.Logger
	idleTTL  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

type registryEntry struct {
	once        sync.Once
	coordinator *Coordinator
	loadErr     error
}

type RegistryOptions struct {
	Store    MetaStore
	Enqueuer Enqueuer
	Logger   *logging.Logger
	IdleTTL  time.Duration
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	registry := &Registry{
		rooms:    make(map[string]*registryEntry),
		store:    opts.Store,
		enqueuer: opts.Enqueuer,
		logger:   opts.Logger,
		idleTTL:  opts.IdleTTL,
		stopCh:   make(chan struct{}),
	}
	go registry.sweep()
	return registry
}

// Get returns the coordinator for roomID, creating it on first reference.
// The returned coordinator has completed its metadata load.
func (r *Registry) Get(ctx context.Context, roomID string) (*Coordinator, error) {
	if r == nil {
		return nil, fmt.Errorf("room registry is not running")
	}

	r.mu.Lock()
	entry, ok := r.rooms[roomID]
	if !ok {
		entry = &registryEntry{
			coordinator: NewCoordinator(roomID, r.store, r.enqueuer, r.logger),
		}
		r.rooms[roomID] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		if r.store == nil {
			return
		}
		meta, found, err := r.store.GetRoomMeta(ctx, roomID)
		if err != nil {
			entry.loadErr = fmt.Errorf("load room metadata: %w", err)
			return
		}
		if found {
			entry.coordinator.restore(meta)
		}
	})
	if entry.loadErr != nil {
		// A failed load must not stick to the room. Drop the entry so the
		// next Get builds a fresh one and retries against the store.
		r.mu.Lock()
		if r.rooms[roomID] == entry {
			delete(r.rooms, roomID)
		}
		r.mu.Unlock()
		return nil, entry.loadErr
	}
	return entry.coordinator, nil
}

// Count reports the number of resident coordinators.
func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID, entry := range r.rooms {
		if entry.coordinator.Idle(r.idleTTL) {
			delete(r.rooms, roomID)
			if r.logger != nil {
				r.logger.Info("idle room evicted", map[string]string{
					"room_id": roomID,
				})
			}
		}
	}
}

func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}
