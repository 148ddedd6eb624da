package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"haqiba/internal/domain"
)

// FallbackStore reads from a remote store and falls back to a local one.
// Writes always land locally first; a failing remote write is logged, not
// returned, and the key is marked pending in the local store. A pending key
// is served from local and pushed to remote on the next read until the push
// succeeds, so a stale remote copy never shadows a newer local write.
type FallbackStore struct {
	remote domain.KVStore
	local  domain.KVStore
	log    logger.Logger

	mu sync.Mutex
}

// pendingSuffix marks, in the local store, a key whose last remote write failed.
const pendingSuffix = ".pending_sync"

// NewFallbackStore returns local as-is when remote is nil.
func NewFallbackStore(remote, local domain.KVStore, log logger.Logger) domain.KVStore {
	if remote == nil {
		return local
	}
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &FallbackStore{remote: remote, local: local, log: log}
}

func (s *FallbackStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending(ctx, key) {
		value, found, err := s.local.Get(ctx, key)
		if err != nil || !found {
			return value, found, err
		}
		s.push(ctx, key, value)
		return value, true, nil
	}

	value, found, err := s.remote.Get(ctx, key)
	if err == nil && found {
		return value, true, nil
	}
	if err != nil {
		s.log.Warning(fmt.Sprintf("[Storage] remote get %s failed, using local: %v", key, err))
	}
	return s.local.Get(ctx, key)
}

func (s *FallbackStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.local.Set(ctx, key, value); err != nil {
		return err
	}
	s.push(ctx, key, value)
	return nil
}

// push writes value to remote and records whether key is still pending.
func (s *FallbackStore) push(ctx context.Context, key, value string) {
	if err := s.remote.Set(ctx, key, value); err != nil {
		s.log.Warning(fmt.Sprintf("[Storage] remote set %s failed, kept locally: %v", key, err))
		s.markPending(ctx, key, true)
		return
	}
	s.markPending(ctx, key, false)
}

func (s *FallbackStore) pending(ctx context.Context, key string) bool {
	v, found, err := s.local.Get(ctx, key+pendingSuffix)
	if err != nil {
		// Unknown sync state: trust the local copy.
		s.log.Warning(fmt.Sprintf("[Storage] read sync state of %s: %v", key, err))
		return true
	}
	return found && v == "1"
}

func (s *FallbackStore) markPending(ctx context.Context, key string, pending bool) {
	v := ""
	if pending {
		v = "1"
	} else if !s.pending(ctx, key) {
		return
	}
	if err := s.local.Set(ctx, key+pendingSuffix, v); err != nil {
		s.log.Warning(fmt.Sprintf("[Storage] record sync state of %s: %v", key, err))
	}
}
