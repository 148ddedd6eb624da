package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"haqiba/internal/domain"
)

// PositionsKey is the aggregate record holding every ReadingPosition,
// keyed by material id.
const PositionsKey = "haqiba_bookmarks"

// CorruptPositionsKey receives an unreadable aggregate before Save replaces it.
const CorruptPositionsKey = PositionsKey + "_corrupt"

// ErrPositionsCorrupt means the aggregate record exists but does not decode.
var ErrPositionsCorrupt = errors.New("stored reading positions are unreadable")

// Bookmarks persists reading positions through a KVStore.
type Bookmarks struct {
	store domain.KVStore
	now   func() time.Time
	log   logger.Logger

	mu sync.Mutex // serializes read-modify-write of the aggregate record
}

func NewBookmarks(store domain.KVStore, now func() time.Time, log logger.Logger) *Bookmarks {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Bookmarks{store: store, now: now, log: log}
}

// Position returns the saved page for materialID, or 1 when nothing usable
// is stored.
func (b *Bookmarks) Position(ctx context.Context, materialID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, _, err := b.load(ctx)
	if err != nil {
		b.log.Warning(fmt.Sprintf("[Reader] read positions: %v", err))
		return 1
	}
	if p, ok := all[materialID]; ok && p.Page > 0 {
		return p.Page
	}
	return 1
}

// Save upserts the position for materialID. Empty title or subjectID keep
// whatever was stored before.
func (b *Bookmarks) Save(ctx context.Context, materialID string, page int, title, subjectID string) (domain.ReadingPosition, error) {
	if materialID == "" {
		return domain.ReadingPosition{}, fmt.Errorf("save position: material id is required")
	}
	if page < 1 {
		return domain.ReadingPosition{}, fmt.Errorf("save position: invalid page %d", page)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	all, raw, err := b.load(ctx)
	switch {
	case errors.Is(err, ErrPositionsCorrupt):
		// Keep the unreadable record aside before starting a fresh one.
		b.log.Warning(fmt.Sprintf("[Reader] %v, moved to %s", err, CorruptPositionsKey))
		if err := b.store.Set(ctx, CorruptPositionsKey, raw); err != nil {
			return domain.ReadingPosition{}, fmt.Errorf("save position: back up corrupt record: %w", err)
		}
		all = map[string]domain.ReadingPosition{}
	case err != nil:
		return domain.ReadingPosition{}, fmt.Errorf("save position: %w", err)
	}

	prev := all[materialID]
	pos := domain.ReadingPosition{
		MaterialID: materialID,
		Page:       page,
		Title:      firstNonEmpty(title, prev.Title),
		SubjectID:  firstNonEmpty(subjectID, prev.SubjectID),
		Timestamp:  b.now().UnixMilli(),
	}
	all[materialID] = pos

	data, err := json.Marshal(all)
	if err != nil {
		return domain.ReadingPosition{}, fmt.Errorf("encode positions: %w", err)
	}
	if err := b.store.Set(ctx, PositionsKey, string(data)); err != nil {
		return domain.ReadingPosition{}, fmt.Errorf("save position: %w", err)
	}
	return pos, nil
}

// List returns all positions, most recently saved first.
func (b *Bookmarks) List(ctx context.Context) ([]domain.ReadingPosition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, _, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReadingPosition, 0, len(all))
	for id, p := range all {
		if p.MaterialID == "" {
			p.MaterialID = id
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].MaterialID < out[j].MaterialID
	})
	return out, nil
}

// load returns the decoded aggregate and its raw text. A record that does
// not decode is reported as ErrPositionsCorrupt.
func (b *Bookmarks) load(ctx context.Context) (map[string]domain.ReadingPosition, string, error) {
	raw, found, err := b.store.Get(ctx, PositionsKey)
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", PositionsKey, err)
	}
	all := map[string]domain.ReadingPosition{}
	if !found || raw == "" {
		return all, raw, nil
	}
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil, raw, fmt.Errorf("%w: %w", ErrPositionsCorrupt, err)
	}
	return all, raw, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
