package service

import (
	"context"
	"strconv"

	"haqiba/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Window Size Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the main window size between sessions as two
// key-value rows in the local settings store. The reader's container
// width follows from it on the first resize event.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSettingsService persists window size between sessions.
type WindowSettingsService struct {
	store domain.KVStore
}

func NewWindowSettingsService(store domain.KVStore) *WindowSettingsService {
	return &WindowSettingsService{store: store}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	DefaultWindowWidth  = 420
	DefaultWindowHeight = 860
	minWindowWidth      = 320
	minWindowHeight     = 480
)

// LoadWindowSize returns the saved window dimensions, or phone-sized defaults.
func (s *WindowSettingsService) LoadWindowSize(ctx context.Context) WindowSize {
	if s.store == nil {
		return WindowSize{Width: DefaultWindowWidth, Height: DefaultWindowHeight}
	}
	w := s.loadInt(ctx, settingWindowWidth, DefaultWindowWidth)
	h := s.loadInt(ctx, settingWindowHeight, DefaultWindowHeight)
	if w < minWindowWidth {
		w = DefaultWindowWidth
	}
	if h < minWindowHeight {
		h = DefaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

// SaveWindowSize persists the current window dimensions.
func (s *WindowSettingsService) SaveWindowSize(ctx context.Context, width, height int) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Set(ctx, settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.store.Set(ctx, settingWindowHeight, strconv.Itoa(height))
}

func (s *WindowSettingsService) loadInt(ctx context.Context, key string, def int) int {
	raw, found, err := s.store.Get(ctx, key)
	if err != nil || !found {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
