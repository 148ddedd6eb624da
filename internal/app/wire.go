package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"haqiba/internal/config"
	"haqiba/internal/domain"
	"haqiba/internal/reader"
	"haqiba/internal/reader/fitzdoc"
	"haqiba/internal/service"
	"haqiba/internal/storage"
	"haqiba/internal/tutor"
)

const mongoConnectTimeout = 10 * time.Second

// services is everything the GUI and the MCP server share.
type services struct {
	db     *storage.DB
	mongo  *storage.MongoStore
	gemini *tutor.Gemini
	kv     domain.KVStore
	reader *service.ReaderService
	tutor  *service.TutorService
	window *service.WindowSettingsService
}

func wire(ctx context.Context, cfg *config.Config, emitter service.EventEmitter, log logger.Logger) (*services, error) {
	db, err := storage.New(cfg.DBPath(), filepath.Join(cfg.DataDir, "documents"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &services{db: db}

	var remote domain.KVStore
	if cfg.Mongo.URI != "" {
		mctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
		mongo, err := storage.NewMongoStore(mctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, log)
		cancel()
		if err != nil {
			// Cloud sync is optional; keep reading from the local store.
			log.Warning(fmt.Sprintf("[Storage] cloud sync disabled: %v", err))
		} else {
			s.mongo = mongo
			remote = mongo
		}
	}
	local := storage.NewSettingsStore(db)
	s.kv = storage.NewFallbackStore(remote, local, log)

	client := &http.Client{Timeout: cfg.Reader.FetchTimeout}
	loader := reader.NewLoader(
		fitzdoc.New(client, db.DataDir(), cfg.Reader.MaxDocumentBytes),
		&reader.HTTPFetcher{Client: client, MaxBytes: cfg.Reader.MaxDocumentBytes},
		log,
	)
	bookmarks := reader.NewBookmarks(s.kv, nil, log)
	s.reader = service.NewReaderService(ctx, loader, bookmarks, emitter, log, service.ReaderOptions{
		Margin:            cfg.Reader.Margin,
		ZoomStep:          cfg.Reader.ZoomStep,
		DoubleTapInterval: cfg.Reader.DoubleTapInterval,
		ConfirmDelay:      cfg.Reader.ConfirmDelay,
		MaxSurfacePixels:  cfg.Reader.MaxSurfacePixels,
		Capture: reader.CaptureOptions{
			Quality:  cfg.Reader.CaptureQuality,
			MaxWidth: cfg.Reader.CaptureMaxWidth,
		},
	})

	var t tutor.Tutor = tutor.Offline{}
	gemini, err := tutor.NewGemini(ctx, tutor.GeminiConfig{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Temperature: float32(cfg.Gemini.Temperature),
	})
	switch {
	case errors.Is(err, tutor.ErrMissingAPIKey):
		log.Warning("[Tutor] no API key configured, using the offline tutor")
	case err != nil:
		log.Error(fmt.Sprintf("[Tutor] %v, using the offline tutor", err))
	default:
		s.gemini = gemini
		t = gemini
	}
	s.tutor = service.NewTutorService(t, s.reader, storage.NewTutorHistoryStore(db), emitter, log)
	// window size is per device, never synced
	s.window = service.NewWindowSettingsService(local)
	return s, nil
}

// close releases everything in reverse order of wire.
func (s *services) close(ctx context.Context) {
	if s.reader != nil {
		s.reader.Close()
	}
	if s.tutor != nil {
		s.tutor.Wait(ctx)
	}
	if s.gemini != nil {
		s.gemini.Close()
	}
	if s.mongo != nil {
		s.mongo.Close(ctx)
	}
	if s.db != nil {
		s.db.Close()
	}
}
