package app

import (
	"context"
	"net/http"

	"github.com/wailsapp/wails/v2/pkg/logger"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"haqiba/internal/config"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context
	log logger.Logger
	cfg *config.Config
	svc *services
}

// wailsEmitter forwards service events to the frontend.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

// New creates a new App. log is the same logger handed to wails.Run.
func New(log logger.Logger) *App {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &App{log: log}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load()
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to load config: %v", err)
		return
	}
	a.cfg = cfg

	svc, err := wire(ctx, cfg, wailsEmitter{}, a.log)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to start services: %v", err)
		return
	}
	a.svc = svc
	wailsRuntime.LogInfof(ctx, "Haqiba started (env %s, tutor %s)", cfg.Env, svc.tutor.TutorName())

	size := svc.window.LoadWindowSize(ctx)
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)
}

// BeforeClose saves the window size while the window still exists.
func (a *App) BeforeClose(ctx context.Context) bool {
	if a.svc == nil {
		return false
	}
	w, h := wailsRuntime.WindowGetSize(ctx)
	if err := a.svc.window.SaveWindowSize(ctx, w, h); err != nil {
		wailsRuntime.LogWarningf(ctx, "Failed to save window size: %v", err)
	}
	return false
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.svc != nil {
		a.svc.close(ctx)
	}
}

// surfaceHandler serves rendered page surfaces to the webview. The asset
// server falls through to it for every path missing from frontend/dist.
// App itself must not implement ServeHTTP: Wails binds every exported App method.
type surfaceHandler struct{ app *App }

// SurfaceHandler returns the asset server fallback for a.
func SurfaceHandler(a *App) http.Handler {
	return surfaceHandler{app: a}
}

func (h surfaceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.app.svc == nil {
		http.Error(w, "reader not ready", http.StatusServiceUnavailable)
		return
	}
	h.app.svc.reader.ServeHTTP(w, r)
}
