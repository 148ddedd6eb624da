package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"haqiba/internal/config"
	mcpserver "haqiba/internal/mcp"
)

// noopEmitter is a no-op EventEmitter used in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// stderrLogger keeps service logs off stdout, which carries the MCP protocol.
type stderrLogger struct{ l *log.Logger }

var _ logger.Logger = stderrLogger{}

func newStderrLogger() stderrLogger {
	return stderrLogger{l: log.New(os.Stderr, "", log.LstdFlags)}
}

func (s stderrLogger) Print(message string)   { s.l.Println(message) }
func (s stderrLogger) Trace(message string)   { s.l.Println("TRA | " + message) }
func (s stderrLogger) Debug(message string)   { s.l.Println("DEB | " + message) }
func (s stderrLogger) Info(message string)    { s.l.Println("INF | " + message) }
func (s stderrLogger) Warning(message string) { s.l.Println("WAR | " + message) }
func (s stderrLogger) Error(message string)   { s.l.Println("ERR | " + message) }
func (s stderrLogger) Fatal(message string)   { s.l.Fatalln("FAT | " + message) }

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// It initializes storage, services, and runs the MCP server until interrupted.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	svc, err := wire(ctx, cfg, noopEmitter{}, newStderrLogger())
	if err != nil {
		log.Fatalf("Failed to start services: %v", err)
	}
	defer svc.close(context.Background())

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Reader: svc.reader,
		Tutor:  svc.tutor,
	})

	log.Println("[MCP] Starting standalone stdio server...")
	if err := mcpSrv.ServeStdio(); err != nil {
		log.Printf("MCP server error: %v", err)
	}
}
