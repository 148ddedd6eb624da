package main

import (
	"embed"
	"flag"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	haqibaApp "haqiba/internal/app"
	"haqiba/internal/service"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	mcpMode := flag.Bool("mcp", false, "run as a headless MCP server on stdin/stdout")
	flag.Parse()
	if *mcpMode {
		haqibaApp.ServeMCP()
		return
	}

	log := logger.NewDefaultLogger()
	app := haqibaApp.New(log)

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	err := wails.Run(&options.App{
		Title:     "Haqiba",
		Width:     service.DefaultWindowWidth,
		Height:    service.DefaultWindowHeight,
		MinWidth:  320,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets:  assets,
			Handler: haqibaApp.SurfaceHandler(app),
		},
		BackgroundColour: &options.RGBA{R: 15, G: 15, B: 20, A: 1},
		Menu:             appMenu,
		Logger:           log,
		OnStartup:        app.Startup,
		OnBeforeClose:    app.BeforeClose,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				HideTitleBar:               false,
				FullSizeContent:            true,
				UseToolbar:                 false,
			},
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			About: &mac.AboutInfo{
				Title:   "Haqiba",
				Message: "Study reader with page-by-page tutoring",
			},
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
