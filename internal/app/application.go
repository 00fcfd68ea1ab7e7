package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"catfilter/internal/config"
	"catfilter/internal/dispatch"
	"catfilter/internal/filters"
	"catfilter/internal/gui"
	"catfilter/internal/gui/widgets"
	"catfilter/internal/logger"
	"catfilter/internal/metrics"
	"catfilter/internal/opencv/memory"
	"catfilter/internal/photos"
	"catfilter/internal/pipeline"
	"catfilter/internal/store"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const (
	AppVersion      = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

type shutdownHandler interface {
	Shutdown()
}

type shutdownFunc func()

func (f shutdownFunc) Shutdown() { f() }

type Application struct {
	cfg            config.Config
	fyneApp        fyne.App
	window         fyne.Window
	guiManager     *gui.Manager
	library        *photos.DirLibrary
	metrics        *metrics.Registry
	logger         logger.Logger
	shutdownables  []shutdownHandler
	ctx            context.Context
	cancel         context.CancelFunc
	shutdownOnce   sync.Once
	done           chan struct{}
}

func NewApplication(cfg config.Config) (*Application, error) {
	app.SetMetadata(fyne.AppMetadata{
		ID:      config.AppID,
		Name:    config.AppName,
		Version: AppVersion,
		Build:   1,
	})

	fyneApp := app.NewWithID(config.AppID)
	fyneApp.Settings().SetTheme(gui.NewCatTheme())
	window := fyneApp.NewWindow(config.AppName)

	windowSize := calculateMinimumWindowSize()
	window.Resize(windowSize)
	window.SetPadded(false)
	window.CenterOnScreen()
	window.SetMaster()

	ctx, cancel := context.WithCancel(context.Background())
	log := logger.NewConsoleLogger(logger.ParseLevel(cfg.LogLevel))

	log.Info("Application", "starting application", map[string]interface{}{
		"version":       AppVersion,
		"provider":      cfg.ProviderURL,
		"library_dir":   cfg.LibraryDir,
		"batch_workers": cfg.BatchWorkers,
		"log_level":     cfg.LogLevel,
	})

	reg := metrics.NewRegistry()
	disp := dispatch.Fyne{}
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	provider := store.NewProvider(client, store.ProviderOptions{
		Endpoint:       cfg.ProviderURL,
		ReferenceField: cfg.ReferenceField,
		MaxBodyBytes:   cfg.MaxMetadataBytes,
	}, log)
	fetcher := store.NewFetcher(client, store.FetcherOptions{
		TempDir:      cfg.TempDir,
		MaxBodyBytes: cfg.MaxContentBytes,
	}, log)
	coordinator := pipeline.NewLoadCoordinator(provider, fetcher, disp, log, reg)

	memoryManager := memory.NewManager(log)
	catalogue := filters.NewManager()
	engine := filters.NewEngine(memoryManager, catalogue, log)
	scheduler := pipeline.NewFilterScheduler(engine, disp, cfg.BatchWorkers, log, reg)

	library := photos.NewDirLibrary(cfg.LibraryDir, cfg.LibraryReadOnly, photos.Encoder{
		Format:      photos.Format(cfg.SaveFormat),
		JPEGQuality: cfg.JPEGQuality,
	}, log)
	saver := photos.NewSaveInteractor(library, disp, log, reg)

	coordinator.SetDecoder(pipeline.NewImageLoader(memoryManager, log))
	loadController := gui.NewLoadController(coordinator, log)
	coordinator.SetListener(loadController)

	choices := make([]gui.FilterChoice, 0, len(catalogue.Names()))
	for _, name := range catalogue.Names() {
		choices = append(choices, gui.FilterChoice{Name: name, Title: catalogue.Title(name)})
	}
	editController := gui.NewEditController(scheduler, saver, choices, cfg.ThumbnailSize, log)

	guiManager := gui.NewManager(window, loadController, editController, log)

	application := &Application{
		cfg:            cfg,
		fyneApp:        fyneApp,
		window:         window,
		guiManager:     guiManager,
		library:        library,
		metrics:        reg,
		logger:         log,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		// Shut down in reverse order: network first, OpenCV memory last.
		shutdownables: []shutdownHandler{
			memoryManager,
			shutdownFunc(saver.Wait),
			shutdownFunc(func() { scheduler.Shutdown(shutdownTimeout) }),
			shutdownFunc(func() { coordinator.Shutdown(shutdownTimeout) }),
		},
	}

	application.setupMenu()
	application.setupSignalHandling()
	log.Info("Application", "initialization complete", nil)
	return application, nil
}

func (a *Application) setupMenu() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Load Cat", a.guiManager.RequestLoad),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", a.showAbout),
	)
	a.window.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))
}

func (a *Application) showAbout() {
	metadata := a.fyneApp.Metadata()

	name := metadata.Name
	if name == "" {
		name = config.AppName
	}
	version := metadata.Version
	if version == "" {
		version = AppVersion
	}

	aboutContent := container.NewVBox(
		widget.NewLabel(name),
		widget.NewLabel(fmt.Sprintf("Version: %s", version)),
		widget.NewLabel(""),
		widget.NewLabel(fmt.Sprintf("Photo library: %s", a.library.Dir())),
		widget.NewLabel(fmt.Sprintf("Library access: %s", a.library.AuthorizationStatus())),
		widget.NewLabel(""),
		widget.NewLabel(fmt.Sprintf("Go: %s", runtime.Version())),
		widget.NewLabel(fmt.Sprintf("Platform: %s/%s", runtime.GOOS, runtime.GOARCH)),
	)

	dialog.ShowCustom("About", "Close", aboutContent, a.window)
}

func calculateMinimumWindowSize() fyne.Size {
	toolbarHeight := float32(50)
	samplesHeight := float32(widgets.SampleTileSize + 40)

	return fyne.Size{
		Width:  float32(widgets.ImageAreaWidth + 80),
		Height: float32(widgets.ImageAreaHeight) + toolbarHeight + samplesHeight + 80,
	}
}

func (a *Application) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("Application", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			fyne.Do(a.guiManager.Shutdown)
			a.initiateShutdown()
		case <-a.ctx.Done():
			return
		}
	}()
}

func (a *Application) Run() error {
	// Components may still deliver to the UI thread while stopping, so the
	// sequence runs in the background and the app quits once it is done.
	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "shutdown requested via window close", nil)
		a.guiManager.Shutdown()
		go a.initiateShutdown()
	})

	go func() {
		<-a.done
		fyne.Do(a.fyneApp.Quit)
	}()

	a.guiManager.Show()
	a.fyneApp.Run()

	a.initiateShutdown()
	return nil
}

func (a *Application) initiateShutdown() {
	a.shutdownOnce.Do(a.shutdownComponents)
}

func (a *Application) shutdownComponents() {
	defer close(a.done)

	a.logger.Info("Application", "shutdown sequence initiated", map[string]interface{}{
		"components": len(a.shutdownables),
	})

	a.cancel()

	for i := len(a.shutdownables) - 1; i >= 0; i-- {
		component := a.shutdownables[i]

		done := make(chan struct{})
		go func() {
			defer close(done)
			component.Shutdown()
		}()

		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			a.logger.Warning("Application", "component shutdown timeout", map[string]interface{}{
				"component_index": i,
			})
		}
	}

	a.logger.Info("Application", "shutdown sequence completed", map[string]interface{}{
		"metrics": strings.Join(a.metrics.SnapshotLines(), "; "),
	})
}
