package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/mthorne/leaderd/internal/action"
	"github.com/mthorne/leaderd/internal/binding"
	"github.com/mthorne/leaderd/internal/config"
	"github.com/mthorne/leaderd/internal/engine"
	"github.com/mthorne/leaderd/internal/gateway"
	"github.com/mthorne/leaderd/internal/ui"
)

const Version = "0.1.0"

func main() {
	// Check for subcommands first
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "list-devices":
			runListDevices()
			return
		case "set-device", "select-device":
			runSetDevice(os.Args[2:])
			return
		case "monitor":
			runDaemon(os.Args[2:], true)
			return
		case "version":
			ui.PrintVersion(Version)
			return
		case "help", "-h", "--help":
			printUsage()
			os.Exit(0)
		}
	}

	runDaemon(os.Args[1:], false)
}

func printUsage() {
	ui.PrintUsage(Version)
}

func runDaemon(args []string, withMonitor bool) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	version := fs.Bool("version", false, "print version and exit")
	fs.Usage = printUsage

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *version {
		ui.PrintVersion(Version)
		os.Exit(0)
	}

	logger := newLogger(*verbose, withMonitor)

	watcher, err := config.NewWatcher(*configPath, logger)
	if err != nil {
		ui.PrintFatalError("Failed to load config", err.Error())
		os.Exit(1)
	}
	defer watcher.Stop()
	cfg := watcher.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	app, err := newApp(cfg, logger)
	if err != nil {
		var install *gateway.InstallError
		if errors.As(err, &install) {
			ui.PrintFatalError("Failed to install event hook",
				install.Error()+"\n  Run as root, or add your user to the input group and re-login")
		} else {
			ui.PrintFatalError("Failed to initialize", err.Error())
		}
		os.Exit(1)
	}

	watcher.OnReload(func(cfg *config.Config) {
		app.applyConfig(cfg)
	})
	watcher.Start()

	if withMonitor {
		model := ui.NewMonitor(app.deviceName, cfg.MasterKey)
		p := tea.NewProgram(model, tea.WithAltScreen())
		app.notify = p.Send
		go func() {
			_, _ = p.Run()
			cancel()
		}()
		defer p.Quit()
	}

	go func() {
		<-sigChan
		logger.Info().Msg("received shutdown signal")
		cancel()
	}()

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("daemon error")
	}

	logger.Info().Msg("shutdown complete")
}

// newLogger builds the process logger. In monitor mode the TUI owns the
// terminal, so logs are dropped rather than smeared across it.
func newLogger(verbose, withMonitor bool) zerolog.Logger {
	if withMonitor {
		return zerolog.Nop()
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// runListDevices handles the list-devices subcommand
func runListDevices() {
	devices, err := gateway.ListKeyboards()
	if err != nil {
		ui.PrintFatalError("Failed to list devices", err.Error())
		os.Exit(1)
	}
	uiDevices := make([]ui.DeviceInfo, len(devices))
	for i, d := range devices {
		uiDevices[i] = ui.DeviceInfo{Path: d.Path, Name: d.Name}
	}
	ui.PrintDeviceList(uiDevices)
}

// runSetDevice handles the set-device subcommand
func runSetDevice(args []string) {
	fs := flag.NewFlagSet("set-device", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	fs.Usage = func() {
		ui.PrintSetDeviceUsage()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	var device string
	if remaining := fs.Args(); len(remaining) > 0 {
		device = remaining[0]
	} else {
		selected, err := selectDevice()
		if err != nil {
			ui.PrintFatalError("Device selection failed", err.Error())
			os.Exit(1)
		}
		if selected == nil {
			fmt.Println(ui.Muted("No device selected"))
			os.Exit(0)
		}
		// Prefer the name: paths shuffle across reboots, names rarely do.
		device = selected.Name
	}

	if config.Exists(*configPath) {
		if err := config.UpdateDevice(*configPath, device); err != nil {
			ui.PrintFatalError("Failed to update config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceUpdated(*configPath, device)
	} else {
		if err := config.CreateDefault(*configPath, device); err != nil {
			ui.PrintFatalError("Failed to create config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceCreated(*configPath, device)
	}
}

// selectDevice displays an interactive keyboard selection menu using huh
func selectDevice() (*ui.DeviceInfo, error) {
	devices, err := gateway.ListKeyboards()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no keyboard devices found")
	}

	uiDevices := make([]ui.DeviceInfo, len(devices))
	for i, d := range devices {
		uiDevices[i] = ui.DeviceInfo{Path: d.Path, Name: d.Name}
	}
	return ui.SelectDevice(uiDevices)
}

type App struct {
	log        zerolog.Logger
	session    *gateway.Session
	engine     *engine.Engine
	executor   *action.Executor
	harpoon    *action.Harpoon
	deviceName string

	// notify feeds the monitor TUI when one is attached. Set before Run.
	notify func(tea.Msg)
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	info, err := gateway.FindKeyboard(cfg.Device)
	if err != nil {
		return nil, err
	}

	session, err := gateway.OpenSession(info)
	if err != nil {
		return nil, err
	}

	root, err := cfg.Compile()
	if err != nil {
		session.Close()
		return nil, err
	}

	app := &App{
		log:        logger,
		session:    session,
		deviceName: info.Name,
	}

	app.harpoon = action.NewHarpoon(cfg.Harpoon.StateFile, cfg.Harpoon.FocusCommand, logger)
	app.executor = action.NewExecutor(session.Injector(), app.harpoon, logger)

	app.engine = engine.New(engine.Config{
		MasterKey:  cfg.MasterCode(),
		TapTimeout: cfg.TapTimeout(),
		Root:       root,
	}, session, app.hooks(), logger)

	logger.Info().
		Str("device", info.Name).
		Str("master_key", cfg.MasterKey).
		Int("bindings", root.Len()).
		Msg("leaderd ready")

	return app, nil
}

// hooks routes engine observations to the executor, the log, and the monitor
// when one is attached.
func (a *App) hooks() engine.Hooks {
	return engine.Hooks{
		CursorChanged: func(path []string) {
			a.send(ui.CursorMsg(path))
		},
		InvalidKey: func(token string) {
			a.log.Debug().Str("token", token).Msg("no binding for key")
			a.send(ui.InvalidMsg(token))
		},
		MasterHeld: func(held bool) {
			a.send(ui.HeldMsg(held))
		},
		ActionResolved: func(act binding.Action) {
			a.executor.Execute(act)
			a.send(ui.ActionMsg(act.String()))
		},
	}
}

func (a *App) send(msg tea.Msg) {
	if a.notify != nil {
		a.notify(msg)
	}
}

// applyConfig swaps in a reloaded configuration generation. The grabbed
// device and the harpoon store are fixed for the process lifetime; changing
// those needs a restart.
func (a *App) applyConfig(cfg *config.Config) {
	root, err := cfg.Compile()
	if err != nil {
		// The watcher validates before calling us, so this is unreachable,
		// but a broken tree must never reach the engine.
		a.log.Error().Err(err).Msg("reloaded config failed to compile")
		return
	}

	a.engine.Apply(engine.Config{
		MasterKey:  cfg.MasterCode(),
		TapTimeout: cfg.TapTimeout(),
		Root:       root,
	})
	a.log.Info().
		Str("master_key", cfg.MasterKey).
		Int("bindings", root.Len()).
		Msg("configuration applied")
}

func (a *App) Run(ctx context.Context) error {
	events := make(chan gateway.Event, 64)
	go func() {
		if err := a.session.ReadEvents(ctx, events); err != nil && ctx.Err() == nil {
			a.log.Error().Err(err).Msg("device read error")
		}
		close(events)
	}()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return nil
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("keyboard disconnected")
			}
			a.handleEvent(ev)
		}
	}
}

func (a *App) handleEvent(ev gateway.Event) {
	// While the tap gate is closed the engine is out of the loop entirely;
	// everything passes straight through.
	if !a.session.TapEnabled() {
		a.forward(ev)
		return
	}

	if a.engine.HandleKey(ev.Code, ev.Down, ev.Mods, ev.Time) == engine.Forward {
		a.forward(ev)
	}
}

func (a *App) forward(ev gateway.Event) {
	if err := a.session.Forward(ev); err != nil {
		a.log.Error().Err(err).Msg("event forward failed")
	}
}

func (a *App) shutdown() {
	a.log.Info().Msg("shutting down")
	a.engine.Stop()
	if err := a.session.Close(); err != nil {
		a.log.Error().Err(err).Msg("session close failed")
	}
}
