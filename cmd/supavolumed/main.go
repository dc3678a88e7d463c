package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("supavolumed v%s\n", version)
	fmt.Println("Media key daemon for PulseAudio volume control")
}

func printUsage(fs *pflag.FlagSet) {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  supavolumed [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Grabs the volume and mute media keys globally and applies them to the")
	fmt.Println("  default PulseAudio sink and source. Each change is shown as a single")
	fmt.Println("  desktop notification that is updated in place.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Print(fs.FlagUsages())
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with default settings (5% steps, X11 key grabs)")
	fmt.Println("  supavolumed")
	fmt.Println()
	fmt.Println("  # Finer steps")
	fmt.Println("  supavolumed -s 2")
	fmt.Println()
	fmt.Println("  # Read keys from an input device instead of X11")
	fmt.Println("  supavolumed --input evdev --evdev-device /dev/input/event3")
	fmt.Println()
	fmt.Println("  # Publish volume state for status bars")
	fmt.Println("  supavolumed --state-ws-addr 127.0.0.1:3011")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Keys pressed before the audio server connection is ready are ignored")
	fmt.Println("  - evdev input requires read access to the device ('input' group)")
	fmt.Println()
}

func main() {
	cfg := DefaultConfig()

	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	cfg.bindFlags(fs)
	showVersion := fs.Bool("version", false, "Print version and exit")
	showHelp := fs.BoolP("help", "h", false, "Print this help message")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	if *showHelp {
		printUsage(fs)
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Validate already checked the level.
	logLevel, _ := parseLogLevel(cfg.LogLevel)
	logger := setupLogger(logLevel, os.Stderr)

	logger.Debug("starting supavolumed", "version", version)
	logger.Debug("configuration",
		"step", cfg.Step,
		"input", cfg.Input,
		"evdev_devices", cfg.EvdevDevices,
		"server", cfg.Server,
		"ipc_socket", cfg.IPCSocket,
		"state_ws_addr", cfg.StateWSAddr,
		"log_level", cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("supavolumed stopped", "error", err)
		os.Exit(1)
	}
}

// openKeySource connects the configured key backend.
func openKeySource(cfg Config, logger *slog.Logger) (KeySource, error) {
	switch cfg.Input {
	case inputEvdev:
		return newEvdevKeySource(cfg.EvdevDevices, logger)
	default:
		return newX11KeySource(logger)
	}
}

// run wires the daemon together and blocks until it shuts down. The returned
// error is the reason the audio connection or the key source failed, if one did.
func run(cfg Config, logger *slog.Logger) error {
	ctx, stopSignals := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stopSignals()

	// shutdown is also what a failed audio connection invokes.
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	keys, err := openKeySource(cfg, logger)
	if err != nil {
		return fmt.Errorf("open key source: %w", err)
	}

	bindings := RegisterBindings(keys, logger)
	if len(bindings) == 0 {
		logger.Warn("no media keys could be bound; only IPC can drive the daemon")
	}

	notifier, err := newDBusNotifier(defaultNotifyWait)
	if err != nil {
		keys.Close()
		return fmt.Errorf("connect to notification service: %w", err)
	}

	// Presenter -> websocket broadcaster. Only allocated when someone listens.
	var broadcasts chan VolumeSnapshot
	if cfg.StateWSAddr != "" {
		broadcasts = make(chan VolumeSnapshot, 16)
	}
	presenter := NewNotificationPresenter(notifier, broadcasts, logger)
	defer func() {
		if err := presenter.Close(); err != nil {
			logger.Debug("closing notification failed", "error", err)
		}
	}()

	// Central event bus
	events := make(chan Event, defaultEventBuffer)

	server := newPulseServer(cfg.Server, defaultProbeEvery, logger)
	defer server.Close()

	effects := &asyncEffects{ctx: ctx, server: server, events: events, logger: logger}
	conn := NewAudioConnection(shutdown, logger)
	ctrl := NewVolumeController(effects, presenter, logger)
	d := &Daemon{
		Conn:       conn,
		Controller: ctrl,
		Dispatcher: NewEventDispatcher(conn, bindings, ctrl, cfg.Step, logger),
		Presenter:  presenter,
		logger:     logger,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		server.Run(ctx, effects.emit)
	}()

	var keysErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		keysErr = pumpKeys(ctx, keys, events, shutdown, logger)
	}()

	if cfg.IPCSocket != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runIPCServer(ctx, cfg.IPCSocket, events, logger); err != nil {
				logger.Error("IPC server error", "error", err)
			}
		}()
	}

	if cfg.StateWSAddr != "" {
		hub := NewHub(logger, HubConfig{})
		state := NewStateServer(hub, events, logger)

		wg.Add(3)
		go func() {
			defer wg.Done()
			hub.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			RunBroadcaster(ctx, hub, broadcasts, logger)
		}()
		go func() {
			defer wg.Done()
			if err := runHTTPServer(ctx, cfg.StateWSAddr, state.Handler(defaultStateWSPath), logger); err != nil {
				logger.Error("state websocket server error", "error", err)
			}
		}()
	}

	logger.Info("listening", "input", cfg.Input, "keys_bound", len(bindings), "ipc", cfg.IPCSocket, "state_ws", cfg.StateWSAddr)

	runDaemon(ctx, events, d)

	logger.Info("shutting down")
	shutdown()

	// The X11 source only returns from WaitForEvent once its connection closes.
	if err := keys.Close(); err != nil {
		logger.Debug("closing key source failed", "error", err)
	}
	wg.Wait()

	if err := conn.Err(); err != nil {
		return err
	}
	return keysErr
}
