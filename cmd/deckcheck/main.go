package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("deckcheck v%s\n", version)
	fmt.Println("Hardware diagnostic feedback plugin for deck control surfaces")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  deckcheck -port PORT -pluginUUID UUID -registerEvent EVENT [-info JSON] [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Diagnostic plugin that mirrors every key press, dial turn and touch")
	fmt.Println("  tap back onto the control's own display, with counters, hold timers")
	fmt.Println("  and tap coordinates, so a tester can confirm the hardware works.")
	fmt.Println()
	fmt.Println("  The -port, -pluginUUID, -registerEvent and -info flags are supplied")
	fmt.Println("  by the deck host software when it launches the plugin.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -port int")
	fmt.Println("        Websocket port of the deck host (host-supplied)")
	fmt.Println()
	fmt.Println("  -pluginUUID string")
	fmt.Println("        Registration UUID (host-supplied)")
	fmt.Println()
	fmt.Println("  -registerEvent string")
	fmt.Println("        Registration event name (host-supplied)")
	fmt.Println()
	fmt.Println("  -info string")
	fmt.Println("        Host/device info JSON (host-supplied, unused)")
	fmt.Println()
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (optional)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # As launched by the host")
	fmt.Println("  deckcheck -port 28196 -pluginUUID ABC123 -registerEvent registerPlugin")
	fmt.Println()
	fmt.Println("  # Against the bundled simulator host (cmd/decksim)")
	fmt.Println("  decksim -listen 127.0.0.1:9555 &")
	fmt.Println("  deckcheck -port 9555 -pluginUUID test -registerEvent registerPlugin -log-level debug")
	fmt.Println()
}

func main() {
	// Check for version/help flags early
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		port          = flag.Int("port", 0, "Websocket port of the deck host")
		pluginUUID    = flag.String("pluginUUID", "", "Registration UUID supplied by the host")
		registerEvent = flag.String("registerEvent", "", "Registration event name supplied by the host")
		info          = flag.String("info", "", "Host/device info JSON supplied by the host (unused)")
		configPath    = flag.String("config", "", "Path to YAML config file")
		logLevelStr   = flag.String("log-level", "", "Log level: error, warn, info, debug")
		showVersion   = flag.Bool("version", false, "Print version and exit")
		showHelp      = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()
	_ = info

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Load config (file is optional; flags override).
	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	overrides := FlagOverrides{}
	if *logLevelStr != "" {
		overrides.LogLevel = logLevelStr
	}
	overrides.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	if *port == 0 || *pluginUUID == "" || *registerEvent == "" {
		fmt.Fprintln(os.Stderr, "error: -port, -pluginUUID and -registerEvent are required (supplied by the deck host)")
		os.Exit(1)
	}

	// Connect and register with the host.
	deck, err := DialDeck(*port, time.Duration(cfg.Deck.HandshakeTimeoutMS)*time.Millisecond, logger)
	if err != nil {
		logger.Error("failed to connect to deck host", "error", err)
		os.Exit(1)
	}
	defer deck.Close()

	if err := deck.Register(*registerEvent, *pluginUUID); err != nil {
		logger.Error("registration failed", "error", err)
		os.Exit(1)
	}

	logger.Info("registered with deck host",
		"port", *port,
		"uuid", *pluginUUID,
		"register_event", *registerEvent)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probe := NewProbe(deck, clock.New(), logger)
	events := make(chan DeckEvent, cfg.Deck.EventBuffer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deck.ReadEvents(events)
	})
	g.Go(func() error {
		probe.Run(ctx, events)
		return nil
	})
	g.Go(func() error {
		// Unblock the socket reader when the context ends.
		<-ctx.Done()
		return deck.Close()
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("plugin stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("plugin stopped")
}
