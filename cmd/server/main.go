package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibe-virtuoso/backend/internal/archive"
	"github.com/vibe-virtuoso/backend/internal/config"
	"github.com/vibe-virtuoso/backend/internal/control"
	"github.com/vibe-virtuoso/backend/internal/dispatch"
	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/landmark"
	"github.com/vibe-virtuoso/backend/internal/session"
	"github.com/vibe-virtuoso/backend/internal/supervisor"
	"github.com/vibe-virtuoso/backend/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	envPath := flag.String("env", ".env", "Path to .env file")
	port := flag.Int("port", 0, "Override server port")
	mockMode := flag.Bool("mock", false, "Use the mock hand detector")
	console := flag.Bool("console", false, "Read instrument keys and voice commands from stdin")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		log.Fatalf("Failed to load %s: %v", *envPath, err)
	}
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *mockMode {
		cfg.Detector.Mode = config.DetectorMock
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	overrides, err := cfg.InstrumentOverrides()
	if err != nil {
		log.Fatalf("Invalid instruments: %v", err)
	}
	registry, err := instrument.NewRegistry(overrides)
	if err != nil {
		log.Fatalf("Invalid instruments: %v", err)
	}

	dispatcher := dispatch.New(registry, dispatch.LogEngine{})
	defer dispatcher.Close()

	detector, closeDetector := startDetector(cfg.Detector)
	defer closeDetector()

	sessionCfg, err := cfg.Session()
	if err != nil {
		log.Fatalf("Invalid gesture config: %v", err)
	}
	sessions := session.NewManager(sessionCfg, detector, registry, dispatcher)

	var sink archive.Sink = archive.Discard{}
	if cfg.Archive.URL != "" {
		sink = archive.NewClient(cfg.Archive.URL, cfg.Archive.Token)
		log.Printf("Archiving recordings to %s", cfg.Archive.URL)
	}

	sup := supervisor.New(cfg.SupervisorOptions(), registry, sink)
	broadcaster := ws.NewBroadcaster(cfg.Server.MaxConnections)
	sup.OnChange(broadcaster.SupervisorChanged)

	server := ws.NewServer(broadcaster, sessions, sup, registry, dispatcher, cfg.Server.AllowedOrigins, cfg.Server.AuthToken)
	httpServer := ws.NewHTTPServer(cfg.Server.Host, cfg.Server.Port, server.Handler())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *console {
		log.Println("Console control enabled: 1-6 pick an instrument, q stops, anything longer is a voice command")
		go func() {
			if err := control.RunConsole(ctx, os.Stdin, sup); err != nil {
				log.Printf("console: %v", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", httpServer.Addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	st := sup.Stop(shutdownCtx)
	log.Printf("Supervisor %s", st.State)
}

func startDetector(cfg config.DetectorConfig) (landmark.Detector, func()) {
	switch cfg.Mode {
	case config.DetectorMock:
		log.Printf("Using mock hand detector (step %s)", cfg.MockStep)
		return landmark.NewMock(cfg.MockStep), func() {}
	case config.DetectorSidecar:
		sc, err := landmark.StartSidecar(landmark.SidecarConfig{Command: cfg.Command, Args: cfg.Args})
		if err != nil {
			log.Fatalf("Failed to start hand detector: %v", err)
		}
		log.Printf("Hand detector sidecar started: %s", cfg.Command)
		return sc, func() {
			if err := sc.Close(); err != nil {
				log.Printf("detector close: %v", err)
			}
		}
	default:
		log.Println("No hand detector configured; frames will report no hands")
		return landmark.None, func() {}
	}
}
