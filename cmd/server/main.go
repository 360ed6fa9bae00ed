package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/yegors/flightwatch/internal/api"
	"github.com/yegors/flightwatch/internal/avinor"
	"github.com/yegors/flightwatch/internal/config"
	"github.com/yegors/flightwatch/internal/display"
	"github.com/yegors/flightwatch/internal/publish"
	"github.com/yegors/flightwatch/internal/tracker"
	"github.com/yegors/flightwatch/internal/websocket"
	"github.com/yegors/flightwatch/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	once := flag.Bool("once", false, "Run a single fetch cycle, print the flight list and exit")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting flightwatch",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
		logger.String("home_airport", cfg.Tracker.HomeAirport),
		logger.Int("watchlist_size", len(cfg.Tracker.Flights)),
	)

	// Validate already resolved the zone once
	loc, _ := cfg.Tracker.Location()

	feedClient := avinor.NewClient(cfg.Tracker.FeedBaseURL, cfg.Tracker.RequestTimeout(), log)
	trackerService := tracker.NewService(tracker.Config{
		HomeAirport:    cfg.Tracker.HomeAirport,
		UpdateInterval: cfg.Tracker.UpdateInterval(),
		RequestTimeout: cfg.Tracker.RequestTimeout(),
		Location:       loc,
		ReportMissing:  cfg.Tracker.ReportMissing,
		Flights:        watchlist(cfg.Tracker.Flights),
	}, feedClient, log)

	if *once {
		os.Exit(runOnce(trackerService, loc, log))
	}

	// Create a context that will be canceled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional NATS publisher
	var natsPublisher *publish.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = publish.ConnectNATS(cfg.NATS.URL, cfg.NATS.Subject, log)
		if err != nil {
			// Continue without NATS rather than failing
			log.Error("Failed to connect to NATS, snapshots will not be published", logger.Error(err))
		} else {
			trackerService.AddPublisher(natsPublisher)
		}
	} else {
		log.Info("NATS publisher disabled in configuration")
	}

	var server *http.Server
	if cfg.Server.Enabled {
		// Create WebSocket server
		wsServer := websocket.NewServer(log)
		wsServer.SetMessageHandler(tracker.NewWebSocketHandler(trackerService, log))
		go wsServer.Run(ctx)
		trackerService.AddPublisher(tracker.NewWebSocketPublisher(wsServer))

		router := api.NewRouter(trackerService, wsServer, loc, log)
		server = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router.Routes(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}

		go func() {
			log.Info("Starting HTTP server", logger.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error", logger.String("addr", server.Addr), logger.Error(err))
			}
		}()
	} else {
		log.Info("HTTP server disabled in configuration")
	}

	// Start the poller after all publishers are registered
	if err := trackerService.Start(ctx); err != nil {
		log.Error("Failed to start flight tracker", logger.Error(err))
		os.Exit(1)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")

	// Stop background services first
	trackerService.Stop()

	if natsPublisher != nil {
		if err := natsPublisher.Close(); err != nil {
			log.Error("Error closing NATS connection", logger.Error(err))
		}
	}

	// Cancel the main context
	cancel()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", logger.Error(err))
		}
	}

	log.Info("Shutdown complete")
}

func watchlist(flights []config.FlightConfig) []tracker.WatchlistEntry {
	entries := make([]tracker.WatchlistEntry, 0, len(flights))
	for _, f := range flights {
		entries = append(entries, tracker.WatchlistEntry{
			FlightNumber: f.FlightNumber,
			Label:        f.Label,
			Date:         f.Date,
		})
	}
	return entries
}

// runOnce performs a single fetch cycle and prints the view. It returns the
// process exit code.
func runOnce(service *tracker.Service, loc *time.Location, log *logger.Logger) int {
	service.FetchCycle(context.Background())

	snapshot, ok := service.Snapshot()
	if !ok {
		log.Error("Fetch cycle failed", logger.String("last_error", service.Stats().LastError))
		return 1
	}

	printView(os.Stdout, display.Project(snapshot.Flights, snapshot.Airport, loc))
	return 0
}

func printView(w io.Writer, view display.View) {
	fmt.Fprintln(w, view.Header)
	if view.Empty {
		fmt.Fprintln(w, view.Message)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, item := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.Label, item.FlightID, item.StatusText, item.Route, item.Time.Text())
	}
	tw.Flush()
}
