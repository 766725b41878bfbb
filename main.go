package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pyrelab/firespread/internal/api"
	"github.com/pyrelab/firespread/internal/config"
	"github.com/pyrelab/firespread/internal/manager"
	"github.com/pyrelab/firespread/internal/scenario"
	"github.com/pyrelab/firespread/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address")
	dbFile       = flag.String("db", "firespread.db", "Path to the scenario database")
	configFile   = flag.String("config", "", "Path to a JSON tuning config (optional)")
	noPersist    = flag.Bool("no-persist", false, "Disable scenario storage")
	printVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	// The migrate subcommand manages the scenario schema and exits.
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		runMigrateCommand(args[1:], *dbFile)
		return
	}

	cfg := config.Empty()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("Loaded config from %s", *configFile)
	}

	var store *scenario.Store
	if !*noPersist {
		var err error
		store, err = scenario.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open scenario database: %v", err)
		}
		defer store.Close()
		if err := store.MigrateUp(); err != nil {
			log.Fatalf("Failed to migrate scenario database: %v", err)
		}
	}

	mgr := manager.New(cfg)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(mgr, store, cfg).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("firespread %s listening on %s", version.Version, *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	// Wait for the HTTP server, then stop every running simulation.
	wg.Wait()
	mgr.Shutdown()
	log.Printf("Graceful shutdown complete")
}

// runMigrateCommand handles the 'migrate' subcommand dispatching.
func runMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		printMigrateHelp()
		os.Exit(1)
	}

	store, err := scenario.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open scenario database: %v", err)
	}
	defer store.Close()

	switch args[0] {
	case "up":
		if err := store.MigrateUp(); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migrations applied")

	case "down":
		if err := store.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Rolled back one migration")

	case "status":
		ver, dirty, err := store.MigrateVersion()
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		log.Printf("Schema version %d (dirty=%v)", ver, dirty)

	default:
		printMigrateHelp()
		os.Exit(1)
	}
}

func printMigrateHelp() {
	fmt.Println("Usage: firespread [flags] migrate <up|down|status>")
}
