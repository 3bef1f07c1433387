// Command netwatchd is netwatch's long-lived local daemon: it samples
// per-process network usage, ingests browser active-tab reports, rolls
// raw data up into hourly/daily aggregates, enforces retention, and
// serves the read query surface over loopback HTTP (spec.md §5, §6).
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"netwatch/internal/aggregate"
	"netwatch/internal/catalog"
	"netwatch/internal/clock"
	"netwatch/internal/config"
	"netwatch/internal/httpapi"
	"netwatch/internal/ingest"
	"netwatch/internal/obslog"
	"netwatch/internal/query"
	"netwatch/internal/retention"
	"netwatch/internal/sampler"
	"netwatch/internal/store"
	"netwatch/internal/supervisor"
)

// Version is set at build time via -ldflags, matching the teacher's
// ServerVersion pattern (server-go/cmd/server/main.go).
var Version = "dev"

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Printf("netwatchd version %s\n", Version)
			os.Exit(0)
		case "--check":
			showDiagnostics()
			return
		}
	}

	dataDir := config.DefaultDataDir()
	cfgPath := filepath.Join(dataDir, config.Filename)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("❌ failed to load config: %v\n", err)
		os.Exit(1)
	}
	obslog.SetLevel(obslog.ParseLevel(cfg.LogLevel))

	// Persisted state layout (spec.md §6): data dir 0700 with a logs/
	// subdirectory; log lines tee to stdout and a file there. Rotation is
	// out of scope.
	if logFile := openLogFile(dataDir); logFile != nil {
		defer logFile.Close()
		obslog.SetOutput(io.MultiWriter(os.Stdout, logFile))
	}

	st, err := store.Open(filepath.Join(dataDir, "netwatch.db"))
	if err != nil {
		fmt.Printf("❌ failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	clk := clock.New()

	apps := catalog.NewAppCatalog(st)
	if err := apps.Preload(); err != nil {
		fmt.Printf("❌ failed to preload application catalog: %v\n", err)
		os.Exit(1)
	}
	domains := catalog.NewDomainCatalog(st)

	procSampler := sampler.NewGopsutilSampler()
	delta := sampler.NewDeltaEngine(procSampler, apps, st, int64(cfg.SamplingIntervalSeconds))
	agg := aggregate.New(st, clk)
	ret := retention.New(st, clk)

	sup := supervisor.New(st, clk, delta, agg, ret, supervisor.Policy{
		SamplingIntervalSeconds: int64(cfg.SamplingIntervalSeconds),
		RawTTLDays:              cfg.RawTTLDays,
		HourTTLDays:             cfg.HourTTLDays,
	})

	ing := ingest.New(domains, apps, st)
	qe := query.New(st, clk, int64(cfg.SamplingIntervalSeconds), cfg.RawTTLDays, cfg.HourTTLDays)
	server := httpapi.New(ing, qe, sup)

	ctx, cancel := context.WithCancel(context.Background())
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	setupSignalHandler(cancel, sup, qe, cfgPath)

	obslog.Info("netwatchd listening on 127.0.0.1:%d (data dir: %s)", cfg.ServerPort, dataDir)
	go func() {
		if err := server.Run(cfg.ServerPort); err != nil {
			fmt.Printf("❌ server exited: %v\n", err)
			cancel()
			os.Exit(1)
		}
	}()

	// Block until a shutdown signal cancels ctx, let the supervisor finish
	// within its bounded deadline, then return so the deferred store close
	// runs.
	<-ctx.Done()
	<-supDone
}

// setupSignalHandler wires SIGINT/SIGTERM to cooperative shutdown and
// SIGHUP to config.reload, grounded on the teacher's signal.go pattern
// (server-go/cmd/server/signal.go): emoji-tagged prints, a background
// goroutine draining a signal channel.
func setupSignalHandler(cancel context.CancelFunc, sup *supervisor.Supervisor, qe *query.Engine, cfgPath string) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range sigs {
			switch sig {
			case syscall.SIGHUP:
				obslog.Info("received SIGHUP, reloading config")
				reloadConfig(sup, qe, cfgPath)
			case syscall.SIGINT, syscall.SIGTERM:
				obslog.Info("received shutdown signal, stopping")
				cancel()
				return
			}
		}
	}()
}

func reloadConfig(sup *supervisor.Supervisor, qe *query.Engine, cfgPath string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		obslog.Error("config reload failed: %v", err)
		return
	}
	obslog.SetLevel(obslog.ParseLevel(cfg.LogLevel))
	sup.UpdatePolicy(supervisor.Policy{
		SamplingIntervalSeconds: int64(cfg.SamplingIntervalSeconds),
		RawTTLDays:              cfg.RawTTLDays,
		HourTTLDays:             cfg.HourTTLDays,
	})
	qe.SetPolicy(int64(cfg.SamplingIntervalSeconds), cfg.RawTTLDays, cfg.HourTTLDays)
	obslog.Info("config reloaded (serverPort changes require a restart)")
}

// openLogFile creates <dataDir>/logs and opens an append-mode log file in
// it, returning nil (stdout-only logging) on any failure.
func openLogFile(dataDir string) *os.File {
	logsDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0o700); err != nil {
		obslog.Warn("could not create logs directory: %v", err)
		return nil
	}
	f, err := os.OpenFile(filepath.Join(logsDir, "netwatchd.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		obslog.Warn("could not open log file: %v", err)
		return nil
	}
	return f
}

// showDiagnostics implements --check, grounded on the teacher's
// showDiagnostics (server-go/cmd/server/main.go).
func showDiagnostics() {
	dataDir := config.DefaultDataDir()
	cfgPath := filepath.Join(dataDir, config.Filename)
	dbPath := filepath.Join(dataDir, "netwatch.db")

	fmt.Println("netwatchd diagnostics")
	fmt.Printf("  data dir:     %s\n", dataDir)
	fmt.Printf("  config file:  %s (exists: %t)\n", cfgPath, fileExists(cfgPath))
	fmt.Printf("  store file:   %s (exists: %t)\n", dbPath, fileExists(dbPath))

	if fileExists(dbPath) {
		st, err := store.Open(dbPath)
		if err != nil {
			fmt.Printf("  store open:   failed: %v\n", err)
			return
		}
		defer st.Close()
		fmt.Printf("  schema version: %d\n", st.SchemaVersion())
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
