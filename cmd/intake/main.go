// intake is the discovery interview CLI: it runs the interview loop against
// a model provider, persists sessions and turns, and produces plans.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intake/pkg/config"
	"intake/pkg/llm/factory"
	metricsmw "intake/pkg/llm/middleware/metrics"
	"intake/pkg/logx"
	"intake/pkg/metrics"
	"intake/pkg/persistence"
)

func main() {
	var (
		configPath  = flag.String("config", "intake.yaml", "Path to configuration file")
		dbPath      = flag.String("db", "", "Database path (overrides configuration)")
		resumeID    = flag.String("resume", "", "Resume an existing session by ID")
		planID      = flag.String("plan", "", "Run the plan pipeline for a session ID")
		regenerate  = flag.Bool("regenerate", false, "With -plan: allow regenerating a completed session")
		usageID     = flag.String("usage", "", "Print the token usage report for a session ID")
		secretsMode = flag.Bool("secrets", false, "Interactively encrypt provider API keys")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *debug {
		logx.SetDebugEnabled(true)
	}

	os.Exit(run(*configPath, *dbPath, *resumeID, *planID, *usageID, *metricsAddr, *secretsMode, *regenerate))
}

func run(configPath, dbPath, resumeID, planID, usageID, metricsAddr string, secretsMode, regenerate bool) int {
	logger := logx.NewLogger("intake")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("invalid configuration: %v", err)
		return 1
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	if secretsMode {
		if err := encryptSecretsInteractive("."); err != nil {
			logger.Error("could not write secrets: %v", err)
			return 1
		}
		return 0
	}

	if usageID != "" {
		return printUsage(cfg, usageID, logger)
	}

	if err := loadSecrets("."); err != nil {
		logger.Error("could not load secrets: %v", err)
		return 1
	}

	store, err := persistence.Open(cfg.DBPath)
	if err != nil {
		logger.Error("could not open database: %v", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	recorder := metricsmw.NewPrometheusRecorder()
	if metricsAddr != "" {
		serveMetrics(metricsAddr, logger)
	}
	clients := factory.New(cfg, recorder)

	app := &app{
		cfg:     cfg,
		store:   store,
		clients: clients,
		logger:  logger,
	}

	switch {
	case planID != "":
		return app.runPipeline(planID, regenerate)
	case resumeID != "":
		return app.runInterview(resumeID)
	default:
		return app.runInterview("")
	}
}

// serveMetrics exposes the default registry for scraping.
func serveMetrics(addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped: %v", err)
		}
	}()
	logger.Info("serving metrics on %s/metrics", addr)
}

// printUsage reports a session's token spend from Prometheus.
func printUsage(cfg config.Config, sessionID string, logger *logx.Logger) int {
	if cfg.PrometheusURL == "" {
		logger.Error("usage reports need prometheus_url in the configuration")
		return 1
	}
	svc, err := metrics.NewQueryService(cfg.PrometheusURL)
	if err != nil {
		logger.Error("could not reach prometheus: %v", err)
		return 1
	}
	report, err := svc.SessionTokenUsage(context.Background(), sessionID)
	if err != nil {
		logger.Error("usage query failed: %v", err)
		return 1
	}

	fmt.Printf("Session %s\n", report.SessionID)
	for _, stage := range report.Stages {
		fmt.Printf("  %-12s prompt %6d  completion %6d\n", stage.Stage, stage.PromptTokens, stage.CompletionTokens)
	}
	fmt.Printf("  %-12s %d tokens, %d failed requests\n", "total", report.TotalTokens(), report.FailedRequests)
	return 0
}
