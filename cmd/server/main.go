package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/purelab/lis-gateway/internal/auth"
	"github.com/purelab/lis-gateway/internal/bridge"
	"github.com/purelab/lis-gateway/internal/config"
	"github.com/purelab/lis-gateway/internal/hl7"
	"github.com/purelab/lis-gateway/internal/lis"
	"github.com/purelab/lis-gateway/internal/store"
	"github.com/purelab/lis-gateway/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Could not load configuration", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Token service guarding the analyzer endpoints
	credentials := auth.StaticCredentials{
		Username: cfg.LISUsername,
		Password: cfg.LISPassword,
	}
	tokens, err := auth.NewTokenService(credentials, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if err != nil {
		slog.Error("Could not start token service", "error", err)
		os.Exit(1)
	}

	// Shared state: message store and reference data
	messageStore := store.NewMessageStore()
	directory := lis.DefaultDirectory()
	forwarder := bridge.NewResultForwarder(messageStore, directory, cfg.ResultBridge)

	// Create wait group for goroutines
	var wg sync.WaitGroup

	// Start HL7 MLLP ingress
	mllpServer := hl7.NewMLLPServer(cfg.MLLPListenPort, messageStore)
	if err := mllpServer.Start(ctx); err != nil {
		slog.Error("Could not start MLLP server", "error", err)
		os.Exit(1)
	}
	defer mllpServer.Stop()

	// Start LIS API server
	lisServer := web.NewLISServer(cfg, tokens, directory, forwarder)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := lisServer.Start(ctx); err != nil {
			slog.Error("LIS API server error", "error", err)
		}
	}()

	// Start HL7 API server
	hl7Server := web.NewHL7Server(cfg, messageStore)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hl7Server.Start(ctx); err != nil {
			slog.Error("HL7 API server error", "error", err)
		}
	}()

	slog.Info("LIS Gateway started",
		"lisPort", cfg.LISListenPort,
		"hl7Port", cfg.HL7ListenPort,
		"mllpPort", cfg.MLLPListenPort,
	)

	// Print startup information
	printStartupInfo(cfg)

	// Wait for shutdown signal
	<-sigChan
	slog.Info("Shutdown signal received, stopping servers...")

	// Cancel context to stop all services
	cancel()

	// Wait for all goroutines to finish
	wg.Wait()

	slog.Info("LIS Gateway stopped")
}

func printStartupInfo(cfg *config.Config) {
	info := `
╔═══════════════════════════════════════════════════════════════╗
║                      LIS Gateway Started                      ║
╠═══════════════════════════════════════════════════════════════╣
║ LIS Analyzer API     : http://localhost:%-22d ║
║ HL7 Message API      : http://localhost:%-22d ║
║ HL7 MLLP Ingress     : localhost:%-29d ║
║                                                               ║
║ Analyzer login       : /lis_apis/applogin                     ║
║ HL7 receive          : /api/v1/hl7/message                    ║
╚═══════════════════════════════════════════════════════════════╝
`
	fmt.Printf(info,
		cfg.LISListenPort,
		cfg.HL7ListenPort,
		cfg.MLLPListenPort,
	)
}
