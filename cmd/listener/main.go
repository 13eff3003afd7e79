package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"pipescan/config"
	"pipescan/internal/notifier"
	"pipescan/internal/orchestrator"
	"pipescan/internal/scanner"
	"pipescan/internal/source"
	"pipescan/internal/store/sqlite"
	"pipescan/pkg/azuredevops"
	"pipescan/pkg/log"
	"pipescan/pkg/slack"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		return
	}

	// 2. Logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting pipeline security listener...")
	logger.Infof(ctx, "Environment: %s", cfg.Environment.Name)
	logger.Infof(ctx, "Event feed: %s", cfg.Source.FeedURL)

	// 3. Storage
	repo, err := sqlite.New(cfg.Database.Path, logger)
	if err != nil {
		logger.Error(ctx, "Failed to open database: ", err)
		return
	}
	defer repo.Close()

	// 4. Pattern rules
	blacklist, whitelist := scanner.LoadRuleFiles(ctx, logger, cfg.Patterns.BlacklistPath, cfg.Patterns.WhitelistPath)
	logger.Infof(ctx, "Loaded %d blacklist and %d whitelist patterns", len(blacklist), len(whitelist))

	// 5. CI platform client
	devopsClient := azuredevops.NewClient(azuredevops.Config{
		ServerURL:    cfg.AzureDevOps.ServerURL,
		Organization: cfg.AzureDevOps.Organization,
		Project:      cfg.AzureDevOps.Project,
		PAT:          cfg.AzureDevOps.PAT,
		APIVersion:   cfg.AzureDevOps.APIVersion,
		RepositoryID: cfg.AzureDevOps.RepositoryID,
		Timeout:      cfg.AzureDevOps.RequestTimeout,
	})

	// 6. Alerting
	if cfg.Slack.WebhookURL == "" {
		logger.Warn(ctx, "SLACK_WEBHOOK_URL not set, alerts will be logged only")
	}
	dispatcher := notifier.New(slack.NewClient(cfg.Slack.WebhookURL), logger)

	// 7. Orchestrator
	proc := orchestrator.New(
		logger,
		repo,
		devopsClient,
		scanner.NewAnalyzer(logger),
		dispatcher,
		blacklist,
		whitelist,
		cfg.AzureDevOps.RequestTimeout,
	)

	// 8. Poll loop + heartbeat
	feedClient := source.NewHTTPFeedClient(logger, cfg.Source.FeedURL, cfg.Source.RequestTimeout)
	heartbeat := source.NewHeartbeat(logger, feedClient, cfg.Source.HeartbeatInterval)
	poller := source.NewPoller(logger, feedClient, proc, heartbeat, cfg.Source.PollInterval, cfg.Source.MaxRetries)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		heartbeat.Run(ctx)
	}()

	if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error(ctx, "Poll loop stopped: ", err)
	}

	stop()
	wg.Wait()
	logger.Info(ctx, "Listener stopped gracefully")
}
