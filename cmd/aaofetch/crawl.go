package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/aaofetch/internal/config"
	"github.com/nao1215/aaofetch/internal/crawler"
	"github.com/nao1215/aaofetch/internal/database"
	applog "github.com/nao1215/aaofetch/internal/log"
	"github.com/nao1215/aaofetch/internal/model"
	"github.com/nao1215/aaofetch/internal/report"
	"github.com/nao1215/aaofetch/internal/transport"
)

// dotenvFile is loaded from the working directory when present.
const dotenvFile = ".env"

// runCrawlCmd executes a crawl with the merged configuration.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := applog.New(cmd.ErrOrStderr(), cfg.LogFile, cfg.Verbose)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck // nothing useful to do on close failure
	slog.SetDefault(logger)

	// SIGINT and SIGTERM cancel the crawl; the run is recorded as interrupted.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig merges defaults, the configuration file, the environment and
// explicitly set flags, in that order of increasing precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// loadConfig returns the defaults overridden by the configuration file and
// the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently keep the defaults.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	env, err := config.LoadEnvironment(dotenvFile)
	if err != nil {
		return nil, err
	}
	env.Apply(cfg)

	return cfg, nil
}

// applyFlags copies flags the user actually set onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("max-pages") {
		v, err := flags.GetInt("max-pages")
		if err != nil {
			return err
		}
		cfg.MaxPages = v
	}
	if flags.Changed("dir") {
		v, err := flags.GetString("dir")
		if err != nil {
			return err
		}
		cfg.DownloadDir = v
	}
	if flags.Changed("log-file") {
		v, err := flags.GetString("log-file")
		if err != nil {
			return err
		}
		cfg.LogFile = v
	}
	if flags.Changed("report") {
		v, err := flags.GetString("report")
		if err != nil {
			return err
		}
		cfg.ReportFile = v
	}
	if flags.Changed("proxy") {
		v, err := flags.GetString("proxy")
		if err != nil {
			return err
		}
		cfg.ProxyAddress = v
	}

	robots, err := flags.GetBool("robots")
	if err != nil {
		return err
	}
	if robots {
		cfg.RespectRobots = true
	}

	noLedger, err := flags.GetBool("no-ledger")
	if err != nil {
		return err
	}
	if noLedger {
		cfg.SaveToDB = false
	}
	return nil
}

// runCrawl runs one crawl and writes the summary to out.
// Listing fetch failures end the run but are not returned; storage failures
// and interruption are.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting crawl",
		"listing", cfg.ListingURL,
		"dir", cfg.DownloadDir,
		"maxPages", cfg.MaxPages,
		"robots", cfg.RespectRobots,
		"ledger", cfg.SaveToDB,
	)

	client, err := newClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var opts []crawler.ControllerOption
	if cfg.SaveToDB {
		ledger, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			// The ledger is an audit trail only; the crawl does not depend on it.
			logger.Warn("download history disabled", "dir", cfg.DBDir, "error", err)
		} else {
			defer ledger.Close()
			logger.Debug("database opened", "path", ledger.Path())
			opts = append(opts, crawler.WithRecorder(ledger))
		}
	}

	controller := crawler.NewControllerFromConfig(cfg, client, logger, opts...)
	result, runErr := controller.Run(ctx, cfg.MaxPages)

	if result != nil {
		outputReport(cfg, result, logger, out)
	}
	if runErr != nil {
		return fmt.Errorf("crawl stopped: %w", runErr)
	}
	return nil
}

// newClient builds the HTTP client and verifies the proxy when one is configured.
func newClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*transport.Client, error) {
	opts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, transport.WithProxy(cfg.ProxyAddress))
	}

	client, err := transport.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	if cfg.ProxyAddress != "" {
		if status := client.CheckProxy(ctx); status != transport.ProxyStatusOK {
			return nil, fmt.Errorf("proxy check failed for %s: %w", client.ProxyAddress(), status.Error())
		}
		logger.Info("proxy connection verified", "address", client.ProxyAddress())
	}
	return client, nil
}

// outputReport prints the console summary and writes the optional report file.
func outputReport(cfg *config.Config, result *model.RunResult, logger *slog.Logger, out io.Writer) {
	if _, err := report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)).Write(result); err != nil {
		logger.Error("failed to print summary", "error", err)
	}

	if cfg.ReportFile == "" {
		return
	}
	if err := report.WriteFile(cfg.ReportFile, result, getVersion()); err != nil {
		logger.Error("failed to write report", "path", cfg.ReportFile, "error", err)
		return
	}
	logger.Info("report written", "path", cfg.ReportFile)
}

