// Package servecmder provides the serve command that runs the hearth API
// server with all of its collaborators.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/hearth/api"
	"github.com/papercomputeco/hearth/pkg/config"
	"github.com/papercomputeco/hearth/pkg/logger"
)

const serveLongDesc string = `Run the hearth API server.

The server exposes the household chat stream, notes, household collections,
diagnostics and an MCP endpoint. Completed exchanges are distilled into
notes in the background and, when configured, published to Kafka.

Configuration is resolved from flags, HEARTH_* environment variables,
.hearth/config.toml and built-in defaults, in that order. OPENAI_API_KEY is
used when llm.api_key is not set.

Examples:
  hearth serve
  hearth serve --listen :9000 --postgres postgres://localhost/hearth
  hearth serve --eventstream-provider kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the hearth API server"

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagLLMProvider,
	config.FlagLLMBaseURL,
	config.FlagModel,
	config.FlagExtractionModel,
	config.FlagHistoryLimit,
	config.FlagHeartbeat,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEventStreamProv,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagWorkers,
}

type serveCommander struct {
	flags config.FlagSet
	cfg   *config.Config

	configDir string
	debug     bool
	json      bool
	logFile   string

	// Flag sinks. Values are read back through viper.
	listen          string
	sqlitePath      string
	postgresDSN     string
	llmProvider     string
	llmBaseURL      string
	model           string
	extractionModel string
	historyLimit    uint
	heartbeat       uint
	vectorProvider  string
	vectorTarget    string
	embedProvider   string
	embedTarget     string
	embedModel      string
	embedDims       uint
	streamProvider  string
	kafkaBrokers    string
	kafkaTopic      string
	workers         uint

	logger *slog.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{flags: config.DefaultFlags}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("could not initialize config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlags)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("could not load config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	fs := cmder.flags
	config.AddStringFlag(cmd, fs, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, fs, config.FlagLLMBaseURL, &cmder.llmBaseURL)
	config.AddStringFlag(cmd, fs, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, fs, config.FlagExtractionModel, &cmder.extractionModel)
	config.AddUintFlag(cmd, fs, config.FlagHistoryLimit, &cmder.historyLimit)
	config.AddUintFlag(cmd, fs, config.FlagHeartbeat, &cmder.heartbeat)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, fs, config.FlagEventStreamProv, &cmder.streamProvider)
	config.AddStringFlag(cmd, fs, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, fs, config.FlagKafkaTopic, &cmder.kafkaTopic)
	config.AddUintFlag(cmd, fs, config.FlagWorkers, &cmder.workers)

	cmd.Flags().BoolVar(&cmder.json, "json-logs", false, "Write JSON structured logs")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, closeLog, err := c.newLogger(os.Stdout)
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	svc, err := Build(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	server, err := api.NewServer(svc.APIConfig(c.cfg.API.Listen), svc.Store, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		if err := server.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutting down API server: %w", err)
		}
		return nil
	}
}

// newLogger builds the console logger and, with --log-file, fans every
// record out to a JSON file as well.
func (c *serveCommander) newLogger(stdout *os.File) (*slog.Logger, func() error, error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(c.json),
		logger.WithPretty(!c.json && term.IsTerminal(int(stdout.Fd()))),
		logger.WithWriter(stdout),
	)
	if c.logFile == "" {
		return console, func() error { return nil }, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithSource(c.debug),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), f.Close, nil
}
