// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/term"

	"redact-mcp/internal/config"
	"redact-mcp/internal/core"
	"redact-mcp/internal/engine"
	"redact-mcp/internal/mcpserver"
	"redact-mcp/internal/observability"
	"redact-mcp/internal/redactors"
	"redact-mcp/internal/version"
)

// app holds what every subcommand needs once the configuration is loaded.
type app struct {
	configFile string
	logLevel   string
	jsonOutput bool
	noColor    bool

	cfg      *config.Config
	logger   *zap.Logger
	metrics  *prometheus.Registry
	observer *observability.StandardObserver
	engine   *engine.Engine
	files    *redactors.FileService
	out      *printer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "redact-mcp",
		Short: "Reversible redaction of personal data for LLM workflows",
		Long: `redact-mcp replaces personal data in text and documents with indexed
placeholders such as [EMAIL_ADDRESS_1] and restores them later from a session.

Run "redact-mcp serve" to expose the tools to an MCP client over stdio, or use
the other commands to redact from the shell.

Example:
  echo "Mail john@example.com" | redact-mcp redact
  redact-mcp redact-file --entities EMAIL_ADDRESS,PHONE_NUMBER report.docx`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				a.out = newPrinter(cmd.OutOrStdout(), a.noColor)
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error); overrides the configuration")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newServeCmd(a),
		newRedactCmd(a),
		newAnalyzeCmd(a),
		newRedactFileCmd(a),
		newEntitiesCmd(a),
		newVersionCmd(a),
	)
	return rootCmd
}

// setup loads the configuration and builds the engine and file service.
func (a *app) setup(cmd *cobra.Command) error {
	if a.configFile != "" {
		cfg, err := config.LoadConfig(a.configFile)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.LoadConfigOrDefault("")
	}
	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}

	logger, err := observability.NewLogger(a.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger
	a.metrics = prometheus.NewRegistry()
	a.observer = observability.NewStandardObserver(logger, observability.NewMetricsWithRegistry(a.metrics))

	a.engine, err = core.BuildEngine(a.cfg, a.observer)
	if err != nil {
		return err
	}
	registry, err := core.BuildRegistry(a.cfg, a.observer)
	if err != nil {
		return err
	}
	a.files = redactors.NewFileService(a.engine, registry, a.observer.Named("files"))
	a.out = newPrinter(cmd.OutOrStdout(), a.noColor)
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the redaction tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = a.cfg.Metrics.Addr
			}
			return a.serve(cmd.Context(), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address for the Prometheus /metrics listener (empty disables it)")
	return cmd
}

func (a *app) serve(parent context.Context, metricsAddr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName: "redact-mcp",
		Endpoint:    a.cfg.Tracing.Endpoint,
		Insecure:    a.cfg.Tracing.Insecure,
	})
	if err != nil {
		a.logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				a.logger.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	if metricsAddr != "" {
		srv := a.metricsServer(metricsAddr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.logger.Info("starting redact-mcp",
		zap.String("version", version.Short()),
		zap.Float64("score_threshold", a.engine.ScoreThreshold()),
		zap.Bool("ner_enabled", a.cfg.NER.Enabled),
		zap.Bool("llm_enabled", a.cfg.Reviewer.Enabled),
		zap.String("metrics_addr", metricsAddr))

	server := mcpserver.New(a.engine, a.files, a.observer.Named("mcp"), version.Short())
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("redact-mcp stopped")
	return nil
}

func (a *app) metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(mux, "redact-mcp.metrics"),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newRedactCmd(a *app) *cobra.Command {
	var entities []string

	cmd := &cobra.Command{
		Use:   "redact [text]",
		Short: "Redact text given as arguments or on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			res := a.engine.Redact(cmd.Context(), text, core.ParseEntityTypes(entities))
			if a.jsonOutput {
				return a.out.json(res)
			}
			a.out.redaction(res, a.engine.Mappings(res.SessionID))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&entities, "entities", "e", nil, "Entity types to redact (comma separated, default all)")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var entities []string

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Report personal data in text without changing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			res := a.engine.Analyze(cmd.Context(), text, core.ParseEntityTypes(entities))
			if a.jsonOutput {
				return a.out.json(res)
			}
			a.out.analysis(res)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&entities, "entities", "e", nil, "Entity types to look for (comma separated, default all)")
	return cmd
}

func newRedactFileCmd(a *app) *cobra.Command {
	var (
		entities []string
		mask     bool
	)

	cmd := &cobra.Command{
		Use:   "redact-file <path>",
		Short: "Write a redacted copy of a document next to the original",
		Long: `Write <name>_redacted.<ext> beside the input. Supported formats are
.txt, .csv, .log, .md, .docx, .xlsx, .pdf and .doc (converted to .docx).

Sessions live in memory, so the mapping is printed with the result; keep it if
the document must be restored outside a running server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.files.RedactFile(cmd.Context(), args[0], core.ParseEntityTypes(entities), !mask)
			if err != nil {
				return err
			}
			mapping := a.engine.Mappings(res.SessionID)
			if a.jsonOutput {
				return a.out.json(struct {
					*redactors.RedactFileResult
					Mapping map[string]string `json:"mapping,omitempty"`
				}{res, mapping})
			}
			a.out.fileRedaction(res, mapping)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&entities, "entities", "e", nil, "Entity types to redact (comma separated, default all)")
	cmd.Flags().BoolVar(&mask, "mask", false, "Mask values irreversibly instead of using placeholders")
	return cmd
}

func newEntitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List active entity types and supported file formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := struct {
				ActiveEntities []string `json:"active_entities"`
				FileTypes      []string `json:"file_types"`
				ScoreThreshold float64  `json:"score_threshold"`
				LLMAvailable   bool     `json:"llm_available"`
			}{
				ActiveEntities: a.engine.ActiveEntities(),
				FileTypes:      a.files.SupportedTypes(),
				ScoreThreshold: a.engine.ScoreThreshold(),
				LLMAvailable:   a.engine.LLMAvailable(cmd.Context()),
			}
			if a.jsonOutput {
				return a.out.json(info)
			}
			a.out.list("Active entity types", info.ActiveEntities)
			a.out.list("Supported file types", info.FileTypes)
			a.out.field("Score threshold", fmt.Sprintf("%.2f", info.ScoreThreshold))
			a.out.field("LLM reviewer", availability(info.LLMAvailable))
			return nil
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if a.jsonOutput {
				return a.out.json(version.Full())
			}
			a.out.plain(version.Info())
			return nil
		},
	}
}

// readText joins the arguments, or reads stdin when there are none.
func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok && isTerminal(f) {
		return "", errors.New("no text given: pass it as arguments or pipe it on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
