// Command cmdtest runs declared commands, checks each outcome against its
// expectation and writes a JUnit report.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/deixis/cmdtest"
	"github.com/deixis/cmdtest/internal/config"
	"github.com/deixis/cmdtest/internal/logging"
	cmdmcp "github.com/deixis/cmdtest/internal/mcp"
	"github.com/deixis/cmdtest/internal/metrics"
	"github.com/deixis/cmdtest/internal/report"
	"github.com/deixis/cmdtest/internal/runner"
	"github.com/deixis/cmdtest/internal/spec"
	"github.com/deixis/cmdtest/internal/workflow"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("cmdtest: ")

	var (
		cmd  string
		args = os.Args[1:]
	)
	if len(args) > 0 {
		cmd = args[0]
	}

	var err error
	switch cmd {
	case "mcp":
		err = mcpMain(args[1:])
	case "version":
		fmt.Println(cmdtest.Version)
	case "help", "-h", "--help":
		usage()
	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = runMain(ctx, args, os.Stdout)
		stop()
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: cmdtest [flags]
       cmdtest <command> [flags]

Without a command, runs the given command list and writes a JUnit report.

Commands:
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "cmdtest -h" or "cmdtest mcp -h" for flags.`)
}

// --- run ---

// runMain runs a command list from the current directory. Command
// outcomes never make it fail; a malformed list, an unwritable report or
// cancellation do.
func runMain(ctx context.Context, args []string, stdout io.Writer) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	fs := flag.NewFlagSet("cmdtest", flag.ExitOnError)
	var file, commands string
	fs.StringVar(&file, "f", cfg.ReportPath(), "JUnit XML results are written to this file")
	fs.StringVar(&file, "file", cfg.ReportPath(), "alias for -f")
	fs.StringVar(&commands, "c", "", "YAML or JSON list of commands to execute")
	fs.StringVar(&commands, "commands", "", "alias for -c")
	commandsFile := fs.String("commands-file", "", "read the command list from this file")
	strict := fs.Bool("strict", cfg.StrictLaunch, "fail every command that cannot be launched")
	metricsPath := fs.String("metrics", cfg.Metrics, "write Prometheus text metrics to this file")
	logFormat := fs.String("log-format", cfg.Log.Format, "log format: text or json")
	logLevel := fs.String("log-level", cfg.Log.Level, "log level: debug, info, warn or error")
	color := fs.Bool("color", false, "color the summary")
	jsonFlag := fs.Bool("json", false, "print the run as JSON instead of a summary")
	verbose := fs.Bool("v", false, "log stdout and stderr of every command")
	_ = fs.Parse(args)

	data := []byte(commands)
	if *commandsFile != "" {
		if data, err = os.ReadFile(*commandsFile); err != nil {
			return fmt.Errorf("reading commands: %w", err)
		}
	}

	logger := logging.NewLogger(*logFormat, *logLevel)
	logger.Debug("workspace", "dir", workspace, "config_root", loaded.Root)

	runCfg := *cfg
	runCfg.StrictLaunch = *strict

	recorder := metrics.New()
	eng := &workflow.Engine{
		Config: &runCfg,
		Runner: &runner.Runner{
			Workspace: workspace,
			Timeout:   cfg.Timeout(),
			MaxOutput: cfg.MaxOutputBytes(),
		},
		Logger: logger,
		Sinks: []report.Sink{
			&report.LogSink{Logger: logger, Verbose: *verbose},
			recorder,
		},
	}

	logger.Info("writing_report", "path", file)
	rep, runErr := eng.RunSpec(ctx, data)
	var specErr *spec.SpecError
	if errors.As(runErr, &specErr) || rep == nil {
		return runErr
	}

	// A cancelled batch still reports the commands that finished.
	if err := rep.WriteFile(file); err != nil {
		return err
	}
	if *metricsPath != "" {
		if err := recorder.WriteFile(*metricsPath); err != nil {
			logger.Warn("metrics_not_written", "path", *metricsPath, "error", err)
		}
	}

	if *jsonFlag {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep.Run()); err != nil {
			return err
		}
	} else {
		fmt.Fprint(stdout, rep.Summary(*color))
		fmt.Fprintf(stdout, "See test results in: %s\n", file)
	}
	return runErr
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(cmdmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return serve(ctx, *httpAddr)
}

func serve(ctx context.Context, httpAddr string) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	store := report.NewLRUStore(cfg.StoreCache(), report.NewDiskStore(cfg.Store.Dir))

	r := &runner.Runner{
		Workspace: workspace,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
	}

	// stdout carries the stdio transport, so logs go to stderr only.
	logger := logging.NewLogger(cfg.Log.Format, cfg.Log.Level)
	recorder := metrics.New()
	server := cmdmcp.NewServer(cfg, r, store, workspace,
		cmdmcp.WithLogger(logger),
		cmdmcp.WithSinks(&report.LogSink{Logger: logger}, recorder),
	)

	if httpAddr != "" {
		return serveHTTP(ctx, server, recorder, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, recorder *metrics.Recorder, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{}))
	mux.Handle("/", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
