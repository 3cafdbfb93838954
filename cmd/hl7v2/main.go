// Package main implements the hl7v2 CLI tool.
// It reads HL7 v2.x messages from files or stdin, MLLP framed or as batch
// text, and validates, dumps, re-encodes, frames or acknowledges them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	hl7v2 "github.com/gofhir/hl7v2"
	"github.com/gofhir/hl7v2/engine"
	"github.com/gofhir/hl7v2/pkg/config"
	"github.com/gofhir/hl7v2/pkg/logger"
	"github.com/gofhir/hl7v2/pkg/metrics"
	"github.com/gofhir/hl7v2/pkg/registry"
	"github.com/gofhir/hl7v2/pkg/structure"
)

const (
	version = "0.1.0"
	usage   = `hl7v2 - HL7 v2.x message codec

Usage:
  hl7v2 <command> [options] <file>...
  hl7v2 <command> [options] -             (read from stdin)

Commands:
  validate    decode and validate messages (default)
  parse       print the segments and fields of each message
  serialize   re-encode messages with canonical delimiters and escaping
  ack         print an acknowledgment for each message
  frame       wrap each message in an MLLP frame

Input may hold one message, a batch of messages or a stream of MLLP frames.

Examples:
  hl7v2 validate order.hl7
  hl7v2 validate -strict -output json *.hl7
  hl7v2 parse -fhir admit.hl7
  hl7v2 ack -mllp - < inbound.mllp
  hl7v2 validate -config codec.toml -metrics-addr :9090 -

Options:
`
)

// Command names.
const (
	cmdValidate  = "validate"
	cmdParse     = "parse"
	cmdSerialize = "serialize"
	cmdACK       = "ack"
	cmdFrame     = "frame"
)

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Config holds CLI configuration.
type Config struct {
	Command     string
	ConfigFile  string
	Version     string
	Ordering    string
	LogLevel    string
	MetricsAddr string
	Output      OutputFormat
	Strict      bool
	Parallel    bool
	FHIR        bool
	LF          bool
	MLLP        bool
	Quiet       bool
	ShowVersion bool
	Help        bool
	Files       []string
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		fmt.Printf("hl7v2 v%s\n", version)
		os.Exit(0)
	}

	if cfg.Help || len(cfg.Files) == 0 {
		fmt.Fprint(os.Stderr, usage)
		newFlagSet(&Config{}, new(string)).PrintDefaults()
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Stdout)
	stop()
	os.Exit(code)
}

func newFlagSet(cfg *Config, output *string) *flag.FlagSet {
	fs := flag.NewFlagSet("hl7v2", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.ConfigFile, "config", "", "Configuration file (.toml, .yaml)")
	fs.StringVar(&cfg.Version, "version", "", "HL7 version for messages without MSH-12 (2.3, 2.5.1)")
	fs.StringVar(&cfg.Ordering, "ordering", "", "Segment ordering policy: strict, advisory")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error, none")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	fs.StringVar(output, "output", "text", "Output format: text, json")
	fs.BoolVar(&cfg.Strict, "strict", false, "Treat warnings as errors")
	fs.BoolVar(&cfg.Parallel, "parallel", false, "Validate messages on several workers")
	fs.BoolVar(&cfg.FHIR, "fhir", false, "parse: print the FHIR R4 projection")
	fs.BoolVar(&cfg.LF, "lf", false, "serialize, ack: separate segments with LF instead of CR")
	fs.BoolVar(&cfg.MLLP, "mllp", false, "serialize, ack: write MLLP frames")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Only show errors and warnings")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version")
	fs.BoolVar(&cfg.Help, "help", false, "Show help")
	return fs
}

func parseFlags(args []string) (*Config, error) {
	cfg := &Config{Command: cmdValidate, Output: OutputText}

	if len(args) > 0 {
		switch args[0] {
		case cmdValidate, cmdParse, cmdSerialize, cmdACK, cmdFrame:
			cfg.Command = args[0]
			args = args[1:]
		}
	}

	var output string
	fs := newFlagSet(cfg, &output)
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			cfg.Help = true
			return cfg, nil
		}
		return nil, err
	}

	switch strings.ToLower(output) {
	case "json":
		cfg.Output = OutputJSON
	case "text", "":
		cfg.Output = OutputText
	default:
		return nil, fmt.Errorf("unknown output format %q", output)
	}

	cfg.Files = fs.Args()
	return cfg, nil
}

// codecOptions merges the configuration file with the command line flags.
// Flags win.
func codecOptions(cfg *Config) ([]hl7v2.Option, *config.Config, error) {
	fileCfg := config.Default()
	if cfg.ConfigFile != "" {
		loaded, err := config.Load(cfg.ConfigFile)
		if err != nil {
			return nil, nil, err
		}
		fileCfg = loaded
	}
	if cfg.LogLevel != "" {
		fileCfg.LogLevel = cfg.LogLevel
	}
	if cfg.Output == OutputJSON && cfg.LogLevel == "" && cfg.Quiet {
		fileCfg.LogLevel = "none"
	}

	opts, err := fileCfg.Options()
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, hl7v2.WithLogger(fileCfg.Logger()))

	if cfg.Version != "" {
		opts = append(opts, hl7v2.WithVersion(hl7v2.Version(cfg.Version)))
	}
	if cfg.Strict {
		opts = append(opts, hl7v2.WithStrictMode(true))
	}
	if cfg.Ordering != "" {
		p, err := structure.ParsePolicy(cfg.Ordering)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, hl7v2.WithOrderingPolicy(p))
	}
	return opts, fileCfg, nil
}

func run(ctx context.Context, cfg *Config, stdout io.Writer) int {
	opts, fileCfg, err := codecOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	codec, err := engine.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to initialize codec: %v\n", err)
		return 2
	}

	addr := cfg.MetricsAddr
	if addr == "" && fileCfg.Metrics.Enabled {
		addr = fileCfg.Metrics.Addr
	}
	if addr != "" {
		srv := serveMetrics(addr, fileCfg.Metrics.Namespace, codec.Metrics())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if !cfg.Quiet && cfg.Command == cmdValidate && cfg.Output == OutputText {
		fmt.Fprintf(os.Stderr, "Codec ready (versions %s). Processing %d input(s)...\n\n",
			strings.Join(codec.Registry().Versions(registry.StandardHL7v2), ", "), len(cfg.Files))
	}

	c := &cli{cfg: cfg, codec: codec, out: stdout}
	failed := false
	for _, in := range expandInputs(cfg.Files) {
		if err := ctx.Err(); err != nil {
			break
		}
		if in.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", in.err)
			failed = true
			continue
		}
		if !c.process(ctx, in) {
			failed = true
		}
	}

	if err := c.flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		failed = true
	}
	if failed {
		return 1
	}
	return 0
}

func serveMetrics(addr, namespace string, m *hl7v2.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(namespace, m))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	return srv
}
