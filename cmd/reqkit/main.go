// Command reqkit sends one HTTP request through a fully configured client
// stack and prints the response.
//
//	reqkit -X POST -json '{"name":"ada"}' -H 'X-Team: core' https://api.example.com/users
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/reqkit/client"
	"github.com/kbukum/reqkit/component"
	"github.com/kbukum/reqkit/config"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/middleware"
	"github.com/kbukum/reqkit/observability"
	"github.com/kbukum/reqkit/stack"
	"github.com/kbukum/reqkit/version"
)

// Config is the file and environment configuration of the command.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Client               client.Config              `yaml:"client" mapstructure:"client"`
	Tracing              observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics              observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

type headerFlags []string

func (h *headerFlags) String() string { return strings.Join(*h, ", ") }

func (h *headerFlags) Set(v string) error {
	if !strings.Contains(v, ":") {
		return fmt.Errorf("header %q must be \"Name: value\"", v)
	}
	*h = append(*h, v)
	return nil
}

type flags struct {
	configFile string
	envFile    string
	method     string
	data       string
	json       string
	headers    headerFlags
	include    bool
	format     string
	timeout    time.Duration
	retries    int
	noRedirect bool
	version    bool
	url        string
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{retries: -1}
	fs := flag.NewFlagSet("reqkit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configFile, "config", "", "config file path")
	fs.StringVar(&f.envFile, "env-file", "", ".env file path")
	fs.StringVar(&f.method, "X", "", "request method (default GET, or POST with a body)")
	fs.StringVar(&f.data, "d", "", "raw request body")
	fs.StringVar(&f.json, "json", "", "JSON request body")
	fs.Var(&f.headers, "H", "request header \"Name: value\" (repeatable)")
	fs.BoolVar(&f.include, "i", false, "print response headers")
	fs.StringVar(&f.format, "format", "", "print a formatted summary line ({method} {uri} {code} ...)")
	fs.DurationVar(&f.timeout, "timeout", 0, "request timeout")
	fs.IntVar(&f.retries, "retries", -1, "retry count override")
	fs.BoolVar(&f.noRedirect, "no-redirects", false, "do not follow redirects")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.version {
		return f, nil
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one URL argument, got %d", fs.NArg())
	}
	if f.data != "" && f.json != "" {
		return nil, fmt.Errorf("-d and -json are mutually exclusive")
	}
	f.url = fs.Arg(0)
	if f.method == "" {
		f.method = http.MethodGet
		if f.data != "" || f.json != "" {
			f.method = http.MethodPost
		}
	}
	f.method = strings.ToUpper(f.method)
	return f, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "reqkit: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if f.version {
		fmt.Fprintln(stdout, version.GetFullVersion())
		return nil
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	logger.Init(cfg.Logging)
	log := logger.WithComponent("cli")

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Tracing)
		if err != nil {
			return err
		}
		defer shutdown(log, "tracer", tp.Shutdown)
		cfg.Client.Tracing.Enabled = true
	}
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, &cfg.Metrics)
		if err != nil {
			return err
		}
		defer shutdown(log, "meter", mp.Shutdown)
		cfg.Client.Metrics.Enabled = true
	}

	comp := client.NewComponent(cfg.Client, client.WithLogger(logger.GetGlobalLogger()))
	reg := component.NewRegistry(component.WithLogger(log))
	if err := reg.Register(comp); err != nil {
		return err
	}
	if err := reg.StartAll(ctx); err != nil {
		return err
	}
	defer func() {
		if err := reg.StopAll(context.Background()); err != nil {
			log.Warn("stop failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	log.Debug("client ready", logger.Fields("layers", strings.Join(comp.Client().Layers(), ",")))

	return send(ctx, comp.Client(), f, stdout)
}

func loadConfig(f *flags) (*Config, error) {
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	opts = append(opts, config.WithEnvPrefix("REQKIT"))

	var cfg Config
	if err := config.LoadConfig("reqkit", &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "reqkit"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	cfg.ApplyDefaults()
	if err := cfg.ServiceConfig.Validate(); err != nil {
		return nil, err
	}
	if f.timeout > 0 {
		cfg.Client.Timeout = f.timeout
	}
	if f.noRedirect {
		cfg.Client.Redirects.Disabled = true
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.Name
	}
	if cfg.Metrics.ServiceName == "" {
		cfg.Metrics.ServiceName = cfg.Name
	}
	return &cfg, nil
}

func send(ctx context.Context, c *client.Client, f *flags, stdout io.Writer) error {
	opts := stack.Options{}
	if len(f.headers) > 0 {
		h := make(http.Header, len(f.headers))
		for _, line := range f.headers {
			name, value, _ := strings.Cut(line, ":")
			h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
		opts[client.OptHeaders] = h
	}
	switch {
	case f.json != "":
		opts[middleware.OptBody] = f.json
		if opts[client.OptHeaders] == nil {
			opts[client.OptHeaders] = http.Header{}
		}
		opts[client.OptHeaders].(http.Header).Set("Content-Type", "application/json")
	case f.data != "":
		opts[middleware.OptBody] = f.data
	}
	if f.retries >= 0 {
		opts[middleware.OptRetries] = f.retries
	}
	// Status errors still carry a response worth printing.
	opts[middleware.OptHTTPErrors] = false

	req, err := c.NewRequest(ctx, f.method, f.url, opts)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := c.Send(req, opts).Wait(ctx)
	if f.format != "" {
		fmt.Fprintln(stdout, middleware.NewFormatter(f.format).Format(req, resp, err, time.Since(start)))
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintf(stdout, "%s %s\n", resp.Proto, resp.Status)
	if f.include {
		writeHeaders(stdout, resp.Header)
	}
	fmt.Fprintln(stdout)
	if _, err := io.Copy(stdout, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server responded %s", resp.Status)
	}
	return nil
}

func writeHeaders(w io.Writer, h http.Header) {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range h[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
}

func shutdown(log *logger.Logger, what string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("shutdown failed", logger.Fields("provider", what, logger.FieldError, err.Error()))
	}
}
