// Command formpost posts the form described by a YAML manifest and follows
// 307/308 redirects by regenerating the body.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adamwoolhether/formwire/client"
)

type config struct {
	url         string
	method      string
	manifest    string
	expect      int
	timeout     time.Duration
	userAgent   string
	noFollow    bool
	progress    bool
	logLevel    string
	throttleRPS int
}

func main() {
	var cfg config
	flag.StringVar(&cfg.url, "url", "", "target URL (required)")
	flag.StringVar(&cfg.method, "method", http.MethodPost, "HTTP method")
	flag.StringVar(&cfg.manifest, "manifest", "", "path to YAML form manifest (required)")
	flag.IntVar(&cfg.expect, "expect", http.StatusOK, "expected response status")
	flag.DurationVar(&cfg.timeout, "timeout", 30*time.Second, "overall request timeout")
	flag.StringVar(&cfg.userAgent, "user-agent", "formpost", "User-Agent header")
	flag.BoolVar(&cfg.noFollow, "no-follow", false, "return redirect responses instead of following them")
	flag.BoolVar(&cfg.progress, "progress", false, "log upload progress")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.IntVar(&cfg.throttleRPS, "rps", 0, "requests per second limit, 0 disables")
	flag.Parse()

	logger := newLogger(cfg.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("formpost failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	if cfg.url == "" || cfg.manifest == "" {
		return errors.New("-url and -manifest are required")
	}

	target, err := url.Parse(cfg.url)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}

	m, err := loadManifest(cfg.manifest)
	if err != nil {
		return err
	}

	form, files, err := m.build()
	if err != nil {
		return err
	}
	defer func() {
		if err := files.Close(); err != nil {
			logger.Warn("closing field files", "error", err)
		}
	}()

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithTimeout(cfg.timeout),
		client.WithUserAgent(cfg.userAgent),
	}
	if cfg.noFollow {
		opts = append(opts, client.WithNoFollowRedirects())
	}
	if cfg.throttleRPS > 0 {
		opts = append(opts, client.WithThrottle(cfg.throttleRPS, 1))
	}

	c, err := client.Build(opts...)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}

	reqOpts := []client.RequestOption{client.WithForm(form)}
	if cfg.progress {
		reqOpts = append(reqOpts, client.WithUploadProgress())
	}

	req, err := c.Request(ctx, target, strings.ToUpper(cfg.method), reqOpts...)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	logger.Info("posting form", "url", target.Redacted(), "fields", len(form.Fields()), "multipart", form.IsMultipart())

	if err := c.Do(req, cfg.expect); err != nil {
		return err
	}

	logger.Info("form posted", "status", cfg.expect)

	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
