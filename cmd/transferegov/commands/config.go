package commands

import (
	"context"
	"fmt"
	"time"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/remote/roddriver"
	"transferegov-backend/internal/scrapers/transferegov"
	"transferegov-backend/internal/service"
	"transferegov-backend/internal/store"
	"transferegov-backend/lib/configutil"
	"transferegov-backend/lib/util/restyutil"
)

type BrowserConfig struct {
	// ControlURL attaches to a running browser instead of launching one.
	ControlURL string `json:"control_url"`
	Bin        string `json:"bin"`
	Headful    bool   `json:"headful"`
	Locale     string `json:"locale"`
	// LoadTimeoutSeconds bounds every navigation.
	LoadTimeoutSeconds int `json:"load_timeout_seconds"`
}

type TimeoutsConfig struct {
	WaitSeconds   int `json:"wait_seconds"`
	Attempts      int `json:"attempts"`
	DetailRetries int `json:"detail_retries"`
	MaxPages      int `json:"max_pages"`
}

type HttpConfig struct {
	Port                 int `json:"port"`
	MaxSessions          int `json:"max_sessions"`
	DeadlineSeconds      int `json:"deadline_seconds"`
	ShutdownGraceSeconds int `json:"shutdown_grace_seconds"`
}

type Config struct {
	// Environment is used when a query does not name one, production when empty.
	Environment string                         `json:"environment"`
	Credentials transferegov.CredentialsConfig `json:"credentials"`
	Browser     BrowserConfig                  `json:"browser"`
	Timeouts    TimeoutsConfig                 `json:"timeouts"`
	Http        HttpConfig                     `json:"http"`
	Store       store.Config                   `json:"store"`
	Schedules   []service.Schedule             `json:"schedules"`
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Options lays the configured timeouts over the defaults.
func (c Config) Options() transferegov.Options {
	opts := transferegov.DefaultOptions()
	opts.Launch.Headless = !c.Browser.Headful
	if c.Browser.Locale != "" {
		opts.Launch.Locale = c.Browser.Locale
	}
	if c.Timeouts.WaitSeconds > 0 {
		opts.Session.WaitTimeout = seconds(c.Timeouts.WaitSeconds)
	}
	if c.Timeouts.Attempts > 0 {
		opts.Session.Attempts = c.Timeouts.Attempts
	}
	if c.Timeouts.DetailRetries > 0 {
		opts.DetailRetries = c.Timeouts.DetailRetries
	}
	if c.Timeouts.MaxPages > 0 {
		opts.MaxPages = c.Timeouts.MaxPages
	}
	return opts
}

func (c Config) ServiceConfig() (service.Config, error) {
	env, err := transferegov.ParseEnvironment(c.Environment, transferegov.Production)
	if err != nil {
		return service.Config{}, err
	}
	return service.Config{
		MaxSessions:        c.Http.MaxSessions,
		Deadline:           seconds(c.Http.DeadlineSeconds),
		DefaultEnvironment: env,
	}, nil
}

func (c Config) Port() int {
	if c.Http.Port <= 0 {
		return 8000
	}
	return c.Http.Port
}

func (c Config) ShutdownGrace() time.Duration {
	if c.Http.ShutdownGraceSeconds <= 0 {
		return 30 * time.Second
	}
	return seconds(c.Http.ShutdownGraceSeconds)
}

func readConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", *configPath, err)
	}
	return cfg, nil
}

// app is everything a command needs to run procedures.
type app struct {
	cfg     Config
	service service.Service
	store   store.Store
}

func (a app) Close(ctx context.Context) {
	err := a.store.Close(ctx)
	if err != nil {
		telemetry.SlogAPI{}.ReportWarning("store.close", err)
	}
}

func setup(ctx context.Context) (app, error) {
	cfg, err := readConfig()
	if err != nil {
		return app{}, err
	}
	serviceCfg, err := cfg.ServiceConfig()
	if err != nil {
		return app{}, err
	}

	tel := telemetry.SlogAPI{}
	opener := roddriver.NewOpener(roddriver.Config{
		ControlURL:  cfg.Browser.ControlURL,
		Bin:         cfg.Browser.Bin,
		LoadTimeout: seconds(cfg.Browser.LoadTimeoutSeconds),
	}, telemetry.NewScopedAPI("browser", tel))
	if *verbose {
		opener.DumpHttp(restyutil.NewFilesystemOutput(".dev/resty/devtools"))
	}

	results, err := store.Open(ctx, cfg.Store, tel)
	if err != nil {
		return app{}, fmt.Errorf("open store: %w", err)
	}

	automator := transferegov.NewAutomator(opener, cfg.Credentials, cfg.Options(), telemetry.NewScopedAPI("transferegov", tel))
	return app{
		cfg:     cfg,
		service: service.New(automator, results, serviceCfg, service.WithCustomTelemetryAPI(tel)),
		store:   results,
	}, nil
}
