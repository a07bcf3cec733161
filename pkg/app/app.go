package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/flemzord/parlo/internal/config"
	"github.com/flemzord/parlo/internal/cron"
	"github.com/flemzord/parlo/internal/gateway"
	"github.com/flemzord/parlo/internal/intent"
	"github.com/flemzord/parlo/internal/metrics"
	"github.com/flemzord/parlo/internal/responder"
	"github.com/flemzord/parlo/internal/security"
	"github.com/flemzord/parlo/internal/session"
	"github.com/flemzord/parlo/internal/telemetry"
	"github.com/flemzord/parlo/internal/transcript"
	"gopkg.in/yaml.v3"
)

// App holds every long-lived component, wired from one Config.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Store      *session.Store
	Classifier *intent.Classifier
	Responder  *responder.Responder
	Archive    *transcript.Archive // nil when transcripts are disabled
	Scheduler  *cron.Scheduler
	Gateway    *gateway.Gateway

	closers []func(context.Context) error
}

// Build constructs all components without starting anything. Logs go to
// stderr unless the config names a log file. On error every component
// built so far is released.
func Build(ctx context.Context, cfg *config.Config, version string, stderr io.Writer) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.release(context.Background())
		}
	}()

	redactor := security.NewRedactor()
	for _, secret := range []string{cfg.Server.Auth.BearerToken, cfg.Server.Auth.BasicPass} {
		if secret != "" {
			redactor.AddLiteral(secret)
		}
	}

	logger, closeLog, err := telemetry.NewLogger(cfg.Log, stderr, redactor)
	if err != nil {
		return nil, err
	}
	a.Logger = logger
	a.closers = append(a.closers, func(context.Context) error { return closeLog() })

	tp, shutdownTracing, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry.Tracing, version)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	a.Metrics = metrics.New()
	a.Store = session.NewStore(cfg.Session.Timeout,
		session.WithHistoryLimit(cfg.Session.HistoryLimit),
		session.WithActiveWindow(cfg.Session.ActiveWindow),
	)
	a.Metrics.RegisterLiveSessions(a.Store.Len)

	if a.Classifier, err = buildClassifier(cfg.Classifier, logger); err != nil {
		return nil, err
	}

	respOpts := []responder.Option{
		responder.WithLogger(logger),
		responder.WithRecorder(a.Metrics),
		responder.WithTracer(tp.Tracer("github.com/flemzord/parlo/responder")),
		responder.WithMaxMessageLength(cfg.Server.MaxMessageLength),
	}
	if cfg.Transcript.Enabled {
		if a.Archive, err = transcript.Open(ctx, cfg.Transcript.Path); err != nil {
			return nil, err
		}
		archive := a.Archive
		a.closers = append(a.closers, func(context.Context) error { return archive.Close() })
		respOpts = append(respOpts, responder.WithArchive(archive))
	}
	a.Responder = responder.New(a.Store, a.Classifier, respOpts...)

	var auditOut io.Writer
	if w := telemetry.AuditWriter(cfg.Log); w != nil {
		auditOut = w
		a.closers = append(a.closers, func(context.Context) error { return w.Close() })
	}
	audit := security.NewAuditLogger(security.AuditLoggerConfig{
		Writer:   auditOut,
		Logger:   logger,
		Redactor: redactor,
	})

	a.Scheduler = cron.NewScheduler(logger)
	deps := gateway.Deps{
		Responder: a.Responder,
		Sessions:  a.Store,
		Intents:   a.Classifier.Tags(),
		Threshold: a.Classifier.Threshold(),
		Jobs:      a.Scheduler,
		SweepJob:  cron.SessionSweepJobName,
		Metrics:   a.Metrics,
		Audit:     audit,
		Redactor:  redactor,
		Settings:  func() (map[string]any, error) { return settings(cfg) },
		Logger:    logger,
	}
	if a.Archive != nil {
		deps.Transcripts = a.Archive
	}
	if a.Gateway, err = gateway.New(cfg.Server, deps); err != nil {
		return nil, err
	}

	if err := a.registerJobs(); err != nil {
		return nil, err
	}
	return a, nil
}

func buildClassifier(cfg config.ClassifierConfig, logger *slog.Logger) (*intent.Classifier, error) {
	var (
		ds  intent.Dataset
		err error
	)
	if cfg.IntentsPath != "" {
		ds, err = intent.LoadDataset(cfg.IntentsPath)
	} else {
		ds, err = intent.DefaultDataset()
	}
	if err != nil {
		return nil, err
	}
	return intent.New(ds, intent.WithThreshold(cfg.Threshold), intent.WithLogger(logger))
}

func (a *App) registerJobs() error {
	jobs := []cron.Job{&cron.SessionSweepJob{
		Store:        a.Store,
		Logger:       a.Logger,
		OnSweep:      a.Metrics.ObserveSweep,
		ScheduleExpr: a.Config.Reaper.Schedule,
	}}
	if a.Archive != nil && a.Config.Transcript.Retention > 0 {
		jobs = append(jobs, &cron.TranscriptRetentionJob{
			Archive:      a.Archive,
			MaxAge:       a.Config.Transcript.Retention,
			Logger:       a.Logger,
			ScheduleExpr: a.Config.Transcript.Schedule,
		})
	}
	if a.Config.Server.RateLimit.RequestsPerSecond > 0 {
		jobs = append(jobs, &cron.LimiterPruneJob{Limiter: a.Gateway.Limiter(), Logger: a.Logger})
	}
	for _, j := range jobs {
		if err := a.Scheduler.RegisterJob(j); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the scheduler and the HTTP gateway.
func (a *App) Start() error {
	if err := a.Scheduler.Start(); err != nil {
		return err
	}
	if err := a.Gateway.Start(); err != nil {
		_ = a.Scheduler.Stop(context.Background())
		return err
	}
	a.Logger.Info("parlo started",
		"addr", a.Gateway.Addr(),
		"intents", len(a.Classifier.Tags()),
		"examples", a.Classifier.Examples(),
		"archive", a.Archive != nil,
	)
	return nil
}

// Stop shuts components down in reverse dependency order.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.Gateway != nil {
		errs = append(errs, a.Gateway.Stop(ctx))
	}
	if a.Scheduler != nil {
		errs = append(errs, a.Scheduler.Stop(ctx))
	}
	errs = append(errs, a.release(ctx))
	return errors.Join(errs...)
}

// release runs the closers in reverse order, once.
func (a *App) release(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

// settings renders cfg as a generic map, the shape served by /api/config.
func settings(cfg *config.Config) (map[string]any, error) {
	raw, err := config.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("app: re-reading config: %w", err)
	}
	return m, nil
}
