package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
	"transferegov-backend/internal/components/assert"
	"transferegov-backend/internal/components/chrono"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/scrapers/transferegov"
	"transferegov-backend/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

var tracer = otel.Tracer("transferegov.internal.service")

const (
	report_service_persist  = "service.persist"
	report_service_sessions = "service.sessions"
	report_service_schedule = "service.schedule"
)

// RunIDAPI is an abstraction over the generation of run ids.
//
// note: fault injection point
type RunIDAPI interface {
	NewRunID() string
}

type uuidRunIDs struct{}

func (uuidRunIDs) NewRunID() string {
	return uuid.NewString()
}

// Automator runs the portal procedures, transferegov.Automator is the real one.
type Automator interface {
	ConsultarInstrumento(ctx context.Context, query transferegov.InstrumentQuery) (transferegov.Outcome[transferegov.Instrument], error)
	ConsultarEntidade(ctx context.Context, query transferegov.EntityQuery) (transferegov.Outcome[transferegov.Entity], error)
}

type Config struct {
	// MaxSessions bounds how many browsers run at once.
	MaxSessions int
	// Deadline bounds a whole procedure, waiting for a browser included.
	Deadline           time.Duration
	DefaultEnvironment transferegov.Environment
}

// UnavailableError is returned when no browser slot freed up before the
// request ended.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("no browser session available: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

type Service struct {
	automator Automator
	store     store.Store
	cfg       Config
	sessions  *semaphore.Weighted
	inUse     *atomic.Int64

	ids   RunIDAPI
	clock chrono.API
	tel   telemetry.API
}

type serviceConfig struct {
	ids   RunIDAPI
	clock chrono.API
	tel   telemetry.API
}

type Option func(cfg *serviceConfig)

func WithCustomRunIDAPI(ids RunIDAPI) Option {
	return func(cfg *serviceConfig) {
		cfg.ids = ids
	}
}

func WithCustomChronoAPI(clock chrono.API) Option {
	return func(cfg *serviceConfig) {
		cfg.clock = clock
	}
}

func WithCustomTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

func New(automator Automator, results store.Store, cfg Config, options ...Option) Service {
	assert.NotNil(automator, "automator")
	assert.NotNil(results, "store")

	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 2
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 5 * time.Minute
	}
	if cfg.DefaultEnvironment == "" {
		cfg.DefaultEnvironment = transferegov.Production
	}

	opts := serviceConfig{
		ids: uuidRunIDs{},
		tel: telemetry.SlogAPI{},
	}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.clock == nil {
		clock, err := chrono.NewStandardImpl()
		if err != nil {
			// the timezone database is embedded in the binary
			panic(err)
		}
		opts.clock = clock
	}

	return Service{
		automator: automator,
		store:     results,
		cfg:       cfg,
		sessions:  semaphore.NewWeighted(int64(cfg.MaxSessions)),
		inUse:     &atomic.Int64{},
		ids:       opts.ids,
		clock:     opts.clock,
		tel:       telemetry.NewScopedAPI("service", opts.tel),
	}
}

// acquire waits for a browser slot under ctx.
func (s Service) acquire(ctx context.Context) (func(), error) {
	err := s.sessions.Acquire(ctx, 1)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	s.tel.ReportCount(report_service_sessions, s.inUse.Add(1))
	return func() {
		s.tel.ReportCount(report_service_sessions, s.inUse.Add(-1))
		s.sessions.Release(1)
	}, nil
}

func (s Service) newRun(procedure, key string) store.Run {
	return store.Run{
		ID:        s.ids.NewRunID(),
		Procedure: procedure,
		Key:       key,
		CreatedAt: s.clock.Now(),
	}
}

func settle[T any](run *store.Run, outcome transferegov.Outcome[T]) {
	run.Username = outcome.Username
	run.Environment = outcome.Environment
	run.Status = outcome.Status
	run.Errors = len(outcome.Errors)
}

// persist hands the records to the store, a failure there never reaches the caller.
func (s Service) persist(ctx context.Context, run store.Run, save func(ctx context.Context) error) {
	// the caller may already be gone, the records are still worth keeping
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	err := save(ctx)
	if err != nil {
		s.tel.ReportBroken(report_service_persist, err, run.ID, run.Procedure, run.Key)
	}
}

// Instrument runs ConsultarInstrumento within the session limit and the
// request deadline, then stores what it found. Fatal runs are not stored.
func (s Service) Instrument(ctx context.Context, query transferegov.InstrumentQuery) (store.Run, transferegov.Outcome[transferegov.Instrument], error) {
	ctx, span := tracer.Start(ctx, "Instrument")
	defer span.End()

	if query.Environment == "" {
		query.Environment = s.cfg.DefaultEnvironment
	}
	run := s.newRun(store.ProcedureInstrument, query.NumeroConvenio)
	span.SetAttributes(attribute.String("run", run.ID))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()
	release, err := s.acquire(ctx)
	if err != nil {
		return run, transferegov.Outcome[transferegov.Instrument]{}, err
	}
	defer release()

	outcome, err := s.automator.ConsultarInstrumento(ctx, query)
	settle(&run, outcome)
	if err != nil {
		return run, outcome, err
	}

	s.persist(ctx, run, func(ctx context.Context) error {
		return s.store.SaveInstruments(ctx, store.InstrumentBatch{
			Run:            run,
			NumeroConvenio: query.NumeroConvenio,
			Records:        outcome.Results,
		})
	})
	return run, outcome, nil
}

// Entity is Instrument for ConsultarEntidade.
func (s Service) Entity(ctx context.Context, query transferegov.EntityQuery) (store.Run, transferegov.Outcome[transferegov.Entity], error) {
	ctx, span := tracer.Start(ctx, "Entity")
	defer span.End()

	if query.Environment == "" {
		query.Environment = s.cfg.DefaultEnvironment
	}
	run := s.newRun(store.ProcedureEntity, store.EntityKey(query))
	span.SetAttributes(attribute.String("run", run.ID))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()
	release, err := s.acquire(ctx)
	if err != nil {
		return run, transferegov.Outcome[transferegov.Entity]{}, err
	}
	defer release()

	outcome, err := s.automator.ConsultarEntidade(ctx, query)
	settle(&run, outcome)
	if err != nil {
		return run, outcome, err
	}

	s.persist(ctx, run, func(ctx context.Context) error {
		return s.store.SaveEntities(ctx, store.EntityBatch{
			Run:     run,
			Records: outcome.Results,
		})
	})
	return run, outcome, nil
}

// History lists the latest stored runs.
func (s Service) History(ctx context.Context, limit int) ([]store.Run, error) {
	return s.store.History(ctx, limit)
}

// Schedule is an instrument queried periodically by the server.
type Schedule struct {
	// Cron is a robfig/cron spec, evaluated in the portal timezone.
	Cron           string `json:"cron"`
	NumeroConvenio string `json:"numero_convenio"`
	Environment    string `json:"environment"`
}

// Schedule registers every schedule with cron, each tick runs Instrument.
func (s Service) Schedule(ctx context.Context, cron chrono.CronAPI, schedules []Schedule) error {
	for _, schedule := range schedules {
		env, err := transferegov.ParseEnvironment(schedule.Environment, s.cfg.DefaultEnvironment)
		if err != nil {
			return err
		}
		query := transferegov.InstrumentQuery{
			NumeroConvenio: schedule.NumeroConvenio,
			Environment:    env,
		}
		err = cron.Cron(schedule.Cron, func() {
			run, outcome, err := s.Instrument(ctx, query)
			if err != nil {
				s.tel.ReportBroken(report_service_schedule, err, run.ID, query.NumeroConvenio)
				return
			}
			s.tel.ReportDebug("scheduled query finished", run.ID, query.NumeroConvenio, outcome.Status)
		})
		if err != nil {
			return fmt.Errorf("schedule %q: %w", schedule.Cron, err)
		}
	}
	return nil
}
