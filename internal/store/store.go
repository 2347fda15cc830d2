// Package store keeps a history of the portal queries and the records they
// extracted.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/scrapers/transferegov"
	configlibsql "transferegov-backend/lib/configutil/libsql"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("transferegov.internal.store")

const (
	ProcedureInstrument = "instrumento"
	ProcedureEntity     = "entidade"
)

// Run describes one execution of a procedure.
type Run struct {
	ID        string
	Procedure string
	// Key is what the run looked up: the instrument number or the entity filters.
	Key         string
	Username    string
	Environment transferegov.Environment
	Status      string
	Errors      int
	CreatedAt   time.Time
}

type InstrumentBatch struct {
	Run
	NumeroConvenio string
	Records        []transferegov.Instrument
}

type EntityBatch struct {
	Run
	Records []transferegov.Entity
}

// StoredInstrument is an instrument row together with the run that found it.
type StoredInstrument struct {
	RunID          string
	NumeroConvenio string
	transferegov.Instrument
}

type Store interface {
	SaveInstruments(ctx context.Context, batch InstrumentBatch) error
	SaveEntities(ctx context.Context, batch EntityBatch) error
	// History lists the latest runs, newest first.
	History(ctx context.Context, limit int) ([]Run, error)
	// Instruments lists every stored row of an instrument, newest run first.
	Instruments(ctx context.Context, numeroConvenio string) ([]StoredInstrument, error)
	Close(ctx context.Context) error
}

// EntityKey renders the filters of an entity query as a run key.
func EntityKey(query transferegov.EntityQuery) string {
	var parts []string
	add := func(name, value string) {
		if value != "" {
			parts = append(parts, name+"="+value)
		}
	}
	add("cnpj", query.CNPJ)
	add("nome", query.Nome)
	add("uf", query.UF)
	add("municipio", query.Municipio)
	add("categoria", query.Categoria)
	add("areasAtuacao", strings.Join(query.AreasAtuacao, ","))
	return strings.Join(parts, ";")
}

type MongoConfig struct {
	Uri      string `json:"uri"`
	Database string `json:"database"`
}

// Config selects a backend, at most one of the fields should be set. An empty
// config keeps nothing.
type Config struct {
	Sql   *configlibsql.Struct `json:"sql"`
	Mongo *MongoConfig         `json:"mongo"`
}

func Open(ctx context.Context, cfg Config, tel telemetry.API) (Store, error) {
	switch {
	case cfg.Sql != nil && cfg.Mongo != nil:
		return nil, fmt.Errorf("store: only one of sql and mongo may be configured")
	case cfg.Sql != nil:
		database, err := cfg.Sql.OpenDB()
		if err != nil {
			return nil, err
		}
		store, err := NewSqlStore(ctx, database, telemetry.NewScopedAPI("store", tel))
		if err != nil {
			database.Close()
			return nil, err
		}
		return store, nil
	case cfg.Mongo != nil:
		store, err := OpenMongoStore(ctx, *cfg.Mongo, telemetry.NewScopedAPI("store", tel))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return Noop{}, nil
}
