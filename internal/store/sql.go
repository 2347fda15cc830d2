package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/scrapers/transferegov"
	"transferegov-backend/internal/store/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const report_sql_close = "sql.close"

// SqlStore keeps the history in sqlite or libsql.
type SqlStore struct {
	db  *sql.DB
	qry *db.Queries
	tel telemetry.API
}

// NewSqlStore creates the schema if needed.
func NewSqlStore(ctx context.Context, database *sql.DB, tel telemetry.API) (SqlStore, error) {
	_, err := database.ExecContext(ctx, db.Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return SqlStore{}, fmt.Errorf("create schema: %w", err)
	}
	return SqlStore{
		db:  database,
		qry: db.New(database),
		tel: tel,
	}, nil
}

func createRun(ctx context.Context, qry *db.Queries, run Run) error {
	return qry.CreateConsulta(ctx, db.CreateConsultaParams{
		ID:           run.ID,
		Procedimento: run.Procedure,
		Chave:        run.Key,
		Usuario:      run.Username,
		Environment:  string(run.Environment),
		Status:       run.Status,
		Erros:        int64(run.Errors),
		CreatedAt:    run.CreatedAt.Unix(),
	})
}

func (s SqlStore) SaveInstruments(ctx context.Context, batch InstrumentBatch) error {
	ctx, span := tracer.Start(ctx, "SqlStore.SaveInstruments")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(batch.Records)))

	err := s.saveInstruments(ctx, batch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s SqlStore) saveInstruments(ctx context.Context, batch InstrumentBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = createRun(ctx, txqry, batch.Run)
	if err != nil {
		return err
	}
	for i, record := range batch.Records {
		err := txqry.InsertInstrumento(ctx, db.InsertInstrumentoParams{
			ConsultaID:       batch.ID,
			Posicao:          int64(i),
			NumeroConvenio:   batch.NumeroConvenio,
			Numero:           record.Numero,
			ProcessoExecucao: record.ProcessoExecucao,
			DataPublicacao:   record.DataPublicacao,
			NumeroProcesso:   record.NumeroProcesso,
			Situacao:         record.Situacao,
			SituacaoOrigem:   record.SituacaoOrigem,
			SistemaOrigem:    record.SistemaOrigem,
			AceiteExecucao:   record.AceiteExecucao,
			DataEnvioAceite:  record.DataEnvioAceite,
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s SqlStore) SaveEntities(ctx context.Context, batch EntityBatch) error {
	ctx, span := tracer.Start(ctx, "SqlStore.SaveEntities")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(batch.Records)))

	err := s.saveEntities(ctx, batch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s SqlStore) saveEntities(ctx context.Context, batch EntityBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = createRun(ctx, txqry, batch.Run)
	if err != nil {
		return err
	}
	for i, record := range batch.Records {
		detail, err := json.Marshal(record.EntityDetail)
		if err != nil {
			return err
		}
		err = txqry.InsertEntidade(ctx, db.InsertEntidadeParams{
			ConsultaID: batch.ID,
			Posicao:    int64(i),
			Entidade:   record.Entidade,
			Cnpj:       record.CNPJ,
			Detalhe:    string(detail),
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s SqlStore) History(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.qry.ListConsultas(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	runs := make([]Run, len(rows))
	for i, row := range rows {
		runs[i] = Run{
			ID:          row.ID,
			Procedure:   row.Procedimento,
			Key:         row.Chave,
			Username:    row.Usuario,
			Environment: transferegov.Environment(row.Environment),
			Status:      row.Status,
			Errors:      int(row.Erros),
			CreatedAt:   time.Unix(row.CreatedAt, 0),
		}
	}
	return runs, nil
}

func (s SqlStore) Instruments(ctx context.Context, numeroConvenio string) ([]StoredInstrument, error) {
	rows, err := s.qry.ListInstrumentosByConvenio(ctx, numeroConvenio)
	if err != nil {
		return nil, err
	}
	out := make([]StoredInstrument, len(rows))
	for i, row := range rows {
		out[i] = StoredInstrument{
			RunID:          row.ConsultaID,
			NumeroConvenio: row.NumeroConvenio,
			Instrument: transferegov.Instrument{
				Numero:           row.Numero,
				ProcessoExecucao: row.ProcessoExecucao,
				DataPublicacao:   row.DataPublicacao,
				NumeroProcesso:   row.NumeroProcesso,
				Situacao:         row.Situacao,
				SituacaoOrigem:   row.SituacaoOrigem,
				SistemaOrigem:    row.SistemaOrigem,
				AceiteExecucao:   row.AceiteExecucao,
				DataEnvioAceite:  row.DataEnvioAceite,
			},
		}
	}
	return out, nil
}

// Entities returns the entities a run stored, in the order they were found.
func (s SqlStore) Entities(ctx context.Context, runID string) ([]transferegov.Entity, error) {
	rows, err := s.qry.ListEntidades(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]transferegov.Entity, len(rows))
	for i, row := range rows {
		out[i] = transferegov.Entity{
			Entidade: row.Entidade,
			CNPJ:     row.Cnpj,
		}
		err := json.Unmarshal([]byte(row.Detalhe), &out[i].EntityDetail)
		if err != nil {
			return nil, fmt.Errorf("decode detail of %s: %w", row.Entidade, err)
		}
	}
	return out, nil
}

func (s SqlStore) Close(ctx context.Context) error {
	err := s.db.Close()
	if err != nil {
		s.tel.ReportWarning(report_sql_close, err)
	}
	return err
}
