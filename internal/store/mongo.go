package store

import (
	"context"
	"fmt"
	"time"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/scrapers/transferegov"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	collectionRuns        = "consultas"
	collectionInstruments = "instrumentos"
	collectionEntities    = "entidades"

	report_mongo_close = "mongo.close"
)

type runDocument struct {
	ID           string    `bson:"_id"`
	Procedimento string    `bson:"procedimento"`
	Chave        string    `bson:"chave"`
	Usuario      string    `bson:"usuario"`
	Environment  string    `bson:"environment"`
	Status       string    `bson:"status"`
	Erros        int       `bson:"erros"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func newRunDocument(run Run) runDocument {
	return runDocument{
		ID:           run.ID,
		Procedimento: run.Procedure,
		Chave:        run.Key,
		Usuario:      run.Username,
		Environment:  string(run.Environment),
		Status:       run.Status,
		Erros:        run.Errors,
		CreatedAt:    run.CreatedAt,
	}
}

// instrumentDocument carries the run alongside every row so the collection
// can be queried on its own.
type instrumentDocument struct {
	ConsultaID     string `bson:"consultaId"`
	Posicao        int    `bson:"posicao"`
	NumeroConvenio string `bson:"numeroConvenio"`

	transferegov.Instrument `bson:",inline"`

	Usuario     string    `bson:"usuario"`
	Environment string    `bson:"environment"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type entityDocument struct {
	ConsultaID string `bson:"consultaId"`
	Posicao    int    `bson:"posicao"`

	Entidade string                    `bson:"entidade"`
	CNPJ     string                    `bson:"cnpj"`
	Detalhe  transferegov.EntityDetail `bson:"detalhe"`

	Usuario     string    `bson:"usuario"`
	Environment string    `bson:"environment"`
	CreatedAt   time.Time `bson:"createdAt"`
}

// MongoStore keeps the history in MongoDB, one document per run and per row.
type MongoStore struct {
	client      *mongo.Client
	runs        *mongo.Collection
	instruments *mongo.Collection
	entities    *mongo.Collection
	tel         telemetry.API
}

func OpenMongoStore(ctx context.Context, cfg MongoConfig, tel telemetry.API) (MongoStore, error) {
	if cfg.Uri == "" {
		return MongoStore{}, fmt.Errorf("mongo: an uri was not specified")
	}
	if cfg.Database == "" {
		cfg.Database = "transferegov"
	}

	client, err := mongo.Connect(
		options.Client().
			ApplyURI(cfg.Uri).
			// the nested records only carry json tags
			SetBSONOptions(&options.BSONOptions{UseJSONStructTags: true}),
	)
	if err != nil {
		return MongoStore{}, err
	}
	err = client.Ping(ctx, readpref.Primary())
	if err != nil {
		client.Disconnect(context.WithoutCancel(ctx))
		return MongoStore{}, fmt.Errorf("mongo: ping: %w", err)
	}

	database := client.Database(cfg.Database)
	store := MongoStore{
		client:      client,
		runs:        database.Collection(collectionRuns),
		instruments: database.Collection(collectionInstruments),
		entities:    database.Collection(collectionEntities),
		tel:         tel,
	}
	_, err = store.instruments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "numeroConvenio", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		client.Disconnect(context.WithoutCancel(ctx))
		return MongoStore{}, fmt.Errorf("mongo: create index: %w", err)
	}
	return store, nil
}

func (s MongoStore) SaveInstruments(ctx context.Context, batch InstrumentBatch) error {
	ctx, span := tracer.Start(ctx, "MongoStore.SaveInstruments")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(batch.Records)))

	docs := make([]any, len(batch.Records))
	for i, record := range batch.Records {
		docs[i] = instrumentDocument{
			ConsultaID:     batch.ID,
			Posicao:        i,
			NumeroConvenio: batch.NumeroConvenio,
			Instrument:     record,
			Usuario:        batch.Username,
			Environment:    string(batch.Environment),
			CreatedAt:      batch.CreatedAt,
		}
	}
	err := s.save(ctx, batch.Run, s.instruments, docs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s MongoStore) SaveEntities(ctx context.Context, batch EntityBatch) error {
	ctx, span := tracer.Start(ctx, "MongoStore.SaveEntities")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(batch.Records)))

	docs := make([]any, len(batch.Records))
	for i, record := range batch.Records {
		docs[i] = entityDocument{
			ConsultaID:  batch.ID,
			Posicao:     i,
			Entidade:    record.Entidade,
			CNPJ:        record.CNPJ,
			Detalhe:     record.EntityDetail,
			Usuario:     batch.Username,
			Environment: string(batch.Environment),
			CreatedAt:   batch.CreatedAt,
		}
	}
	err := s.save(ctx, batch.Run, s.entities, docs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// save writes the run before its rows, a run without rows is still kept.
func (s MongoStore) save(ctx context.Context, run Run, rows *mongo.Collection, docs []any) error {
	_, err := s.runs.InsertOne(ctx, newRunDocument(run))
	if err != nil {
		return fmt.Errorf("mongo: insert run: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	_, err = rows.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("mongo: insert %s: %w", rows.Name(), err)
	}
	return nil
}

func (s MongoStore) History(ctx context.Context, limit int) ([]Run, error) {
	cursor, err := s.runs.Find(
		ctx,
		bson.D{},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	var docs []runDocument
	err = cursor.All(ctx, &docs)
	if err != nil {
		return nil, err
	}

	runs := make([]Run, len(docs))
	for i, doc := range docs {
		runs[i] = Run{
			ID:          doc.ID,
			Procedure:   doc.Procedimento,
			Key:         doc.Chave,
			Username:    doc.Usuario,
			Environment: transferegov.Environment(doc.Environment),
			Status:      doc.Status,
			Errors:      doc.Erros,
			CreatedAt:   doc.CreatedAt,
		}
	}
	return runs, nil
}

func (s MongoStore) Instruments(ctx context.Context, numeroConvenio string) ([]StoredInstrument, error) {
	cursor, err := s.instruments.Find(
		ctx,
		bson.D{{Key: "numeroConvenio", Value: numeroConvenio}},
		options.Find().SetSort(bson.D{
			{Key: "createdAt", Value: -1},
			{Key: "posicao", Value: 1},
		}),
	)
	if err != nil {
		return nil, err
	}
	var docs []instrumentDocument
	err = cursor.All(ctx, &docs)
	if err != nil {
		return nil, err
	}

	out := make([]StoredInstrument, len(docs))
	for i, doc := range docs {
		out[i] = StoredInstrument{
			RunID:          doc.ConsultaID,
			NumeroConvenio: doc.NumeroConvenio,
			Instrument:     doc.Instrument,
		}
	}
	return out, nil
}

func (s MongoStore) Close(ctx context.Context) error {
	err := s.client.Disconnect(ctx)
	if err != nil {
		s.tel.ReportWarning(report_mongo_close, err)
	}
	return err
}
