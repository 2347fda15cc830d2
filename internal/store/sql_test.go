package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/scrapers/transferegov"
	"transferegov-backend/internal/store/db"
	configlibsql "transferegov-backend/lib/configutil/libsql"
	"transferegov-backend/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var (
	testInstruments = []transferegov.Instrument{
		{
			Numero:           "1",
			ProcessoExecucao: "Pregão 1/2024",
			DataPublicacao:   "10/01/2024",
			NumeroProcesso:   "123/2024",
			Situacao:         "Homologada",
			SituacaoOrigem:   "N/A",
			SistemaOrigem:    "SICONV",
			AceiteExecucao:   "Aceito",
		},
		{
			Numero:           "2",
			ProcessoExecucao: "Pregão 2/2024",
			DataPublicacao:   "11/02/2024",
			NumeroProcesso:   "124/2024",
			Situacao:         "Publicada",
			SituacaoOrigem:   "Concluída",
			SistemaOrigem:    "Compras.gov",
			AceiteExecucao:   "Aguardando Aceite",
			DataEnvioAceite:  "15/02/2024",
		},
	}
	testEntities = []transferegov.Entity{
		{
			Entidade: "Associação Alfa",
			CNPJ:     "11.111.111/0001-11",
			EntityDetail: transferegov.EntityDetail{
				DadosBasicos: &transferegov.BasicData{CNPJ: "11.111.111/0001-11", RazaoSocial: "Associação Alfa"},
				Estatuto:     &transferegov.Statute{DescricaoEstatuto: "Estatuto"},
				Membros: []map[string]string{
					{"CPF": "222.222.222-22", "Nome": "Bruno", "Cargo/Função": "Conselheiro"},
				},
			},
		},
		// detail never extracted
		{Entidade: "Instituto Beta", CNPJ: "22.222.222/0001-22"},
	}
)

func testRun(id, procedure, key string, createdAt time.Time) Run {
	return Run{
		ID:          id,
		Procedure:   procedure,
		Key:         key,
		Username:    "homolog-user",
		Environment: transferegov.Homolog,
		Status:      "Sucesso",
		CreatedAt:   createdAt,
	}
}

func TestSqlStore(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "store",
		DbSchema: db.Schema,
	})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	store, err := NewSqlStore(ctx, res.DB, &telemetry.RecordingAPI{})
	if err != nil {
		t.Fatal(err)
	}

	{
		runs, err := store.History(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, runs, 0)
	}

	earlier := time.Unix(1_700_000_000, 0)
	later := earlier.Add(time.Hour)
	{
		err := store.SaveInstruments(ctx, InstrumentBatch{
			Run:            testRun("run-1", ProcedureInstrument, "123456", earlier),
			NumeroConvenio: "123456",
			Records:        testInstruments[:1],
		})
		if err != nil {
			t.Fatal(err)
		}
		err = store.SaveInstruments(ctx, InstrumentBatch{
			Run:            testRun("run-2", ProcedureInstrument, "123456", later),
			NumeroConvenio: "123456",
			Records:        testInstruments,
		})
		if err != nil {
			t.Fatal(err)
		}
		err = store.SaveEntities(ctx, EntityBatch{
			Run:     testRun("run-3", ProcedureEntity, "uf=DF", later.Add(time.Hour)),
			Records: testEntities,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	{
		runs, err := store.History(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		expected := []Run{
			testRun("run-3", ProcedureEntity, "uf=DF", later.Add(time.Hour)),
			testRun("run-2", ProcedureInstrument, "123456", later),
		}
		if diff := cmp.Diff(expected, runs); diff != "" {
			t.Fatal(diff)
		}
	}

	{
		rows, err := store.Instruments(ctx, "123456")
		if err != nil {
			t.Fatal(err)
		}
		expected := []StoredInstrument{
			{RunID: "run-2", NumeroConvenio: "123456", Instrument: testInstruments[0]},
			{RunID: "run-2", NumeroConvenio: "123456", Instrument: testInstruments[1]},
			{RunID: "run-1", NumeroConvenio: "123456", Instrument: testInstruments[0]},
		}
		if diff := cmp.Diff(expected, rows); diff != "" {
			t.Fatal(diff)
		}
	}

	{
		entities, err := store.Entities(ctx, "run-3")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(testEntities, entities); diff != "" {
			t.Fatal(diff)
		}
	}

	// a run id is only stored once
	err = store.SaveInstruments(ctx, InstrumentBatch{
		Run:            testRun("run-1", ProcedureInstrument, "123456", later),
		NumeroConvenio: "123456",
		Records:        testInstruments,
	})
	require.Error(t, err)
	rows, err := store.Instruments(ctx, "123456")
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestEntityKey(t *testing.T) {
	cases := []struct {
		query    transferegov.EntityQuery
		expected string
	}{
		{transferegov.EntityQuery{}, ""},
		{transferegov.EntityQuery{CNPJ: "11.111.111/0001-11"}, "cnpj=11.111.111/0001-11"},
		{
			transferegov.EntityQuery{Nome: "Alfa", UF: "DF", AreasAtuacao: []string{"Saúde", "Educação"}},
			"nome=Alfa;uf=DF;areasAtuacao=Saúde,Educação",
		},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, EntityKey(test.query))
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tel := &telemetry.RecordingAPI{}

	store, err := Open(ctx, Config{}, tel)
	require.NoError(t, err)
	require.IsType(t, Noop{}, store)

	_, err = Open(ctx, Config{Sql: &configlibsql.Struct{}, Mongo: &MongoConfig{}}, tel)
	require.Error(t, err)

	store, err = Open(ctx, Config{Sql: &configlibsql.Struct{File: filepath.Join(t.TempDir(), "historico.db")}}, tel)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close(ctx)
	err = store.SaveInstruments(ctx, InstrumentBatch{
		Run:            testRun("run-1", ProcedureInstrument, "1", time.Now()),
		NumeroConvenio: "1",
	})
	require.NoError(t, err)
	runs, err := store.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}
