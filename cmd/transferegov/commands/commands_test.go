package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
	"transferegov-backend/internal/scrapers/transferegov"
	"transferegov-backend/internal/service"
	"transferegov-backend/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExampleConfig(t *testing.T) {
	*configPath = filepath.Join("..", "config.example.json5")
	cfg, err := readConfig()
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, "homolog", cfg.Environment)
	require.Equal(t, 8000, cfg.Port())
	require.Equal(t, 30*time.Second, cfg.ShutdownGrace())
	require.NotNil(t, cfg.Store.Sql)
	require.Nil(t, cfg.Store.Mongo)
	require.Empty(t, cfg.Schedules)

	serviceCfg, err := cfg.ServiceConfig()
	if err != nil {
		t.Fatal(err)
	}
	expected := service.Config{
		MaxSessions:        2,
		Deadline:           5 * time.Minute,
		DefaultEnvironment: transferegov.Homolog,
	}
	if diff := cmp.Diff(expected, serviceCfg); diff != "" {
		t.Fatal(diff)
	}

	opts := cfg.Options()
	require.True(t, opts.Launch.Headless)
	require.Equal(t, 10*time.Second, opts.Session.WaitTimeout)
	require.Equal(t, 3, opts.Session.Attempts)
	require.Equal(t, 10, opts.MaxPages)
}

func TestConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	write := func(name, contents string) {
		err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0600)
		if err != nil {
			t.Fatal(err)
		}
	}
	write("config.json5", `{
		environment: "homolog",
		credentials: { homolog: { username: "placeholder" } },
		schedules: [{ cron: "@daily", numero_convenio: "1" }],
	}`)
	write("config.local.json5", `{
		environment: "production",
		credentials: {
			homolog: { username: "ana", password: "segredo" },
			production: { username: "ana.prod", password: "segredo.prod" },
		},
	}`)

	*configPath = filepath.Join(dir, "config.json5")
	cfg, err := readConfig()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, transferegov.Credentials{Username: "ana", Password: "segredo"}, cfg.Credentials.Homolog)
	require.Equal(t, "ana.prod", cfg.Credentials.Production.Username)
	require.Equal(t, []service.Schedule{{Cron: "@daily", NumeroConvenio: "1"}}, cfg.Schedules)

	serviceCfg, err := cfg.ServiceConfig()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, transferegov.Production, serviceCfg.DefaultEnvironment)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	opts := cfg.Options()
	if diff := cmp.Diff(transferegov.DefaultOptions(), opts); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, 8000, cfg.Port())

	serviceCfg, err := cfg.ServiceConfig()
	require.NoError(t, err)
	require.Equal(t, transferegov.Production, serviceCfg.DefaultEnvironment)

	cfg.Environment = "staging"
	_, err = cfg.ServiceConfig()
	require.Error(t, err)
}

func TestRenderInstruments(t *testing.T) {
	var out bytes.Buffer
	renderInstruments(&out, []transferegov.Instrument{
		{Numero: "1", ProcessoExecucao: "Pregão 1/2024", AceiteExecucao: "Aguardando Aceite", DataEnvioAceite: "15/02/2024"},
	})
	require.Contains(t, out.String(), "Pregão 1/2024")
	require.Contains(t, out.String(), "15/02/2024")
	require.Contains(t, out.String(), "Envio p/ aceite")
}

func TestRenderEntitiesWithoutDetail(t *testing.T) {
	var out bytes.Buffer
	renderEntities(&out, []transferegov.Entity{
		{Entidade: "Associação Alfa", CNPJ: "11.111.111/0001-11"},
		{
			Entidade: "Instituto Beta",
			EntityDetail: transferegov.EntityDetail{
				DadosBasicos: &transferegov.BasicData{RazaoSocial: "Instituto Beta Ltda"},
				Responsaveis: &transferegov.Governance{
					DataInicioMandato: "01/01/2022",
					DataFimMandato:    "31/12/2025",
					Dirigentes:        []map[string]string{{"Nome": "Ana"}},
				},
			},
		},
	})
	require.Contains(t, out.String(), "Associação Alfa")
	require.Contains(t, out.String(), "Instituto Beta Ltda")
	require.Contains(t, out.String(), "01/01/2022 a 31/12/2025")
}

func TestRenderHistory(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	renderHistory(&out, []store.Run{{
		ID:          "run-1",
		Procedure:   store.ProcedureInstrument,
		Key:         "123456",
		Environment: transferegov.Homolog,
		Status:      "Instrumento 123456 consultado",
		CreatedAt:   time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
	}}, loc)
	// 13:00 UTC is 10:00 in Brasília
	require.Contains(t, out.String(), "01/03/2024 10:00")
	require.Contains(t, out.String(), "Instrumento 123456 consultado")
}

func TestRenderErrorsSkipsEmpty(t *testing.T) {
	var out bytes.Buffer
	renderErrors(&out, nil)
	require.Empty(t, out.String())

	renderErrors(&out, []string{"linha 2 (página 1) descartada"})
	require.Contains(t, out.String(), "linha 2 (página 1) descartada")
}
