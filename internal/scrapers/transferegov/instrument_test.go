package transferegov

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
	"transferegov-backend/internal/remote"
	"transferegov-backend/internal/remote/remotetest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestConsultarInstrumentoTwoRows(t *testing.T) {
	portal := newFakePortal(t).withLogin().withInstrumentSearch("123456", false)
	portal.withListing(portal.target.LicitacoesURL(), []listingRow{
		{"1", "Pregão 1/2024", "10/01/2024", "123/2024", "Homologada", "", "SICONV", "Aceito"},
		{"2", "Pregão 2/2024", "11/02/2024", "124/2024", "Publicada", "Concluída", "Compras.gov", "Aguardando Aceite"},
	}, map[int]string{2: "15/02/2024"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	outcome, err := portal.automator().ConsultarInstrumento(ctx, InstrumentQuery{
		NumeroConvenio: "123456",
		Environment:    Homolog,
	})
	require.NoError(t, err)

	expected := []Instrument{
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
	if diff := cmp.Diff(expected, outcome.Results); diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, outcome.Errors)
	require.Equal(t, "Instrumento 123456 consultado", outcome.Status)
	require.Equal(t, StatusResultsExtracted, outcome.State)
	require.Equal(t, "homolog-user", outcome.Username)

	require.Equal(t, 1, portal.opener.Opens)
	require.Equal(t, 1, portal.Quits)
	require.Equal(t, 1, portal.Backs)
	require.True(t, portal.opener.Launch[0].Headless)
}

func TestConsultarInstrumentoNoResults(t *testing.T) {
	portal := newFakePortal(t).withLogin().withInstrumentSearch("999999", true)

	outcome, err := portal.automator().ConsultarInstrumento(context.Background(), InstrumentQuery{
		NumeroConvenio: "999999",
		Environment:    Homolog,
	})
	require.NoError(t, err)
	require.Equal(t, "Nenhum registro encontrado", outcome.Status)
	require.NotNil(t, outcome.Results)
	require.Empty(t, outcome.Results)
	require.Empty(t, outcome.Errors)
	require.Equal(t, 1, portal.Quits)

	body, err := json.Marshal(outcome)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"Nenhum registro encontrado","results":[],"errors":[]}`, string(body))
}

func TestConsultarInstrumentoLoginUnreachable(t *testing.T) {
	// no login page is registered, navigating there fails
	portal := newFakePortal(t)

	outcome, err := portal.automator().ConsultarInstrumento(context.Background(), InstrumentQuery{
		NumeroConvenio: "123456",
		Environment:    Homolog,
	})

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	require.Equal(t, "login", fatal.Step)
	var navigation *remote.NavigationError
	require.ErrorAs(t, err, &navigation)
	require.Len(t, fatal.Errors, 1)
	require.Contains(t, fatal.Errors[0], portal.target.LoginURL())
	require.Nil(t, outcome.Results)

	require.Equal(t, 1, portal.Quits)
}

func TestConsultarInstrumentoBrowserFailsToStart(t *testing.T) {
	portal := newFakePortal(t)
	portal.opener.Err = errors.New("chromium exited with status 127")

	_, err := portal.automator().ConsultarInstrumento(context.Background(), InstrumentQuery{NumeroConvenio: "1"})

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	require.Equal(t, "initialize", fatal.Step)
	require.Equal(t, []string{"chromium exited with status 127"}, fatal.Errors)
	require.Equal(t, 0, portal.Quits)
	require.NotEmpty(t, portal.tel.Reports("broken", report_workflow_initialize))
}

func TestConsultarInstrumentoDegradesPastBrokenSteps(t *testing.T) {
	// the menu and the search form are gone, but the listing is still reachable
	portal := newFakePortal(t)
	login := portal.target.LoginURL()
	portal.Add(login, remote.Name("j_username"), &remotetest.Element{})
	portal.Add(login, remote.Name("j_password"), &remotetest.Element{})
	portal.Add(login, remote.Name("sSubmit"), &remotetest.Element{})
	portal.Add(login, menuContainer, &remotetest.Element{})
	portal.withListing(portal.target.LicitacoesURL(), []listingRow{
		{"1", "Pregão 1/2024", "10/01/2024", "123/2024", "Homologada", "Ativa", "SICONV", "Aceito"},
	}, nil)

	outcome, err := portal.automator().ConsultarInstrumento(context.Background(), InstrumentQuery{
		NumeroConvenio: "123456",
		Environment:    Homolog,
	})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)
	require.Contains(t, outcome.Errors, `Menu com texto "Execução" não encontrado.`)
	// link, search form, body and result row all failed
	require.Len(t, outcome.Errors, 5)
	require.Equal(t, 1, portal.Quits)
}

func TestConsultarInstrumentoInterrupted(t *testing.T) {
	portal := newFakePortal(t).withLogin().withInstrumentSearch("123456", false)
	portal.withListing(portal.target.LicitacoesURL(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	portal.FindHook = func(loc remote.Locator) error {
		if loc == listaResultado {
			cancel()
		}
		return nil
	}

	outcome, err := portal.automator().ConsultarInstrumento(ctx, InstrumentQuery{
		NumeroConvenio: "123456",
		Environment:    Homolog,
	})
	require.NoError(t, err)
	require.Equal(t, StatusFailed, outcome.State)
	require.Equal(t, "Erro", outcome.Status)
	require.Equal(t, 1, portal.Quits)
}
