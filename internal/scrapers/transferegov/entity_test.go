package transferegov

import (
	"context"
	"fmt"
	"testing"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/remote"
	"transferegov-backend/internal/remote/remotetest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func expectedEntity(name, cnpj string, members []map[string]string) Entity {
	suffix := " de " + name
	return Entity{
		Entidade: name,
		CNPJ:     cnpj,
		EntityDetail: EntityDetail{
			DadosBasicos: &BasicData{
				CNPJ:             "txtCNPJ" + suffix,
				RazaoSocial:      "txtRazaoSocial" + suffix,
				NomeFantasia:     "txtNomeFantasia" + suffix,
				CnaePrimario:     "txtCnaePrimario" + suffix,
				CnaeSecundario:   "txtCnaeSecundario" + suffix,
				DataAbertura:     "txtDataCNPJ" + suffix,
				NaturezaJuridica: "naturezaJuridica" + suffix,
				Endereco:         "txtEndereco" + suffix,
				Telefone:         "txtTelefone" + suffix,
				Email:            "txtEmail" + suffix,
			},
			Estatuto: &Statute{DescricaoEstatuto: "Estatuto de " + name},
			Responsaveis: &Governance{
				DataInicioMandato: "01/01/2022",
				DataFimMandato:    "31/12/2025",
				HistoricoMandatos: []map[string]string{
					{"Início do Mandato": "01/01/2018", "Término do Mandato": "31/12/2021"},
				},
				Dirigentes: []map[string]string{
					{"Nome": "Ana", "CPF": "111.111.111-11", "Cargo/Função": "Presidente"},
				},
			},
			Membros: members,
		},
	}
}

func TestConsultarEntidade(t *testing.T) {
	members := `<tbody id="tblMembros-body">
		<tr><td>222.222.222-22</td><td>Bruno</td><td>Conselheiro</td></tr>
		<tr><td>333.333.333-33</td><td>Carla</td><td>Tesoureira</td></tr>
	</tbody>`

	portal := newFakePortal(t).withLogin().withEntitySearch([]fakeEntity{
		{name: "Associação Alfa", cnpj: "11.111.111/0001-11"},
		{name: "Instituto Beta", cnpj: "22.222.222/0001-22", members: members},
	})

	outcome, err := portal.automator().ConsultarEntidade(context.Background(), EntityQuery{
		UF:          "DF",
		Environment: Homolog,
	})
	require.NoError(t, err)

	expected := []Entity{
		expectedEntity("Associação Alfa", "11.111.111/0001-11", []map[string]string{}),
		expectedEntity("Instituto Beta", "22.222.222/0001-22", []map[string]string{
			{"CPF": "222.222.222-22", "Nome": "Bruno", "Cargo/Função": "Conselheiro"},
			{"CPF": "333.333.333-33", "Nome": "Carla", "Cargo/Função": "Tesoureira"},
		}),
	}
	if diff := cmp.Diff(expected, outcome.Results); diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, outcome.Errors)
	require.Equal(t, "Sucesso", outcome.Status)
	require.Equal(t, StatusResultsExtracted, outcome.State)

	require.Equal(t, 2, portal.Backs)
	require.Equal(t, 0, portal.Refreshes)
	require.Equal(t, 1, portal.Quits)
}

func TestConsultarEntidadeRetriesDetail(t *testing.T) {
	portal := newFakePortal(t).withLogin().withEntitySearch([]fakeEntity{
		{name: "Associação Alfa", cnpj: "11.111.111/0001-11", failures: 2},
	})

	outcome, err := portal.automator().ConsultarEntidade(context.Background(), EntityQuery{
		CNPJ:        "11.111.111/0001-11",
		Environment: Homolog,
	})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 1)
	if diff := cmp.Diff(expectedEntity("Associação Alfa", "11.111.111/0001-11", []map[string]string{}), outcome.Results[0]); diff != "" {
		t.Fatal(diff)
	}
	// the failed passes only reach telemetry
	require.Empty(t, outcome.Errors)
	require.Equal(t, 2, portal.Refreshes)
	require.Len(t, portal.tel.Reports("warning", report_extract_detail), 2)
}

func TestConsultarEntidadeDetailExhausted(t *testing.T) {
	portal := newFakePortal(t).withLogin().withEntitySearch([]fakeEntity{
		{name: "Associação Alfa", cnpj: "11.111.111/0001-11", failures: 4},
		{name: "Instituto Beta", cnpj: "22.222.222/0001-22"},
	})

	outcome, err := portal.automator().ConsultarEntidade(context.Background(), EntityQuery{
		Nome:        "a",
		Environment: Homolog,
	})
	require.NoError(t, err)

	require.Len(t, outcome.Errors, 1)
	require.Contains(t, outcome.Errors[0], "após 4 tentativas")
	require.Contains(t, outcome.Errors[0], "Associação Alfa")

	// the exhausted row is kept without its detail and the next one still runs
	require.Len(t, outcome.Results, 2)
	require.Equal(t, Entity{Entidade: "Associação Alfa", CNPJ: "11.111.111/0001-11"}, outcome.Results[0])
	if diff := cmp.Diff(expectedEntity("Instituto Beta", "22.222.222/0001-22", []map[string]string{}), outcome.Results[1]); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, 3, portal.Refreshes)
	require.Equal(t, "Sucesso", outcome.Status)
}

func TestExtractEntityDetailExhaustedError(t *testing.T) {
	portal := newFakePortal(t)
	portal.Show("fake://vazio")
	w := portal.entityWorkflow()

	detail := ExtractEntityDetail(context.Background(), w, 3, "Fundação Gama")
	require.Equal(t, EntityDetail{}, detail)

	errs := w.state.Errors()
	require.Len(t, errs, 1)
	require.Contains(t, errs[0], `"Fundação Gama" (linha 3)`)
	require.Contains(t, errs[0], "após 4 tentativas")
	require.Contains(t, errs[0], "abaDadosBasicos")
	require.Equal(t, 3, portal.Refreshes)
}

func TestConsultarEntidadePageNotFound(t *testing.T) {
	portal := newFakePortal(t).withLogin()
	// the search page loads but the form never shows up
	portal.Page(portal.target.ConsultaEntidadeURL())

	outcome, err := portal.automator().ConsultarEntidade(context.Background(), EntityQuery{
		CNPJ:        "11.111.111/0001-11",
		Environment: Homolog,
	})
	require.NoError(t, err)
	require.Equal(t, "Página não encontrada", outcome.Status)
	require.Equal(t, StatusPageNotFound, outcome.State)
	require.Empty(t, outcome.Results)
	require.Empty(t, outcome.Errors)
	require.Equal(t, 1, portal.Quits)
}

func TestConsultarEntidadeNoResults(t *testing.T) {
	portal := newFakePortal(t).withLogin().withEntitySearch(nil)
	portal.Remove(resultsPage, pageBody)
	portal.Add(resultsPage, pageBody, &remotetest.Element{Value: "Nenhum registro foi encontrado."})

	outcome, err := portal.automator().ConsultarEntidade(context.Background(), EntityQuery{
		Nome:        "inexistente",
		Environment: Homolog,
	})
	require.NoError(t, err)
	require.Equal(t, "Nenhum registro encontrado", outcome.Status)
	require.Empty(t, outcome.Results)
}

func TestSubmitEntityFilters(t *testing.T) {
	const search = "fake://filtros"
	areas := []string{"Saúde", "Educação"}
	checkbox := func(label string) remote.Locator {
		return remote.XPath(fmt.Sprintf("//label[text()=%s]/preceding-sibling::input", remote.XPathLiteral(label)))
	}

	cases := []struct {
		name    string
		query   EntityQuery
		typed   map[remote.Locator][]string
		clicked []remote.Locator
	}{
		{
			name:  "only name",
			query: EntityQuery{Nome: "Alfa"},
			typed: map[remote.Locator][]string{
				entityNomeInput: {"Alfa"},
			},
			clicked: []remote.Locator{entitySearchButton},
		},
		{
			name:  "every filter",
			query: EntityQuery{CNPJ: "11", Nome: "Alfa", UF: "DF", Municipio: "Brasília", Categoria: "OSC", AreasAtuacao: areas},
			typed: map[remote.Locator][]string{
				entityCNPJInput: {"11"},
				entityNomeInput: {"Alfa"},
			},
			clicked: []remote.Locator{
				entityUFSelect, remote.ExactText("a", "DF"),
				entityMunicipio, remote.ExactText("a", "Brasília"),
				entityCategoria, remote.ExactText("a", "OSC"),
				entityAreasAtuacao,
				checkbox("Saúde"),
				checkbox("Educação"),
				entityAreasAtuacao,
				entitySearchButton,
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			driver := remotetest.NewDriver()
			var clicked []remote.Locator
			register := func(loc remote.Locator) *remotetest.Element {
				return driver.Add(search, loc, &remotetest.Element{
					OnClick: func(*remotetest.Driver) { clicked = append(clicked, loc) },
				})
			}

			inputs := map[remote.Locator]*remotetest.Element{}
			for _, loc := range []remote.Locator{entityCNPJInput, entityNomeInput} {
				inputs[loc] = register(loc)
			}
			for _, loc := range []remote.Locator{
				entityUFSelect, entityMunicipio, entityCategoria, entityAreasAtuacao,
				remote.ExactText("a", "DF"), remote.ExactText("a", "Brasília"), remote.ExactText("a", "OSC"),
				checkbox("Saúde"), checkbox("Educação"),
				entitySearchButton, entityResultsTable,
			} {
				register(loc)
			}
			driver.Show(search)

			session := remote.NewSession(driver, remote.SessionOptions{Attempts: 1}, &telemetry.RecordingAPI{})
			err := submitEntityFilters(context.Background(), session, test.query, testOptions())
			require.NoError(t, err)

			for loc, el := range inputs {
				if diff := cmp.Diff(test.typed[loc], el.Typed); diff != "" {
					t.Fatalf("%s: %s", loc, diff)
				}
			}

			if diff := cmp.Diff(test.clicked, clicked); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}
