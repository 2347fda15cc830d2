package transferegov

import (
	"fmt"
	"testing"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/remote"
	"transferegov-backend/internal/remote/remotetest"
)

// fakePortal lays the pages of the portal out on an in-memory browser.
type fakePortal struct {
	*remotetest.Driver
	target Target
	tel    *telemetry.RecordingAPI
	opener *remotetest.Opener
}

const (
	homePage       = "fake://home"
	consultaPage   = "fake://consulta"
	resultsPage    = "fake://resultados"
	instrumentPage = "fake://instrumento"
)

var testCredentials = CredentialsConfig{
	Homolog:    Credentials{Username: "homolog-user", Password: "homolog-pass"},
	Production: Credentials{Username: "prod-user", Password: "prod-pass"},
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Session = remote.SessionOptions{Attempts: 1}
	opts.LandmarkTimeout = 0
	opts.PageSettle = 0
	opts.TabSettle = 0
	opts.RefreshSettle = 0
	return opts
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	driver := remotetest.NewDriver()
	return &fakePortal{
		Driver: driver,
		target: ResolveTarget(Homolog, testCredentials),
		tel:    &telemetry.RecordingAPI{},
		opener: &remotetest.Opener{Driver: driver},
	}
}

func (p *fakePortal) automator() Automator {
	return NewAutomator(p.opener, testCredentials, testOptions(), p.tel)
}

func (p *fakePortal) workflow() *Workflow[Instrument] {
	w := newWorkflow[Instrument](p.automator(), Homolog, "test")
	w.session = remote.NewSession(p.Driver, testOptions().Session, p.tel)
	return w
}

func (p *fakePortal) entityWorkflow() *Workflow[Entity] {
	w := newWorkflow[Entity](p.automator(), Homolog, "test")
	w.session = remote.NewSession(p.Driver, testOptions().Session, p.tel)
	return w
}

func (p *fakePortal) show(url string) func(*remotetest.Driver) {
	return func(d *remotetest.Driver) { d.Show(url) }
}

// withLogin registers the login page and the home page with its main menu.
func (p *fakePortal) withLogin() *fakePortal {
	login := p.target.LoginURL()
	p.Add(login, remote.Name("j_username"), &remotetest.Element{})
	p.Add(login, remote.Name("j_password"), &remotetest.Element{})
	p.Add(login, remote.Name("sSubmit"), &remotetest.Element{OnClick: p.show(homePage)})

	p.Add(homePage, menuContainer, &remotetest.Element{})
	p.Add(homePage, menuItems, &remotetest.Element{Value: "Início"})
	p.Add(homePage, menuItems, &remotetest.Element{Value: menuExecucao})
	p.Add(homePage, remote.ContainsText("div", menuExecucao), &remotetest.Element{Value: menuExecucao})
	return p
}

// withInstrumentSearch registers the instrument search and its result page.
func (p *fakePortal) withInstrumentSearch(id string, noResults bool) *fakePortal {
	p.Add(homePage, remote.LinkText(linkConsultarConvenios), &remotetest.Element{OnClick: p.show(consultaPage)})
	p.Add(consultaPage, remote.ContainsText("a", linkConsultarConvenios), &remotetest.Element{})
	p.Add(consultaPage, convenioInput, &remotetest.Element{})
	p.Add(consultaPage, consultarInput, &remotetest.Element{OnClick: p.show(resultsPage)})

	p.Add(resultsPage, listaResultado, &remotetest.Element{})
	if noResults {
		p.Add(resultsPage, pageBody, &remotetest.Element{Value: "Consultar Instrumentos\nNenhum registro foi encontrado."})
		return p
	}
	p.Add(resultsPage, pageBody, &remotetest.Element{Value: "Consultar Instrumentos\n1 registro encontrado"})
	p.Add(resultsPage, resultRow, &remotetest.Element{})
	p.Add(resultsPage, remote.ContainsText("a", id), &remotetest.Element{Value: id, OnClick: p.show(instrumentPage)})
	return p
}

// listingRow holds the 8 listing columns, an empty string leaves the cell out.
type listingRow [8]string

// withListing registers a listing page at url. Rows awaiting acceptance get a
// detail page answering with the given date.
func (p *fakePortal) withListing(url string, rows []listingRow, acceptanceDates map[int]string) *fakePortal {
	p.Add(url, licitacoesContainer, &remotetest.Element{})
	for r, row := range rows {
		index := r + 1
		p.Add(url, licitacoesRows, &remotetest.Element{})
		for c, value := range row {
			if value == "" {
				continue
			}
			p.Add(url, listingCell(index, c+1), &remotetest.Element{Value: value})
		}
		date, ok := acceptanceDates[index]
		if !ok {
			continue
		}
		detail := fmt.Sprintf("%s/detalhe/%d", url, index)
		p.Add(url, listingDetailLink(index), &remotetest.Element{Value: "Detalhar", OnClick: p.show(detail)})
		p.Add(detail, dataEnvioAceite, &remotetest.Element{Value: date})
	}
	return p
}

// linkPages adds a Próxima link on `from` leading to `to`.
func (p *fakePortal) linkPages(from, to string) {
	p.Add(from, nextListingPage, &remotetest.Element{Value: "Próxima", OnClick: p.show(to)})
}

type fakeEntity struct {
	name string
	cnpj string
	// failures is how many detail passes fail before the tabs work.
	failures int
	members  string
}

// withEntitySearch registers the entity search page and one detail page per entity.
func (p *fakePortal) withEntitySearch(entities []fakeEntity) *fakePortal {
	search := p.target.ConsultaEntidadeURL()
	p.Add(search, entitySearchLandmark, &remotetest.Element{})
	p.Add(search, entityCNPJInput, &remotetest.Element{})
	p.Add(search, entityNomeInput, &remotetest.Element{})
	p.Add(search, entityUFSelect, &remotetest.Element{})
	p.Add(search, remote.ExactText("a", "DF"), &remotetest.Element{})
	p.Add(search, entitySearchButton, &remotetest.Element{OnClick: p.show(resultsPage)})

	p.Add(resultsPage, entityResultsTable, &remotetest.Element{})
	p.Add(resultsPage, pageBody, &remotetest.Element{Value: fmt.Sprintf("%d entidades", len(entities))})
	for i, entity := range entities {
		row := i + 1
		detail := fmt.Sprintf("fake://entidade/%d", row)
		p.Add(resultsPage, entityResultRows, &remotetest.Element{})
		p.Add(resultsPage, entityResultLink(row), &remotetest.Element{
			Value:   entity.name,
			Attrs:   map[string]string{"data-cnpj": entity.cnpj},
			OnClick: p.show(detail),
		})
		p.withEntityDetail(detail, entity)
	}
	return p
}

func (p *fakePortal) withEntityDetail(url string, entity fakeEntity) {
	fill := func() {
		for _, tab := range detailTabs {
			p.Add(url, remote.ID(tab.id), &remotetest.Element{})
		}
	}
	if entity.failures == 0 {
		fill()
	} else {
		// the tabs only render after enough reloads
		reloads := 0
		previous := p.OnRefresh
		p.OnRefresh = func(d *remotetest.Driver, page *remotetest.Page) {
			if previous != nil {
				previous(d, page)
			}
			if page == nil || page.URL != url {
				return
			}
			reloads++
			if reloads == entity.failures {
				fill()
			}
		}
	}

	for _, f := range basicDataFields {
		p.Add(url, remote.ID(f.id), &remotetest.Element{Value: f.id + " de " + entity.name})
	}
	p.Add(url, entityStatute, &remotetest.Element{Value: "Estatuto de " + entity.name})
	p.Add(url, mandateStart, &remotetest.Element{Value: "01/01/2022"})
	p.Add(url, mandateEnd, &remotetest.Element{Value: "31/12/2025"})
	p.Add(url, remote.ID("tblHistoricoMandato-body"), &remotetest.Element{
		Markup: `<tbody id="tblHistoricoMandato-body"><tr><td>01/01/2018</td><td>31/12/2021</td></tr></tbody>`,
	})
	p.Add(url, remote.ID("tabelaDirigentes"), &remotetest.Element{
		Markup: `<table id="tabelaDirigentes"><thead><tr><th>Nome</th><th>CPF</th><th>Cargo/Função</th></tr></thead>` +
			`<tbody><tr><td>Ana</td><td>111.111.111-11</td><td>Presidente</td></tr></tbody></table>`,
	})
	if entity.members != "" {
		p.Add(url, remote.ID("tblMembros-body"), &remotetest.Element{Markup: entity.members})
	}
}
