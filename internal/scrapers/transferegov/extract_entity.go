package transferegov

import (
	"context"
	"fmt"
	"transferegov-backend/internal/remote"
	"transferegov-backend/lib/htmlutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	entityResultRows = remote.XPath("//*[@id='tblResultados']//tbody/tr")
	entityStatute    = remote.ID("txtEstatuto")
	mandateStart     = remote.ID("txtDataInicioMandato")
	mandateEnd       = remote.ID("txtDataFimMandato")
)

var (
	mandateHistoryHeaders = []string{"Início do Mandato", "Término do Mandato"}
	directorHeaders       = []string{"Nome", "CPF", "Cargo/Função"}
	memberHeaders         = []string{"CPF", "Nome", "Cargo/Função"}
)

func entityResultLink(row int) remote.Locator {
	return remote.Nth(entityResultRows, row, "//a[@data-entidade='a']")
}

var basicDataFields = []struct {
	id    string
	field func(*BasicData) *string
}{
	{"txtCNPJ", func(b *BasicData) *string { return &b.CNPJ }},
	{"txtRazaoSocial", func(b *BasicData) *string { return &b.RazaoSocial }},
	{"txtNomeFantasia", func(b *BasicData) *string { return &b.NomeFantasia }},
	{"txtCnaePrimario", func(b *BasicData) *string { return &b.CnaePrimario }},
	{"txtCnaeSecundario", func(b *BasicData) *string { return &b.CnaeSecundario }},
	{"txtDataCNPJ", func(b *BasicData) *string { return &b.DataAbertura }},
	{"naturezaJuridica", func(b *BasicData) *string { return &b.NaturezaJuridica }},
	{"txtEndereco", func(b *BasicData) *string { return &b.Endereco }},
	{"txtTelefone", func(b *BasicData) *string { return &b.Telefone }},
	{"txtEmail", func(b *BasicData) *string { return &b.Email }},
}

func extractBasicData(ctx context.Context, w *Workflow[Entity]) *BasicData {
	data := &BasicData{}
	for _, f := range basicDataFields {
		text, err := w.session.ReadText(ctx, remote.ID(f.id))
		if err != nil {
			w.state.Record(fmt.Errorf("Erro ao extrair dados básicos: %w", err))
			return nil
		}
		*f.field(data) = text
	}
	return data
}

func extractStatute(ctx context.Context, w *Workflow[Entity]) *Statute {
	text, err := w.session.ReadText(ctx, entityStatute)
	if err != nil {
		w.state.Record(fmt.Errorf("Erro ao extrair estatuto: %w", err))
		return nil
	}
	return &Statute{DescricaoEstatuto: text}
}

// extractTable reads the rows of the table (or table body) with the given id
// in one round trip. A table that is not on the page has no rows.
func extractTable(ctx context.Context, w *Workflow[Entity], id string, headers []string) []map[string]string {
	rows, err := readTable(ctx, w.session, id, headers)
	if err != nil {
		w.state.Record(fmt.Errorf("Erro ao extrair tabela %s: %w", id, err))
		return []map[string]string{}
	}
	return rows
}

func readTable(ctx context.Context, session *remote.Session, id string, headers []string) ([]map[string]string, error) {
	tables, err := session.FindAll(ctx, remote.ID(id))
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return []map[string]string{}, nil
	}
	html, err := session.ReadHTML(ctx, remote.ID(id))
	if err != nil {
		return nil, err
	}
	return htmlutil.Table(ctx, html, headers)
}

func extractGovernance(ctx context.Context, w *Workflow[Entity]) *Governance {
	start, err := w.session.ReadText(ctx, mandateStart)
	if err != nil {
		w.state.Record(fmt.Errorf("Erro ao extrair responsáveis: %w", err))
		return nil
	}
	end, err := w.session.ReadText(ctx, mandateEnd)
	if err != nil {
		w.state.Record(fmt.Errorf("Erro ao extrair responsáveis: %w", err))
		return nil
	}
	return &Governance{
		DataInicioMandato: start,
		DataFimMandato:    end,
		HistoricoMandatos: extractTable(ctx, w, "tblHistoricoMandato-body", mandateHistoryHeaders),
		Dirigentes:        extractTable(ctx, w, "tabelaDirigentes", directorHeaders),
	}
}

// detailTabs are activated in this order, each followed by its extractor.
// Extractors record their own failures and leave their section empty.
var detailTabs = []struct {
	id      string
	extract func(ctx context.Context, w *Workflow[Entity], detail *EntityDetail)
}{
	{"abaDadosBasicos", func(ctx context.Context, w *Workflow[Entity], detail *EntityDetail) {
		detail.DadosBasicos = extractBasicData(ctx, w)
	}},
	{"abaEstatuto", func(ctx context.Context, w *Workflow[Entity], detail *EntityDetail) {
		detail.Estatuto = extractStatute(ctx, w)
	}},
	{"abaDiretoriaOuResponsaveis", func(ctx context.Context, w *Workflow[Entity], detail *EntityDetail) {
		detail.Responsaveis = extractGovernance(ctx, w)
	}},
	{"abaMembros", func(ctx context.Context, w *Workflow[Entity], detail *EntityDetail) {
		detail.Membros = extractTable(ctx, w, "tblMembros-body", memberHeaders)
	}},
}

// extractDetailTabs makes one pass over the detail tabs, a tab that cannot
// be activated fails the pass.
func extractDetailTabs(ctx context.Context, w *Workflow[Entity]) (EntityDetail, error) {
	var detail EntityDetail
	for _, tab := range detailTabs {
		err := w.session.Click(ctx, remote.ID(tab.id))
		if err != nil {
			return detail, err
		}
		err = w.session.Pause(ctx, w.opts.TabSettle)
		if err != nil {
			return detail, err
		}
		tab.extract(ctx, w, &detail)
	}
	return detail, nil
}

// ExtractEntityDetail extracts the detail page being shown. A failed pass is
// retried after reloading the page, up to DetailRetries times, and a row that
// never succeeds leaves exactly one DetailExhaustedError in the error trail.
func ExtractEntityDetail(ctx context.Context, w *Workflow[Entity], row int, key string) EntityDetail {
	ctx, span := tracer.Start(ctx, "ExtractEntityDetail")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	var detail EntityDetail
	var lastErr error
	attempts := 0
	for attempts < w.opts.DetailRetries+1 {
		if attempts > 0 {
			detailRetryCounter.Add(ctx, 1, procedureAttrs("entidade", w.target.Environment))
			err := w.session.Reload(ctx)
			if err == nil {
				err = w.session.Pause(ctx, w.opts.RefreshSettle)
			}
			if err != nil {
				attempts++
				lastErr = err
				w.tel.ReportWarning(report_extract_detail, key, attempts, err)
				if ctx.Err() != nil {
					break
				}
				continue
			}
		}

		attempts++
		detail, lastErr = extractDetailTabs(ctx, w)
		if lastErr == nil {
			span.SetAttributes(attribute.Int("attempts", attempts))
			return detail
		}
		w.tel.ReportWarning(report_extract_detail, key, attempts, lastErr)
		if ctx.Err() != nil {
			break
		}
	}

	exhausted := &DetailExhaustedError{
		Row:      row,
		Key:      key,
		Attempts: attempts,
		Err:      lastErr,
	}
	span.RecordError(exhausted)
	span.SetStatus(codes.Error, "detail extraction exhausted")
	w.state.Record(exhausted)
	return detail
}

// extractSearchResult reads the result at row, opens its detail page and
// extracts it. It returns false when the row could not be opened, in which
// case the browser never left the results page.
func extractSearchResult(ctx context.Context, w *Workflow[Entity], row int) (Entity, bool) {
	link := entityResultLink(row)
	name, err := w.session.ReadText(ctx, link)
	if err != nil {
		w.state.Record(fmt.Errorf("Erro ao extrair resultado da linha %d: %w", row, err))
		return Entity{}, false
	}
	cnpj, _, err := w.session.ReadAttribute(ctx, link, "data-cnpj")
	if err != nil {
		w.state.Record(fmt.Errorf("Erro ao extrair resultado da linha %d: %w", row, err))
		return Entity{}, false
	}
	err = w.session.Click(ctx, link)
	if err != nil {
		w.state.Record(fmt.Errorf("Erro ao abrir a entidade %s: %w", name, err))
		return Entity{}, false
	}
	w.tel.ReportDebug(report_extract_entities, "opened entity", name)

	return Entity{
		Entidade:     name,
		CNPJ:         cnpj,
		EntityDetail: ExtractEntityDetail(ctx, w, row, name),
	}, true
}

// ExtractSearchResults walks the entity search results in order, returning
// to the results table after every detail page.
func ExtractSearchResults(ctx context.Context, w *Workflow[Entity]) {
	ctx, span := tracer.Start(ctx, "ExtractSearchResults")
	defer span.End()

	var results []Entity
	ok := w.step(ctx, "ExtractSearchResults", func(ctx context.Context) error {
		rows, err := w.session.FindAll(ctx, entityResultRows)
		if err != nil {
			return err
		}
		for row := 1; row <= len(rows); row++ {
			entity, opened := extractSearchResult(ctx, w, row)
			if !opened {
				continue
			}
			results = append(results, entity)

			err := w.session.Back(ctx)
			if err != nil {
				return err
			}
			_, err = w.session.WaitFor(ctx, entityResultsTable, w.opts.Session.WaitTimeout)
			if err != nil {
				return err
			}
		}
		return nil
	})

	span.SetAttributes(attribute.Int("records", len(results)))
	recordCounter.Add(ctx, int64(len(results)), procedureAttrs("entidade", w.target.Environment))
	w.state.Replace(results)
	if ok {
		w.state.Advance(StatusResultsExtracted)
	}
}
