package transferegov

import (
	"context"
	"errors"
	"fmt"
	"transferegov-backend/internal/remote"

	"go.opentelemetry.io/otel/attribute"
)

const (
	awaitingAcceptance   = "Aguardando Aceite"
	situacaoOrigemAbsent = "N/A"
)

var (
	licitacoesContainer = remote.XPath("//div[@id='licitacoes']")
	licitacoesRows      = remote.XPath("//*[@id='licitacoes']//tbody/tr")
	nextListingPage     = remote.XPath("//a[contains(text(), 'Próxima')]")
	dataEnvioAceite     = remote.ID("dataEnvioAceite")
)

// listingColumns maps the 1-indexed column of a listing row to the field it
// fills and whether the field is required.
var listingColumns = []struct {
	name     string
	required bool
	field    func(*Instrument) *string
}{
	{"numero", true, func(i *Instrument) *string { return &i.Numero }},
	{"processoExecucao", true, func(i *Instrument) *string { return &i.ProcessoExecucao }},
	{"dataPublicacao", true, func(i *Instrument) *string { return &i.DataPublicacao }},
	{"numeroProcesso", true, func(i *Instrument) *string { return &i.NumeroProcesso }},
	{"situacao", true, func(i *Instrument) *string { return &i.Situacao }},
	{"situacaoOrigem", false, func(i *Instrument) *string { return &i.SituacaoOrigem }},
	{"sistemaOrigem", true, func(i *Instrument) *string { return &i.SistemaOrigem }},
	{"aceiteExecucao", true, func(i *Instrument) *string { return &i.AceiteExecucao }},
}

func listingCell(row, column int) remote.Locator {
	return remote.Nth(licitacoesRows, row, fmt.Sprintf("/td[%d]//div", column))
}

func listingDetailLink(row int) remote.Locator {
	return remote.Nth(licitacoesRows, row, "//a[contains(text(), 'Detalhar')]")
}

// readListingRow reads the cells of one row verbatim, a cell that is not on
// the page reads as empty. It returns the names of the empty required fields.
func readListingRow(ctx context.Context, session *remote.Session, row int) (Instrument, []string, error) {
	var record Instrument
	var missing []string
	for i, column := range listingColumns {
		text, err := session.Peek(ctx, listingCell(row, i+1))
		if err != nil && !errors.Is(err, remote.ErrNoSuchElement) {
			return Instrument{}, nil, err
		}
		*column.field(&record) = text
		if column.required && text == "" {
			missing = append(missing, column.name)
		}
	}
	if record.SituacaoOrigem == "" {
		record.SituacaoOrigem = situacaoOrigemAbsent
	}
	return record, missing, nil
}

// readAcceptanceDate opens the detail page of a row, reads the date it was
// sent for acceptance and returns to the listing. A failure to get back to
// the listing is returned separately since no later row can be read after it.
func readAcceptanceDate(ctx context.Context, w *Workflow[Instrument], row int) (date string, detailErr error, navErr error) {
	err := w.session.Click(ctx, listingDetailLink(row))
	if err != nil {
		return "", err, nil
	}
	date, detailErr = w.session.ReadText(ctx, dataEnvioAceite)

	navErr = w.session.Back(ctx)
	if navErr == nil {
		_, navErr = w.session.WaitFor(ctx, licitacoesContainer, w.opts.Session.WaitTimeout)
	}
	return date, detailErr, navErr
}

// listingMarker picks an element of the listing being shown that the next
// page load will replace.
func listingMarker(ctx context.Context, session *remote.Session) (remote.Element, error) {
	for _, loc := range []remote.Locator{licitacoesRows, licitacoesContainer} {
		found, err := session.FindAll(ctx, loc)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found[0], nil
		}
	}
	return nil, &remote.ElementNotFoundError{Locator: licitacoesContainer, Attempts: 1, Err: remote.ErrNoSuchElement}
}

// extractListingPage reads every row of the listing page being shown.
func extractListingPage(ctx context.Context, w *Workflow[Instrument], page int) ([]Instrument, error) {
	_, err := w.session.WaitFor(ctx, licitacoesContainer, w.opts.Session.WaitTimeout)
	if err != nil {
		return nil, err
	}
	rows, err := w.session.FindAll(ctx, licitacoesRows)
	if err != nil {
		return nil, err
	}

	var records []Instrument
	// rows are located again by position on every read, the elements found
	// above do not survive the round trips to the detail pages
	for row := 1; row <= len(rows); row++ {
		record, missing, err := readListingRow(ctx, w.session, row)
		if err != nil {
			w.state.Record(fmt.Errorf("linha %d (página %d): %w", row, page, err))
			continue
		}
		if len(missing) > 0 {
			dropped := &FieldMissingError{Page: page, Row: row, Missing: missing}
			w.state.Record(dropped)
			w.tel.ReportWarning(report_extract_listing, dropped)
			droppedCounter.Add(ctx, 1, procedureAttrs("instrumento", w.target.Environment))
			continue
		}

		if record.AceiteExecucao == awaitingAcceptance {
			date, detailErr, navErr := readAcceptanceDate(ctx, w, row)
			if detailErr != nil {
				w.state.Record(fmt.Errorf("data de envio para aceite da linha %d (página %d): %w", row, page, detailErr))
			}
			record.DataEnvioAceite = date
			if navErr != nil {
				records = append(records, record)
				return records, fmt.Errorf("retorno à listagem após a linha %d (página %d): %w", row, page, navErr)
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// ExtractListing reads the procurement listing of an instrument, following
// the pagination while the page budget allows. Results are in page order then
// row order, rows lacking a required field are left out with one error each.
func ExtractListing(ctx context.Context, w *Workflow[Instrument]) {
	ctx, span := tracer.Start(ctx, "ExtractListing")
	defer span.End()

	var results []Instrument
	ok := w.step(ctx, "ExtractListingPage", func(ctx context.Context) error {
		for page := 1; ; page++ {
			records, err := extractListingPage(ctx, w, page)
			results = append(results, records...)
			if err != nil {
				return err
			}
			if page >= w.opts.MaxPages {
				return nil
			}

			links, err := w.session.FindAll(ctx, nextListingPage)
			if err != nil || len(links) == 0 {
				return nil
			}
			marker, err := listingMarker(ctx, w.session)
			if err != nil {
				return err
			}
			err = links[0].Click(ctx)
			if err != nil {
				return &remote.InteractionError{Action: "click", Locator: nextListingPage, Err: err}
			}
			// the click returns before the next page loads, reading right
			// away would go over the rows of this one again
			err = w.session.WaitDetached(ctx, marker, w.opts.Session.WaitTimeout)
			if err != nil {
				return fmt.Errorf("página %d não carregou: %w", page+1, err)
			}
			w.tel.ReportDebug(report_extract_listing, "next page", page+1)
		}
	})

	span.SetAttributes(attribute.Int("records", len(results)))
	recordCounter.Add(ctx, int64(len(results)), procedureAttrs("instrumento", w.target.Environment))
	w.state.Replace(results)
	if ok {
		w.state.Advance(StatusResultsExtracted)
	}
}
