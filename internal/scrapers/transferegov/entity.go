package transferegov

import (
	"context"
	"transferegov-backend/internal/remote"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	entitySearchLandmark = remote.ID("frmConsulta-cnpj-group")
	entityCNPJInput      = remote.ID("frmConsulta-cnpj")
	entityNomeInput      = remote.ID("frmConsulta-nome")
	entityUFSelect       = remote.ID("frmConsulta-uf")
	entityMunicipio      = remote.ID("frmConsulta-municipio")
	entityCategoria      = remote.ID("frmConsulta-categoria")
	entityAreasAtuacao   = remote.ID("frmConsulta-areasAtuacao-combo")
	entitySearchButton   = remote.ID("btnPesquisar")
	entityResultsTable   = remote.ID("tblResultados")
)

// ConsultarEntidade searches the entity registry (habilitação) with the
// filters of query and extracts every result with its detail tabs.
//
// Errors follow ConsultarInstrumento: only the browser launch and the login
// are fatal.
func (a Automator) ConsultarEntidade(ctx context.Context, query EntityQuery) (Outcome[Entity], error) {
	ctx, span := tracer.Start(ctx, "ConsultarEntidade")
	defer span.End()
	span.SetAttributes(
		attribute.String("cnpj", query.CNPJ),
		attribute.String("nome", query.Nome),
		attribute.String("environment", string(query.Environment)),
	)

	w := newWorkflow[Entity](a, query.Environment, "entidade")
	defer w.Close(ctx)

	outcome, err := consultarEntidade(ctx, w, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fatalCounter.Add(ctx, 1, procedureAttrs("entidade", w.target.Environment))
	}
	countRun(ctx, "entidade", w.target.Environment, w.state.Settled())
	return outcome, err
}

func consultarEntidade(ctx context.Context, w *Workflow[Entity], query EntityQuery) (Outcome[Entity], error) {
	err := w.Initialize(ctx)
	if err != nil {
		return Outcome[Entity]{}, w.fatal("initialize", err)
	}
	err = w.Login(ctx)
	if err != nil {
		return Outcome[Entity]{}, w.fatal("login", err)
	}

	w.step(ctx, "NavigateToSearch", func(ctx context.Context) error {
		err := w.session.Navigate(ctx, w.target.ConsultaEntidadeURL())
		if err != nil {
			return err
		}
		return w.session.Pause(ctx, w.opts.PageSettle)
	})
	if w.interrupted(ctx) {
		return w.outcome(""), nil
	}
	_, err = w.session.WaitFor(ctx, entitySearchLandmark, w.opts.LandmarkTimeout)
	if err != nil {
		w.tel.ReportWarning(report_workflow_step, "NavigateToSearch", err)
		w.state.Advance(StatusPageNotFound)
		return w.outcome(""), nil
	}
	w.state.Advance(StatusNavigated)

	submitted := w.step(ctx, "SubmitQuery", func(ctx context.Context) error {
		return submitEntityFilters(ctx, w.session, query, w.opts)
	})
	if !submitted {
		w.interrupted(ctx)
		return w.outcome(""), nil
	}
	w.state.Advance(StatusQueryExecuted)

	if w.CheckNoResults(ctx) {
		w.state.Advance(StatusNoResultsFound)
		return w.outcome(""), nil
	}

	ExtractSearchResults(ctx, w)
	w.interrupted(ctx)
	return w.outcome(""), nil
}

// submitEntityFilters fills the filters present in query, leaving the others
// as the form has them, and runs the search.
func submitEntityFilters(ctx context.Context, session *remote.Session, query EntityQuery, opts Options) error {
	texts := []struct {
		loc   remote.Locator
		value string
	}{
		{entityCNPJInput, query.CNPJ},
		{entityNomeInput, query.Nome},
	}
	for _, input := range texts {
		if input.value == "" {
			continue
		}
		err := session.Type(ctx, input.loc, input.value)
		if err != nil {
			return err
		}
	}

	dropdowns := []struct {
		loc   remote.Locator
		value string
	}{
		{entityUFSelect, query.UF},
		{entityMunicipio, query.Municipio},
		{entityCategoria, query.Categoria},
	}
	for _, dropdown := range dropdowns {
		if dropdown.value == "" {
			continue
		}
		err := session.SelectOption(ctx, dropdown.loc, dropdown.value)
		if err != nil {
			return err
		}
	}

	if len(query.AreasAtuacao) > 0 {
		err := session.SelectMultiple(ctx, entityAreasAtuacao, query.AreasAtuacao)
		if err != nil {
			return err
		}
	}

	err := session.Click(ctx, entitySearchButton)
	if err != nil {
		return err
	}
	_, err = session.WaitFor(ctx, entityResultsTable, opts.Session.WaitTimeout)
	return err
}
