package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"transferegov-backend/internal/scrapers/transferegov"

	"github.com/go-playground/validator/v10"
	"github.com/moogar0880/problems"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const report_http_write = "http.write"

var validate = validator.New(validator.WithRequiredStructEnabled())

type instrumentRequest struct {
	ID          string `validate:"required,number,max=20"`
	Environment string
}

type entityRequest struct {
	CNPJ         string   `json:"cnpj" validate:"required_without_all=Nome UF Municipio Categoria AreasAtuacao,max=18"`
	Nome         string   `json:"nome" validate:"max=200"`
	UF           string   `json:"uf" validate:"omitempty,len=2,alpha"`
	Municipio    string   `json:"municipio" validate:"max=100"`
	Categoria    string   `json:"categoria" validate:"max=100"`
	AreasAtuacao []string `json:"areasAtuacao" validate:"dive,required"`
	Environment  string   `json:"environment"`
}

// fatalResponse is the body of a run that could not get past the login.
type fatalResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// Handler serves the procedures over http.
func (s Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /consultarInstrumento", s.handleInstrument)
	mux.HandleFunc("POST /consultarEntidade", s.handleEntity)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return cors(otelhttp.NewHandler(mux, "transferegov"))
}

// cors lets any origin call the api.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s Service) writeJSON(w http.ResponseWriter, status int, contentType string, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.tel.ReportWarning(report_http_write, err)
	}
}

func (s Service) problem(w http.ResponseWriter, r *http.Request, status int, kind, detail string) {
	problem := problems.NewStatusProblem(status).
		WithInstance(r.URL.Path).
		WithType(kind).
		WithDetail(detail)
	s.writeJSON(w, status, "application/problem+json", problem)
}

// respond writes the outcome of a procedure, or the reason it never ran.
func respond[T any](s Service, w http.ResponseWriter, r *http.Request, runID string, outcome transferegov.Outcome[T], err error) {
	if runID != "" {
		w.Header().Set("X-Run-Id", runID)
	}

	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		s.problem(w, r, http.StatusServiceUnavailable, "unavailable", unavailable.Error())
		return
	}
	var fatal *transferegov.FatalError
	if errors.As(err, &fatal) {
		errs := fatal.Errors
		if errs == nil {
			errs = []string{}
		}
		s.writeJSON(w, http.StatusInternalServerError, "application/json", fatalResponse{
			Status:  transferegov.StatusFailed.Label(),
			Message: fatal.Error(),
			Errors:  errs,
		})
		return
	}
	if err != nil {
		s.problem(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, "application/json", outcome)
}

func (s Service) environment(w http.ResponseWriter, r *http.Request, value string) (transferegov.Environment, bool) {
	env, err := transferegov.ParseEnvironment(value, s.cfg.DefaultEnvironment)
	if err != nil {
		s.problem(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return "", false
	}
	return env, true
}

func (s Service) handleInstrument(w http.ResponseWriter, r *http.Request) {
	req := instrumentRequest{
		ID:          strings.TrimSpace(r.URL.Query().Get("id")),
		Environment: r.URL.Query().Get("environment"),
	}
	err := validate.Struct(req)
	if err != nil {
		s.problem(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	env, ok := s.environment(w, r, req.Environment)
	if !ok {
		return
	}

	run, outcome, err := s.Instrument(r.Context(), transferegov.InstrumentQuery{
		NumeroConvenio: req.ID,
		Environment:    env,
	})
	respond(s, w, r, run.ID, outcome, err)
}

func (s Service) handleEntity(w http.ResponseWriter, r *http.Request) {
	var req entityRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
	if err != nil {
		s.problem(w, r, http.StatusBadRequest, "validation_error", "invalid json body")
		return
	}
	err = validate.Struct(req)
	if err != nil {
		s.problem(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	env, ok := s.environment(w, r, req.Environment)
	if !ok {
		return
	}

	run, outcome, err := s.Entity(r.Context(), transferegov.EntityQuery{
		CNPJ:         req.CNPJ,
		Nome:         req.Nome,
		UF:           req.UF,
		Municipio:    req.Municipio,
		Categoria:    req.Categoria,
		AreasAtuacao: req.AreasAtuacao,
		Environment:  env,
	})
	respond(s, w, r, run.ID, outcome, err)
}
