package transferegov

import "sync"

type Status int

const (
	StatusInitialized Status = iota
	StatusSessionOpen
	StatusLoggedIn
	StatusNavigated
	StatusPageNotFound
	StatusQueryExecuted
	StatusNoResultsFound
	StatusResultsExtracted
	StatusClosed
	StatusLoginFailed
	StatusFailed
)

var statusNames = map[Status]string{
	StatusInitialized:      "initialized",
	StatusSessionOpen:      "session_open",
	StatusLoggedIn:         "logged_in",
	StatusNavigated:        "navigated",
	StatusPageNotFound:     "page_not_found",
	StatusQueryExecuted:    "query_executed",
	StatusNoResultsFound:   "no_results_found",
	StatusResultsExtracted: "results_extracted",
	StatusClosed:           "closed",
	StatusLoginFailed:      "login_failed",
	StatusFailed:           "failed",
}

var statusLabels = map[Status]string{
	StatusInitialized:      "Inicializado",
	StatusSessionOpen:      "Navegador aberto",
	StatusLoggedIn:         "Login realizado",
	StatusNavigated:        "Menu acessado",
	StatusPageNotFound:     "Página não encontrada",
	StatusQueryExecuted:    "Consulta realizada",
	StatusNoResultsFound:   "Nenhum registro encontrado",
	StatusResultsExtracted: "Sucesso",
	StatusClosed:           "Encerrado",
	StatusLoginFailed:      "Falha no login",
	StatusFailed:           "Erro",
}

func (s Status) String() string {
	return statusNames[s]
}

// Label is the status as reported to callers of the portal workflows.
func (s Status) Label() string {
	return statusLabels[s]
}

func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusLoginFailed || s == StatusFailed
}

// WorkflowState is the run state of one workflow execution. Status only moves
// forward, errors only grow.
type WorkflowState[T any] struct {
	Environment Environment

	mu      sync.Mutex
	status  Status
	settled Status
	errors  []string
	results []T
}

func NewWorkflowState[T any](env Environment) *WorkflowState[T] {
	return &WorkflowState[T]{
		Environment: env,
		results:     []T{},
	}
}

// Advance moves to `to` if it comes after the current status and the current
// status is not terminal, it reports whether the move happened.
func (s *WorkflowState[T]) Advance(to Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() || to <= s.status {
		return false
	}
	if to == StatusClosed {
		s.settled = s.status
	}
	s.status = to
	return true
}

func (s *WorkflowState[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Settled is the status the run ended with, ignoring the release of its session.
func (s *WorkflowState[T]) Settled() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return s.settled
	}
	return s.status
}

func (s *WorkflowState[T]) Record(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err.Error())
}

func (s *WorkflowState[T]) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.errors))
	copy(out, s.errors)
	return out
}

// Replace swaps the results for the outcome of a finished extraction.
func (s *WorkflowState[T]) Replace(results []T) {
	if results == nil {
		results = []T{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
}

func (s *WorkflowState[T]) Results() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.results))
	copy(out, s.results)
	return out
}
