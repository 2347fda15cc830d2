package transferegov

import (
	"fmt"
	"strings"
)

// FieldMissingError describes a listing row dropped for lacking required fields.
type FieldMissingError struct {
	Page    int
	Row     int
	Missing []string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf(
		"linha %d (página %d) descartada, campos obrigatórios ausentes: %s",
		e.Row, e.Page, strings.Join(e.Missing, ", "),
	)
}

// DetailExhaustedError is recorded once for a result row whose detail page
// kept failing after every refresh.
type DetailExhaustedError struct {
	Row      int
	Key      string
	Attempts int
	Err      error
}

func (e *DetailExhaustedError) Error() string {
	return fmt.Sprintf(
		"falha ao extrair detalhes de %q (linha %d) após %d tentativas: %v",
		e.Key, e.Row, e.Attempts, e.Err,
	)
}

func (e *DetailExhaustedError) Unwrap() error {
	return e.Err
}

// FatalError aborts a workflow, only the browser launch and the login produce it.
type FatalError struct {
	Step string
	Err  error
	// Errors is the error trail recorded up to the failure.
	Errors []string
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
