package transferegov

import (
	"fmt"
	"strings"
)

type Environment string

const (
	Homolog    Environment = "homolog"
	Production Environment = "production"
)

// ParseEnvironment accepts the environment names used by callers, an empty
// string selects fallback.
func ParseEnvironment(value string, fallback Environment) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback, nil
	case "homolog", "homologacao", "training", "tre":
		return Homolog, nil
	case "production", "prod", "producao":
		return Production, nil
	}
	return "", fmt.Errorf("unknown environment %q", value)
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CredentialsConfig struct {
	Homolog    Credentials `json:"homolog"`
	Production Credentials `json:"production"`
}

// Target is the portal deployment a workflow runs against.
type Target struct {
	Environment Environment
	Credentials Credentials
	prefix      string
}

// ResolveTarget picks the credentials and url prefix of env. Homolog hosts
// live under the `tre.` subdomain of their production counterparts.
func ResolveTarget(env Environment, cfg CredentialsConfig) Target {
	if env == Homolog {
		return Target{
			Environment: Homolog,
			Credentials: cfg.Homolog,
			prefix:      "https://tre.",
		}
	}
	return Target{
		Environment: Production,
		Credentials: cfg.Production,
		prefix:      "https://",
	}
}

// URL builds the url of hostPath, a host and path without scheme.
func (t Target) URL(hostPath string) string {
	return t.prefix + hostPath
}

func (t Target) LoginURL() string {
	return t.URL("idp.transferegov.sistema.gov.br/idp/login")
}

func (t Target) LicitacoesURL() string {
	return t.URL("discricionarias.transferegov.sistema.gov.br/voluntarias/execucao/ListarLicitacoes/ListarLicitacoes.do?destino=ListarLicitacoes")
}

func (t Target) ConsultaEntidadeURL() string {
	return t.URL("transfere.transferegov.sistema.gov.br/habilitacao/consulta-entidade.html")
}
