package transferegov

// Instrument is one row of the ListarLicitacoes listing of an instrument.
type Instrument struct {
	Numero           string `json:"numero"`
	ProcessoExecucao string `json:"processoExecucao"`
	DataPublicacao   string `json:"dataPublicacao"`
	NumeroProcesso   string `json:"numeroProcesso"`
	Situacao         string `json:"situacao"`
	SituacaoOrigem   string `json:"situacaoOrigem"`
	SistemaOrigem    string `json:"sistemaOrigem"`
	AceiteExecucao   string `json:"aceiteExecucao"`
	// DataEnvioAceite is only read for rows awaiting acceptance.
	DataEnvioAceite string `json:"dataEnvioAceite"`
}

type BasicData struct {
	CNPJ             string `json:"cnpj"`
	RazaoSocial      string `json:"razaoSocial"`
	NomeFantasia     string `json:"nomeFantasia"`
	CnaePrimario     string `json:"cnaePrimario"`
	CnaeSecundario   string `json:"cnaeSecundario"`
	DataAbertura     string `json:"dataAbertura"`
	NaturezaJuridica string `json:"naturezaJuridica"`
	Endereco         string `json:"endereco"`
	Telefone         string `json:"telefone"`
	Email            string `json:"email"`
}

type Statute struct {
	DescricaoEstatuto string `json:"descricaoEstatuto"`
}

type Governance struct {
	DataInicioMandato string              `json:"dataInicioMandato"`
	DataFimMandato    string              `json:"dataFimMandato"`
	HistoricoMandatos []map[string]string `json:"historicoMandatos"`
	Dirigentes        []map[string]string `json:"dirigentes"`
}

// EntityDetail holds one section per detail tab. A nil section means the tab
// was never reached or its extractor failed, the failure is in the error trail.
type EntityDetail struct {
	DadosBasicos *BasicData          `json:"dadosBasicos,omitempty"`
	Estatuto     *Statute            `json:"estatuto,omitempty"`
	Responsaveis *Governance         `json:"responsaveis,omitempty"`
	Membros      []map[string]string `json:"membros,omitempty"`
}

// Entity is one row of the entity search results with its detail page.
type Entity struct {
	Entidade string `json:"entidade"`
	CNPJ     string `json:"cnpj"`
	EntityDetail
}

type InstrumentQuery struct {
	// NumeroConvenio identifies the instrument (convênio) being looked up.
	NumeroConvenio string
	Environment    Environment
}

// EntityQuery filters the entity search, empty filters are left untouched on
// the search form.
type EntityQuery struct {
	CNPJ         string      `json:"cnpj"`
	Nome         string      `json:"nome"`
	UF           string      `json:"uf"`
	Municipio    string      `json:"municipio"`
	Categoria    string      `json:"categoria"`
	AreasAtuacao []string    `json:"areasAtuacao"`
	Environment  Environment `json:"environment"`
}

// Outcome is what a procedure hands back to its caller. Results is never nil.
type Outcome[T any] struct {
	Status  string   `json:"status"`
	Results []T      `json:"results"`
	Errors  []string `json:"errors"`

	State       Status      `json:"-"`
	Environment Environment `json:"-"`
	Username    string      `json:"-"`
}
