package htmlutil

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTable(t *testing.T) {
	cases := []struct {
		name     string
		fragment string
		headers  []string
		expected []map[string]string
	}{
		{
			name: "tbody with indentation",
			fragment: `<tbody id="tblMembros-body">
				<tr>
					<td>123.456.789-00</td>
					<td>
						Maria   da Silva
					</td>
					<td>Presidente</td>
				</tr>
				<tr><td>987.654.321-00</td><td>João</td><td>Tesoureiro</td></tr>
			</tbody>`,
			headers: []string{"CPF", "Nome", "Cargo/Função"},
			expected: []map[string]string{
				{"CPF": "123.456.789-00", "Nome": "Maria da Silva", "Cargo/Função": "Presidente"},
				{"CPF": "987.654.321-00", "Nome": "João", "Cargo/Função": "Tesoureiro"},
			},
		},
		{
			name: "full table skips header row",
			fragment: `<table id="tabelaDirigentes">
				<thead><tr><th>Nome</th><th>CPF</th><th>Cargo/Função</th></tr></thead>
				<tbody><tr><td>Ana</td><td>111</td><td>Diretora</td></tr></tbody>
			</table>`,
			headers: []string{"Nome", "CPF", "Cargo/Função"},
			expected: []map[string]string{
				{"Nome": "Ana", "CPF": "111", "Cargo/Função": "Diretora"},
			},
		},
		{
			name:     "extra cells are dropped",
			fragment: `<tr><td>01/01/2020</td><td>31/12/2023</td><td>ignored</td></tr>`,
			headers:  []string{"Início do Mandato", "Término do Mandato"},
			expected: []map[string]string{
				{"Início do Mandato": "01/01/2020", "Término do Mandato": "31/12/2023"},
			},
		},
		{
			name:     "empty body",
			fragment: `<tbody></tbody>`,
			headers:  []string{"CPF"},
			expected: []map[string]string{},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			rows, err := Table(context.Background(), test.fragment, test.headers)
			if err != nil {
				t.Fatal(err)
			}
			diff := cmp.Diff(test.expected, rows)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}
