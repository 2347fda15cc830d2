package remote

import "testing"

func TestXPathLiteral(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{in: "Execução", expected: "'Execução'"},
		{in: "d'água", expected: `"d'água"`},
		{in: `a'b"c`, expected: `concat('a', "'", 'b"c')`},
		{in: `'"`, expected: `concat("'", '"')`},
	}
	for _, test := range cases {
		got := XPathLiteral(test.in)
		if got != test.expected {
			t.Errorf("XPathLiteral(%q) = %s, expected %s", test.in, got, test.expected)
		}
	}
}

func TestComputedLocators(t *testing.T) {
	if got := ContainsText("a", "123456"); got != XPath("//a[contains(text(), '123456')]") {
		t.Fatal(got)
	}
	if got := ExactText("a", "DF"); got != XPath("//a[text()='DF']") {
		t.Fatal(got)
	}
	rows := XPath("//*[@id='licitacoes']//tbody/tr")
	if got := Nth(rows, 2, "//a"); got.Value != "(//*[@id='licitacoes']//tbody/tr)[2]//a" {
		t.Fatal(got)
	}
	if Name("j_username") != Name("j_username") {
		t.Fatal("locators with the same strategy and value must be equal")
	}
}
