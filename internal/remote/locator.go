package remote

import (
	"fmt"
	"strings"
)

type Strategy string

const (
	ByName     Strategy = "name"
	ByID       Strategy = "id"
	ByCSS      Strategy = "css"
	ByXPath    Strategy = "xpath"
	ByLinkText Strategy = "linkText"
	ByTagName  Strategy = "tagName"
)

// Locator describes how to find an element on the current page. When more than
// one element matches, the first one in document order is used.
type Locator struct {
	Strategy Strategy
	Value    string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

func Name(name string) Locator     { return Locator{Strategy: ByName, Value: name} }
func ID(id string) Locator         { return Locator{Strategy: ByID, Value: id} }
func CSS(selector string) Locator  { return Locator{Strategy: ByCSS, Value: selector} }
func XPath(expr string) Locator    { return Locator{Strategy: ByXPath, Value: expr} }
func LinkText(text string) Locator { return Locator{Strategy: ByLinkText, Value: text} }
func TagName(tag string) Locator   { return Locator{Strategy: ByTagName, Value: tag} }

// XPathLiteral quotes s as an xpath string literal. xpath 1.0 has no escape
// sequences so strings holding both kinds of quote are built with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// ContainsText matches `tag` elements whose text contains text.
func ContainsText(tag, text string) Locator {
	return XPath(fmt.Sprintf("//%s[contains(text(), %s)]", tag, XPathLiteral(text)))
}

// ExactText matches `tag` elements whose text equals text.
func ExactText(tag, text string) Locator {
	return XPath(fmt.Sprintf("//%s[text()=%s]", tag, XPathLiteral(text)))
}

// Nth scopes an xpath locator to its n-th match (1-indexed) and optionally to a
// relative path beneath it.
func Nth(l Locator, n int, relative string) Locator {
	if l.Strategy != ByXPath {
		panic(fmt.Sprintf("Nth requires an xpath locator, got %s", l))
	}
	return XPath(fmt.Sprintf("(%s)[%d]%s", l.Value, n, relative))
}
