package htmlutil

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("transferegov.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// InnerText approximates what a browser renders as the text of a node: markup
// indentation and line breaks collapse into single spaces.
func InnerText(node *html.Node) string {
	text := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, GetText(node))
	text = removeNonPrintable(text)
	text = innerWhitespace.ReplaceAllString(text, " ")
	return strings.Trim(text, " ")
}

// Table parses the rows of an html table fragment (a <table>, <tbody> or a run of <tr>)
// into one map per row, keyed by the header of the column. Rows without <td> cells
// (header rows) are skipped and cells past the last header are ignored.
func Table(ctx context.Context, fragment string, headers []string) ([]map[string]string, error) {
	ctx, span := tracer.Start(ctx, "Table")
	defer span.End()

	// table sections only survive parsing inside a table element
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table>" + fragment + "</table>"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse table fragment")
		return nil, err
	}

	rows := []map[string]string{}
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return
		}
		row := map[string]string{}
		cells.Each(func(i int, td *goquery.Selection) {
			if i >= len(headers) {
				return
			}
			row[headers[i]] = InnerText(td.Nodes[0])
		})
		rows = append(rows, row)
	})

	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}
