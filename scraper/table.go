package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractRows returns the trimmed cell texts of every row under sel. Header
// rows have no td cells and are left out.
func ExtractRows(sel *goquery.Selection) [][]string {
	var rows [][]string
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return strings.Join(strings.Fields(td.Text()), " ")
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

// ExtractRowsFromHTML parses an HTML fragment and extracts the rows of its
// first table, or of the whole fragment when it holds no table element.
func ExtractRowsFromHTML(html string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse table html: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return ExtractRows(doc.Selection), nil
	}
	return ExtractRows(table), nil
}
