package parser

import (
	"context"
	"fmt"
	"strings"
)

// TextOnlyStrategy renders pages without any model involvement. It is
// deterministic and pure: the same pages always produce the same output.
type TextOnlyStrategy struct{}

// NewTextOnly returns the plain text-extraction strategy.
func NewTextOnly() *TextOnlyStrategy {
	return &TextOnlyStrategy{}
}

// Combine concatenates page text and tables in order. Multi-page documents
// get a "--- Page N ---" marker before each page that produced content;
// pages with nothing to contribute are skipped entirely. Single-page
// documents carry no marker.
func (s *TextOnlyStrategy) Combine(_ context.Context, pages []Page) (string, error) {
	if len(pages) == 0 {
		return "", nil
	}

	var parts []string
	for _, page := range pages {
		var pageParts []string

		if strings.TrimSpace(page.Text) != "" {
			pageParts = append(pageParts, page.Text)
		}
		for _, table := range page.Tables {
			if t := formatTable(table); t != "" {
				pageParts = append(pageParts, t)
			}
		}

		if len(pageParts) == 0 {
			continue
		}
		if len(pages) > 1 {
			marker := fmt.Sprintf("\n--- Page %d ---\n", page.PageNumber)
			pageParts = append([]string{marker}, pageParts...)
		}
		parts = append(parts, strings.Join(pageParts, "\n"))
	}

	return strings.Join(parts, "\n\n"), nil
}

// formatTable renders a table as pipe-delimited rows with a dashed
// separator under the header.
func formatTable(table Table) string {
	var lines []string

	if len(table.Header) > 0 {
		lines = append(lines, strings.Join(table.Header, " | "))
		lines = append(lines, strings.Repeat("-", 40))
	}
	for _, row := range table.Rows {
		lines = append(lines, strings.Join(row, " | "))
	}

	return strings.Join(lines, "\n")
}

// formatTables renders a page's tables with "Table N:" headings, used by
// the LLM-enhanced strategy's local rendering paths.
func formatTables(tables []Table) string {
	if len(tables) == 0 {
		return ""
	}
	formatted := make([]string, 0, len(tables))
	for i, table := range tables {
		lines := []string{fmt.Sprintf("Table %d:", i+1)}
		if t := formatTable(table); t != "" {
			lines = append(lines, t)
		}
		formatted = append(formatted, strings.Join(lines, "\n"))
	}
	return strings.Join(formatted, "\n\n")
}
