package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/docdex/llm"
)

// extractionPrompt guides the vision model toward verbatim, comprehensive
// page extraction.
const extractionPrompt = `Analyze this document page and extract ALL information:

1. **Text Content**: Extract all visible text, maintaining structure and formatting
2. **Tables**: Extract table data in a structured format with headers and rows
3. **Charts/Graphs**: Describe the chart type, axes, data points, and trends
4. **Images**: Describe any images, diagrams, or illustrations
5. **Lists**: Extract bulleted or numbered lists maintaining hierarchy
6. **Headers/Footers**: Extract page numbers, headers, and footers
7. **Special Elements**: Mathematical formulas, code snippets, citations

Preserve the original document structure and context. Be comprehensive and accurate.`

// enhancePrompt guides text enhancement in hybrid mode.
const enhancePrompt = "Extract and structure all information including tables, lists, and key points:"

// LLMEnhancedStrategy enriches pages through a language-model provider.
// Pages are processed in fixed-size batches; within a batch every page is
// dispatched concurrently and the batch is joined before the next one
// starts, bounding peak provider load to the batch size.
type LLMEnhancedStrategy struct {
	provider  llm.Provider
	mode      string
	batchSize int
}

// NewLLMEnhanced returns a strategy driving the given provider. mode is one
// of ModeTextOnly, ModeHybrid or ModeLLMOnly; batchSize values below 1 fall
// back to 5.
func NewLLMEnhanced(provider llm.Provider, mode string, batchSize int) *LLMEnhancedStrategy {
	if batchSize < 1 {
		batchSize = 5
	}
	return &LLMEnhancedStrategy{
		provider:  provider,
		mode:      mode,
		batchSize: batchSize,
	}
}

// Combine processes all pages batch by batch and joins the non-empty
// results with blank lines, preserving input page order. Provider failures
// are recovered per page and never abort the document; Combine returns an
// error only when the context itself is done.
func (s *LLMEnhancedStrategy) Combine(ctx context.Context, pages []Page) (string, error) {
	if len(pages) == 0 {
		return "", nil
	}

	results := make([]string, 0, len(pages))
	for start := 0; start < len(pages); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pages) {
			end = len(pages)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		results = append(results, s.processBatch(ctx, pages[start:end])...)
	}

	var valid []string
	for _, r := range results {
		if strings.TrimSpace(r) != "" {
			valid = append(valid, r)
		}
	}
	return strings.Join(valid, "\n\n"), nil
}

// processBatch fans a batch out to the provider and waits for every page to
// settle. Each page writes to its own slot, so results keep submission
// order no matter which call finishes first.
func (s *LLMEnhancedStrategy) processBatch(ctx context.Context, batch []Page) []string {
	results := make([]string, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, page := range batch {
		g.Go(func() error {
			switch s.mode {
			case ModeLLMOnly:
				if page.Image != nil {
					results[i] = s.processPageImage(gctx, page)
				} else {
					results[i] = renderPageLocal(page)
				}
			case ModeHybrid:
				results[i] = s.processPageHybrid(gctx, page)
			default:
				results[i] = renderPageLocal(page)
			}
			return nil
		})
	}
	// Page outcomes are captured in their slots; the group never carries an
	// error, so Wait is purely the join barrier.
	_ = g.Wait()

	return results
}

// processPageImage sends the whole page image to the provider. On failure
// it degrades to the local text rendering for that page.
func (s *LLMEnhancedStrategy) processPageImage(ctx context.Context, page Page) string {
	prompt := SanitizePrompt(extractionPrompt, 1500)
	result, err := s.provider.AnalyzeImage(ctx, page.Image, prompt)
	if err != nil {
		slog.Warn("image analysis failed, falling back to text",
			"page", page.PageNumber, "error", err)
		return renderPageLocal(page)
	}
	return fmt.Sprintf("Page %d:\n%s", page.PageNumber, result)
}

// processPageHybrid analyzes the page image and the page text separately
// and concatenates both results with any raw tables under labeled
// subsections. Each half degrades independently.
func (s *LLMEnhancedStrategy) processPageHybrid(ctx context.Context, page Page) string {
	var sections []string

	if page.Image != nil {
		prompt := SanitizePrompt(extractionPrompt, 1500)
		visual, err := s.provider.AnalyzeImage(ctx, page.Image, prompt)
		if err != nil {
			slog.Warn("hybrid image analysis failed",
				"page", page.PageNumber, "error", err)
		} else {
			sections = append(sections, "Visual content:\n"+visual)
		}
	}

	if strings.TrimSpace(page.Text) != "" {
		sanitized := SanitizeText(page.Text, 0)
		prompt := SanitizePrompt(enhancePrompt, 0)
		enhanced, err := s.provider.AnalyzeText(ctx, sanitized, prompt)
		if err != nil {
			slog.Warn("hybrid text enhancement failed, keeping raw text",
				"page", page.PageNumber, "error", err)
			sections = append(sections, "Text content:\n"+sanitized)
		} else {
			sections = append(sections, "Text content:\n"+enhanced)
		}
	}

	if len(page.Tables) > 0 {
		sections = append(sections, "Tables:\n"+formatTables(page.Tables))
	}

	if len(sections) == 0 {
		return fmt.Sprintf("Page %d: [No content extracted]", page.PageNumber)
	}
	return fmt.Sprintf("Page %d:\n%s", page.PageNumber, strings.Join(sections, "\n"))
}

// renderPageLocal renders a page without the provider: raw text plus table
// rendering under a page header.
func renderPageLocal(page Page) string {
	var parts []string

	if strings.TrimSpace(page.Text) != "" {
		parts = append(parts, page.Text)
	}
	if len(page.Tables) > 0 {
		parts = append(parts, formatTables(page.Tables))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("Page %d: [No text content]", page.PageNumber)
	}
	return fmt.Sprintf("Page %d:\n%s", page.PageNumber, strings.Join(parts, "\n"))
}
