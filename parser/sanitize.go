package parser

import (
	"regexp"
	"strings"
)

// Default length limits applied by the sanitizers, counted in runes.
const (
	MaxPromptLength = 1000
	MaxTextLength   = 10000
)

// dangerousPatterns is a fixed denylist of role-switching and
// instruction-override phrases. This is a best-effort filter, not a security
// boundary: false negatives are expected, and the downstream model call has
// no system-level privileges.
var dangerousPatterns = []*regexp.Regexp{
	// Role markers
	regexp.MustCompile(`(?i)system\s*:`),
	regexp.MustCompile(`(?i)assistant\s*:`),
	regexp.MustCompile(`(?i)user\s*:`),
	regexp.MustCompile(`(?i)human\s*:`),
	// Instruction overrides
	regexp.MustCompile(`(?i)ignore\s+previous`),
	regexp.MustCompile(`(?i)disregard\s+above`),
	regexp.MustCompile(`(?i)forget\s+everything`),
	regexp.MustCompile(`(?i)new\s+instructions`),
	regexp.MustCompile(`(?i)override\s+system`),
	// Role switching
	regexp.MustCompile(`(?i)you\s+are\s+now`),
	regexp.MustCompile(`(?i)act\s+as\s+if`),
	regexp.MustCompile(`(?i)pretend\s+to\s+be`),
	// Data extraction
	regexp.MustCompile(`(?i)repeat\s+everything`),
	regexp.MustCompile(`(?i)show\s+system\s+prompt`),
	regexp.MustCompile(`(?i)reveal\s+instructions`),
}

var (
	scriptTagPattern  = regexp.MustCompile(`(?i)</?script[^>]*>`)
	javascriptPattern = regexp.MustCompile(`(?i)javascript:`)
)

// SanitizePrompt filters a prompt before it is sent to a language model:
// truncates to maxLength (MaxPromptLength when 0), rewrites denylisted
// phrases to [FILTERED], collapses whitespace runs and escapes markup
// characters.
func SanitizePrompt(prompt string, maxLength int) string {
	if prompt == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxPromptLength
	}
	prompt = truncate(prompt, maxLength)

	for _, p := range dangerousPatterns {
		prompt = p.ReplaceAllString(prompt, "[FILTERED]")
	}

	prompt = strings.Join(strings.Fields(prompt), " ")

	prompt = strings.ReplaceAll(prompt, `\`, `\\`)
	prompt = strings.ReplaceAll(prompt, "`", "\\`")

	return prompt
}

// SanitizeText filters untrusted document text before model processing:
// truncates to maxLength (MaxTextLength when 0), neutralizes script-like
// substrings and collapses whitespace per line, preserving paragraph
// structure.
func SanitizeText(text string, maxLength int) string {
	if text == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxTextLength
	}
	text = truncate(text, maxLength)

	text = scriptTagPattern.ReplaceAllString(text, "[SCRIPT_REMOVED]")
	text = javascriptPattern.ReplaceAllString(text, "[JS_REMOVED]")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// ValidFileContent reports whether extracted text looks like genuine text
// rather than binary spillover: no NUL bytes and a bounded ratio of
// non-printable characters.
func ValidFileContent(content string) bool {
	if strings.ContainsRune(content, '\x00') {
		return false
	}
	if content == "" {
		return true
	}
	special := 0
	total := 0
	for _, r := range content {
		total++
		switch r {
		case '\n', '\t', '\r':
			continue
		}
		if r < 32 || r > 126 {
			special++
		}
	}
	return float64(special)/float64(total) <= 0.3
}

// truncate limits s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
