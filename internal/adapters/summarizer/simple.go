// Package summarizer сводит HTML-фрагменты провайдеров к короткому plain-text описанию.
package summarizer

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultLimit ограничивает длину описания в рунах.
const DefaultLimit = 500

// Summarizer превращает HTML в текст и обрезает его до лимита.
type Summarizer struct {
	policy *bluemonday.Policy
	limit  int
}

// NewSimple создаёт Summarizer с лимитом limit рун; limit <= 0 означает DefaultLimit.
func NewSimple(limit int) *Summarizer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	policy := bluemonday.StripTagsPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return &Summarizer{policy: policy, limit: limit}
}

// PlainText убирает разметку и схлопывает пробелы, не обрезая текст.
func (s *Summarizer) PlainText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if strings.ContainsAny(text, "<&") {
		text = html.UnescapeString(s.policy.Sanitize(text))
	}
	return strings.Join(strings.Fields(text), " ")
}

// Shorten обрезает уже очищенный текст до лимита.
func (s *Summarizer) Shorten(text string) string {
	return truncate(text, s.limit)
}

// Excerpt возвращает очищенное описание.
func (s *Summarizer) Excerpt(text string) string {
	return s.Shorten(s.PlainText(text))
}

var defaultSummarizer = NewSimple(DefaultLimit)

// Excerpt очищает текст стандартным Summarizer.
func Excerpt(text string) string {
	return defaultSummarizer.Excerpt(text)
}

// PlainText очищает текст стандартным Summarizer без обрезки. Фильтры по ключевым словам
// проверяют полный текст, а не описание.
func PlainText(text string) string {
	return defaultSummarizer.PlainText(text)
}

// Shorten обрезает очищенный текст до DefaultLimit.
func Shorten(text string) string {
	return defaultSummarizer.Shorten(text)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
