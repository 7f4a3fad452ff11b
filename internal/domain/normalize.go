package domain

import (
	"strings"
	"time"
)

// DefaultAuthor подставляется, если провайдер не отдал автора.
const DefaultAuthor = "unknown"

// NormalizePost применяет значения по умолчанию, чтобы каноничная запись была полной.
func NormalizePost(p Post, now time.Time) Post {
	p.Title = strings.TrimSpace(p.Title)
	p.URL = strings.TrimSpace(p.URL)
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	p.Summary = strings.TrimSpace(p.Summary)
	if strings.TrimSpace(p.Author) == "" {
		p.Author = DefaultAuthor
	}
	p.Tags = CleanTags(p.Tags)
	if p.PostedAt.IsZero() {
		p.PostedAt = now
	}
	p.PostedAt = p.PostedAt.UTC()
	if p.Status == "" {
		p.Status = PostStatusUnread
	}
	if p.PriorityScore < 0 {
		p.PriorityScore = 0
	}
	return p
}

// CleanTags удаляет пустые и повторяющиеся теги, сохраняя порядок.
func CleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}

// MatchesKeywords проверяет вхождение хотя бы одного ключевого слова без учёта регистра.
// Пустой список пропускает всё.
func MatchesKeywords(keywords []string, texts ...string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(strings.Join(texts, " "))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
