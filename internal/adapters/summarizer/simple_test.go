package summarizer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExcerptStripsHTML(t *testing.T) {
	got := Excerpt(`<p>Hello &amp; <b>world</b></p><p>next<br>line</p><script>alert(1)</script>`)
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("теги должны быть удалены: %q", got)
	}
	if !strings.HasPrefix(got, "Hello & world next") {
		t.Fatalf("неожиданный текст: %q", got)
	}
	if strings.Contains(got, "alert") {
		t.Fatalf("содержимое script не должно попадать в описание: %q", got)
	}
}

func TestExcerptKeepsPlainText(t *testing.T) {
	if got := Excerpt("  plain   text\nwith lines "); got != "plain text with lines" {
		t.Fatalf("неожиданный текст: %q", got)
	}
	if got := Excerpt(""); got != "" {
		t.Fatalf("ожидали пустую строку, получили %q", got)
	}
}

func TestExcerptTruncates(t *testing.T) {
	s := NewSimple(10)
	got := s.Excerpt(strings.Repeat("слово ", 10))
	if utf8.RuneCountInString(got) > 11 || !strings.HasSuffix(got, "…") {
		t.Fatalf("ожидали обрезанный текст, получили %q", got)
	}
}

func TestPlainTextDoesNotTruncate(t *testing.T) {
	long := "<p>" + strings.Repeat("word ", 200) + "tail</p>"
	plain := PlainText(long)
	if !strings.HasSuffix(plain, "tail") || strings.Contains(plain, "<") {
		t.Fatalf("ожидали полный текст без разметки: %q", plain)
	}
	if Shorten(plain) != Excerpt(long) {
		t.Fatalf("Excerpt должен совпадать с Shorten(PlainText)")
	}
}
