package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractSections(t *testing.T) {
	t.Run("should split at headings and keep the document intact", func(t *testing.T) {
		doc := "intro line\n\n## First\n\nbody\n\n### Nested\n\nmore\n"
		sections := ExtractSections(doc)
		assert.Len(t, sections, 3)
		assert.Equal(t, "Header", sections[0].Title)
		assert.Equal(t, "First", sections[1].Title)
		assert.Equal(t, 2, sections[1].Level)
		assert.Equal(t, "Nested", sections[2].Title)

		joined := ""
		for _, section := range sections {
			joined += section.Content
		}
		// splitting and joining only normalizes the trailing newline
		assert.Equal(t, doc, strings.TrimSuffix(joined, "\n"))
	})
}

func TestEligible(t *testing.T) {
	t.Run("should skip methodology sections", func(t *testing.T) {
		assert.False(t, Eligible(Section{Title: "Methodology", Content: "## Methodology\n\nprose\n"}))
		assert.False(t, Eligible(Section{Title: "Thank You", Content: "## Thank You\n\nbye\n"}))
	})

	t.Run("should skip table-heavy sections", func(t *testing.T) {
		content := "## Stats\n| a | b |\n|---|---|\n| 1 | 2 |\n| 3 | 4 |\n"
		assert.False(t, Eligible(Section{Title: "Stats", Content: content}))
	})

	t.Run("should keep prose sections", func(t *testing.T) {
		assert.True(t, Eligible(Section{Title: "Growth", Content: "## Growth\n\nlots of prose here\nand more\n"}))
	})
}

func TestLostNumbers(t *testing.T) {
	t.Run("should report tokens missing from the rewrite", func(t *testing.T) {
		original := "We saw 48,000 CVEs, up 12.5% from 42,667."
		enhanced := "We saw 48,000 CVEs."
		lost := LostNumbers(original, enhanced)
		assert.Contains(t, lost, "12.5")
		assert.Contains(t, lost, "42,667")
	})

	t.Run("should be empty when all numbers survive", func(t *testing.T) {
		assert.Empty(t, LostNumbers("48,000 and 12.5", "still 12.5 of 48,000"))
	})
}

func newTestClient(server *httptest.Server) *GeminiClient {
	client := NewGeminiClient("test-key")
	client.baseURL = server.URL
	client.sleep = func(time.Duration) {}
	return client
}

func geminiReply(text string) string {
	return `{"candidates": [{"content": {"parts": [{"text": "` + text + `"}]}}]}`
}

func TestGeminiClient(t *testing.T) {
	t.Run("should return the first candidate text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.RawQuery, "key=test-key")
			w.Write([]byte(geminiReply("rewritten"))) // nolint:errcheck
		}))
		defer server.Close()

		text, err := newTestClient(server).Generate(context.Background(), "prompt")
		assert.NoError(t, err)
		assert.Equal(t, "rewritten", text)
	})

	t.Run("should retry rate limits and then succeed", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(geminiReply("finally"))) // nolint:errcheck
		}))
		defer server.Close()

		text, err := newTestClient(server).Generate(context.Background(), "prompt")
		assert.NoError(t, err)
		assert.Equal(t, "finally", text)
		assert.Equal(t, 3, calls)
	})

	t.Run("should not retry other errors", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := newTestClient(server).Generate(context.Background(), "prompt")
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestEnhanceSection(t *testing.T) {
	section := Section{Title: "Growth", Content: "## Growth\n\nWe saw 48,000 CVEs, 12.5% more, from 101 CNAs, beating 42,667 and 7.5.\n"}

	t.Run("should revert when too many numbers are lost", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(geminiReply("All the numbers are gone."))) // nolint:errcheck
		}))
		defer server.Close()

		result := EnhanceSection(context.Background(), newTestClient(server), section)
		assert.Equal(t, section.Content, result)
	})

	t.Run("should accept a rewrite that keeps the statistics", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(geminiReply("Rewritten: 48,000 CVEs, 12.5%, 101 CNAs, 42,667, 7.5."))) // nolint:errcheck
		}))
		defer server.Close()

		result := EnhanceSection(context.Background(), newTestClient(server), section)
		assert.Contains(t, result, "Rewritten")
	})

	t.Run("should keep the original on any service error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		result := EnhanceSection(context.Background(), newTestClient(server), section)
		assert.Equal(t, section.Content, result)
	})
}

func TestEnhanceBlog(t *testing.T) {
	t.Run("should back up the original and write the enriched file", func(t *testing.T) {
		dir := t.TempDir()
		blog := "# 2025 CVE Data Review\n\nprose with 48,000\n\n## Methodology\n\nfactual\n"
		assert.NoError(t, os.WriteFile(filepath.Join(dir, "blog.md"), []byte(blog), 0644))

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(geminiReply("Enhanced with 48,000 intact."))) // nolint:errcheck
		}))
		defer server.Close()

		assert.NoError(t, EnhanceBlog(context.Background(), newTestClient(server), dir))

		backup, err := os.ReadFile(filepath.Join(dir, "blog_original.md"))
		assert.NoError(t, err)
		assert.Equal(t, blog, string(backup))

		enriched, err := os.ReadFile(filepath.Join(dir, "blog_enriched.md"))
		assert.NoError(t, err)
		assert.Contains(t, string(enriched), "Enhanced with 48,000 intact.")
		// methodology stays verbatim
		assert.Contains(t, string(enriched), "factual")
	})

	t.Run("should fail cleanly without a source blog", func(t *testing.T) {
		client := NewGeminiClient("key")
		assert.Error(t, EnhanceBlog(context.Background(), client, t.TempDir()))
	})
}
