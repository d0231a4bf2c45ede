package download

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

func TestNVDServiceRefresh(t *testing.T) {
	payload := `{"vulnerabilities": [{"cve": {"id": "CVE-2025-1"}}]}`

	t.Run("should download when no local copy exists", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload)) // nolint:errcheck
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "nvd.json")
		downloaded, err := NewNVDService(server.URL).Refresh(context.Background(), dest, false)
		assert.NoError(t, err)
		assert.True(t, downloaded)

		content, err := os.ReadFile(dest)
		assert.NoError(t, err)
		assert.Equal(t, payload, string(content))
	})

	t.Run("should skip the download when the local copy is newer", func(t *testing.T) {
		requests := []string{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.Method)
			w.Header().Set("Last-Modified", time.Now().Add(-24*time.Hour).UTC().Format(http.TimeFormat))
			w.Write([]byte(payload)) // nolint:errcheck
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "nvd.json")
		// seed a local copy big enough to pass the truncation check
		assert.NoError(t, os.WriteFile(dest, []byte(strings.Repeat("x", minBulkSize)), 0600))

		downloaded, err := NewNVDService(server.URL).Refresh(context.Background(), dest, false)
		assert.NoError(t, err)
		assert.False(t, downloaded)
		assert.Equal(t, []string{http.MethodHead}, requests)
	})

	t.Run("should re-download when the remote size drifted", func(t *testing.T) {
		requests := []string{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.Method)
			if r.Method == http.MethodHead {
				w.Header().Set("Content-Length", "9437184")
				w.Header().Set("Last-Modified", time.Now().Add(-24*time.Hour).UTC().Format(http.TimeFormat))
				return
			}
			w.Write([]byte(payload)) // nolint:errcheck
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "nvd.json")
		assert.NoError(t, os.WriteFile(dest, []byte(strings.Repeat("x", minBulkSize)), 0600))

		downloaded, err := NewNVDService(server.URL).Refresh(context.Background(), dest, false)
		assert.NoError(t, err)
		assert.True(t, downloaded)
		assert.Equal(t, []string{http.MethodHead, http.MethodGet}, requests)
	})

	t.Run("should re-download a truncated local copy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Last-Modified", time.Now().Add(-24*time.Hour).UTC().Format(http.TimeFormat))
			w.Write([]byte(payload)) // nolint:errcheck
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "nvd.json")
		assert.NoError(t, os.WriteFile(dest, []byte("tiny"), 0600))

		downloaded, err := NewNVDService(server.URL).Refresh(context.Background(), dest, false)
		assert.NoError(t, err)
		assert.True(t, downloaded)
	})

	t.Run("should always download with force", func(t *testing.T) {
		requests := []string{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.Method)
			w.Write([]byte(payload)) // nolint:errcheck
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "nvd.json")
		assert.NoError(t, os.WriteFile(dest, []byte(strings.Repeat("x", minBulkSize)), 0600))

		downloaded, err := NewNVDService(server.URL).Refresh(context.Background(), dest, true)
		assert.NoError(t, err)
		assert.True(t, downloaded)
		assert.Equal(t, []string{http.MethodGet}, requests)
	})
}

func TestWalkRecords(t *testing.T) {
	t.Run("should only visit record files", func(t *testing.T) {
		dir := t.TempDir()
		recordDir := filepath.Join(dir, "cves", "2025", "1xxx")
		assert.NoError(t, os.MkdirAll(recordDir, 0755))
		assert.NoError(t, os.WriteFile(filepath.Join(recordDir, "CVE-2025-1234.json"), []byte("{}"), 0600))
		assert.NoError(t, os.WriteFile(filepath.Join(recordDir, "delta.json"), []byte("{}"), 0600))
		assert.NoError(t, os.WriteFile(filepath.Join(dir, "cves", "deltaLog.json"), []byte("{}"), 0600))

		visited := []string{}
		err := NewCvelistService("").WalkRecords(dir, func(path string) error {
			visited = append(visited, filepath.Base(path))
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, []string{"CVE-2025-1234.json"}, visited)
	})
}

func TestVerify(t *testing.T) {
	t.Run("should reject a missing bulk feed", func(t *testing.T) {
		assert.Error(t, VerifyBulk(filepath.Join(t.TempDir(), "nope.json")))
	})

	t.Run("should reject a clone without records", func(t *testing.T) {
		assert.Error(t, VerifyClone(t.TempDir()))
	})

	t.Run("should accept a clone with a record", func(t *testing.T) {
		dir := t.TempDir()
		assert.NoError(t, os.MkdirAll(filepath.Join(dir, "cves"), 0755))
		assert.NoError(t, os.WriteFile(filepath.Join(dir, "cves", "CVE-2025-1.json"), []byte("{}"), 0600))
		assert.NoError(t, VerifyClone(dir))
	})
}
