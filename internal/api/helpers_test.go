package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/export"
	"github.com/wikiroute/wikiroute/internal/models"
	"github.com/wikiroute/wikiroute/internal/titles"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func testIndex() *titles.Index {
	b := titles.NewBuilder()
	for _, e := range []models.TitleEntry{
		{ID: 1, Title: "Alpha"},
		{ID: 2, Title: "Alphabet"},
		{ID: 3, Title: "Beta"},
		{ID: 4, Title: "New York City"},
	} {
		b.Add(e)
	}

	return b.Build()
}

// testGraph has 1<->2 reciprocal, 1->3 and 4->1 one-way.
func testGraph(t *testing.T) *export.Adjacency {
	t.Helper()

	path := filepath.Join(t.TempDir(), "graph.csv")
	if err := os.WriteFile(path, []byte("1,2,2\n1,3,1\n2,1,2\n4,1,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	adj, err := export.LoadAdjacency(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadAdjacency: %v", err)
	}

	return adj
}

// doRequest performs a GET against the handler and returns the recorder.
func doRequest(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	req.RemoteAddr = "192.0.2.1:1234"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}

	return v
}
