package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, scrapesTotal)
	require.NotNil(t, cacheEventsTotal)
	require.NotNil(t, poolAvailable)
}

func TestObserversDoNotPanic(t *testing.T) {
	Init()

	ObserveScrape("success", 2*time.Second)
	ObserveScrape("content_not_ready", 25*time.Second)
	ObserveCacheHit()
	ObserveCacheMiss()
	SetPoolAvailable(2)
	ObserveDroppedLineItems(1)
	ObserveDroppedLineItems(0)
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	Init()

	router := chi.NewRouter()
	router.Use(Middleware)
	router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.String())
}
