package telemetry

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpersAreNilSafeBeforeInit(t *testing.T) {
	// Must not panic when Init has not run.
	ObserveFetch("static", "satisfied_static")
	AddPersistedRows("sources", 1)
	ObserveTupleFailure()
	ObserveRateLimitDelay("sociotype.xyz", time.Millisecond)
}

func TestInitAndObserve(t *testing.T) {
	Init()
	Init() // idempotent

	ObserveFetch("static", "satisfied_static")
	AddPersistedRows("sources", 2)
	AddPersistedRows("sources", 0)
	ObserveTupleFailure()
	ObserveRateLimitDelay("sociotype.xyz", 50*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "harvester_fetches_total")
	assert.Contains(t, body, "harvester_rows_persisted_total")
	assert.Contains(t, body, "harvester_tuple_failures_total")
	assert.Contains(t, body, "harvester_rate_limit_delay_seconds")
}
