package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gocrud/objects/object"
	"github.com/gocrud/objects/reflection"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{}

type loop struct{ next *loop }

func newLoop(next *loop) *loop { return &loop{next: next} }

func TestCollector_RecordsManagerActivity(t *testing.T) {
	r := reflection.NewRegistry()
	_, err := r.Register("Clock", (*clock)(nil))
	require.NoError(t, err)
	_, err = r.Register("Loop", newLoop)
	require.NoError(t, err)

	c := NewCollector("test")
	m := object.NewManager(r, object.WithMetrics(c))
	require.NoError(t, m.Register("Clock", "", nil))
	require.NoError(t, m.Register("Loop", "", nil))

	_, err = m.Get("Clock")
	require.NoError(t, err)
	_, err = m.Get("Clock")
	require.NoError(t, err)
	_, err = m.Get("Loop")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ObjectsBuilt.WithLabelValues("Clock", "singleton")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BuildFailures.WithLabelValues("Loop", "circular_dependency")))

	graph, err := object.NewSerializer(m).Serialize(&struct{ Name string }{Name: "x"})
	require.NoError(t, err)
	assert.Len(t, graph, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SerializedObjects))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.CacheHit("Clock")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_object_cache_hits_total 1"))
}
