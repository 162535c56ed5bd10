package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordQuery(t *testing.T) {
	before := testutil.ToFloat64(QueriesTotal.WithLabelValues("similar", "ok"))

	RecordQuery("similar", "ok", 2*time.Millisecond)
	RecordQuery("similar", "ok", time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(QueriesTotal.WithLabelValues("similar", "ok")))
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("miss"))
	evictions := testutil.ToFloat64(CacheEvictionsTotal)

	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheMiss()
	RecordCacheEviction()

	assert.Equal(t, hits+1, testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("miss")))
	assert.Equal(t, evictions+1, testutil.ToFloat64(CacheEvictionsTotal))
}

func TestSetCorpus(t *testing.T) {
	SetCorpus(610, 12000)

	assert.Equal(t, 610.0, testutil.ToFloat64(CorpusEntities))
	assert.Equal(t, 12000.0, testutil.ToFloat64(CorpusBuckets))
}

func TestRecordBuild(t *testing.T) {
	ok := testutil.ToFloat64(CorpusBuildsTotal.WithLabelValues("ok"))
	failed := testutil.ToFloat64(CorpusBuildsTotal.WithLabelValues("error"))

	RecordBuild(nil, time.Second)
	RecordBuild(errors.New("boom"), time.Second)

	assert.Equal(t, ok+1, testutil.ToFloat64(CorpusBuildsTotal.WithLabelValues("ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(CorpusBuildsTotal.WithLabelValues("error")))
}
