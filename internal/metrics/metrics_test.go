package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRelease(t *testing.T) {
	before := testutil.ToFloat64(releasesTotal.WithLabelValues("skipped", "extracted"))
	ObserveRelease("skipped", "extracted")
	after := testutil.ToFloat64(releasesTotal.WithLabelValues("skipped", "extracted"))
	if after-before != 1 {
		t.Fatalf("expected releases counter to increase by 1, got %f", after-before)
	}
}

func TestObserveCandidatesAndCycle(t *testing.T) {
	beforeCycles := testutil.ToFloat64(cyclesTotal)
	ObserveCycle()
	if got := testutil.ToFloat64(cyclesTotal) - beforeCycles; got != 1 {
		t.Fatalf("expected cycle counter to increase by 1, got %f", got)
	}

	before := testutil.ToFloat64(candidatesTotal.WithLabelValues("new"))
	ObserveCandidates("new", 2)
	ObserveCandidates("new", 0)
	if got := testutil.ToFloat64(candidatesTotal.WithLabelValues("new")) - before; got != 2 {
		t.Fatalf("expected candidate counter to increase by 2, got %f", got)
	}
}

func TestObserveCandidatesIgnoresNegative(t *testing.T) {
	before := testutil.ToFloat64(candidatesTotal.WithLabelValues("seen"))
	ObserveCandidates("seen", -3)
	if got := testutil.ToFloat64(candidatesTotal.WithLabelValues("seen")) - before; got != 0 {
		t.Fatalf("expected candidate counter unchanged, got %f", got)
	}
}

func TestObserveFetch(t *testing.T) {
	before := testutil.ToFloat64(fetchRequestsTotal.WithLabelValues("NFO", "error"))
	ObserveFetch("NFO", "error")
	if got := testutil.ToFloat64(fetchRequestsTotal.WithLabelValues("NFO", "error")) - before; got != 1 {
		t.Fatalf("expected fetch counter to increase by 1, got %f", got)
	}
}

func TestObserveRender(t *testing.T) {
	ObserveRender("builtin", 250*time.Millisecond)
	if count := testutil.CollectAndCount(renderDurationSeconds); count == 0 {
		t.Fatal("expected render histogram to expose series")
	}
}
