package metar

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/avmapper/metarcal/internal/cache"
	"github.com/avmapper/metarcal/internal/storage"
)

func newTestRetriever(t *testing.T, handler http.Handler) (*Retriever, *storage.Local) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	r := NewRetriever(cache.New(backend), srv.URL)
	r.now = func() time.Time {
		return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	}
	return r, backend
}

func TestRetrieverRequestParameters(t *testing.T) {
	var query url.Values
	r, _ := newTestRetriever(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		query = req.URL.Query()
		w.Write([]byte("station,valid,vsby\n"))
	}))

	if _, err := r.Get("KSFO"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	want := map[string]string{
		"station": "KSFO",
		"data":    "all",
		"year1":   "2021",
		"month1":  "5",
		"day1":    "1",
		"year2":   "2024",
		"month2":  "6",
		"day2":    "15",
		"tz":      "Etc/UTC",
		"format":  "onlycomma",
		"missing": "empty",
	}
	for k, v := range want {
		if got := query.Get(k); got != v {
			t.Errorf("query[%s] = %q, want %q", k, got, v)
		}
	}
	if got := query["report_type"]; !reflect.DeepEqual(got, []string{"3", "4"}) {
		t.Errorf("report_type = %v, want [3 4]", got)
	}
}

func TestRetrieverCachesRawPayload(t *testing.T) {
	fetches := 0
	r, backend := newTestRetriever(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fetches++
		w.Write([]byte("station,valid,vsby\n"))
	}))

	if _, err := r.Get("ksfo"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := r.Get("  KSFO "); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if fetches != 1 {
		t.Errorf("upstream fetched %d times, want 1", fetches)
	}

	// Normalized code forms the cache key.
	data, err := backend.Get("KSFO.raw.csv")
	if err != nil {
		t.Fatalf("backend.Get: %v", err)
	}
	if data == nil {
		t.Error("no cache entry stored under KSFO.raw.csv")
	}
}

func TestRetrieverUpstreamFailurePropagates(t *testing.T) {
	r, backend := newTestRetriever(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))

	if _, err := r.Get("KSFO"); err == nil {
		t.Fatal("Get succeeded against failing upstream")
	}

	data, err := backend.Get("KSFO.raw.csv")
	if err != nil {
		t.Fatalf("backend.Get: %v", err)
	}
	if data != nil {
		t.Errorf("failed fetch cached %q", data)
	}
}
