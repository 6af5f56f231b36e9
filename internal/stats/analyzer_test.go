package stats

import (
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/avmapper/metarcal/internal/cache"
	"github.com/avmapper/metarcal/internal/storage"
)

// Four March hour-10 observations across two years (VFR, MVFR, VFR, LIFR),
// one March hour-11 observation (IFR), and one April observation that must
// be filtered out of a March request.
const marchCSV = `station,valid,vsby,skyc1,skyl1,skyc2,skyl2,skyc3,skyl3,skyc4,skyl4
KPAO,2023-03-01 10:00,10.00,BKN,5000,,,,,,
KPAO,2023-03-02 10:00,4.00,OVC,1500,,,,,,
KPAO,2024-03-01 10:00,10.00,CLR,,,,,,,
KPAO,2024-03-02 10:00,0.50,VV,100,,,,,,
KPAO,2023-03-01 11:00,2.00,BKN,800,,,,,,
KPAO,2023-04-01 10:00,10.00,CLR,,,,,,,
`

func newTestAnalyzer(t *testing.T, payload string) (*Analyzer, *int) {
	t.Helper()
	fetches := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		*fetches++
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	backend, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return NewAnalyzer(cache.New(backend), srv.URL), fetches
}

func TestMonthlyDistribution(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, marchCSV)

	dist, err := analyzer.MonthlyDistribution("kpao", time.March)
	if err != nil {
		t.Fatalf("MonthlyDistribution: %v", err)
	}

	if dist.Airport != "KPAO" {
		t.Errorf("Airport = %q, want KPAO", dist.Airport)
	}
	if dist.Month != time.March {
		t.Errorf("Month = %v, want March", dist.Month)
	}

	want := []HourStats{
		{Hour: 10, VFR: 0.5, MVFR: 0.25, IFR: 0, LIFR: 0.25, Samples: 4},
		{Hour: 11, VFR: 0, MVFR: 0, IFR: 1, LIFR: 0, Samples: 1},
	}
	if !reflect.DeepEqual(dist.Hours, want) {
		t.Errorf("Hours = %+v, want %+v", dist.Hours, want)
	}
}

func TestMonthlyDistributionFractionsSumToOne(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, marchCSV)

	dist, err := analyzer.MonthlyDistribution("KPAO", time.March)
	if err != nil {
		t.Fatalf("MonthlyDistribution: %v", err)
	}
	if len(dist.Hours) == 0 {
		t.Fatal("no hours in distribution")
	}

	for _, h := range dist.Hours {
		sum := h.VFR + h.MVFR + h.IFR + h.LIFR
		if math.Abs(sum-1.0) > 1e-3 {
			t.Errorf("hour %d fractions sum to %v, want 1.0", h.Hour, sum)
		}
	}
}

func TestMonthlyDistributionOmitsEmptyMonth(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, marchCSV)

	dist, err := analyzer.MonthlyDistribution("KPAO", time.July)
	if err != nil {
		t.Fatalf("MonthlyDistribution: %v", err)
	}
	if len(dist.Hours) != 0 {
		t.Errorf("July Hours = %+v, want empty", dist.Hours)
	}
}

func TestMonthlyDistributionIdempotent(t *testing.T) {
	analyzer, fetches := newTestAnalyzer(t, marchCSV)

	first, err := analyzer.MonthlyDistribution("KPAO", time.March)
	if err != nil {
		t.Fatalf("MonthlyDistribution: %v", err)
	}
	second, err := analyzer.MonthlyDistribution("KPAO", time.March)
	if err != nil {
		t.Fatalf("MonthlyDistribution (repeat): %v", err)
	}

	if *fetches != 1 {
		t.Errorf("upstream fetched %d times, want 1", *fetches)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated request differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestMonthlyDistributionInvalidMonth(t *testing.T) {
	analyzer, fetches := newTestAnalyzer(t, marchCSV)

	for _, month := range []time.Month{0, 13} {
		if _, err := analyzer.MonthlyDistribution("KPAO", month); err == nil {
			t.Errorf("MonthlyDistribution(month=%d) succeeded, want error", month)
		}
	}
	if *fetches != 0 {
		t.Errorf("invalid month triggered %d fetches", *fetches)
	}
}

// Two observations in the same hour reduce to worst visibility 4.0 and
// worst ceiling 1500, which classifies as MVFR.
func TestMonthlyDistributionWorstCaseHour(t *testing.T) {
	payload := `station,valid,vsby,skyc1,skyl1,skyc2,skyl2,skyc3,skyl3,skyc4,skyl4
KPAO,2024-06-10 10:05,10.00,BKN,3000,,,,,,
KPAO,2024-06-10 10:45,4.00,OVC,1500,,,,,,
`
	analyzer, _ := newTestAnalyzer(t, payload)

	dist, err := analyzer.MonthlyDistribution("KPAO", time.June)
	if err != nil {
		t.Fatalf("MonthlyDistribution: %v", err)
	}

	want := []HourStats{{Hour: 10, VFR: 0, MVFR: 1, IFR: 0, LIFR: 0, Samples: 1}}
	if !reflect.DeepEqual(dist.Hours, want) {
		t.Errorf("Hours = %+v, want %+v", dist.Hours, want)
	}
}
