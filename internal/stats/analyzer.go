package stats

import (
	"fmt"
	"time"

	"github.com/avmapper/metarcal/internal/cache"
	"github.com/avmapper/metarcal/internal/metar"
)

// HourStats is the flight condition distribution for one UTC hour of day.
// The four fractions sum to 1. Category order is fixed VFR, MVFR, IFR,
// LIFR for stable rendering.
type HourStats struct {
	Hour    int     `json:"hour"`
	VFR     float64 `json:"vfr"`
	MVFR    float64 `json:"mvfr"`
	IFR     float64 `json:"ifr"`
	LIFR    float64 `json:"lifr"`
	Samples int     `json:"samples"`
}

// Distribution is the per-hour flight condition profile of one airport
// for one calendar month, pooled across every year in the archive window.
// Hours with no data are absent. Computed fresh per request; the hourly
// summary beneath it is the cached artifact.
type Distribution struct {
	Airport string      `json:"airport"`
	Month   time.Month  `json:"month"`
	Hours   []HourStats `json:"hours"`
}

// Analyzer aggregates hourly summaries into monthly distributions.
type Analyzer struct {
	summarizer *metar.Summarizer
}

// NewAnalyzer creates an analyzer over a summarizer targeting the given
// archive endpoint; an empty archiveURL selects the IEM default.
func NewAnalyzer(c *cache.Cache, archiveURL string) *Analyzer {
	return &Analyzer{summarizer: metar.NewSummarizer(c, archiveURL)}
}

// MonthlyDistribution classifies every summarized hour falling in the
// requested calendar month and reduces the counts to fractions per UTC
// hour of day.
func (a *Analyzer) MonthlyDistribution(airport string, month time.Month) (*Distribution, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	airport = metar.NormalizeCode(airport)

	summary, err := a.summarizer.Get(airport)
	if err != nil {
		return nil, err
	}

	var counts [24][VFR + 1]int
	var totals [24]int
	for _, row := range summary {
		t := row.Time.UTC()
		if t.Month() != month {
			continue
		}
		condition := Classify(row.Ceiling, row.Visibility)
		counts[t.Hour()][condition]++
		totals[t.Hour()]++
	}

	dist := &Distribution{Airport: airport, Month: month}
	for hour := 0; hour < 24; hour++ {
		total := totals[hour]
		if total == 0 {
			continue
		}
		dist.Hours = append(dist.Hours, HourStats{
			Hour:    hour,
			VFR:     float64(counts[hour][VFR]) / float64(total),
			MVFR:    float64(counts[hour][MVFR]) / float64(total),
			IFR:     float64(counts[hour][IFR]) / float64(total),
			LIFR:    float64(counts[hour][LIFR]) / float64(total),
			Samples: total,
		})
	}
	return dist, nil
}
