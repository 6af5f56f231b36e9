package metar

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/avmapper/metarcal/internal/cache"
	"github.com/avmapper/metarcal/internal/metrics"
)

// NoCeiling is the sentinel ceiling for an observation with no broken,
// overcast, or vertical-visibility layer.
const NoCeiling = 100000

// validLayout is the timestamp format of the archive's "valid" column.
const validLayout = "2006-01-02 15:04"

// HourlySummary is the worst visibility and ceiling observed during one
// UTC clock hour. Time is truncated to the start of the hour.
type HourlySummary struct {
	Time       time.Time
	Visibility float64
	Ceiling    float64
}

// observation is one parsed archive record.
type observation struct {
	time       time.Time
	visibility float64
	hasVis     bool
	ceiling    float64
}

type skyLayer struct {
	condition string
	height    float64
	hasHeight bool
}

// Summarizer reduces the raw archive to one (min visibility, min ceiling)
// row per hour, cached as a columnar parquet blob.
type Summarizer struct {
	cache     *cache.Cache
	retriever *Retriever
}

// NewSummarizer creates a summarizer whose retriever targets the given
// archive endpoint; an empty archiveURL selects DefaultBaseURL.
func NewSummarizer(c *cache.Cache, archiveURL string) *Summarizer {
	return &Summarizer{cache: c, retriever: NewRetriever(c, archiveURL)}
}

// Get returns the hourly summary series for an airport, computing and
// caching it on a miss. Rows are unique per hour and sorted ascending.
func (s *Summarizer) Get(airport string) ([]HourlySummary, error) {
	airport = NormalizeCode(airport)

	blob, err := s.cache.Get(airport+"_summarized.parquet", func() ([]byte, error) {
		rows, err := s.summarize(airport)
		if err != nil {
			return nil, err
		}
		return marshalSummary(rows)
	})
	if err != nil {
		return nil, err
	}
	return unmarshalSummary(blob)
}

func (s *Summarizer) summarize(airport string) ([]HourlySummary, error) {
	raw, err := s.retriever.Get(airport)
	if err != nil {
		return nil, err
	}

	obs, err := parseObservations(raw)
	if err != nil {
		return nil, fmt.Errorf("parse archive for %s: %w", airport, err)
	}

	rows := reduceHourly(obs)
	log.Printf("%s: reduced %d observations to %d hourly rows", airport, len(obs), len(rows))
	metrics.SummariesComputedTotal.WithLabelValues(airport).Inc()
	return rows, nil
}

// parseObservations reads the archive CSV, deriving each observation's
// visibility and ceiling. Malformed fields are treated as missing rather
// than failing the parse; records without a usable timestamp are skipped.
func parseObservations(raw []byte) ([]observation, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	validCol, ok := cols["valid"]
	if !ok {
		return nil, fmt.Errorf("archive response has no %q column", "valid")
	}
	vsbyCol, ok := cols["vsby"]
	if !ok {
		return nil, fmt.Errorf("archive response has no %q column", "vsby")
	}

	var skyCols [4]struct{ condition, height int }
	for i := range skyCols {
		skyCols[i].condition = colIndex(cols, fmt.Sprintf("skyc%d", i+1))
		skyCols[i].height = colIndex(cols, fmt.Sprintf("skyl%d", i+1))
	}

	var obs []observation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		t, err := time.ParseInLocation(validLayout, field(record, validCol), time.UTC)
		if err != nil {
			continue
		}

		o := observation{time: t, ceiling: NoCeiling}
		if v, err := strconv.ParseFloat(field(record, vsbyCol), 64); err == nil {
			o.visibility = v
			o.hasVis = true
		}

		var layers [4]skyLayer
		for i, sc := range skyCols {
			layers[i].condition = field(record, sc.condition)
			if h, err := strconv.ParseFloat(field(record, sc.height), 64); err == nil {
				layers[i].height = h
				layers[i].hasHeight = true
			}
		}
		o.ceiling = observationCeiling(layers)

		obs = append(obs, o)
	}
	return obs, nil
}

// observationCeiling is the lowest layer reported broken, overcast, or
// vertical visibility. Scattered, few, and clear layers never establish a
// ceiling, nor do layers missing either field.
func observationCeiling(layers [4]skyLayer) float64 {
	ceiling := float64(NoCeiling)
	for _, l := range layers {
		if l.condition == "" || !l.hasHeight {
			continue
		}
		if l.condition != "BKN" && l.condition != "OVC" && l.condition != "VV" {
			continue
		}
		if l.height < ceiling {
			ceiling = l.height
		}
	}
	return ceiling
}

// reduceHourly groups observations by their UTC hour and keeps the minimum
// present visibility and minimum ceiling of each group. Hours where no
// observation reported visibility are dropped: a row with no visibility
// cannot be classified, and defaulting it to zero would invent weather.
func reduceHourly(obs []observation) []HourlySummary {
	type agg struct {
		visibility float64
		hasVis     bool
		ceiling    float64
	}

	hours := map[time.Time]*agg{}
	for _, o := range obs {
		hour := o.time.Truncate(time.Hour)
		a, ok := hours[hour]
		if !ok {
			a = &agg{ceiling: o.ceiling}
			hours[hour] = a
		} else if o.ceiling < a.ceiling {
			a.ceiling = o.ceiling
		}
		if o.hasVis && (!a.hasVis || o.visibility < a.visibility) {
			a.visibility = o.visibility
			a.hasVis = true
		}
	}

	rows := make([]HourlySummary, 0, len(hours))
	for hour, a := range hours {
		if !a.hasVis {
			continue
		}
		rows = append(rows, HourlySummary{Time: hour, Visibility: a.visibility, Ceiling: a.ceiling})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	return rows
}

func colIndex(cols map[string]int, name string) int {
	if i, ok := cols[name]; ok {
		return i
	}
	return -1
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// summaryRow is the columnar on-disk form of HourlySummary. Timestamps are
// Unix seconds; rows are hour-truncated so nothing finer is lost.
type summaryRow struct {
	Valid   int64   `parquet:"valid"`
	Vsby    float64 `parquet:"vsby"`
	Ceiling float64 `parquet:"ceiling"`
}

func marshalSummary(rows []HourlySummary) ([]byte, error) {
	out := make([]summaryRow, len(rows))
	for i, r := range rows {
		out[i] = summaryRow{Valid: r.Time.Unix(), Vsby: r.Visibility, Ceiling: r.Ceiling}
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[summaryRow](&buf)
	if len(out) > 0 {
		if _, err := w.Write(out); err != nil {
			return nil, fmt.Errorf("write parquet: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshalSummary(blob []byte) ([]HourlySummary, error) {
	raw, err := parquet.Read[summaryRow](bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}

	rows := make([]HourlySummary, len(raw))
	for i, r := range raw {
		rows[i] = HourlySummary{
			Time:       time.Unix(r.Valid, 0).UTC(),
			Visibility: r.Vsby,
			Ceiling:    r.Ceiling,
		}
	}
	return rows, nil
}
