// Package metar retrieves raw ASOS/METAR observation archives and reduces
// them to per-hour ceiling and visibility minimums.
package metar

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avmapper/metarcal/internal/cache"
	"github.com/avmapper/metarcal/internal/metrics"
)

// DefaultBaseURL is the Iowa Environmental Mesonet ASOS archive endpoint.
const DefaultBaseURL = "https://mesonet.agron.iastate.edu/cgi-bin/request/asos.py"

// archiveMonths is the trailing window requested from the archive. 37
// months guarantees every calendar month, including the most recent 12,
// has at least a full year of history behind it.
const archiveMonths = 37

// Retriever fetches the raw observation CSV for an airport, caching the
// payload so each airport hits the archive once per cache lifetime.
type Retriever struct {
	cache   *cache.Cache
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewRetriever creates a retriever against the given archive endpoint; an
// empty baseURL selects DefaultBaseURL.
func NewRetriever(c *cache.Cache, baseURL string) *Retriever {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Retriever{
		cache:   c,
		client:  &http.Client{},
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Get returns the raw archive CSV for an airport, fetching on a cache
// miss. Fetch failures are returned as-is; there is no retry.
func (r *Retriever) Get(airport string) ([]byte, error) {
	airport = NormalizeCode(airport)
	return r.cache.Get(airport+".raw.csv", func() ([]byte, error) {
		return r.fetch(airport)
	})
}

func (r *Retriever) fetch(airport string) ([]byte, error) {
	end := r.now().UTC()
	// Request from the first day of the month 37 months back through today.
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -archiveMonths, 0)

	params := url.Values{}
	params.Set("station", airport)
	params.Set("data", "all")
	params.Set("year1", strconv.Itoa(start.Year()))
	params.Set("month1", strconv.Itoa(int(start.Month())))
	params.Set("day1", "1")
	params.Set("year2", strconv.Itoa(end.Year()))
	params.Set("month2", strconv.Itoa(int(end.Month())))
	params.Set("day2", strconv.Itoa(end.Day()))
	params.Set("tz", "Etc/UTC")
	params.Set("format", "onlycomma")
	params.Set("latlon", "no")
	params.Set("elev", "no")
	params.Set("missing", "empty")
	params.Set("trace", "T")
	params.Set("direct", "no")
	params.Add("report_type", "3")
	params.Add("report_type", "4")

	log.Printf("fetching archive data for %s", airport)

	resp, err := r.client.Get(r.baseURL + "?" + params.Encode())
	if err != nil {
		metrics.ArchiveFetchesTotal.WithLabelValues(airport, "transport_error").Inc()
		return nil, fmt.Errorf("fetch archive for %s: %w", airport, err)
	}
	defer resp.Body.Close()

	metrics.ArchiveFetchesTotal.WithLabelValues(airport, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("archive returned status %d for %s: %s", resp.StatusCode, airport, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive response for %s: %w", airport, err)
	}

	log.Printf("fetched %d bytes for %s", len(body), airport)
	return body, nil
}

// NormalizeCode trims and uppercases an airport code for use as a cache
// key and request parameter.
func NormalizeCode(airport string) string {
	return strings.ToUpper(strings.TrimSpace(airport))
}
