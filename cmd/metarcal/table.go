package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/avmapper/metarcal/internal/stats"
)

// formatTable renders a distribution as an aligned text table, one row per
// UTC hour with percentage columns in fixed VFR, MVFR, IFR, LIFR order.
func formatTable(dist *stats.Distribution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, month %d\n", dist.Airport, int(dist.Month))

	w := tabwriter.NewWriter(&b, 2, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "UTC hour\tVFR\tMVFR\tIFR\tLIFR\tsamples\t")
	for _, h := range dist.Hours {
		fmt.Fprintf(w, "%02d:00\t%s\t%s\t%s\t%s\t%d\t\n",
			h.Hour, pct(h.VFR), pct(h.MVFR), pct(h.IFR), pct(h.LIFR), h.Samples)
	}
	w.Flush()
	return b.String()
}

func pct(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
