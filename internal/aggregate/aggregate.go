// Package aggregate builds peer comparison tables from company fundamentals.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/verrerie/finx-sub000/internal/provider"
)

// PeerResult is the outcome of fetching one peer. Exactly one of Info and
// Err is meaningful.
type PeerResult struct {
	Symbol string
	Info   provider.CompanyInfo
	Err    error
}

// Row is one line of a comparison.
type Row struct {
	Symbol string              `json:"symbol"`
	Name   string              `json:"name,omitempty"`
	Target bool                `json:"target,omitempty"`
	Values map[string]*float64 `json:"values,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Table is a target company compared against its sector peers.
type Table struct {
	Sector  string              `json:"sector"`
	Metrics []Metric            `json:"-"`
	Rows    []Row               `json:"rows"`
	Average map[string]*float64 `json:"peer_average"`
}

// Build assembles the table. The target comes first, then successful peers
// sorted by symbol, then failed peers. The peer average skips the target,
// failed rows and missing values.
func Build(sector string, target provider.CompanyInfo, peers []PeerResult, metrics []Metric) Table {
	t := Table{Sector: sector, Metrics: metrics}
	t.Rows = append(t.Rows, row(target, metrics, true))

	var ok, failed []Row
	for _, p := range peers {
		if p.Err != nil {
			failed = append(failed, Row{Symbol: p.Symbol, Error: p.Err.Error()})
			continue
		}
		ok = append(ok, row(p.Info, metrics, false))
	}
	sort.Slice(ok, func(i, j int) bool { return ok[i].Symbol < ok[j].Symbol })
	sort.Slice(failed, func(i, j int) bool { return failed[i].Symbol < failed[j].Symbol })
	t.Rows = append(t.Rows, ok...)
	t.Rows = append(t.Rows, failed...)

	t.Average = make(map[string]*float64, len(metrics))
	for _, m := range metrics {
		var sum float64
		var n int
		for _, r := range ok {
			if v := r.Values[m.Key]; v != nil {
				sum += *v
				n++
			}
		}
		if n > 0 {
			avg := sum / float64(n)
			t.Average[m.Key] = &avg
		} else {
			t.Average[m.Key] = nil
		}
	}
	return t
}

func row(info provider.CompanyInfo, metrics []Metric, target bool) Row {
	r := Row{Symbol: info.Symbol, Name: info.Name, Target: target, Values: make(map[string]*float64, len(metrics))}
	for _, m := range metrics {
		r.Values[m.Key] = m.Value(info)
	}
	return r
}

// Format renders the table as aligned text followed by metric definitions.
func (t Table) Format() string {
	var b strings.Builder
	target := t.Rows[0]
	fmt.Fprintf(&b, "Peer comparison for %s (%s)\n\n", target.Symbol, t.Sector)

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	header := []string{"Symbol", "Name"}
	for _, m := range t.Metrics {
		header = append(header, m.Label)
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, r := range t.Rows {
		symbol := r.Symbol
		if r.Target {
			symbol += " *"
		}
		if r.Error != "" {
			fmt.Fprintf(w, "%s\terror: %s\n", symbol, r.Error)
			continue
		}
		cells := []string{symbol, truncate(r.Name, 28)}
		for _, m := range t.Metrics {
			cells = append(cells, display(m, r.Values[m.Key]))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	avg := []string{"Peer avg", ""}
	for _, m := range t.Metrics {
		avg = append(avg, display(m, t.Average[m.Key]))
	}
	fmt.Fprintln(w, strings.Join(avg, "\t"))
	_ = w.Flush()

	b.WriteString("\n* target\n")
	for _, m := range t.Metrics {
		fmt.Fprintf(&b, "%s: %s\n", m.Label, m.Description)
	}
	return b.String()
}

func display(m Metric, v *float64) string {
	if v == nil {
		return "N/A"
	}
	return m.Format(*v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
