package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ExportPrometheus renders every registered metric in the Prometheus text
// exposition format. Stanzas are ordered counters, gauges, histograms,
// summaries, and by name within each kind.
//
// Histograms are rendered as _sum and _count series only; no _bucket
// series are produced. Use Collector with Handler for a fully compliant
// scrape endpoint.
func (r *Registry) ExportPrometheus() string {
	snap := r.GetAllMetrics()

	var b strings.Builder
	for _, c := range snap.Counters {
		writeHeader(&b, c.Name, c.Help, KindCounter)
		writeSample(&b, c.Name, c.Labels, "", "", c.Value)
	}
	for _, g := range snap.Gauges {
		writeHeader(&b, g.Name, g.Help, KindGauge)
		writeSample(&b, g.Name, g.Labels, "", "", g.Value)
	}
	for _, h := range snap.Histograms {
		writeHeader(&b, h.Name, h.Help, KindHistogram)
		writeSample(&b, h.Name+"_sum", h.Labels, "", "", h.Sum)
		writeSample(&b, h.Name+"_count", h.Labels, "", "", float64(h.Count))
	}
	for _, s := range snap.Summaries {
		writeHeader(&b, s.Name, s.Help, KindSummary)
		for _, q := range s.Quantiles {
			writeSample(&b, s.Name, s.Labels, "quantile", formatFloat(q.Quantile), q.Value)
		}
		writeSample(&b, s.Name+"_sum", s.Labels, "", "", s.Sum)
		writeSample(&b, s.Name+"_count", s.Labels, "", "", float64(s.Count))
	}
	return b.String()
}

func writeHeader(b *strings.Builder, name, help string, kind Kind) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(string(kind))
	b.WriteByte('\n')
}

// writeSample writes one series line. extraKey/extraValue, when set, are
// appended after the metric's own sorted labels.
func writeSample(b *strings.Builder, name string, labels Labels, extraKey, extraValue string, v float64) {
	b.WriteString(name)

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) > 0 || extraKey != "" {
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeLabel(b, k, labels[k])
		}
		if extraKey != "" {
			if len(keys) > 0 {
				b.WriteByte(',')
			}
			writeLabel(b, extraKey, extraValue)
		}
		b.WriteByte('}')
	}

	b.WriteByte(' ')
	b.WriteString(formatFloat(v))
	b.WriteByte('\n')
}

func writeLabel(b *strings.Builder, k, v string) {
	b.WriteString(k)
	b.WriteString(`="`)
	b.WriteString(escapeLabelValue(v))
	b.WriteByte('"')
}

var (
	labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
)

func escapeLabelValue(s string) string { return labelEscaper.Replace(s) }

func escapeHelp(s string) string { return helpEscaper.Replace(s) }

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}
