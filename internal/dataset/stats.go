package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// topValues is how many entries a categorical frequency table shows.
const topValues = 10

// ColumnStats describes one column. Numeric fields are set only for numeric
// columns, frequency fields only for categorical ones. Floats are rounded to
// two decimals.
type ColumnStats struct {
	Column         string
	Kind           Kind
	Count          int
	Missing        int
	MissingPercent float64

	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64

	Unique    int
	Top       []ValueCount
	Remaining int
}

// ColumnStatistics computes stats for the named column.
func ColumnStatistics(d *Dataset, name string) (ColumnStats, error) {
	col, err := d.Column(name)
	if err != nil {
		return ColumnStats{}, err
	}

	stats := ColumnStats{
		Column:  name,
		Kind:    col.Kind(),
		Missing: col.MissingCount(),
	}
	stats.Count = col.Len() - stats.Missing
	if col.Len() > 0 {
		stats.MissingPercent = round2(float64(stats.Missing) / float64(col.Len()) * 100)
	}

	if col.IsNumeric() {
		xs := col.Numbers()
		sorted := append([]float64(nil), xs...)
		sort.Float64s(sorted)
		stats.Mean = round2(Mean(xs))
		stats.Std = round2(StdDev(xs))
		stats.Min = round2(Min(xs))
		stats.Q1 = round2(Quantile(sorted, 0.25))
		stats.Median = round2(Quantile(sorted, 0.50))
		stats.Q3 = round2(Quantile(sorted, 0.75))
		stats.Max = round2(Max(xs))
		return stats, nil
	}

	counts := col.ValueCounts()
	stats.Unique = len(counts)
	if len(counts) > topValues {
		stats.Remaining = len(counts) - topValues
		counts = counts[:topValues]
	}
	stats.Top = counts
	return stats, nil
}

func (s ColumnStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis of column '%s':\n\n", s.Column)
	fmt.Fprintf(&b, "Missing values: %d (%.2f%%)\n\n", s.Missing, s.MissingPercent)
	fmt.Fprintf(&b, "Column Type: %s\n\n", s.Kind)

	if s.Kind == KindNumeric {
		fmt.Fprintf(&b, "Mean: %s\n", FormatFloat(s.Mean))
		fmt.Fprintf(&b, "Standard Deviation: %s\n", FormatFloat(s.Std))
		fmt.Fprintf(&b, "Min: %s\n", FormatFloat(s.Min))
		fmt.Fprintf(&b, "25th Percentile (Q1): %s\n", FormatFloat(s.Q1))
		fmt.Fprintf(&b, "50th Percentile (Median): %s\n", FormatFloat(s.Median))
		fmt.Fprintf(&b, "75th Percentile (Q3): %s\n", FormatFloat(s.Q3))
		fmt.Fprintf(&b, "Max: %s\n", FormatFloat(s.Max))
		return b.String()
	}

	fmt.Fprintf(&b, "Unique values: %d\n\n", s.Unique)
	b.WriteString("Value counts:\n")
	for _, vc := range s.Top {
		fmt.Fprintf(&b, "  %s: %d\n", vc.Value, vc.Count)
	}
	if s.Remaining > 0 {
		fmt.Fprintf(&b, "  ... and %d more unique values\n", s.Remaining)
	}
	return b.String()
}

// Sum adds xs; the sum of nothing is 0.
func Sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

// Mean is NaN for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return Sum(xs) / float64(len(xs))
}

// StdDev is the sample standard deviation (n-1). It is NaN below two values.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func Min(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}

func Max(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return m
}

// Quantile returns the p-quantile of sorted using linear interpolation
// between closest ranks.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// FormatFloat renders v with two decimals and NaN as "nan".
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.2f", v)
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}

func sortCountsDesc(counts []ValueCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
}
