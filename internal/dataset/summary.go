package dataset

import (
	"math"
	"sort"
	"strconv"
)

// Summary is a per-column descriptive table covering every column. Row
// labels follow the usual describe() layout; cells that do not apply to a
// column's kind are "NaN".
type Summary struct {
	Columns []string
	Labels  []string
	Cells   [][]string // Cells[row][column]
}

// Summarize describes all columns of d.
func Summarize(d *Dataset) Summary {
	var hasNumeric, hasCategorical bool
	for i := 0; i < d.NumColumns(); i++ {
		if d.ColumnAt(i).IsNumeric() {
			hasNumeric = true
		} else {
			hasCategorical = true
		}
	}

	labels := []string{"count"}
	if hasCategorical {
		labels = append(labels, "unique", "top", "freq")
	}
	if hasNumeric {
		labels = append(labels, "mean", "std", "min", "25%", "50%", "75%", "max")
	}

	cells := make([][]string, len(labels))
	for r := range cells {
		cells[r] = make([]string, d.NumColumns())
	}
	for c := 0; c < d.NumColumns(); c++ {
		values := summarizeColumn(d.ColumnAt(c))
		for r, label := range labels {
			v, ok := values[label]
			if !ok {
				v = "NaN"
			}
			cells[r][c] = v
		}
	}
	return Summary{Columns: d.Columns(), Labels: labels, Cells: cells}
}

func summarizeColumn(col *Column) map[string]string {
	out := map[string]string{
		"count": strconv.Itoa(col.Len() - col.MissingCount()),
	}
	if !col.IsNumeric() {
		counts := col.ValueCounts()
		out["unique"] = strconv.Itoa(len(counts))
		if len(counts) > 0 {
			out["top"] = counts[0].Value
			out["freq"] = strconv.Itoa(counts[0].Count)
		}
		return out
	}

	xs := col.Numbers()
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	for label, v := range map[string]float64{
		"mean": Mean(xs),
		"std":  StdDev(xs),
		"min":  Min(xs),
		"25%":  Quantile(sorted, 0.25),
		"50%":  Quantile(sorted, 0.50),
		"75%":  Quantile(sorted, 0.75),
		"max":  Max(xs),
	} {
		if math.IsNaN(v) {
			out[label] = "NaN"
			continue
		}
		out[label] = FormatFloat(v)
	}
	return out
}

func (s Summary) String() string {
	rows := make([][]string, len(s.Labels))
	for i, label := range s.Labels {
		rows[i] = append([]string{label}, s.Cells[i]...)
	}
	return renderTable(append([]string{""}, s.Columns...), rows)
}
