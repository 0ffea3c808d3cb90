package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
)

const previewRows = 5

// Description is the shape and a short preview of a dataset.
type Description struct {
	RowCount    int
	ColumnCount int
	ColumnNames []string
	Preview     [][]string
}

// Describe returns the dataset shape and up to five preview rows.
func Describe(d *Dataset) Description {
	n := min(d.NumRows(), previewRows)
	preview := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, d.NumColumns())
		for j := range row {
			row[j] = d.ColumnAt(j).Display(i)
		}
		preview[i] = row
	}
	return Description{
		RowCount:    d.NumRows(),
		ColumnCount: d.NumColumns(),
		ColumnNames: d.Columns(),
		Preview:     preview,
	}
}

func (desc Description) String() string {
	var b strings.Builder
	b.WriteString("CSV File Information:\n")
	fmt.Fprintf(&b, "Shape: %d rows x %d columns\n\n", desc.RowCount, desc.ColumnCount)
	fmt.Fprintf(&b, "Column Names: %s\n\n", strings.Join(desc.ColumnNames, ", "))

	rows := make([][]string, len(desc.Preview))
	for i, r := range desc.Preview {
		rows[i] = append([]string{strconv.Itoa(i)}, r...)
	}
	fmt.Fprintf(&b, "First 5 rows:\n%s\n", renderTable(append([]string{""}, desc.ColumnNames...), rows))
	return b.String()
}

// renderTable lays cells out in right-aligned columns with the header on the
// first line. The result has no trailing newline.
func renderTable(header []string, rows [][]string) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	writeRow := func(cells []string) {
		for _, c := range cells {
			fmt.Fprintf(w, "%s\t", c)
		}
		fmt.Fprintln(w)
	}
	writeRow(header)
	for _, r := range rows {
		writeRow(r)
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
