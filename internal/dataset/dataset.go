// Package dataset loads CSV files into immutable in-memory columnar tables and
// computes the descriptive statistics the tools report back to the model.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	ErrNotFound      = errors.New("dataset not found")
	ErrParse         = errors.New("dataset is not valid delimited data")
	ErrUnknownColumn = errors.New("unknown column")
)

// UnknownColumnError reports a column lookup miss together with the names
// that do exist.
type UnknownColumnError struct {
	Column    string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("Column '%s' not found. Available columns: %s", e.Column, strings.Join(e.Available, ", "))
}

func (e *UnknownColumnError) Is(target error) bool {
	return target == ErrUnknownColumn
}

type Kind int

const (
	KindCategorical Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "Numeric"
	}
	return "Categorical"
}

// missingMarkers are the cell values treated as missing, matching the
// defaults most dataframe libraries use when reading CSV.
var missingMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(cell string) bool {
	_, ok := missingMarkers[cell]
	return ok
}

// Column holds the cells of one column. Numeric columns also carry parsed
// values; missing cells are NaN there.
type Column struct {
	name    string
	kind    Kind
	integer bool
	cells   []string
	missing []bool
	values  []float64
}

func (c *Column) Name() string    { return c.name }
func (c *Column) Kind() Kind      { return c.kind }
func (c *Column) IsNumeric() bool { return c.kind == KindNumeric }
func (c *Column) Len() int        { return len(c.cells) }

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.missing {
		if m {
			n++
		}
	}
	return n
}

// Numbers returns the non-missing values of a numeric column in row order.
func (c *Column) Numbers() []float64 {
	if c.kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.values))
	for i, v := range c.values {
		if !c.missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// Display renders cell i the way it is shown to users: missing cells as
// "nan", whole numbers without a fraction in integer columns.
func (c *Column) Display(i int) string {
	if c.missing[i] {
		return "nan"
	}
	if c.kind != KindNumeric {
		return c.cells[i]
	}
	v := c.values[i]
	if c.integer {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Unique returns the distinct display values in first-seen order. Missing
// cells count as one distinct "nan" value.
func (c *Column) Unique() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range c.cells {
		v := c.Display(i)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts returns non-missing values ordered by descending frequency;
// ties keep first-seen order.
func (c *Column) ValueCounts() []ValueCount {
	index := make(map[string]int)
	var counts []ValueCount
	for i := range c.cells {
		if c.missing[i] {
			continue
		}
		v := c.Display(i)
		if j, ok := index[v]; ok {
			counts[j].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, ValueCount{Value: v, Count: 1})
	}
	sortCountsDesc(counts)
	return counts
}

// Dataset is an immutable snapshot of one CSV file.
type Dataset struct {
	Path    string
	columns []*Column
	rows    int
}

func (d *Dataset) NumRows() int    { return d.rows }
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Columns returns the column names in file order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.name
	}
	return names
}

func (d *Dataset) ColumnAt(i int) *Column {
	return d.columns[i]
}

// Column looks a column up by its exact name.
func (d *Dataset) Column(name string) (*Column, error) {
	for _, c := range d.columns {
		if c.name == name {
			return c, nil
		}
	}
	return nil, &UnknownColumnError{Column: name, Available: d.Columns()}
}

// Load reads and parses the CSV file at path. Every call produces a fresh
// snapshot; nothing is cached between calls.
func Load(path string) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, err
	}
	d.Path = path
	return d, nil
}

// Parse builds a Dataset from CSV content whose first record is the header.
func Parse(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no columns to parse", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	names := dedupeNames(header)

	columns := make([]*Column, len(names))
	for i, name := range names {
		columns[i] = &Column{name: name}
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if len(record) > len(columns) {
			return nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d", ErrParse, rows+2, len(columns), len(record))
		}
		for i, c := range columns {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			c.cells = append(c.cells, cell)
			c.missing = append(c.missing, isMissing(cell))
		}
		rows++
	}

	for _, c := range columns {
		inferKind(c)
	}
	return &Dataset{columns: columns, rows: rows}, nil
}

// inferKind marks a column numeric when every present cell parses as a
// number. A column whose cells are all missing is numeric; a column with no
// rows at all is categorical.
func inferKind(c *Column) {
	if len(c.cells) == 0 {
		c.kind = KindCategorical
		return
	}
	values := make([]float64, len(c.cells))
	integer := true
	for i, cell := range c.cells {
		if c.missing[i] {
			values[i] = math.NaN()
			integer = false
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			c.kind = KindCategorical
			return
		}
		if _, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64); err != nil {
			integer = false
		}
		values[i] = v
	}
	c.kind = KindNumeric
	c.values = values
	c.integer = integer
}

func dedupeNames(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := h
		if n, ok := seen[h]; ok {
			for {
				n++
				name = fmt.Sprintf("%s.%d", h, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[h] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
