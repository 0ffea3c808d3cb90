package dataset

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrNotFound), "directories are not datasets")
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"too many fields", "a,b\n1,2,3\n"},
		{"bare quote", "a,b\n1,\"2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeCSV(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse), "got %v", err)
		})
	}
}

func TestLoad_InfersKindsAndMissing(t *testing.T) {
	d, err := Load(writeCSV(t, "age,city,score\n10,Paris,1.5\n20,,NA\n30,Rome,2\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, d.NumRows())
	assert.Equal(t, []string{"age", "city", "score"}, d.Columns())

	age, err := d.Column("age")
	require.NoError(t, err)
	assert.True(t, age.IsNumeric())
	assert.Equal(t, "10", age.Display(0))

	city, err := d.Column("city")
	require.NoError(t, err)
	assert.False(t, city.IsNumeric())
	assert.Equal(t, 1, city.MissingCount())
	assert.Equal(t, "nan", city.Display(1))

	score, err := d.Column("score")
	require.NoError(t, err)
	assert.True(t, score.IsNumeric())
	assert.Equal(t, []float64{1.5, 2}, score.Numbers())
	assert.Equal(t, "2.0", score.Display(2))
}

func TestLoad_HeaderOnlyIsCategorical(t *testing.T) {
	d, err := Load(writeCSV(t, "age,city\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, d.NumRows())
	for _, name := range d.Columns() {
		col, err := d.Column(name)
		require.NoError(t, err)
		assert.Equal(t, KindCategorical, col.Kind(), name)
	}

	// All-missing columns with rows stay numeric.
	d, err = Load(writeCSV(t, "age,city\nNA,x\n,y\n"))
	require.NoError(t, err)
	age, err := d.Column("age")
	require.NoError(t, err)
	assert.True(t, age.IsNumeric())
}

func TestLoad_PadsShortRowsAndDedupesHeader(t *testing.T) {
	d, err := Load(writeCSV(t, "a,a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "b"}, d.Columns())

	b, err := d.Column("b")
	require.NoError(t, err)
	assert.Equal(t, 1, b.MissingCount())
}

func TestDescribe(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("age,city\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&sb, "%d,c%d\n", 20+i, i)
	}
	d, err := Load(writeCSV(t, sb.String()))
	require.NoError(t, err)

	desc := Describe(d)
	assert.Equal(t, 8, desc.RowCount)
	assert.Equal(t, 2, desc.ColumnCount)
	assert.Len(t, desc.Preview, 5)

	out := desc.String()
	assert.Contains(t, out, "Shape: 8 rows x 2 columns")
	assert.Contains(t, out, "Column Names: age, city")
	assert.Contains(t, out, "First 5 rows:")
	assert.Contains(t, out, "c4")
	assert.NotContains(t, out, "c5")
}

func TestColumnStatistics_Numeric(t *testing.T) {
	d, err := Load(writeCSV(t, "age\n10\n20\n30\n\n"))
	require.NoError(t, err)

	stats, err := ColumnStatistics(d, "age")
	require.NoError(t, err)

	assert.Equal(t, KindNumeric, stats.Kind)
	assert.Equal(t, 0, stats.Missing)
	assert.Equal(t, 20.0, stats.Mean)
	assert.Equal(t, 10.0, stats.Std)
	assert.Equal(t, 10.0, stats.Min)
	assert.Equal(t, 15.0, stats.Q1)
	assert.Equal(t, 20.0, stats.Median)
	assert.Equal(t, 25.0, stats.Q3)
	assert.Equal(t, 30.0, stats.Max)

	out := stats.String()
	assert.Contains(t, out, "Column Type: Numeric")
	assert.Contains(t, out, "Mean: 20.00")
	assert.Contains(t, out, "25th Percentile (Q1): 15.00")
}

func TestColumnStatistics_QuartilesOrdered(t *testing.T) {
	inputs := [][]float64{
		{5},
		{3, 1},
		{1, 1, 1, 1},
		{-4.2, 7.7, 0.01, 3.333, 100, -50},
		{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
	}

	for i, xs := range inputs {
		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			var sb strings.Builder
			sb.WriteString("v\n")
			for _, x := range xs {
				fmt.Fprintf(&sb, "%v\n", x)
			}
			d, err := Load(writeCSV(t, sb.String()))
			require.NoError(t, err)

			s, err := ColumnStatistics(d, "v")
			require.NoError(t, err)
			assert.LessOrEqual(t, s.Min, s.Q1)
			assert.LessOrEqual(t, s.Q1, s.Median)
			assert.LessOrEqual(t, s.Median, s.Q3)
			assert.LessOrEqual(t, s.Q3, s.Max)
		})
	}
}

func TestColumnStatistics_MissingPercent(t *testing.T) {
	d, err := Load(writeCSV(t, "x,y\n1,a\n,b\n3,c\n,d\n"))
	require.NoError(t, err)

	s, err := ColumnStatistics(d, "x")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Missing)
	assert.Equal(t, 50.0, s.MissingPercent)
	assert.Contains(t, s.String(), "Missing values: 2 (50.00%)")
}

func TestColumnStatistics_Categorical(t *testing.T) {
	d, err := Load(writeCSV(t, "city\nParis\nRome\nParis\nOslo\nRome\nParis\n"))
	require.NoError(t, err)

	s, err := ColumnStatistics(d, "city")
	require.NoError(t, err)
	assert.Equal(t, KindCategorical, s.Kind)
	assert.Equal(t, 3, s.Unique)
	assert.Equal(t, []ValueCount{{"Paris", 3}, {"Rome", 2}, {"Oslo", 1}}, s.Top)
	assert.Zero(t, s.Remaining)
	assert.NotContains(t, s.String(), "more unique values")
}

func TestColumnStatistics_CategoricalTopTen(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("code\n")
	for i := 0; i < 14; i++ {
		fmt.Fprintf(&sb, "k%d\n", i)
	}
	d, err := Load(writeCSV(t, sb.String()))
	require.NoError(t, err)

	s, err := ColumnStatistics(d, "code")
	require.NoError(t, err)
	assert.Equal(t, 14, s.Unique)
	assert.Len(t, s.Top, 10)
	assert.Equal(t, 4, s.Remaining)
	assert.Contains(t, s.String(), "  ... and 4 more unique values\n")
}

func TestColumnStatistics_UnknownColumn(t *testing.T) {
	d, err := Load(writeCSV(t, "age,city\n1,a\n"))
	require.NoError(t, err)

	_, err = ColumnStatistics(d, "salary")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	var uce *UnknownColumnError
	require.True(t, errors.As(err, &uce))
	assert.Equal(t, []string{"age", "city"}, uce.Available)
	assert.Equal(t, "Column 'salary' not found. Available columns: age, city", err.Error())
}

func TestAggregates_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Sum(nil))
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(StdDev([]float64{1})))
	assert.True(t, math.IsNaN(Max(nil)))
	assert.Equal(t, "nan", FormatFloat(math.NaN()))
}

func TestSummarize(t *testing.T) {
	d, err := Load(writeCSV(t, "age,city\n10,Paris\n20,Rome\n30,Paris\n"))
	require.NoError(t, err)

	s := Summarize(d)
	assert.Equal(t, []string{"count", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max"}, s.Labels)

	cell := func(label, column string) string {
		for r, l := range s.Labels {
			if l != label {
				continue
			}
			for c, name := range s.Columns {
				if name == column {
					return s.Cells[r][c]
				}
			}
		}
		t.Fatalf("no cell %s/%s", label, column)
		return ""
	}
	assert.Equal(t, "3", cell("count", "age"))
	assert.Equal(t, "20.00", cell("mean", "age"))
	assert.Equal(t, "NaN", cell("top", "age"))
	assert.Equal(t, "Paris", cell("top", "city"))
	assert.Equal(t, "2", cell("freq", "city"))
	assert.Equal(t, "NaN", cell("mean", "city"))
}

func TestSummarize_NumericOnlyOmitsFrequencyRows(t *testing.T) {
	d, err := Load(writeCSV(t, "a,b\n1,2\n3,4\n"))
	require.NoError(t, err)
	assert.NotContains(t, Summarize(d).Labels, "top")
}

func TestWriteDemo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DemoFilename)
	require.NoError(t, WriteDemo(path))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, d.NumRows())
	assert.Contains(t, d.Columns(), "salary")

	require.NoError(t, os.WriteFile(path, []byte("x\n1\n"), 0o644))
	require.NoError(t, WriteDemo(path))
	d, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, d.NumRows(), "existing file must not be overwritten")
}
