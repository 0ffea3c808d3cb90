// Package query answers free-text questions about a dataset by matching them
// against a fixed catalog of intents, without calling a language model.
//
// Detection is case-insensitive and first-match-wins in this order: row count,
// list columns, summary, unique values, aggregate, unrecognized. Column names
// are found by plain substring search in table order, so a query naming two
// columns resolves to whichever comes first in the file.
package query

import (
	"fmt"
	"strings"

	"github.com/RichardoC/csvchat/internal/dataset"
)

type IntentKind int

const (
	IntentUnrecognized IntentKind = iota
	IntentRowCount
	IntentListColumns
	IntentSummary
	IntentUniqueValues
	IntentAggregate
)

func (k IntentKind) String() string {
	switch k {
	case IntentRowCount:
		return "row-count"
	case IntentListColumns:
		return "list-columns"
	case IntentSummary:
		return "summary"
	case IntentUniqueValues:
		return "unique-values"
	case IntentAggregate:
		return "aggregate"
	default:
		return "unrecognized"
	}
}

// Intent is the outcome of detection. Column is empty when no suitable
// column was named; Op is set only for aggregates.
type Intent struct {
	Kind   IntentKind
	Op     string
	Column string
	Text   string
}

// maxUniqueShown caps how many distinct values a unique-values answer lists.
const maxUniqueShown = 20

var (
	rowCountPhrases = []string{"count rows", "how many rows", "number of rows", "row count"}
	columnPhrases   = []string{"list columns", "what columns", "column names", "show columns"}
	summaryPhrases  = []string{"summary statistics", "describe", "overview", "summary"}
	aggregateOps    = []string{"sum", "mean", "average", "max", "min"}
)

// Detect classifies text against d's columns.
func Detect(d *dataset.Dataset, text string) Intent {
	lower := strings.ToLower(text)
	intent := Intent{Text: text}

	switch {
	case containsAny(lower, rowCountPhrases):
		intent.Kind = IntentRowCount
	case containsAny(lower, columnPhrases):
		intent.Kind = IntentListColumns
	case containsAny(lower, summaryPhrases):
		intent.Kind = IntentSummary
	case strings.Contains(lower, "unique"):
		intent.Kind = IntentUniqueValues
		intent.Column = firstColumnIn(d, lower, false)
	default:
		for _, op := range aggregateOps {
			if strings.Contains(lower, op) {
				intent.Kind = IntentAggregate
				intent.Op = op
				intent.Column = firstColumnIn(d, lower, true)
				break
			}
		}
	}
	return intent
}

// Resolve answers text directly from d.
func Resolve(d *dataset.Dataset, text string) string {
	intent := Detect(d, text)

	switch intent.Kind {
	case IntentRowCount:
		return fmt.Sprintf("The CSV file has %d rows.", d.NumRows())

	case IntentListColumns:
		return fmt.Sprintf("Columns in the CSV file: %s", strings.Join(d.Columns(), ", "))

	case IntentSummary:
		return "Summary Statistics:\n\n" + dataset.Summarize(d).String()

	case IntentUniqueValues:
		if intent.Column == "" {
			return "Please specify which column to show unique values for."
		}
		col, _ := d.Column(intent.Column)
		values := col.Unique()
		result := fmt.Sprintf("Unique values in '%s': ", intent.Column)
		if len(values) <= maxUniqueShown {
			return result + strings.Join(values, ", ")
		}
		return result + strings.Join(values[:maxUniqueShown], ", ") +
			fmt.Sprintf(", ... and %d more", len(values)-maxUniqueShown)

	case IntentAggregate:
		if intent.Column == "" {
			return fmt.Sprintf("Could not find a numeric column for %s operation in the query.", intent.Op)
		}
		col, _ := d.Column(intent.Column)
		value := aggregate(intent.Op, col.Numbers())
		return fmt.Sprintf("The %s of '%s' is: %s", intent.Op, intent.Column, dataset.FormatFloat(value))
	}

	return "I can help with queries like:\n" +
		"- Count rows\n" +
		"- List columns\n" +
		"- Summary statistics\n" +
		"- Show unique values in a column\n" +
		"- Calculate sum/mean/max/min of a column\n\n" +
		fmt.Sprintf("Your query: '%s' didn't match any of these patterns. Please rephrase.", text)
}

func aggregate(op string, xs []float64) float64 {
	switch op {
	case "sum":
		return dataset.Sum(xs)
	case "mean", "average":
		return dataset.Mean(xs)
	case "max":
		return dataset.Max(xs)
	default:
		return dataset.Min(xs)
	}
}

// firstColumnIn returns the first column in table order whose lowercased
// name occurs in lower, optionally restricted to numeric columns.
func firstColumnIn(d *dataset.Dataset, lower string, numericOnly bool) string {
	for i := 0; i < d.NumColumns(); i++ {
		col := d.ColumnAt(i)
		if !strings.Contains(lower, strings.ToLower(col.Name())) {
			continue
		}
		if numericOnly && !col.IsNumeric() {
			continue
		}
		return col.Name()
	}
	return ""
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
