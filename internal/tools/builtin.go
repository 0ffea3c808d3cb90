package tools

import (
	"context"
	"errors"

	"github.com/RichardoC/csvchat/internal/dataset"
	"github.com/RichardoC/csvchat/internal/query"
	"go.uber.org/zap"
)

var filePathProperty = Property{
	Type:        "string",
	Description: "Path to the CSV file. If empty or not provided, uses the active or default dataset.",
}

// NewDefaultRegistry registers the three dataset tools.
func NewDefaultRegistry(fallback string, logger *zap.Logger) (*Registry, error) {
	return NewRegistry(fallback, logger,
		&Tool{
			ID:          Inspect,
			Description: "Reads the CSV file and returns its shape, column names, and first 5 rows.",
			Schema: Schema{
				Properties: map[string]Property{ArgFilePath: filePathProperty},
			},
			Execute: inspect,
		},
		&Tool{
			ID: AnalyzeColumn,
			Description: "Provides detailed statistics for one column of the CSV file. Numeric columns get mean, " +
				"standard deviation, min, quartiles, max and missing values; categorical columns get unique " +
				"values, value counts and missing values.",
			Schema: Schema{
				Required: []string{ArgColumnName},
				Properties: map[string]Property{
					ArgColumnName: {Type: "string", Description: "Name of the column to analyze"},
					ArgFilePath:   filePathProperty,
				},
			},
			Execute: analyzeColumn,
		},
		&Tool{
			ID: Query,
			Description: "Answers natural language queries about the CSV file: count rows, list columns, " +
				"summary statistics, unique values in <column>, sum/mean/max/min of <column>.",
			Schema: Schema{
				Required: []string{ArgQuery},
				Properties: map[string]Property{
					ArgQuery:    {Type: "string", Description: "Natural language query about the CSV data"},
					ArgFilePath: filePathProperty,
				},
			},
			Execute: queryData,
		},
	)
}

func inspect(_ context.Context, path string, _ map[string]any) string {
	d, err := dataset.Load(path)
	if err != nil {
		return "Error reading CSV file: " + err.Error()
	}
	return dataset.Describe(d).String()
}

func analyzeColumn(_ context.Context, path string, args map[string]any) string {
	column, _ := StringArg(args, ArgColumnName)
	d, err := dataset.Load(path)
	if err != nil {
		return "Error analyzing column: " + err.Error()
	}
	stats, err := dataset.ColumnStatistics(d, column)
	if err != nil {
		if errors.Is(err, dataset.ErrUnknownColumn) {
			return "Error: " + err.Error()
		}
		return "Error analyzing column: " + err.Error()
	}
	return stats.String()
}

func queryData(_ context.Context, path string, args map[string]any) string {
	text, _ := StringArg(args, ArgQuery)
	d, err := dataset.Load(path)
	if err != nil {
		return "Error processing query: " + err.Error()
	}
	return query.Resolve(d, text)
}
