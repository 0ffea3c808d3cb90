package dataset

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// DemoFilename is the name the bundled fallback dataset is written under.
const DemoFilename = "demo_data.csv"

//go:embed demo_data.csv
var demoCSV []byte

// WriteDemo writes the bundled demo dataset to path unless a file already
// exists there.
func WriteDemo(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create demo dataset directory: %w", err)
	}
	if err := os.WriteFile(path, demoCSV, 0o644); err != nil {
		return fmt.Errorf("failed to write demo dataset: %w", err)
	}
	return nil
}
