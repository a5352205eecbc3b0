// Package dataset reads job request and capacity forecast CSV files and
// writes experiment results in the same tabular format.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/miretskiy/cucumber/simulator"
)

// Column names of the input datasets
const (
	ColSize                  = "size"
	ColDeadline              = "deadline"
	ColUFree                 = "u_free"
	ColUFreePred             = "u_free_pred"
	ColUReep                 = "u_reep"
	ColUReepPredExpected     = "u_reep_pred_expected"
	ColUReepPredConservative = "u_reep_pred_conservative"
	ColUReepPredOptimistic   = "u_reep_pred_optimistic"
)

// NotFinished marks a job without finish time in result files
const NotFinished = "-"

var timestampLayouts = []string{
	simulator.TimestampLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339Nano,
	"2006-01-02",
}

// JobsPath returns the request file of a scenario
func JobsPath(dir, scenario string) string {
	return filepath.Join(dir, fmt.Sprintf("requests_%s.csv", scenario))
}

// ForecastsPath returns the capacity forecast file of a scenario at a site
func ForecastsPath(dir, scenario, site string) string {
	return filepath.Join(dir, fmt.Sprintf("u_%s_%s.csv", scenario, site))
}

// JobResultsPath returns where the per-job results of an experiment go
func JobResultsPath(dir, scenario, site string, p simulator.Policy) string {
	return filepath.Join(dir, fmt.Sprintf("jobs_%s_%s_%s.csv", scenario, site, p))
}

// CapacityResultsPath returns where the final capacity table of an experiment goes
func CapacityResultsPath(dir, scenario, site string, p simulator.Policy) string {
	return filepath.Join(dir, fmt.Sprintf("u_%s_%s_%s.csv", scenario, site, p))
}

// ParseTimestamp parses the timestamp formats found in the datasets. Values
// without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// table is a CSV file with a header row
type table struct {
	name    string
	r       *csv.Reader
	columns map[string]int
	line    int
}

func newTable(name string, r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read header", name)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.TrimSpace(h)] = i
	}
	return &table{name: name, r: cr, columns: columns, line: 1}, nil
}

// require returns the positions of the named columns
func (t *table) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	var missing []string
	for i, n := range names {
		pos, ok := t.columns[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		idx[i] = pos
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("%s: missing columns %s", t.name, strings.Join(missing, ", "))
	}
	return idx, nil
}

// next returns the next record, or io.EOF
func (t *table) next() ([]string, error) {
	rec, err := t.r.Read()
	if err == io.EOF {
		return nil, err
	}
	t.line++
	if err != nil {
		return nil, errors.Wrapf(err, "%s: line %d", t.name, t.line)
	}
	return rec, nil
}

func (t *table) errorf(format string, args ...interface{}) error {
	return errors.Errorf("%s: line %d: %s", t.name, t.line, fmt.Sprintf(format, args...))
}

func (t *table) float(rec []string, col int, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
	if err != nil {
		return 0, t.errorf("column %s: %v", name, err)
	}
	return v, nil
}

func (t *table) timestamp(rec []string, col int, name string) (time.Time, error) {
	v, err := ParseTimestamp(rec[col])
	if err != nil {
		return time.Time{}, t.errorf("column %s: %v", name, err)
	}
	return v, nil
}

// openFile opens path for reading and hands it to read
func openFile[T any](path string, read func(name string, r io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, errors.Wrap(err, "open dataset")
	}
	defer f.Close()
	return read(filepath.Base(path), f)
}
