package dataset

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"

	"github.com/miretskiy/cucumber/simulator"
)

// LoadForecasts reads the capacity forecast file at path. See ReadForecasts.
func LoadForecasts(path string, cfg simulator.Config) ([]simulator.ForecastRecord, error) {
	return openFile(path, func(name string, r io.Reader) ([]simulator.ForecastRecord, error) {
		return ReadForecasts(name, r, cfg)
	})
}

// ReadForecasts parses capacity forecasts. The first two columns are the
// issuance and target times; capacity columns are looked up by name. Only
// forecasts issued within [cfg.Start, cfg.Final] are kept.
func ReadForecasts(name string, r io.Reader, cfg simulator.Config) ([]simulator.ForecastRecord, error) {
	t, err := newTable(name, r)
	if err != nil {
		return nil, err
	}
	names := []string{
		ColUFree, ColUFreePred, ColUReep,
		ColUReepPredExpected, ColUReepPredConservative, ColUReepPredOptimistic,
	}
	cols, err := t.require(names...)
	if err != nil {
		return nil, err
	}

	var out []simulator.ForecastRecord
	values := make([]float64, len(cols))
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		issued, err := t.timestamp(rec, 0, "issued")
		if err != nil {
			return nil, err
		}
		if issued.Before(cfg.Start) || issued.After(cfg.Final) {
			continue
		}
		target, err := t.timestamp(rec, 1, "target")
		if err != nil {
			return nil, err
		}
		for i, c := range cols {
			if values[i], err = t.float(rec, c, names[i]); err != nil {
				return nil, err
			}
		}
		out = append(out, simulator.ForecastRecord{
			IssuedAt:              issued,
			TargetAt:              target,
			UFree:                 values[0],
			UFreePred:             values[1],
			UReep:                 values[2],
			UReepPredExpected:     values[3],
			UReepPredConservative: values[4],
			UReepPredOptimistic:   values[5],
		})
	}
	return out, nil
}

// SaveForecasts writes forecasts to path. See WriteForecasts.
func SaveForecasts(path string, records []simulator.ForecastRecord) error {
	return createFile(path, func(w io.Writer) error { return WriteForecasts(w, records) })
}

// WriteForecasts writes forecasts in the format ReadForecasts reads
func WriteForecasts(w io.Writer, records []simulator.ForecastRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		"issued", "target",
		ColUFree, ColUFreePred, ColUReep,
		ColUReepPredExpected, ColUReepPredConservative, ColUReepPredOptimistic,
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, r := range records {
		row := []string{
			r.IssuedAt.Format(simulator.TimestampLayout),
			r.TargetAt.Format(simulator.TimestampLayout),
			formatFloat(r.UFree),
			formatFloat(r.UFreePred),
			formatFloat(r.UReep),
			formatFloat(r.UReepPredExpected),
			formatFloat(r.UReepPredConservative),
			formatFloat(r.UReepPredOptimistic),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write forecast")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush forecasts")
}

// SaveCapacityTable writes the final capacity table to path. See
// WriteCapacityTable.
func SaveCapacityTable(path string, table *simulator.CapacityTable) error {
	return createFile(path, func(w io.Writer) error { return WriteCapacityTable(w, table) })
}

// WriteCapacityTable writes one row per time step
func WriteCapacityTable(w io.Writer, table *simulator.CapacityTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"datetime", "u_freep", "u_free", "u_reep", "u_used"}); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, r := range table.Records() {
		row := []string{
			r.At.Format(simulator.TimestampLayout),
			formatFloat(r.FreeRenewable),
			formatFloat(r.Free),
			formatFloat(r.RenewableExcess),
			formatFloat(r.Used),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write capacity")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush capacity table")
}
