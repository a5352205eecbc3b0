package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/miretskiy/cucumber/simulator"
)

// LoadJobs reads the job request file at path. See ReadJobs.
func LoadJobs(path string, cfg simulator.Config) ([]*simulator.Job, error) {
	return openFile(path, func(name string, r io.Reader) ([]*simulator.Job, error) {
		return ReadJobs(name, r, cfg)
	})
}

// ReadJobs parses job requests: the first column is the arrival time, and
// the size and deadline columns are looked up by name. A job is kept only if
// it arrives strictly inside (cfg.Start, cfg.End) and is due before
// cfg.Final. Job IDs are row numbers, counting the rows that were dropped.
func ReadJobs(name string, r io.Reader, cfg simulator.Config) ([]*simulator.Job, error) {
	t, err := newTable(name, r)
	if err != nil {
		return nil, err
	}
	cols, err := t.require(ColSize, ColDeadline)
	if err != nil {
		return nil, err
	}

	var jobs []*simulator.Job
	for id := 0; ; id++ {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		arrival, err := t.timestamp(rec, 0, "arrival")
		if err != nil {
			return nil, err
		}
		size, err := t.float(rec, cols[0], ColSize)
		if err != nil {
			return nil, err
		}
		deadline, err := t.timestamp(rec, cols[1], ColDeadline)
		if err != nil {
			return nil, err
		}
		if !arrival.After(cfg.Start) || !arrival.Before(cfg.End) || !deadline.Before(cfg.Final) {
			continue
		}
		job, err := simulator.NewJob(id, arrival, size, deadline)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: line %d", name, t.line)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// SaveRequests writes job requests to path. See WriteRequests.
func SaveRequests(path string, jobs []*simulator.Job) error {
	return createFile(path, func(w io.Writer) error { return WriteRequests(w, jobs) })
}

// WriteRequests writes jobs in the format ReadJobs reads. Only the request
// is written; progress and decisions are not.
func WriteRequests(w io.Writer, jobs []*simulator.Job) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"", ColSize, ColDeadline}); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, j := range jobs {
		row := []string{
			j.Arrival().Format(simulator.TimestampLayout),
			formatFloat(j.Size()),
			j.Deadline().Format(simulator.TimestampLayout),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write job %d", j.ID())
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush requests")
}

// SaveJobRecords writes per-job results to path. See WriteJobRecords.
func SaveJobRecords(path string, records []simulator.JobRecord) error {
	return createFile(path, func(w io.Writer) error { return WriteJobRecords(w, records) })
}

// WriteJobRecords writes one row per job. Unfinished jobs have NotFinished
// as finish time.
func WriteJobRecords(w io.Writer, records []simulator.JobRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "status", "mch", "arrive time", "finish time", "deadline"}); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, r := range records {
		finish := NotFinished
		if r.FinishTime != nil {
			finish = r.FinishTime.Format(simulator.TimestampLayout)
		}
		row := []string{
			strconv.Itoa(r.ID),
			string(r.Status),
			formatFloat(r.Size),
			r.Arrival.Format(simulator.TimestampLayout),
			finish,
			r.Deadline.Format(simulator.TimestampLayout),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write job %d", r.ID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush job records")
}

// createFile creates path and hands it to write
func createFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create result file")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close result file")
		}
	}()
	return write(f)
}
