package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/operant/pkg/domain"
)

// FileTimeLayout is the session start stamp used in output file names.
const FileTimeLayout = "2006-01-02_15.04.05"

// RecordWriter implements ports.RecordWriter as one CSV file per session:
//
//	<DataDir>/<subject>/<subject>_<YYYY-MM-DD_HH.MM.SS>_<experiment>_data-Phase<n>.csv
type RecordWriter struct {
	DataDir string
}

// NewRecordWriter creates a writer rooted at dataDir. Empty means "data".
func NewRecordWriter(dataDir string) *RecordWriter {
	if dataDir == "" {
		dataDir = "data"
	}
	return &RecordWriter{DataDir: dataDir}
}

// Path returns where the records of meta are written.
func (w *RecordWriter) Path(meta domain.SessionMeta) string {
	return filepath.Join(w.DataDir, meta.SubjectID, FileName(meta))
}

// FileName builds the output file name of a session.
func FileName(meta domain.SessionMeta) string {
	experiment := meta.Experiment
	if experiment == "" {
		experiment = "P037"
	}
	return fmt.Sprintf("%s_%s_%s_data-Phase%d.csv",
		meta.SubjectID, meta.StartedAt.Format(FileTimeLayout), experiment, int(meta.Phase))
}

// WriteRecords writes the header and every record atomically, replacing any
// earlier write of the same session.
func (w *RecordWriter) WriteRecords(ctx context.Context, meta domain.SessionMeta, records []domain.TrialRecord) (string, error) {
	if meta.SubjectID == "" {
		return "", fmt.Errorf("subject ID cannot be empty")
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(domain.RecordHeader); err != nil {
		return "", fmt.Errorf("failed to encode header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.Fields()); err != nil {
			return "", fmt.Errorf("failed to encode trial %d: %w", rec.TrialNumber, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to encode records: %w", err)
	}

	return writeAtomic(filepath.Join(w.DataDir, meta.SubjectID), FileName(meta), buf.Bytes())
}

// ReadRecords parses an output CSV back into records.
func ReadRecords(path string) ([]domain.TrialRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(rows) == 0 || strings.Join(rows[0], ",") != strings.Join(domain.RecordHeader, ",") {
		return nil, fmt.Errorf("%s: unexpected header", path)
	}

	records := make([]domain.TrialRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(row []string) (domain.TrialRecord, error) {
	if len(row) != len(domain.RecordHeader) {
		return domain.TrialRecord{}, fmt.Errorf("expected %d columns, got %d", len(domain.RecordHeader), len(row))
	}
	var (
		rec  domain.TrialRecord
		errs []error
	)
	parse := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	rec.Timestamp, err = time.Parse(time.RFC3339Nano, row[0])
	parse(err)
	rec.TrialNumber, err = strconv.Atoi(row[1])
	parse(err)
	rec.TrialType = domain.TrialType(row[2])
	rec.Block, err = strconv.Atoi(row[3])
	parse(err)
	rec.ChosenOption = domain.Option(row[4])
	rec.Rejected, err = strconv.ParseBool(row[5])
	parse(err)
	rec.RejectionDelayMS, err = strconv.ParseInt(row[6], 10, 64)
	parse(err)
	rec.TouchX, err = strconv.ParseFloat(row[7], 64)
	parse(err)
	rec.TouchY, err = strconv.ParseFloat(row[8], 64)
	parse(err)
	rec.TerminalStimulus = row[9]
	rec.Outcome = domain.Outcome(row[10])
	rec.SubjectID = row[11]
	rec.Phase = row[12]
	rec.LatencyMS, err = strconv.ParseInt(row[13], 10, 64)
	parse(err)
	rec.Anomaly = row[14]

	if len(errs) > 0 {
		return domain.TrialRecord{}, errs[0]
	}
	return rec, nil
}
