// Package settings reads the per-subject settings sheet: a CSV file with one
// header row and one row per subject.
package settings

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Columns is the required header of the settings sheet.
var Columns = []string{
	"Subject",
	"Hopper Duration (ms)",
	"Rejection FI Duration (ms)",
	"Informative Side",
	"Informative S+",
	"Informative S-",
	"Non-Informative Side",
	"Non-Informative S+",
	"Non-Informative S-",
}

// TestSubject is the operator's dry-run subject. It runs with shortened timings
// and falls back to built-in settings when the sheet has no row for it.
const TestSubject = "TEST"

// row mirrors one line of the sheet.
type row struct {
	Subject              string `mapstructure:"Subject"`
	HopperMS             int    `mapstructure:"Hopper Duration (ms)"`
	RejectionFIMS        int    `mapstructure:"Rejection FI Duration (ms)"`
	InformativeSide      string `mapstructure:"Informative Side"`
	InformativeSPlus     string `mapstructure:"Informative S+"`
	InformativeSMinus    string `mapstructure:"Informative S-"`
	NonInformativeSide   string `mapstructure:"Non-Informative Side"`
	NonInformativeSPlus  string `mapstructure:"Non-Informative S+"`
	NonInformativeSMinus string `mapstructure:"Non-Informative S-"`
}

func (r row) subject() (domain.SubjectConfig, error) {
	side, err := domain.ParseSide(r.InformativeSide)
	if err != nil {
		return domain.SubjectConfig{}, fmt.Errorf("%w: %v", domain.ErrMalformedSettings, err)
	}
	if strings.TrimSpace(r.NonInformativeSide) != "" {
		other, err := domain.ParseSide(r.NonInformativeSide)
		if err != nil {
			return domain.SubjectConfig{}, fmt.Errorf("%w: %v", domain.ErrMalformedSettings, err)
		}
		if other == side {
			return domain.SubjectConfig{}, fmt.Errorf("%w: both options are on the %s side", domain.ErrMalformedSettings, side)
		}
	}

	cfg := domain.SubjectConfig{
		SubjectID:           strings.TrimSpace(r.Subject),
		HopperDuration:      time.Duration(r.HopperMS) * time.Millisecond,
		RejectionFIDuration: time.Duration(r.RejectionFIMS) * time.Millisecond,
		InformativeSide:     side,
		Colors: domain.StimulusColors{
			SPlus:  strings.TrimSpace(r.InformativeSPlus),
			SMinus: strings.TrimSpace(r.InformativeSMinus),
			S1:     strings.TrimSpace(r.NonInformativeSPlus),
			S2:     strings.TrimSpace(r.NonInformativeSMinus),
		},
	}
	if err := cfg.Validate(); err != nil {
		return domain.SubjectConfig{}, err
	}
	return cfg, nil
}

// Sheet is a parsed settings file.
type Sheet struct {
	subjects map[string]domain.SubjectConfig
	errs     map[string]error
	order    []string
}

// Load opens and parses the settings file at path.
// A missing file yields domain.ErrSettingsNotFound.
func Load(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSettingsNotFound, path)
		}
		return nil, fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()

	sheet, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sheet, nil
}

// Parse reads a settings sheet. A leading UTF-8 byte order mark is ignored.
// Rows that fail to decode are kept as errors and reported when their subject is requested.
func Parse(r io.Reader) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", domain.ErrMalformedSettings, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", domain.ErrMalformedSettings, strings.Join(missing, ", "))
	}

	sheet := &Sheet{
		subjects: make(map[string]domain.SubjectConfig),
		errs:     make(map[string]error),
	}
	line := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrMalformedSettings, line, err)
		}
		if blank(fields) {
			continue
		}

		values := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(fields) {
				values[col] = strings.TrimSpace(fields[i])
			}
		}
		id := values["Subject"]
		if id == "" {
			return nil, fmt.Errorf("%w: line %d has no subject", domain.ErrMalformedSettings, line)
		}
		if _, dup := sheet.subjects[id]; dup {
			return nil, fmt.Errorf("%w: subject %s appears twice", domain.ErrMalformedSettings, id)
		}
		if _, dup := sheet.errs[id]; dup {
			return nil, fmt.Errorf("%w: subject %s appears twice", domain.ErrMalformedSettings, id)
		}
		sheet.order = append(sheet.order, id)

		cfg, err := decode(values)
		if err != nil {
			sheet.errs[id] = fmt.Errorf("line %d: %w", line, err)
			continue
		}
		sheet.subjects[id] = cfg
	}
	return sheet, nil
}

func decode(values map[string]string) (domain.SubjectConfig, error) {
	var r row
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.DecodeHookFuncType(wholeNumberHook),
		ErrorUnused: false,
		ErrorUnset:  true,
		Result:      &r,
	})
	if err != nil {
		return domain.SubjectConfig{}, err
	}
	if err := decoder.Decode(values); err != nil {
		return domain.SubjectConfig{}, fmt.Errorf("%w: %v", domain.ErrMalformedSettings, err)
	}
	return r.subject()
}

// wholeNumberHook reads integer cells in base 10. A leading zero is not octal,
// and an empty cell is an error rather than zero.
func wholeNumberHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Int {
		return data, nil
	}
	cell := strings.TrimSpace(data.(string))
	if cell == "" {
		return nil, errors.New("value is empty")
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		return nil, fmt.Errorf("%q is not a whole number", cell)
	}
	return n, nil
}

// Subject returns the configuration of one subject.
func (s *Sheet) Subject(id string) (domain.SubjectConfig, error) {
	if err, ok := s.errs[id]; ok {
		return domain.SubjectConfig{}, fmt.Errorf("subject %s: %w", id, err)
	}
	cfg, ok := s.subjects[id]
	if !ok {
		return domain.SubjectConfig{}, fmt.Errorf("%w: %s", domain.ErrSubjectNotFound, id)
	}
	return cfg, nil
}

// Subjects lists the subject IDs in sheet order, including rows that failed to decode.
func (s *Sheet) Subjects() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Errors returns the decode error of every malformed row, keyed by subject.
func (s *Sheet) Errors() map[string]error {
	out := make(map[string]error, len(s.errs))
	for k, v := range s.errs {
		out[k] = v
	}
	return out
}

// LoadSubject loads the sheet and returns one subject. The TEST subject falls back
// to DefaultTestSubject when it has no row.
func LoadSubject(path, id string) (domain.SubjectConfig, error) {
	sheet, err := Load(path)
	if err != nil {
		if id == TestSubject && errors.Is(err, domain.ErrSettingsNotFound) {
			return DefaultTestSubject(), nil
		}
		return domain.SubjectConfig{}, err
	}
	cfg, err := sheet.Subject(id)
	if id == TestSubject && errors.Is(err, domain.ErrSubjectNotFound) {
		return DefaultTestSubject(), nil
	}
	return cfg, err
}

// DefaultTestSubject is used for TEST when the sheet has no row for it.
func DefaultTestSubject() domain.SubjectConfig {
	return domain.SubjectConfig{
		SubjectID:           TestSubject,
		HopperDuration:      2 * time.Second,
		RejectionFIDuration: 2 * time.Second,
		InformativeSide:     domain.SideLeft,
		Colors: domain.StimulusColors{
			SPlus:  "green",
			SMinus: "red",
			S1:     "blue",
			S2:     "yellow",
		},
	}
}

func missingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range Columns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
