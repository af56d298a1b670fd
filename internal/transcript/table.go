// Package transcript reads and writes the flat transcript tables shared by
// every transcript source (sentence level, word level, human reference).
package transcript

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Column names, in output order. Downstream tools depend on these exactly.
const (
	ColCallName = "CallName"
	ColFileNum  = "filenum"
	ColChannel  = "channel"
	ColStart    = "startutt"
	ColStop     = "stoputt"
	ColDuration = "duration"
	ColContent  = "content"
)

// Columns is the header written for every table.
var Columns = []string{ColCallName, ColFileNum, ColChannel, ColStart, ColStop, ColDuration, ColContent}

var requiredColumns = []string{ColCallName, ColChannel, ColStart, ColStop, ColContent}

// Table is one transcript source loaded in file order.
type Table struct {
	Name    string
	Records []types.TranscriptRecord
}

// ReadFile loads a table from a CSV file.
// The returned slice lists rows that were skipped as malformed.
func ReadFile(path string) (*Table, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open transcript table: %w", err)
	}
	defer f.Close()

	return Read(f, path)
}

// Read parses a CSV transcript table. Columns are matched by header name;
// extra columns are ignored. A missing required column is fatal, a bad row is not.
func Read(r io.Reader, name string) (*Table, []error, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%s: %w: empty file", name, types.ErrMissingColumn)
		}
		return nil, nil, fmt.Errorf("read header of %s: %w", name, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		index[h] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("%s: %w: %s", name, types.ErrMissingColumn, col)
		}
	}

	table := &Table{Name: name}
	var skipped []error
	row := 0

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			skipped = append(skipped, &types.MalformedRecordError{Source: name, Row: row, Reason: err.Error()})
			continue
		}

		rec, err := parseRow(fields, index)
		if err != nil {
			skipped = append(skipped, &types.MalformedRecordError{
				Source:      name,
				Row:         row,
				RecordingID: field(fields, index, ColCallName),
				Reason:      err.Error(),
			})
			continue
		}
		table.Records = append(table.Records, rec)
	}

	return table, skipped, nil
}

func parseRow(fields []string, index map[string]int) (types.TranscriptRecord, error) {
	start, err := strconv.ParseFloat(field(fields, index, ColStart), 64)
	if err != nil {
		return types.TranscriptRecord{}, fmt.Errorf("invalid %s: %v", ColStart, err)
	}
	stop, err := strconv.ParseFloat(field(fields, index, ColStop), 64)
	if err != nil {
		return types.TranscriptRecord{}, fmt.Errorf("invalid %s: %v", ColStop, err)
	}

	seq := 0
	if raw := field(fields, index, ColFileNum); raw != "" {
		seq, err = parseFileNum(raw)
		if err != nil {
			return types.TranscriptRecord{}, fmt.Errorf("invalid %s: %v", ColFileNum, err)
		}
	}

	// content keeps its surrounding whitespace; it is the annotation value
	content := ""
	if i, ok := index[ColContent]; ok && i < len(fields) {
		content = fields[i]
	}

	return types.NewTranscriptRecord(
		field(fields, index, ColCallName),
		seq,
		field(fields, index, ColChannel),
		start,
		stop,
		content,
	)
}

// parseFileNum accepts "3" as well as the "3.0" some spreadsheet exports write.
func parseFileNum(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func field(fields []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// Write writes records with the standard header.
func Write(w io.Writer, records []types.TranscriptRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.RecordingID,
			strconv.Itoa(r.SequenceNum),
			r.SpeakerLabel,
			formatSeconds(r.StartSec),
			formatSeconds(r.EndSec),
			formatSeconds(r.Duration()),
			r.Text,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Partition groups records by recording id, keeping file order inside each group.
func (t *Table) Partition() map[string][]types.TranscriptRecord {
	groups := make(map[string][]types.TranscriptRecord)
	if t == nil {
		return groups
	}
	for _, r := range t.Records {
		groups[r.RecordingID] = append(groups[r.RecordingID], r)
	}
	return groups
}

// RecordingIDs returns the distinct recording ids, sorted.
func (t *Table) RecordingIDs() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range t.Records {
		if _, ok := seen[r.RecordingID]; ok {
			continue
		}
		seen[r.RecordingID] = struct{}{}
		ids = append(ids, r.RecordingID)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of records; a nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}
