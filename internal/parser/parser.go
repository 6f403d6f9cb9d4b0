// Package parser turns one match result export into per-player rows.
//
// Parsing never fails: defective cells default to zero and a file without
// usable data reports ok=false so callers treat the match as not yet played.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pable/squad-standings/internal/model"
)

// Column headers of a match export. Lookup ignores case and surrounding
// whitespace; column order is free.
const (
	ColName          = "Name"
	ColKills         = "Kills"
	ColDamage        = "Damage Dealt"
	ColAssists       = "Assists"
	ColWinPlace      = "Win Place"
	ColTimeSurvived  = "Time Survived"
	ColHeadshotKills = "Headshot Kills"
)

// ErrUnsupportedFormat is returned by ParseFile for extensions it has no
// parser for.
var ErrUnsupportedFormat = errors.New("unsupported match file format")

// Func parses raw match file contents.
type Func func(data []byte) ([]model.PlayerMatchRow, bool)

// ForFile picks the parser for a file name by extension. Names without an
// extension are read as CSV.
func ForFile(name string) (Func, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case "", ".csv", ".txt":
		return Parse, nil
	case ".xlsx":
		return ParseXLSX, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseFile dispatches on the file name and parses data.
func ParseFile(name string, data []byte) ([]model.PlayerMatchRow, bool, error) {
	parse, err := ForFile(name)
	if err != nil {
		return nil, false, err
	}
	rows, ok := parse(data)
	return rows, ok, nil
}

// Parse reads a CSV match export. Quoted fields are supported. Records the
// CSV reader rejects are skipped.
func Parse(data []byte) ([]model.PlayerMatchRow, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			break
		}
		records = append(records, rec)
	}
	return fromRecords(records)
}

// ParseXLSX reads the first sheet of an .xlsx match export.
func ParseXLSX(data []byte) ([]model.PlayerMatchRow, bool) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, false
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, false
	}
	return fromRecords(records)
}

type columns struct {
	name, kills, damage, assists, winPlace, survived, headshots int
}

func fromRecords(records [][]string) ([]model.PlayerMatchRow, bool) {
	if len(records) < 2 {
		return nil, false
	}
	cols, ok := locate(records[0])
	if !ok {
		return nil, false
	}
	rows := make([]model.PlayerMatchRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		name := strings.TrimSpace(cell(rec, cols.name))
		if name == "" {
			continue
		}
		rows = append(rows, model.PlayerMatchRow{
			Player:        name,
			Kills:         count(cell(rec, cols.kills)),
			Damage:        amount(cell(rec, cols.damage)),
			Assists:       count(cell(rec, cols.assists)),
			SurvivalTime:  amount(cell(rec, cols.survived)),
			WinPlace:      count(cell(rec, cols.winPlace)),
			HeadshotKills: count(cell(rec, cols.headshots)),
		})
	}
	if len(rows) == 0 {
		return nil, false
	}
	return rows, true
}

// locate maps header names to positions. Only the name column is required;
// a missing stat column reads as zero for every row.
func locate(header []string) (columns, bool) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	find := func(col string) int {
		if i, ok := pos[strings.ToLower(col)]; ok {
			return i
		}
		return -1
	}
	c := columns{
		name:      find(ColName),
		kills:     find(ColKills),
		damage:    find(ColDamage),
		assists:   find(ColAssists),
		winPlace:  find(ColWinPlace),
		survived:  find(ColTimeSurvived),
		headshots: find(ColHeadshotKills),
	}
	return c, c.name >= 0
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// maxValue bounds every numeric cell. Larger values are treated as defective.
const maxValue = math.MaxInt32

// amount parses a non-negative decimal no larger than maxValue. Anything else
// is 0.
func amount(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > maxValue {
		return 0
	}
	return f
}

// count parses a non-negative integer, truncating decimals ("3.0" is 3).
func count(s string) int {
	return int(math.Trunc(amount(s)))
}
