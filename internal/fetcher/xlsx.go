// Package fetcher loads venue seed data from local XLSX and JSON files
// into the store.
package fetcher

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/crowdsense/vibesense/internal/model"
)

// XLSXOptions configures the venue spreadsheet parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // number of header rows to skip, default 1
}

// ReadVenuesXLSX reads venues from a spreadsheet with the column layout
// id, name, type, address, lat, lng. A missing id gets a generated UUID;
// rows without a name are skipped.
func ReadVenuesXLSX(path string, opts XLSXOptions) ([]model.Venue, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	skip := opts.SkipRows
	if skip == 0 {
		skip = 1
	}

	var venues []model.Venue
	for i, row := range sheet.Rows {
		if i < skip {
			continue
		}
		v, ok := rowToVenue(row)
		if !ok {
			continue
		}
		venues = append(venues, v)
	}

	return venues, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToVenue(row *xlsx.Row) (model.Venue, bool) {
	cell := func(i int) string {
		if i < len(row.Cells) {
			return strings.TrimSpace(row.Cells[i].String())
		}
		return ""
	}

	v := model.Venue{
		ID:      cell(0),
		Name:    cell(1),
		Type:    cell(2),
		Address: cell(3),
	}
	if v.Name == "" {
		return model.Venue{}, false
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if lat, err := strconv.ParseFloat(cell(4), 64); err == nil {
		v.Lat = lat
	}
	if lng, err := strconv.ParseFloat(cell(5), 64); err == nil {
		v.Lng = lng
	}
	return v, true
}
