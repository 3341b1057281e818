package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/model"
	"github.com/iliyamo/store-locator/internal/repository"
)

// requiredColumns must all appear in the CSV header; a missing one fails
// the whole batch before any row is processed.
var requiredColumns = []string{
	"store_id", "name", "store_type",
	"address_street", "address_city", "address_state", "address_postal_code",
}

// hourColumns maps CSV hour headers to their week slot, Monday first.
var hourColumns = []string{
	"hours_monday", "hours_tuesday", "hours_wednesday", "hours_thursday",
	"hours_friday", "hours_saturday", "hours_sunday",
}

// ImportTx is the transactional surface a batch runs against.  It mirrors
// repository.ImportTx so tests can substitute an in-memory fake.
type ImportTx interface {
	Exists(ctx context.Context, storeID string) (bool, error)
	Insert(ctx context.Context, s model.Store) error
	Update(ctx context.Context, s model.Store) error
	ReplaceServices(ctx context.Context, storeID string, services []string) error
	Commit() error
	Rollback() error
}

// ImportBeginner opens the batch transaction.
type ImportBeginner interface {
	BeginImport(ctx context.Context) (ImportTx, error)
}

// RepoImportSource adapts StoreRepo to ImportBeginner.
type RepoImportSource struct{ Stores *repository.StoreRepo }

func (s RepoImportSource) BeginImport(ctx context.Context) (ImportTx, error) {
	return s.Stores.BeginImport(ctx)
}

// FailedRecord describes one row that could not be imported.
type FailedRecord struct {
	RowNumber int    `json:"row_number"`
	StoreID   string `json:"store_id"`
	Error     string `json:"error"`
}

// ImportReport summarizes a bulk import batch.
type ImportReport struct {
	TotalRows     int            `json:"total_rows"`
	Created       int            `json:"created"`
	Updated       int            `json:"updated"`
	Failed        int            `json:"failed"`
	FailedRecords []FailedRecord `json:"failed_records"`
}

// Importer runs CSV bulk imports.  Rows fail independently; writes for the
// rows that pass land in one transaction committed at the end.
type Importer struct {
	source   ImportBeginner
	geocoder Geocoder
}

func NewImporter(source ImportBeginner, geocoder Geocoder) *Importer {
	return &Importer{source: source, geocoder: geocoder}
}

// Import parses the CSV stream and upserts each row.  Row numbering starts
// at 2: row 1 is the header, so reported numbers match what an operator
// sees in a spreadsheet.  A failed row never aborts the batch; only a
// commit failure does, rolling everything back.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperr.New(apperr.Validation, "CSV file is empty or unreadable")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	var missing []string
	for _, want := range requiredColumns {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.New(apperr.Validation, "missing required columns: "+strings.Join(missing, ", "))
	}

	tx, err := im.source.BeginImport(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.System, "could not start import", err)
	}

	report := &ImportReport{FailedRecords: []FailedRecord{}}
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			report.TotalRows++
			report.Failed++
			report.FailedRecords = append(report.FailedRecords,
				FailedRecord{RowNumber: rowNum, Error: "malformed CSV row: " + err.Error()})
			continue
		}
		report.TotalRows++

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		store, services, rowErr := im.buildStore(ctx, field)
		if rowErr != "" {
			report.Failed++
			report.FailedRecords = append(report.FailedRecords,
				FailedRecord{RowNumber: rowNum, StoreID: field("store_id"), Error: rowErr})
			continue
		}

		exists, err := tx.Exists(ctx, store.StoreID)
		if err == nil {
			if exists {
				err = tx.Update(ctx, store)
			} else {
				err = tx.Insert(ctx, store)
			}
		}
		if err == nil {
			err = tx.ReplaceServices(ctx, store.StoreID, services)
		}
		if err != nil {
			report.Failed++
			report.FailedRecords = append(report.FailedRecords,
				FailedRecord{RowNumber: rowNum, StoreID: store.StoreID, Error: "database error: " + err.Error()})
			continue
		}
		if exists {
			report.Updated++
		} else {
			report.Created++
		}
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return nil, apperr.Wrap(apperr.System, "failed to commit import batch", err)
	}
	return report, nil
}

// buildStore validates one row and resolves coordinates, geocoding the
// composed address when they are absent.  Returns a human-readable error
// string for the report on failure.
func (im *Importer) buildStore(ctx context.Context, field func(string) string) (model.Store, []string, string) {
	var s model.Store

	s.StoreID = field("store_id")
	if s.StoreID == "" {
		return s, nil, "missing store_id"
	}
	s.Name = field("name")
	if s.Name == "" {
		return s, nil, "missing name"
	}
	s.StoreType = field("store_type")
	if !model.ValidStoreType(s.StoreType) {
		return s, nil, "invalid store_type: " + s.StoreType
	}
	s.Status = model.StoreStatusActive

	s.AddressStreet = field("address_street")
	s.AddressCity = field("address_city")
	s.AddressState = field("address_state")
	s.AddressPostalCode = field("address_postal_code")
	s.AddressCountry = field("address_country")
	if s.AddressCountry == "" {
		s.AddressCountry = "USA"
	}
	s.Phone = field("phone")

	latStr, lonStr := field("latitude"), field("longitude")
	switch {
	case latStr != "" && lonStr != "":
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return s, nil, "invalid latitude: " + latStr
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return s, nil, "invalid longitude: " + lonStr
		}
		if lat < -90 || lat > 90 {
			return s, nil, fmt.Sprintf("latitude out of range: %g", lat)
		}
		if lon < -180 || lon > 180 {
			return s, nil, fmt.Sprintf("longitude out of range: %g", lon)
		}
		s.Latitude, s.Longitude = lat, lon
	default:
		// No usable coordinates; fall back to geocoding the address.
		addr := strings.Join([]string{s.AddressStreet, s.AddressCity, s.AddressState, s.AddressPostalCode}, ", ")
		loc, err := im.geocoder.Resolve(ctx, addr)
		if err != nil || loc == nil {
			return s, nil, "missing coordinates and geocoding failed for: " + addr
		}
		s.Latitude, s.Longitude = loc.Latitude, loc.Longitude
	}

	hours := []*string{&s.HoursMon, &s.HoursTue, &s.HoursWed, &s.HoursThu, &s.HoursFri, &s.HoursSat, &s.HoursSun}
	for i, col := range hourColumns {
		v := field(col)
		if v == "" {
			v = "closed"
		}
		*hours[i] = v
	}

	var services []string
	for _, svc := range strings.Split(field("services"), "|") {
		if svc = strings.TrimSpace(svc); svc != "" {
			services = append(services, svc)
		}
	}
	return s, services, ""
}
