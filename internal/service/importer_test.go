package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/geocode"
	"github.com/iliyamo/store-locator/internal/model"
)

type fakeImportTx struct {
	existing  map[string]bool
	inserted  map[string]model.Store
	updated   map[string]model.Store
	services  map[string][]string
	commits   int
	rollbacks int
	commitErr error
}

func newFakeImportTx(existing ...string) *fakeImportTx {
	tx := &fakeImportTx{
		existing: map[string]bool{},
		inserted: map[string]model.Store{},
		updated:  map[string]model.Store{},
		services: map[string][]string{},
	}
	for _, id := range existing {
		tx.existing[id] = true
	}
	return tx
}

func (t *fakeImportTx) Exists(_ context.Context, id string) (bool, error) { return t.existing[id], nil }
func (t *fakeImportTx) Insert(_ context.Context, s model.Store) error {
	t.inserted[s.StoreID] = s
	t.existing[s.StoreID] = true
	return nil
}
func (t *fakeImportTx) Update(_ context.Context, s model.Store) error {
	t.updated[s.StoreID] = s
	return nil
}
func (t *fakeImportTx) ReplaceServices(_ context.Context, id string, svcs []string) error {
	t.services[id] = svcs
	return nil
}
func (t *fakeImportTx) Commit() error {
	t.commits++
	return t.commitErr
}
func (t *fakeImportTx) Rollback() error {
	t.rollbacks++
	return nil
}

type fakeBeginner struct{ tx *fakeImportTx }

func (b fakeBeginner) BeginImport(context.Context) (ImportTx, error) { return b.tx, nil }

type errGeocoder struct{}

func (errGeocoder) Resolve(context.Context, string) (*geocode.Location, error) {
	return nil, errors.New("geocoder down")
}
func (errGeocoder) ResolvePostal(context.Context, string, string) (*geocode.Location, error) {
	return nil, errors.New("geocoder down")
}

const importHeader = "store_id,name,store_type,address_street,address_city,address_state,address_postal_code,latitude,longitude,services,hours_monday\n"

func runImport(t *testing.T, tx *fakeImportTx, gc Geocoder, csvBody string) (*ImportReport, error) {
	t.Helper()
	im := NewImporter(fakeBeginner{tx: tx}, gc)
	return im.Import(context.Background(), strings.NewReader(csvBody))
}

func TestImportCreatesAndUpdates(t *testing.T) {
	tx := newFakeImportTx("OLD01")
	body := importHeader +
		"NEW01,Fresh Store,regular,1 Main St,Springfield,IL,62701,39.78,-89.65,pharmacy|pickup,09:00-17:00\n" +
		"OLD01,Renamed Store,flagship,2 Oak Ave,Springfield,IL,62702,39.80,-89.64,,\n"

	report, err := runImport(t, tx, &fakeGeocoder{}, body)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 1, tx.commits)

	created := tx.inserted["NEW01"]
	assert.Equal(t, "Fresh Store", created.Name)
	assert.Equal(t, model.StoreStatusActive, created.Status)
	assert.Equal(t, "09:00-17:00", created.HoursMon)
	assert.Equal(t, "closed", created.HoursTue, "unset hour columns default to closed")
	assert.Equal(t, []string{"pharmacy", "pickup"}, tx.services["NEW01"])

	updated := tx.updated["OLD01"]
	assert.Equal(t, "Renamed Store", updated.Name)
	assert.Empty(t, tx.services["OLD01"], "empty services column clears the set")
}

func TestImportRowFailuresAreIsolated(t *testing.T) {
	tx := newFakeImportTx()
	body := importHeader +
		"A01,Good Store,regular,1 St,City,ST,11111,40.0,-75.0,,\n" +
		",No ID,regular,2 St,City,ST,11111,40.0,-75.0,,\n" +
		"B02,,regular,3 St,City,ST,11111,40.0,-75.0,,\n" +
		"C03,Bad Type,warehouse,4 St,City,ST,11111,40.0,-75.0,,\n" +
		"D04,Bad Lat,regular,5 St,City,ST,11111,abc,-75.0,,\n" +
		"E05,Out Of Range,regular,6 St,City,ST,11111,95.0,-75.0,,\n" +
		"F06,Also Good,outlet,7 St,City,ST,11111,41.0,-74.0,,\n"

	report, err := runImport(t, tx, &fakeGeocoder{}, body)
	require.NoError(t, err)

	assert.Equal(t, 7, report.TotalRows)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 5, report.Failed)
	assert.Equal(t, 1, tx.commits, "good rows still commit")

	// Header is row 1, so the first failing data row reports as row 3.
	require.Len(t, report.FailedRecords, 5)
	assert.Equal(t, 3, report.FailedRecords[0].RowNumber)
	assert.Contains(t, report.FailedRecords[0].Error, "store_id")
	assert.Equal(t, "B02", report.FailedRecords[1].StoreID)
	assert.Contains(t, report.FailedRecords[2].Error, "store_type")
	assert.Contains(t, report.FailedRecords[3].Error, "latitude")
	assert.Contains(t, report.FailedRecords[4].Error, "out of range")
}

func TestImportGeocodesMissingCoordinates(t *testing.T) {
	tx := newFakeImportTx()
	gc := &fakeGeocoder{loc: &geocode.Location{Latitude: 39.78, Longitude: -89.65}}
	body := importHeader + "G01,Geocoded,regular,1 Main St,Springfield,IL,62701,,,,\n"

	report, err := runImport(t, tx, gc, body)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, gc.calls)
	assert.InDelta(t, 39.78, tx.inserted["G01"].Latitude, 1e-9)
}

func TestImportGeocodeFailureFailsRow(t *testing.T) {
	tx := newFakeImportTx()
	body := importHeader + "G02,Unresolvable,regular,1 Main St,Nowhere,ZZ,00000,,,,\n"

	report, err := runImport(t, tx, errGeocoder{}, body)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.FailedRecords[0].Error, "geocoding failed")
}

func TestImportMissingHeaderColumnFailsBatch(t *testing.T) {
	tx := newFakeImportTx()
	body := "store_id,name\nA01,Store\n"

	_, err := runImport(t, tx, &fakeGeocoder{}, body)
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "store_type")
	assert.Zero(t, tx.commits)
}

func TestImportEmptyFileFailsBatch(t *testing.T) {
	_, err := runImport(t, newFakeImportTx(), &fakeGeocoder{}, "")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestImportCommitFailureRollsBack(t *testing.T) {
	tx := newFakeImportTx()
	tx.commitErr = errors.New("deadlock")
	body := importHeader + "A01,Store,regular,1 St,City,ST,11111,40.0,-75.0,,\n"

	_, err := runImport(t, tx, &fakeGeocoder{}, body)
	require.Error(t, err)
	assert.Equal(t, apperr.System, apperr.KindOf(err))
	assert.Equal(t, 1, tx.rollbacks)
}
