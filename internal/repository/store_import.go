package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/store-locator/internal/model"
)

// ImportTx wraps a single transaction covering a whole bulk-import batch.
// Every row upsert runs inside it; nothing is visible to readers until
// Commit, and a commit failure rolls the entire batch back.
type ImportTx struct{ tx *sql.Tx }

// BeginImport opens the batch transaction.
func (r *StoreRepo) BeginImport(ctx context.Context) (*ImportTx, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &ImportTx{tx: tx}, nil
}

// Exists reports whether a store_id is already present, observing rows
// written earlier in the same batch.
func (t *ImportTx) Exists(ctx context.Context, storeID string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx,
		"SELECT 1 FROM stores WHERE store_id=? LIMIT 1", storeID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert creates a new store row inside the batch.
func (t *ImportTx) Insert(ctx context.Context, s model.Store) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO stores
		(store_id, name, store_type, status, latitude, longitude,
		 address_street, address_city, address_state, address_postal_code, address_country,
		 phone, hours_mon, hours_tue, hours_wed, hours_thu, hours_fri, hours_sat, hours_sun)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.StoreID, s.Name, s.StoreType, s.Status, s.Latitude, s.Longitude,
		s.AddressStreet, s.AddressCity, s.AddressState, s.AddressPostalCode, s.AddressCountry,
		s.Phone, s.HoursMon, s.HoursTue, s.HoursWed, s.HoursThu, s.HoursFri, s.HoursSat, s.HoursSun)
	return err
}

// Update replaces every imported field of an existing store in place.
// Status is deliberately left alone: an import refreshes store data, it
// does not reactivate a deactivated store.
func (t *ImportTx) Update(ctx context.Context, s model.Store) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE stores SET
		name=?, store_type=?, latitude=?, longitude=?,
		address_street=?, address_city=?, address_state=?, address_postal_code=?,
		phone=?, hours_mon=?, hours_tue=?, hours_wed=?, hours_thu=?, hours_fri=?, hours_sat=?, hours_sun=?
		WHERE store_id=?`,
		s.Name, s.StoreType, s.Latitude, s.Longitude,
		s.AddressStreet, s.AddressCity, s.AddressState, s.AddressPostalCode,
		s.Phone, s.HoursMon, s.HoursTue, s.HoursWed, s.HoursThu, s.HoursFri, s.HoursSat, s.HoursSun,
		s.StoreID)
	return err
}

// ReplaceServices swaps the service set wholesale inside the batch.
func (t *ImportTx) ReplaceServices(ctx context.Context, storeID string, services []string) error {
	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM store_services WHERE store_id=?", storeID); err != nil {
		return err
	}
	for _, name := range services {
		if _, err := t.tx.ExecContext(ctx,
			"INSERT INTO store_services (store_id, service_name) VALUES (?,?)", storeID, name); err != nil {
			return err
		}
	}
	return nil
}

// Commit makes the batch visible.
func (t *ImportTx) Commit() error { return t.tx.Commit() }

// Rollback discards the batch.  Safe to call after a failed Commit.
func (t *ImportTx) Rollback() error { return t.tx.Rollback() }
