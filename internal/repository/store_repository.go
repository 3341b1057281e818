package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/store-locator/internal/geo"
	"github.com/iliyamo/store-locator/internal/model"
)

// storeColumns is the column list shared by every store SELECT so scans
// stay in one shape.
const storeColumns = `store_id, name, store_type, status, latitude, longitude,
	address_street, address_city, address_state, address_postal_code, address_country,
	COALESCE(phone,''), hours_mon, hours_tue, hours_wed, hours_thu, hours_fri, hours_sat, hours_sun,
	created_at, updated_at`

// StoreRepo persists stores and their service tags.
type StoreRepo struct{ DB *sql.DB }

func NewStoreRepo(db *sql.DB) *StoreRepo { return &StoreRepo{DB: db} }

func scanStore(row interface{ Scan(...any) error }) (model.Store, error) {
	var s model.Store
	err := row.Scan(
		&s.StoreID, &s.Name, &s.StoreType, &s.Status, &s.Latitude, &s.Longitude,
		&s.AddressStreet, &s.AddressCity, &s.AddressState, &s.AddressPostalCode, &s.AddressCountry,
		&s.Phone, &s.HoursMon, &s.HoursTue, &s.HoursWed, &s.HoursThu, &s.HoursFri, &s.HoursSat, &s.HoursSun,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// GetByID fetches one store with its service tags.
func (r *StoreRepo) GetByID(ctx context.Context, storeID string) (model.Store, error) {
	s, err := scanStore(r.DB.QueryRowContext(ctx,
		"SELECT "+storeColumns+" FROM stores WHERE store_id=? LIMIT 1", storeID))
	if err != nil {
		return model.Store{}, err
	}
	s.Services, err = r.ServicesFor(ctx, s.StoreID)
	return s, err
}

// List returns stores with pagination, services included.
func (r *StoreRepo) List(ctx context.Context, skip, limit int) ([]model.Store, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+storeColumns+" FROM stores ORDER BY store_id LIMIT ? OFFSET ?", limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Store, 0, limit)
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Services, err = r.ServicesFor(ctx, out[i].StoreID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Create inserts a new store and its service tags.  A duplicate store_id
// maps to ErrStoreExists.
func (r *StoreRepo) Create(ctx context.Context, s model.Store) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO stores
		(store_id, name, store_type, status, latitude, longitude,
		 address_street, address_city, address_state, address_postal_code, address_country,
		 phone, hours_mon, hours_tue, hours_wed, hours_thu, hours_fri, hours_sat, hours_sun)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.StoreID, s.Name, s.StoreType, s.Status, s.Latitude, s.Longitude,
		s.AddressStreet, s.AddressCity, s.AddressState, s.AddressPostalCode, s.AddressCountry,
		s.Phone, s.HoursMon, s.HoursTue, s.HoursWed, s.HoursThu, s.HoursFri, s.HoursSat, s.HoursSun)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrStoreExists
		}
		return err
	}
	return r.ReplaceServices(ctx, s.StoreID, s.Services)
}

// StorePatch lists the fields a partial update may touch.  Nil pointers
// leave the column untouched.
type StorePatch struct {
	Name      *string
	StoreType *string
	Status    *string
	Latitude  *float64
	Longitude *float64
	Phone     *string
	HoursMon  *string
	HoursTue  *string
	HoursWed  *string
	HoursThu  *string
	HoursFri  *string
	HoursSat  *string
	HoursSun  *string
	Services  *[]string
}

// Update applies a partial patch.  The SET clause is assembled only from
// the fields present, so unspecified columns keep their values.
func (r *StoreRepo) Update(ctx context.Context, storeID string, p StorePatch) error {
	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		set = append(set, col+"=?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.StoreType != nil {
		add("store_type", *p.StoreType)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Latitude != nil {
		add("latitude", *p.Latitude)
	}
	if p.Longitude != nil {
		add("longitude", *p.Longitude)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.HoursMon != nil {
		add("hours_mon", *p.HoursMon)
	}
	if p.HoursTue != nil {
		add("hours_tue", *p.HoursTue)
	}
	if p.HoursWed != nil {
		add("hours_wed", *p.HoursWed)
	}
	if p.HoursThu != nil {
		add("hours_thu", *p.HoursThu)
	}
	if p.HoursFri != nil {
		add("hours_fri", *p.HoursFri)
	}
	if p.HoursSat != nil {
		add("hours_sat", *p.HoursSat)
	}
	if p.HoursSun != nil {
		add("hours_sun", *p.HoursSun)
	}

	if len(set) > 0 {
		args = append(args, storeID)
		res, err := r.DB.ExecContext(ctx,
			"UPDATE stores SET "+strings.Join(set, ", ")+" WHERE store_id=?", args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			// Distinguish "no such store" from "nothing changed".
			var exists int
			if err := r.DB.QueryRowContext(ctx,
				"SELECT 1 FROM stores WHERE store_id=? LIMIT 1", storeID).Scan(&exists); err != nil {
				return err
			}
		}
	}
	if p.Services != nil {
		return r.ReplaceServices(ctx, storeID, *p.Services)
	}
	return nil
}

// SetStatus performs the lifecycle transition used by soft delete.
func (r *StoreRepo) SetStatus(ctx context.Context, storeID, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE stores SET status=? WHERE store_id=?", status, storeID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists int
		if err := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM stores WHERE store_id=? LIMIT 1", storeID).Scan(&exists); err != nil {
			return err
		}
	}
	return nil
}

// SearchActiveInBox returns active stores whose coordinates fall inside
// the bounding box, optionally narrowed by store type.  This is the coarse
// prefilter; the search service applies the exact distance check.
func (r *StoreRepo) SearchActiveInBox(ctx context.Context, box geo.Box, storeTypes []string) ([]model.Store, error) {
	where := []string{
		"latitude BETWEEN ? AND ?",
		"longitude BETWEEN ? AND ?",
		"status = ?",
	}
	args := []any{box.MinLat, box.MaxLat, box.MinLon, box.MaxLon, model.StoreStatusActive}

	if len(storeTypes) > 0 {
		ph := make([]string, len(storeTypes))
		for i, t := range storeTypes {
			ph[i] = "?"
			args = append(args, t)
		}
		where = append(where, "store_type IN ("+strings.Join(ph, ",")+")")
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+storeColumns+" FROM stores WHERE "+strings.Join(where, " AND "), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ServicesFor returns the service tags attached to a store.
func (r *StoreRepo) ServicesFor(ctx context.Context, storeID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT service_name FROM store_services WHERE store_id=? ORDER BY service_name", storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ReplaceServices swaps the store's service set wholesale.
func (r *StoreRepo) ReplaceServices(ctx context.Context, storeID string, services []string) error {
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM store_services WHERE store_id=?", storeID); err != nil {
		return err
	}
	for _, name := range services {
		if _, err := r.DB.ExecContext(ctx,
			"INSERT INTO store_services (store_id, service_name) VALUES (?,?)", storeID, name); err != nil {
			return err
		}
	}
	return nil
}
