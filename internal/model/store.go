package model

import "time"

// Store types accepted by the API.  The enum is fixed; CSV imports and
// create requests must use one of these values.
const (
	StoreTypeFlagship = "flagship"
	StoreTypeRegular  = "regular"
	StoreTypeOutlet   = "outlet"
	StoreTypeExpress  = "express"
)

// Store lifecycle states.  Deletion is a soft transition to inactive;
// rows are never physically removed.
const (
	StoreStatusActive     = "active"
	StoreStatusInactive   = "inactive"
	StoreStatusTempClosed = "temporarily_closed"
)

// ValidStoreType reports whether s is one of the fixed store types.
func ValidStoreType(s string) bool {
	switch s {
	case StoreTypeFlagship, StoreTypeRegular, StoreTypeOutlet, StoreTypeExpress:
		return true
	}
	return false
}

// ValidStoreStatus reports whether s is a known lifecycle state.
func ValidStoreStatus(s string) bool {
	switch s {
	case StoreStatusActive, StoreStatusInactive, StoreStatusTempClosed:
		return true
	}
	return false
}

// Store mirrors the 'stores' table plus the store_services association.
// Opening hours are stored as strings per weekday, either "HH:MM-HH:MM"
// or the literal "closed".
type Store struct {
	StoreID           string     `json:"store_id"`
	Name              string     `json:"name"`
	StoreType         string     `json:"store_type"`
	Status            string     `json:"status"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	AddressStreet     string     `json:"address_street"`
	AddressCity       string     `json:"address_city"`
	AddressState      string     `json:"address_state"`
	AddressPostalCode string     `json:"address_postal_code"`
	AddressCountry    string     `json:"address_country"`
	Phone             string     `json:"phone"`
	HoursMon          string     `json:"hours_mon"`
	HoursTue          string     `json:"hours_tue"`
	HoursWed          string     `json:"hours_wed"`
	HoursThu          string     `json:"hours_thu"`
	HoursFri          string     `json:"hours_fri"`
	HoursSat          string     `json:"hours_sat"`
	HoursSun          string     `json:"hours_sun"`
	Services          []string   `json:"services"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// WeekHours returns the opening-hours strings indexed by time.Weekday
// (Sunday = 0), matching what geo.IsOpenNow expects.
func (s *Store) WeekHours() [7]string {
	return [7]string{
		s.HoursSun,
		s.HoursMon,
		s.HoursTue,
		s.HoursWed,
		s.HoursThu,
		s.HoursFri,
		s.HoursSat,
	}
}
