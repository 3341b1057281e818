package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-locator/internal/apperr"
	"github.com/iliyamo/store-locator/internal/cache"
	"github.com/iliyamo/store-locator/internal/config"
	"github.com/iliyamo/store-locator/internal/middleware"
	"github.com/iliyamo/store-locator/internal/model"
	"github.com/iliyamo/store-locator/internal/queue"
	"github.com/iliyamo/store-locator/internal/repository"
	"github.com/iliyamo/store-locator/internal/service"
)

// StoreHandler serves store CRUD.  Every mutation clears the search cache
// and emits a store.changed event.
type StoreHandler struct {
	Cfg      config.Config
	Stores   *repository.StoreRepo
	Cache    *cache.Cache
	Geocoder service.Geocoder
}

func NewStoreHandler(cfg config.Config, stores *repository.StoreRepo, c *cache.Cache, gc service.Geocoder) *StoreHandler {
	return &StoreHandler{Cfg: cfg, Stores: stores, Cache: c, Geocoder: gc}
}

type storeCreateReq struct {
	StoreID           string   `json:"store_id"`
	Name              string   `json:"name"`
	StoreType         string   `json:"store_type"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	AddressStreet     string   `json:"address_street"`
	AddressCity       string   `json:"address_city"`
	AddressState      string   `json:"address_state"`
	AddressPostalCode string   `json:"address_postal_code"`
	AddressCountry    string   `json:"address_country"`
	Phone             string   `json:"phone"`
	HoursMon          string   `json:"hours_mon"`
	HoursTue          string   `json:"hours_tue"`
	HoursWed          string   `json:"hours_wed"`
	HoursThu          string   `json:"hours_thu"`
	HoursFri          string   `json:"hours_fri"`
	HoursSat          string   `json:"hours_sat"`
	HoursSun          string   `json:"hours_sun"`
	Services          []string `json:"services"`
}

type storeUpdateReq struct {
	Name      *string   `json:"name"`
	StoreType *string   `json:"store_type"`
	Status    *string   `json:"status"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Phone     *string   `json:"phone"`
	HoursMon  *string   `json:"hours_mon"`
	HoursTue  *string   `json:"hours_tue"`
	HoursWed  *string   `json:"hours_wed"`
	HoursThu  *string   `json:"hours_thu"`
	HoursFri  *string   `json:"hours_fri"`
	HoursSat  *string   `json:"hours_sat"`
	HoursSun  *string   `json:"hours_sun"`
	Services  *[]string `json:"services"`
}

// List returns stores with skip/limit pagination.
func (h *StoreHandler) List(c echo.Context) error {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stores, err := h.Stores.List(ctx, skip, limit)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	return c.JSON(http.StatusOK, stores)
}

// Get returns one store by its id.
func (h *StoreHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Stores.GetByID(ctx, c.Param("store_id"))
	if err == sql.ErrNoRows {
		return respondErr(c, apperr.New(apperr.NotFound, "store not found"))
	}
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	return c.JSON(http.StatusOK, s)
}

// Create registers a new store.  Coordinates are geocoded from the address
// when absent; a duplicate store_id is a conflict.
func (h *StoreHandler) Create(c echo.Context) error {
	var req storeCreateReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid body"))
	}
	req.StoreID = strings.TrimSpace(req.StoreID)
	req.Name = strings.TrimSpace(req.Name)
	if req.StoreID == "" || req.Name == "" {
		return respondErr(c, apperr.New(apperr.Validation, "store_id and name are required"))
	}
	if !model.ValidStoreType(req.StoreType) {
		return respondErr(c, apperr.New(apperr.Validation, "invalid store_type: "+req.StoreType))
	}
	if (req.Latitude != nil) != (req.Longitude != nil) {
		return respondErr(c, apperr.New(apperr.Validation, "latitude and longitude must be provided together"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	s := model.Store{
		StoreID:           req.StoreID,
		Name:              req.Name,
		StoreType:         req.StoreType,
		Status:            model.StoreStatusActive,
		AddressStreet:     req.AddressStreet,
		AddressCity:       req.AddressCity,
		AddressState:      req.AddressState,
		AddressPostalCode: req.AddressPostalCode,
		AddressCountry:    req.AddressCountry,
		Phone:             req.Phone,
		HoursMon:          hoursOrClosed(req.HoursMon),
		HoursTue:          hoursOrClosed(req.HoursTue),
		HoursWed:          hoursOrClosed(req.HoursWed),
		HoursThu:          hoursOrClosed(req.HoursThu),
		HoursFri:          hoursOrClosed(req.HoursFri),
		HoursSat:          hoursOrClosed(req.HoursSat),
		HoursSun:          hoursOrClosed(req.HoursSun),
		Services:          req.Services,
	}
	if s.AddressCountry == "" {
		s.AddressCountry = "USA"
	}

	if req.Latitude != nil {
		if err := checkCoords(*req.Latitude, *req.Longitude); err != nil {
			return respondErr(c, err)
		}
		s.Latitude, s.Longitude = *req.Latitude, *req.Longitude
	} else {
		addr := strings.Join([]string{s.AddressStreet, s.AddressCity, s.AddressState, s.AddressPostalCode}, ", ")
		loc, err := h.Geocoder.Resolve(ctx, addr)
		if err != nil || loc == nil {
			return respondErr(c, apperr.New(apperr.Upstream, "could not geocode address: "+addr))
		}
		s.Latitude, s.Longitude = loc.Latitude, loc.Longitude
	}

	if err := h.Stores.Create(ctx, s); err != nil {
		if err == repository.ErrStoreExists {
			return respondErr(c, apperr.New(apperr.Conflict, "store with id '"+s.StoreID+"' already exists"))
		}
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}

	h.Cache.Clear()
	h.publish(c, queue.ActionCreated, s.StoreID, s.Name)

	created, err := h.Stores.GetByID(ctx, s.StoreID)
	if err != nil {
		return c.JSON(http.StatusCreated, s)
	}
	return c.JSON(http.StatusCreated, created)
}

// Update applies a partial update.  Absent fields keep their values; an
// explicit services list replaces the set wholesale.
func (h *StoreHandler) Update(c echo.Context) error {
	storeID := c.Param("store_id")

	var req storeUpdateReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.Validation, "invalid body"))
	}
	if req.StoreType != nil && !model.ValidStoreType(*req.StoreType) {
		return respondErr(c, apperr.New(apperr.Validation, "invalid store_type: "+*req.StoreType))
	}
	if req.Status != nil && !model.ValidStoreStatus(*req.Status) {
		return respondErr(c, apperr.New(apperr.Validation, "invalid status: "+*req.Status))
	}
	if req.Latitude != nil {
		if *req.Latitude < -90 || *req.Latitude > 90 {
			return respondErr(c, apperr.New(apperr.Validation, "latitude must be between -90 and 90"))
		}
	}
	if req.Longitude != nil {
		if *req.Longitude < -180 || *req.Longitude > 180 {
			return respondErr(c, apperr.New(apperr.Validation, "longitude must be between -180 and 180"))
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	patch := repository.StorePatch{
		Name:      req.Name,
		StoreType: req.StoreType,
		Status:    req.Status,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Phone:     req.Phone,
		HoursMon:  req.HoursMon,
		HoursTue:  req.HoursTue,
		HoursWed:  req.HoursWed,
		HoursThu:  req.HoursThu,
		HoursFri:  req.HoursFri,
		HoursSat:  req.HoursSat,
		HoursSun:  req.HoursSun,
		Services:  req.Services,
	}
	if err := h.Stores.Update(ctx, storeID, patch); err != nil {
		if err == sql.ErrNoRows {
			return respondErr(c, apperr.New(apperr.NotFound, "store not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}

	h.Cache.Clear()

	updated, err := h.Stores.GetByID(ctx, storeID)
	if err == sql.ErrNoRows {
		return respondErr(c, apperr.New(apperr.NotFound, "store not found"))
	}
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}
	h.publish(c, queue.ActionUpdated, updated.StoreID, updated.Name)
	return c.JSON(http.StatusOK, updated)
}

// Delete deactivates a store.  The row stays for history; only its status
// changes, so repeated deletes are harmless.
func (h *StoreHandler) Delete(c echo.Context) error {
	storeID := c.Param("store_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Stores.GetByID(ctx, storeID)
	if err == sql.ErrNoRows {
		return respondErr(c, apperr.New(apperr.NotFound, "store not found"))
	}
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}

	if err := h.Stores.SetStatus(ctx, storeID, model.StoreStatusInactive); err != nil {
		return respondErr(c, apperr.Wrap(apperr.System, "", err))
	}

	h.Cache.Clear()
	h.publish(c, queue.ActionDeactivated, s.StoreID, s.Name)
	return c.NoContent(http.StatusNoContent)
}

func (h *StoreHandler) publish(c echo.Context, action, storeID, name string) {
	var actor uint64
	if u := middleware.CurrentUser(c); u != nil {
		actor = u.ID
	}
	ev := queue.StoreChangedEvent{
		StoreID:    storeID,
		Action:     action,
		Name:       name,
		ActorID:    actor,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	// Fire and forget; a broker outage must not fail the request.
	go func() { _ = queue.PublishStoreChanged(context.Background(), ev) }()
}

func hoursOrClosed(v string) string {
	if strings.TrimSpace(v) == "" {
		return "closed"
	}
	return v
}

func checkCoords(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return apperr.New(apperr.Validation, "latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return apperr.New(apperr.Validation, "longitude must be between -180 and 180")
	}
	return nil
}
