package truckflow

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/truckflow/dispatch-core/pkg/enums"
	"github.com/truckflow/dispatch-core/pkg/types"
)

// PriceList is a priced rule for a material, optionally scoped to a customer and a route.
// A nil CustomerID marks a general list. Nil site ids mean the list applies to any route.
type PriceList struct {
	ID                int64            `json:"id"`
	CustomerID        *int64           `json:"customer_id"`
	MaterialID        int64            `json:"material_id"`
	FromSiteID        *int64           `json:"from_site_id"`
	ToSiteID          *int64           `json:"to_site_id"`
	Unit              enums.PriceUnit  `json:"unit"`
	BasePrice         decimal.Decimal  `json:"base_price"`
	MinCharge         *decimal.Decimal `json:"min_charge,omitempty"`
	WaitFeePerHour    *decimal.Decimal `json:"wait_fee_per_hour,omitempty"`
	NightSurchargePct *decimal.Decimal `json:"night_surcharge_pct,omitempty"`
	ValidFrom         types.Date       `json:"valid_from"`
	ValidTo           *types.Date      `json:"valid_to"`
}

// IsActive reports whether the list is valid on the given date. Both bounds are inclusive.
func (p PriceList) IsActive(on types.Date) bool {
	if p.ValidFrom.IsZero() || p.ValidFrom.After(on) {
		return false
	}
	if p.ValidTo != nil && !p.ValidTo.IsZero() && on.After(*p.ValidTo) {
		return false
	}
	return true
}

// IsGeneral reports whether the list applies to every customer.
func (p PriceList) IsGeneral() bool {
	return p.CustomerID == nil
}

type Site struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
	CustomerID *int64   `json:"customer_id,omitempty"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
}

// HasCoordinates reports whether both lat and lng are known.
func (s Site) HasCoordinates() bool {
	return s.Lat != nil && s.Lng != nil
}

type Job struct {
	ID            int64            `json:"id"`
	CustomerID    int64            `json:"customer_id"`
	MaterialID    int64            `json:"material_id"`
	FromSiteID    *int64           `json:"from_site_id"`
	ToSiteID      *int64           `json:"to_site_id"`
	ScheduledDate types.Date       `json:"scheduled_date"`
	Status        enums.JobStatus  `json:"status"`
	DriverID      *int64           `json:"driver_id"`
	TruckID       *int64           `json:"truck_id"`
	PlannedQty    *decimal.Decimal `json:"planned_qty,omitempty"`
	ActualQty     *decimal.Decimal `json:"actual_qty,omitempty"`
	Unit          enums.PriceUnit  `json:"unit,omitempty"`
	FromSite      *Site            `json:"from_site,omitempty"`
	ToSite        *Site            `json:"to_site,omitempty"`
}

// JobStatusEvent is an append-only record of a job status change.
type JobStatusEvent struct {
	ID        int64           `json:"id"`
	JobID     int64           `json:"job_id"`
	Status    enums.JobStatus `json:"status"`
	EventTime time.Time       `json:"event_time"`
	Lat       *float64        `json:"lat"`
	Lng       *float64        `json:"lng"`
	Note      *string         `json:"note,omitempty"`
}

// HasPosition reports whether the event carries a full GPS fix.
func (e JobStatusEvent) HasPosition() bool {
	return e.Lat != nil && e.Lng != nil
}

type Driver struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type Truck struct {
	ID          int64            `json:"id"`
	PlateNumber string           `json:"plate_number"`
	Model       string           `json:"model,omitempty"`
	Capacity    *decimal.Decimal `json:"capacity,omitempty"`
}

type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Material struct {
	ID   int64           `json:"id"`
	Name string          `json:"name"`
	Unit enums.PriceUnit `json:"unit,omitempty"`
}

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	OrgID *int64 `json:"org_id,omitempty"`
}

type Statement struct {
	ID          int64            `json:"id"`
	CustomerID  int64            `json:"customer_id"`
	PeriodStart types.Date       `json:"period_start"`
	PeriodEnd   types.Date       `json:"period_end"`
	Total       *decimal.Decimal `json:"total,omitempty"`
	Status      string           `json:"status,omitempty"`
}

// LoginResponse is the upstream answer to POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// GeocodeResult summarizes a geocode-missing pass.
type GeocodeResult struct {
	Updated int `json:"updated"`
}

// JobFilter narrows GET /jobs. Zero values are omitted from the query.
type JobFilter struct {
	Statuses []enums.JobStatus
	DriverID *int64
}

// PriceListFilter narrows GET /price-lists.
type PriceListFilter struct {
	MaterialID *int64
	CustomerID *int64
}

// UpdateJobStatusRequest is the body of POST /jobs/{id}/status.
type UpdateJobStatusRequest struct {
	Status enums.JobStatus `json:"status"`
	Lat    *float64        `json:"lat,omitempty"`
	Lng    *float64        `json:"lng,omitempty"`
	Note   *string         `json:"note,omitempty"`
}
