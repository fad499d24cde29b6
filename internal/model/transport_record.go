package model

import "time"

// TransportRecord represents one haul in the `transport_records` table.
// Money columns are DECIMAL(10,2); they default to 0 rather than NULL so the
// aggregation queries can sum them without COALESCE.
type TransportRecord struct {
	ID                uint64     `json:"id"`
	VehicleID         uint64     `json:"vehicleId"`
	FleetID           *uint64    `json:"fleetId"` // nil means a personal record
	GoodsName         string     `json:"goodsName"`
	Date              time.Time  `json:"date"`
	Freight           float64    `json:"-"`
	OtherIncome       float64    `json:"-"`
	FuelCost          float64    `json:"-"`
	RepairCost        float64    `json:"-"`
	AccommodationCost float64    `json:"-"`
	MealCost          float64    `json:"-"`
	OtherExpense      float64    `json:"-"`
	Remark            *string    `json:"remark"`
	Images            StringList `json:"images"`
	IsReconciled      bool       `json:"isReconciled"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`

	// VehicleBrand is joined from vehicles for list responses.
	VehicleBrand string `json:"-"`
}
