package model

import "time"

// Vehicle represents a truck in the `vehicles` table.  Horsepower, load
// capacity and trailer length are free-form strings because drivers enter
// them with units ("430马力", "13米").
type Vehicle struct {
	ID                uint64     `json:"id"`
	UserID            uint64     `json:"userId"`
	PlateNumber       string     `json:"plateNumber"`
	Brand             string     `json:"brand"`
	Horsepower        string     `json:"horsepower"`
	LoadCapacity      string     `json:"loadCapacity"`
	AxleCount         int        `json:"axleCount"`
	TireCount         int        `json:"tireCount"`
	TrailerLength     string     `json:"trailerLength"`
	CertificateImages StringList `json:"certificateImages"`
	OtherImages       StringList `json:"otherImages"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Vehicle image kinds accepted by the upload endpoint.
const (
	VehicleImageCertificate = "certificate"
	VehicleImageOther       = "other"
)
