package model

import "time"

// Case represents a project showcase entry in the `cases` table, published
// on the freight-agency website.  Date is the project date shown on the
// site, distinct from the row timestamps.
type Case struct {
	ID          uint64     `json:"id"`
	ProjectName string     `json:"projectName"`
	Date        time.Time  `json:"date"`
	Tags        StringList `json:"tags"`
	Images      StringList `json:"images"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
