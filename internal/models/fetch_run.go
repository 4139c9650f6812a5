package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FetchRunStatus is the outcome of one upstream fetch.
type FetchRunStatus string

const (
	FetchRunSucceeded FetchRunStatus = "succeeded"
	FetchRunFailed    FetchRunStatus = "failed"
)

// FetchRun records one round trip to the Shopify Admin API made to build a
// report. Only counts and status are kept; reports themselves are never stored.
type FetchRun struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Shop             string         `gorm:"type:varchar(255);not null;index" json:"shop"`
	Status           FetchRunStatus `gorm:"type:varchar(20);not null" json:"status"`
	OrdersFetched    int            `json:"orders_fetched"`
	CustomersFetched int            `json:"customers_fetched"`
	DurationMs       int64          `json:"duration_ms"`
	Params           datatypes.JSON `gorm:"type:jsonb" json:"params,omitempty"`
	ErrorMessage     string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
}

// TableName overrides the table name
func (FetchRun) TableName() string {
	return "finance_fetch_runs"
}

// BeforeCreate assigns an ID when the caller left it empty.
func (r *FetchRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// FetchRunParams is the JSON payload stored in FetchRun.Params.
type FetchRunParams struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Timezone     string `json:"timezone"`
	OrderLimit   int    `json:"order_limit"`
	ForceRefresh bool   `json:"force_refresh,omitempty"`
}
