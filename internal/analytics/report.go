// Package analytics derives dashboard financial metrics from raw commerce
// orders and customers. Every function in this package is pure: no I/O, no
// logging, no state carried between calls.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecentOrdersLimit is the number of orders projected into Report.RecentOrders.
const RecentOrdersLimit = 10

// currencyScale is the number of fractional digits kept for derived amounts.
const currencyScale = 2

// Order is a commerce order as supplied by the upstream store.
type Order struct {
	ID                string
	OrderNumber       int64
	TotalPrice        string // decimal string, e.g. "19.90"
	CreatedAt         string // RFC 3339
	FinancialStatus   string
	FulfillmentStatus *string // nil means unfulfilled
}

// Customer is a store customer account.
type Customer struct {
	ID        string
	CreatedAt string // RFC 3339
}

// MonthlyRevenue is the revenue of one calendar month.
type MonthlyRevenue struct {
	Month   string          `json:"month"` // YYYY-MM
	Revenue decimal.Decimal `json:"revenue"`
}

// RecentOrder is the display-safe projection of an Order.
type RecentOrder struct {
	ID                string  `json:"id"`
	OrderNumber       int64   `json:"orderNumber"`
	TotalPrice        string  `json:"totalPrice"`
	CreatedAt         string  `json:"createdAt"`
	FinancialStatus   string  `json:"financialStatus"`
	FulfillmentStatus *string `json:"fulfillmentStatus"`
}

// HistoricalData is a gap-free daily series over a date range. The slices are
// index-aligned with Dates.
type HistoricalData struct {
	Dates     []string          `json:"dates"`
	Revenue   []decimal.Decimal `json:"revenue"`
	Orders    []int             `json:"orders"`
	Customers []int             `json:"customers"`
}

// Report is the computed metrics report. It has no identity and is rebuilt on
// every call.
type Report struct {
	TotalRevenue             decimal.Decimal  `json:"totalRevenue"`
	TotalOrders              int              `json:"totalOrders"`
	AverageOrderValue        decimal.Decimal  `json:"averageOrderValue"`
	MonthlyRevenue           []MonthlyRevenue `json:"monthlyRevenue"`
	RecentOrders             []RecentOrder    `json:"recentOrders"`
	SalesMonthToDate         decimal.Decimal  `json:"salesMonthToDate"`
	NewCustomersThisWeek     int              `json:"newCustomersThisWeek"`
	PrevNewCustomersThisWeek int              `json:"prevNewCustomersThisWeek"`
	OpenOrdersCount          int              `json:"openOrdersCount"`
	// WebsiteVisitsThisWeek has no data source and is always null on the wire.
	WebsiteVisitsThisWeek *int64          `json:"websiteVisitsThisWeek"`
	HistoricalData        *HistoricalData `json:"historicalData,omitempty"`
	Timezone              string          `json:"timezone"`
	GeneratedAt           time.Time       `json:"generatedAt"`
}
