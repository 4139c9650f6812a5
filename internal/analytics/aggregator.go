package analytics

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errNegativeAmount = errors.New("negative amount")

// closedFulfillmentStatuses are the lower-cased statuses that make an order
// no longer open.
var closedFulfillmentStatuses = map[string]struct{}{
	"fulfilled": {},
	"shipped":   {},
}

// Aggregator computes metrics reports in one fixed calendar zone.
// An Aggregator holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	loc *time.Location
}

// NewAggregator creates an aggregator that buckets dates in loc. A nil loc
// means UTC.
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc}
}

// Location returns the zone used for bucketing and period boundaries.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

type parsedOrder struct {
	order   *Order
	price   decimal.Decimal
	created time.Time
}

// ComputeReport derives the metrics report for orders and customers as of now.
// It fails with a *DataFormatError on the first unparseable record and never
// returns a partial report.
func (a *Aggregator) ComputeReport(orders []Order, customers []Customer, now time.Time) (*Report, error) {
	parsed, err := a.parseOrders(orders)
	if err != nil {
		return nil, err
	}
	customerTimes, err := a.parseCustomers(customers)
	if err != nil {
		return nil, err
	}

	local := now.In(a.loc)
	monthStart := startOfMonth(local)
	weekStart := startOfWeek(local)
	prevWeekStart := addDays(weekStart, -7)

	total := decimal.Zero
	monthToDate := decimal.Zero
	openOrders := 0
	buckets := make(map[string]decimal.Decimal)

	for _, p := range parsed {
		total = total.Add(p.price)

		key := p.created.Format(monthLayout)
		buckets[key] = buckets[key].Add(p.price)

		if !p.created.Before(monthStart) {
			monthToDate = monthToDate.Add(p.price)
		}
		if isOpen(p.order.FulfillmentStatus) {
			openOrders++
		}
	}

	newThisWeek, newPrevWeek := 0, 0
	for _, created := range customerTimes {
		switch {
		case !created.Before(weekStart):
			newThisWeek++
		case !created.Before(prevWeekStart):
			newPrevWeek++
		}
	}

	average := decimal.Zero
	if len(parsed) > 0 {
		average = total.DivRound(decimal.NewFromInt(int64(len(parsed))), currencyScale)
	}

	return &Report{
		TotalRevenue:             total,
		TotalOrders:              len(parsed),
		AverageOrderValue:        average,
		MonthlyRevenue:           monthlySeries(buckets),
		RecentOrders:             recentOrders(parsed),
		SalesMonthToDate:         monthToDate,
		NewCustomersThisWeek:     newThisWeek,
		PrevNewCustomersThisWeek: newPrevWeek,
		OpenOrdersCount:          openOrders,
		Timezone:                 a.loc.String(),
		GeneratedAt:              local,
	}, nil
}

// ComputeRangeReport restricts orders and customers to r, computes the report
// over what remains and attaches the daily series for r.
func (a *Aggregator) ComputeRangeReport(orders []Order, customers []Customer, now time.Time, r DateRange) (*Report, error) {
	inOrders, inCustomers, err := a.FilterByRange(orders, customers, r)
	if err != nil {
		return nil, err
	}

	report, err := a.ComputeReport(inOrders, inCustomers, now)
	if err != nil {
		return nil, err
	}

	history, err := a.DailySeries(inOrders, inCustomers, r)
	if err != nil {
		return nil, err
	}
	report.HistoricalData = history
	return report, nil
}

// FilterByRange returns new slices holding the orders and customers created
// inside r. The inputs are left untouched.
func (a *Aggregator) FilterByRange(orders []Order, customers []Customer, r DateRange) ([]Order, []Customer, error) {
	outOrders := make([]Order, 0, len(orders))
	for i := range orders {
		created, err := parseTimestamp(orders[i].CreatedAt)
		if err != nil {
			return nil, nil, orderFieldError(&orders[i], "createdAt", orders[i].CreatedAt, err)
		}
		if r.Contains(created) {
			outOrders = append(outOrders, orders[i])
		}
	}

	outCustomers := make([]Customer, 0, len(customers))
	for i := range customers {
		created, err := parseTimestamp(customers[i].CreatedAt)
		if err != nil {
			return nil, nil, customerFieldError(&customers[i], "createdAt", customers[i].CreatedAt, err)
		}
		if r.Contains(created) {
			outCustomers = append(outCustomers, customers[i])
		}
	}

	return outOrders, outCustomers, nil
}

func (a *Aggregator) parseOrders(orders []Order) ([]parsedOrder, error) {
	out := make([]parsedOrder, len(orders))
	for i := range orders {
		o := &orders[i]

		price, err := decimal.NewFromString(strings.TrimSpace(o.TotalPrice))
		if err != nil {
			return nil, orderFieldError(o, "totalPrice", o.TotalPrice, err)
		}
		if price.IsNegative() {
			return nil, orderFieldError(o, "totalPrice", o.TotalPrice, errNegativeAmount)
		}

		created, err := parseTimestamp(o.CreatedAt)
		if err != nil {
			return nil, orderFieldError(o, "createdAt", o.CreatedAt, err)
		}

		out[i] = parsedOrder{order: o, price: price, created: created.In(a.loc)}
	}
	return out, nil
}

func (a *Aggregator) parseCustomers(customers []Customer) ([]time.Time, error) {
	out := make([]time.Time, len(customers))
	for i := range customers {
		created, err := parseTimestamp(customers[i].CreatedAt)
		if err != nil {
			return nil, customerFieldError(&customers[i], "createdAt", customers[i].CreatedAt, err)
		}
		out[i] = created.In(a.loc)
	}
	return out, nil
}

// isOpen treats a missing status as unfulfilled.
func isOpen(status *string) bool {
	if status == nil {
		return true
	}
	_, closed := closedFulfillmentStatuses[strings.ToLower(strings.TrimSpace(*status))]
	return !closed
}

// monthlySeries emits one entry per month key present, ascending. YYYY-MM keys
// sort lexicographically in chronological order.
func monthlySeries(buckets map[string]decimal.Decimal) []MonthlyRevenue {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	series := make([]MonthlyRevenue, 0, len(keys))
	for _, k := range keys {
		series = append(series, MonthlyRevenue{Month: k, Revenue: buckets[k]})
	}
	return series
}

// recentOrders returns the newest orders first. Equal timestamps keep input order.
func recentOrders(parsed []parsedOrder) []RecentOrder {
	idx := make([]int, len(parsed))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return parsed[idx[i]].created.After(parsed[idx[j]].created)
	})

	n := len(idx)
	if n > RecentOrdersLimit {
		n = RecentOrdersLimit
	}

	out := make([]RecentOrder, 0, n)
	for _, i := range idx[:n] {
		o := parsed[i].order
		out = append(out, RecentOrder{
			ID:                o.ID,
			OrderNumber:       o.OrderNumber,
			TotalPrice:        o.TotalPrice,
			CreatedAt:         o.CreatedAt,
			FinancialStatus:   o.FinancialStatus,
			FulfillmentStatus: cloneString(o.FulfillmentStatus),
		})
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
