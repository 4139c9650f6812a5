package analytics

import "github.com/shopspring/decimal"

// DailySeries buckets orders and new customers by calendar day across r. Every
// day of r is present, including days without activity. Records outside r
// are ignored.
func (a *Aggregator) DailySeries(orders []Order, customers []Customer, r DateRange) (*HistoricalData, error) {
	parsed, err := a.parseOrders(orders)
	if err != nil {
		return nil, err
	}
	customerTimes, err := a.parseCustomers(customers)
	if err != nil {
		return nil, err
	}

	start := r.Start.In(a.loc)
	end := r.End.In(a.loc)

	h := &HistoricalData{}
	slot := make(map[string]int)
	for d := start; d.Before(end); d = addDays(d, 1) {
		label := d.Format(dateLayout)
		slot[label] = len(h.Dates)
		h.Dates = append(h.Dates, label)
		h.Revenue = append(h.Revenue, decimal.Zero)
		h.Orders = append(h.Orders, 0)
		h.Customers = append(h.Customers, 0)
	}

	for _, p := range parsed {
		if !r.Contains(p.created) {
			continue
		}
		if i, ok := slot[p.created.Format(dateLayout)]; ok {
			h.Revenue[i] = h.Revenue[i].Add(p.price)
			h.Orders[i]++
		}
	}

	for _, created := range customerTimes {
		if !r.Contains(created) {
			continue
		}
		if i, ok := slot[created.Format(dateLayout)]; ok {
			h.Customers[i]++
		}
	}

	if h.Dates == nil {
		h.Dates = []string{}
		h.Revenue = []decimal.Decimal{}
		h.Orders = []int{}
		h.Customers = []int{}
	}
	return h, nil
}
