// Package metrics derives the dashboard's aggregate tables from a filtered
// order table. Every function is a pure read of its input, so they can run
// concurrently against the same rows.
package metrics

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

const (
	maxWorkers      = 7
	rankedViewSize  = 5
	unknownCategory = "unknown"
)

// Totals are the headline scalars shown above each chart.
type Totals struct {
	Orders           int     `json:"orders"`
	Revenue          float64 `json:"revenue"`
	Spending         float64 `json:"spending"`
	AverageSpending  float64 `json:"average_spending"`
	ItemsOrdered     int     `json:"items_ordered"`
	AverageItems     int     `json:"average_items"`
	AverageReview    float64 `json:"average_review"`
	MostCommonReview int     `json:"most_common_review"`
}

type Report struct {
	Start                time.Time                   `json:"start"`
	End                  time.Time                   `json:"end"`
	Rows                 int                         `json:"rows"`
	Empty                bool                        `json:"empty"`
	Totals               Totals                      `json:"totals"`
	DailyOrders          []models.DailyOrdersRow     `json:"daily_orders"`
	DailySpending        []models.DailySpendingRow   `json:"daily_spending"`
	Categories           []models.CategorySummaryRow `json:"categories"`
	TopCategories        []models.CategorySummaryRow `json:"top_categories"`
	BottomCategories     []models.CategorySummaryRow `json:"bottom_categories"`
	Reviews              models.ReviewHistogram      `json:"reviews"`
	RFM                  []models.RFMRow             `json:"rfm"`
	RFMAverages          models.RFMAverages          `json:"rfm_averages"`
	States               models.StateSummary         `json:"states"`
	CustomerDistribution models.CustomerDistribution `json:"customer_distribution"`
}

// Compute runs all seven aggregations over t concurrently.
func Compute(ctx context.Context, t *dataset.OrderTable) (*Report, error) {
	rows := t.Rows()
	report := &Report{Rows: len(rows), Empty: len(rows) == 0}
	if minDay, maxDay, ok := t.Bounds(); ok {
		report.Start, report.End = minDay, maxDay
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	steps := []func(){
		func() { report.DailyOrders = DailyOrders(rows) },
		func() { report.DailySpending = DailySpending(rows) },
		func() { report.Categories = CategorySummary(rows) },
		func() { report.Reviews = ReviewScores(rows) },
		func() { report.RFM = RFM(rows) },
		func() { report.States = StateSummary(rows) },
		func() { report.CustomerDistribution = CustomerDistribution(rows) },
	}
	for _, step := range steps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			step()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.TopCategories = TopCategories(report.Categories, rankedViewSize)
	report.BottomCategories = BottomCategories(report.Categories, rankedViewSize)
	report.RFMAverages = AverageRFM(report.RFM)
	report.Totals = totals(report)
	return report, nil
}

func totals(r *Report) Totals {
	var t Totals
	for _, d := range r.DailyOrders {
		t.Orders += d.OrderCount
		t.Revenue += d.Revenue
	}
	for _, d := range r.DailySpending {
		t.Spending += d.TotalSpend
	}
	if len(r.DailySpending) > 0 {
		t.AverageSpending = t.Spending / float64(len(r.DailySpending))
	}
	for _, c := range r.Categories {
		t.ItemsOrdered += c.ItemsSold
	}
	if len(r.Categories) > 0 {
		t.AverageItems = int(math.Ceil(float64(t.ItemsOrdered) / float64(len(r.Categories))))
	}
	t.AverageReview = math.Round(r.Reviews.Mean*100) / 100
	t.MostCommonReview = r.Reviews.Mode
	return t
}

// DailyOrders buckets rows by approved day. Days without orders are not
// synthesized.
func DailyOrders(rows []models.OrderRecord) []models.DailyOrdersRow {
	type bucket struct {
		row    models.DailyOrdersRow
		orders map[string]struct{}
	}
	buckets := make(map[time.Time]*bucket)

	for _, r := range rows {
		day := r.ApprovedDay()
		b := buckets[day]
		if b == nil {
			b = &bucket{row: models.DailyOrdersRow{Day: day}, orders: make(map[string]struct{})}
			buckets[day] = b
		}
		if r.OrderID != "" {
			b.row.OrderCount++
			b.orders[r.OrderID] = struct{}{}
		}
		b.row.Revenue += r.PaymentValue
	}

	result := make([]models.DailyOrdersRow, 0, len(buckets))
	for _, b := range buckets {
		b.row.UniqueOrders = len(b.orders)
		result = append(result, b.row)
	}
	slices.SortFunc(result, func(a, b models.DailyOrdersRow) int {
		return a.Day.Compare(b.Day)
	})
	return result
}

func DailySpending(rows []models.OrderRecord) []models.DailySpendingRow {
	sums := make(map[time.Time]float64)
	for _, r := range rows {
		sums[r.ApprovedDay()] += r.PaymentValue
	}

	result := make([]models.DailySpendingRow, 0, len(sums))
	for day, total := range sums {
		result = append(result, models.DailySpendingRow{Day: day, TotalSpend: total})
	}
	slices.SortFunc(result, func(a, b models.DailySpendingRow) int {
		return a.Day.Compare(b.Day)
	})
	return result
}

// CategorySummary counts line items per category, most sold first. Ties
// are ordered by category name.
func CategorySummary(rows []models.OrderRecord) []models.CategorySummaryRow {
	counts := make(map[string]int)
	for _, r := range rows {
		category := r.Category
		if category == "" {
			category = unknownCategory
		}
		counts[category]++
	}

	result := make([]models.CategorySummaryRow, 0, len(counts))
	for category, n := range counts {
		result = append(result, models.CategorySummaryRow{Category: category, ItemsSold: n})
	}
	slices.SortFunc(result, func(a, b models.CategorySummaryRow) int {
		if c := cmp.Compare(b.ItemsSold, a.ItemsSold); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return result
}

// TopCategories returns the first n rows of a descending summary.
func TopCategories(summary []models.CategorySummaryRow, n int) []models.CategorySummaryRow {
	return slices.Clone(summary[:min(n, len(summary))])
}

// BottomCategories returns the n least sold categories, least first.
func BottomCategories(summary []models.CategorySummaryRow, n int) []models.CategorySummaryRow {
	tail := slices.Clone(summary[len(summary)-min(n, len(summary)):])
	slices.Reverse(tail)
	return tail
}

// ReviewScores builds the score histogram. The mode is the most frequent
// score, the smallest one on ties.
func ReviewScores(rows []models.OrderRecord) models.ReviewHistogram {
	var counts [6]int
	for _, r := range rows {
		if r.ReviewScore >= 1 && r.ReviewScore <= 5 {
			counts[r.ReviewScore]++
		}
	}

	h := models.ReviewHistogram{Buckets: make([]models.ReviewBucket, 0, 5)}
	best, sum := 0, 0
	for score := 1; score <= 5; score++ {
		n := counts[score]
		if n == 0 {
			continue
		}
		h.Buckets = append(h.Buckets, models.ReviewBucket{Score: score, Count: n})
		h.Total += n
		sum += score * n
		if n > best {
			best, h.Mode = n, score
		}
	}
	if h.Total > 0 {
		h.Mean = float64(sum) / float64(h.Total)
	}
	return h
}

// RFM scores each customer against the latest approved day in rows.
func RFM(rows []models.OrderRecord) []models.RFMRow {
	type acc struct {
		last     time.Time
		orders   map[string]struct{}
		monetary float64
	}
	customers := make(map[string]*acc)
	var latest time.Time

	for _, r := range rows {
		id := r.CustomerUniqueID
		if id == "" {
			id = r.CustomerID
		}
		day := r.ApprovedDay()
		if day.After(latest) {
			latest = day
		}

		a := customers[id]
		if a == nil {
			a = &acc{orders: make(map[string]struct{})}
			customers[id] = a
		}
		if day.After(a.last) {
			a.last = day
		}
		if r.OrderID != "" {
			a.orders[r.OrderID] = struct{}{}
		}
		a.monetary += r.PaymentValue
	}

	result := make([]models.RFMRow, 0, len(customers))
	for id, a := range customers {
		result = append(result, models.RFMRow{
			CustomerID: id,
			Recency:    int(latest.Sub(a.last).Hours() / 24),
			Frequency:  len(a.orders),
			Monetary:   a.monetary,
		})
	}
	slices.SortFunc(result, func(a, b models.RFMRow) int {
		return cmp.Compare(a.CustomerID, b.CustomerID)
	})
	return result
}

func AverageRFM(rows []models.RFMRow) models.RFMAverages {
	if len(rows) == 0 {
		return models.RFMAverages{}
	}
	var avg models.RFMAverages
	for _, r := range rows {
		avg.Recency += float64(r.Recency)
		avg.Frequency += float64(r.Frequency)
		avg.Monetary += r.Monetary
	}
	n := float64(len(rows))
	avg.Recency /= n
	avg.Frequency /= n
	avg.Monetary /= n
	return avg
}

// StateSummary groups orders by customer state in state order. TopState is
// the first state with the highest order count.
func StateSummary(rows []models.OrderRecord) models.StateSummary {
	groups := make(map[string]*models.StateSummaryRow)
	for _, r := range rows {
		g := groups[r.CustomerState]
		if g == nil {
			g = &models.StateSummaryRow{State: r.CustomerState}
			groups[r.CustomerState] = g
		}
		if r.OrderID != "" {
			g.TotalOrders++
		}
		g.TotalRevenue += r.PaymentValue
	}

	summary := models.StateSummary{Rows: make([]models.StateSummaryRow, 0, len(groups))}
	for _, g := range groups {
		summary.Rows = append(summary.Rows, *g)
	}
	slices.SortFunc(summary.Rows, func(a, b models.StateSummaryRow) int {
		return cmp.Compare(a.State, b.State)
	})

	best := -1
	for _, row := range summary.Rows {
		if row.TotalOrders > best {
			best, summary.TopState = row.TotalOrders, row.State
		}
	}
	return summary
}

// CustomerDistribution counts distinct customers per state, largest first.
func CustomerDistribution(rows []models.OrderRecord) models.CustomerDistribution {
	customers := make(map[string]map[string]struct{})
	for _, r := range rows {
		set := customers[r.CustomerState]
		if set == nil {
			set = make(map[string]struct{})
			customers[r.CustomerState] = set
		}
		if r.CustomerID != "" {
			set[r.CustomerID] = struct{}{}
		}
	}

	dist := models.CustomerDistribution{Rows: make([]models.CustomerDistributionRow, 0, len(customers))}
	for state, set := range customers {
		dist.Rows = append(dist.Rows, models.CustomerDistributionRow{State: state, UniqueCustomers: len(set)})
	}
	slices.SortFunc(dist.Rows, func(a, b models.CustomerDistributionRow) int {
		if c := cmp.Compare(b.UniqueCustomers, a.UniqueCustomers); c != 0 {
			return c
		}
		return cmp.Compare(a.State, b.State)
	})
	if len(dist.Rows) > 0 {
		dist.TopState = dist.Rows[0].State
	}
	return dist
}

// FillMissingDays inserts zero rows for every day in [start, end] that has
// no orders, for charts that need a continuous calendar axis.
func FillMissingDays(rows []models.DailyOrdersRow, start, end time.Time) []models.DailyOrdersRow {
	start, end = models.Day(start), models.Day(end)
	if end.Before(start) {
		return slices.Clone(rows)
	}

	byDay := make(map[time.Time]models.DailyOrdersRow, len(rows))
	for _, r := range rows {
		byDay[r.Day] = r
	}

	filled := make([]models.DailyOrdersRow, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if r, ok := byDay[day]; ok {
			filled = append(filled, r)
			continue
		}
		filled = append(filled, models.DailyOrdersRow{Day: day})
	}
	return filled
}
