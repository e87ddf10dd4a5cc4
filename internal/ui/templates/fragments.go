package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/models"
)

// Element ids patched by the refresh stream.
const (
	StatusID     = "status"
	SummaryID    = "summary-cards"
	CategoriesID = "category-content"
	ReviewsID    = "review-content"
	StatesID     = "state-content"
	CustomersID  = "customer-content"
	RFMID        = "rfm-content"
)

const maxTableRows = 30

// Status shows a banner above the charts. An empty message clears it.
func Status(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div id="` + StatusID + `">`)
		if message != "" {
			w.raw(`<p class="status-banner">`)
			w.text(message)
			w.raw(`</p>`)
		}
		w.raw(`</div>`)
		return w.err
	})
}

// ReportStatus is the banner for a freshly computed report.
func ReportStatus(r *metrics.Report) templ.Component {
	if r.Empty {
		return Status("No orders were approved between " + Date(r.Start) + " and " + Date(r.End) + ".")
	}
	return Status("")
}

func SummaryCards(r *metrics.Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		t := r.Totals

		w.raw(`<div id="` + SummaryID + `" class="cards">`)
		card(w, "Total orders", Count(t.Orders))
		card(w, "Total revenue", Currency(t.Revenue))
		card(w, "Total spending", Currency(t.Spending))
		card(w, "Average daily spending", Currency(t.AverageSpending))
		card(w, "Items ordered", Count(t.ItemsOrdered))
		card(w, "Average items per category", Count(t.AverageItems))
		card(w, "Average review", Decimal(t.AverageReview))
		card(w, "Most common review", reviewLabel(t.MostCommonReview))
		w.raw(`</div>`)
		return w.err
	})
}

func card(w *writer, label, value string) {
	w.raw(`<div class="card"><span class="card-label">`)
	w.text(label)
	w.raw(`</span><strong class="card-value">`)
	w.text(value)
	w.raw(`</strong></div>`)
}

func reviewLabel(score int) string {
	if score == 0 {
		return "n/a"
	}
	return strconv.Itoa(score) + " / 5"
}

func CategoryTables(r *metrics.Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div id="` + CategoriesID + `" class="split">`)
		categoryTable(w, "Most sold categories", r.TopCategories)
		categoryTable(w, "Least sold categories", r.BottomCategories)
		w.raw(`</div>`)
		return w.err
	})
}

func categoryTable(w *writer, title string, rows []models.CategorySummaryRow) {
	w.raw(`<section><h3>`)
	w.text(title)
	w.raw(`</h3><table class="modern-table"><thead><tr><th>Category</th><th>Items sold</th></tr></thead><tbody>`)
	for _, row := range rows {
		w.raw(`<tr>`)
		w.raw(`<td><span class="category-badge">`)
		w.text(row.Category)
		w.raw(`</span></td>`)
		w.cell(Count(row.ItemsSold))
		w.raw(`</tr>`)
	}
	w.raw(`</tbody></table></section>`)
}

func ReviewTable(h models.ReviewHistogram) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div id="` + ReviewsID + `"><table class="modern-table"><thead><tr><th>Score</th><th>Reviews</th></tr></thead><tbody>`)
		for _, b := range h.Buckets {
			w.raw(`<tr>`)
			w.cell(strconv.Itoa(b.Score))
			w.cell(Count(b.Count))
			w.raw(`</tr>`)
		}
		w.raw(`</tbody></table></div>`)
		return w.err
	})
}

// StateTable lists states by order count. Rows beyond maxTableRows are
// left to the JSON API.
func StateTable(s models.StateSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div id="` + StatesID + `">`)
		if s.TopState != "" {
			w.raw(`<p>Most orders: <strong>`)
			w.text(s.TopState)
			w.raw(`</strong></p>`)
		}
		w.raw(`<table class="modern-table"><thead><tr><th>State</th><th>Orders</th><th>Revenue</th></tr></thead><tbody>`)
		for i, row := range s.Rows {
			if i == maxTableRows {
				break
			}
			w.raw(`<tr>`)
			w.cell(row.State)
			w.cell(Count(row.TotalOrders))
			w.cell(Currency(row.TotalRevenue))
			w.raw(`</tr>`)
		}
		w.raw(`</tbody></table></div>`)
		return w.err
	})
}

func CustomerTable(d models.CustomerDistribution) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div id="` + CustomersID + `">`)
		if d.TopState != "" {
			w.raw(`<p>Most customers: <strong>`)
			w.text(d.TopState)
			w.raw(`</strong></p>`)
		}
		w.raw(`<table class="modern-table"><thead><tr><th>State</th><th>Customers</th></tr></thead><tbody>`)
		for i, row := range d.Rows {
			if i == maxTableRows {
				break
			}
			w.raw(`<tr>`)
			w.cell(row.State)
			w.cell(Count(row.UniqueCustomers))
			w.raw(`</tr>`)
		}
		w.raw(`</tbody></table></div>`)
		return w.err
	})
}

func RFMSummary(avg models.RFMAverages, customers int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div id="` + RFMID + `" class="cards">`)
		card(w, "Customers", Count(customers))
		card(w, "Average recency (days)", Decimal(avg.Recency))
		card(w, "Average frequency", Decimal(avg.Frequency))
		card(w, "Average monetary", Currency(avg.Monetary))
		w.raw(`</div>`)
		return w.err
	})
}

// Fragments returns every component the refresh stream patches, in page
// order.
func Fragments(r *metrics.Report) []templ.Component {
	return []templ.Component{
		ReportStatus(r),
		SummaryCards(r),
		CategoryTables(r),
		ReviewTable(r.Reviews),
		RFMSummary(r.RFMAverages, len(r.RFM)),
		StateTable(r.States),
		CustomerTable(r.CustomerDistribution),
	}
}
