package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xuri/excelize/v2"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

const exportOrderRows = 10000

type ExportHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewExportHandlers(dashboard *services.Dashboard, logger *slog.Logger) *ExportHandlers {
	return &ExportHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

type sheet struct {
	name   string
	header []any
	rows   [][]any
}

// HandleXLSX streams a workbook with one sheet per metric for the
// requested date range.
func (h *ExportHandlers) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	rng, err := parseRange(r)
	if err != nil {
		errors.WriteError(w, r, h.logger, err, requestID)
		return
	}

	report, err := h.dashboard.Report(r.Context(), rng)
	if err != nil {
		errors.WriteError(w, r, h.logger, err, requestID)
		return
	}
	filtered, _, err := h.dashboard.Filter(rng)
	if err != nil {
		errors.WriteError(w, r, h.logger, err, requestID)
		return
	}

	f, err := buildWorkbook(report, ordersSheet(filtered))
	if err != nil {
		errors.WriteError(w, r, h.logger, fmt.Errorf("build workbook: %w", err), requestID)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("orders_%s_%s.xlsx", report.Start.Format(dataset.DateLayout), report.End.Format(dataset.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		h.logger.ErrorContext(r.Context(), "write workbook", "error", err)
	}
}

func buildWorkbook(report *metrics.Report, orders sheet) (*excelize.File, error) {
	f := excelize.NewFile()

	sheets := append(metricSheets(report), orders)
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write %s header: %w", s.name, err)
		}
		for i, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				f.Close()
				return nil, fmt.Errorf("write %s row %d: %w", s.name, i+1, err)
			}
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

func metricSheets(r *metrics.Report) []sheet {
	t := r.Totals
	summary := sheet{
		name:   "Summary",
		header: []any{"Metric", "Value"},
		rows: [][]any{
			{"Start", r.Start.Format(dataset.DateLayout)},
			{"End", r.End.Format(dataset.DateLayout)},
			{"Total orders", t.Orders},
			{"Total revenue", t.Revenue},
			{"Total spending", t.Spending},
			{"Average daily spending", t.AverageSpending},
			{"Items ordered", t.ItemsOrdered},
			{"Average items per category", t.AverageItems},
			{"Average review", t.AverageReview},
			{"Most common review", t.MostCommonReview},
		},
	}

	daily := sheet{name: "Daily Orders", header: []any{"Day", "Orders", "Unique orders", "Revenue"}}
	for _, d := range r.DailyOrders {
		daily.rows = append(daily.rows, []any{d.Day.Format(dataset.DateLayout), d.OrderCount, d.UniqueOrders, d.Revenue})
	}

	spending := sheet{name: "Daily Spending", header: []any{"Day", "Total spend"}}
	for _, d := range r.DailySpending {
		spending.rows = append(spending.rows, []any{d.Day.Format(dataset.DateLayout), d.TotalSpend})
	}

	categories := sheet{name: "Categories", header: []any{"Category", "Items sold"}}
	for _, c := range r.Categories {
		categories.rows = append(categories.rows, []any{c.Category, c.ItemsSold})
	}

	reviews := sheet{name: "Reviews", header: []any{"Score", "Count"}}
	for _, b := range r.Reviews.Buckets {
		reviews.rows = append(reviews.rows, []any{b.Score, b.Count})
	}

	rfm := sheet{name: "RFM", header: []any{"Customer", "Recency", "Frequency", "Monetary"}}
	for _, c := range r.RFM {
		rfm.rows = append(rfm.rows, []any{c.CustomerID, c.Recency, c.Frequency, c.Monetary})
	}

	states := sheet{name: "States", header: []any{"State", "Orders", "Revenue"}}
	for _, s := range r.States.Rows {
		states.rows = append(states.rows, []any{s.State, s.TotalOrders, s.TotalRevenue})
	}

	customers := sheet{name: "Customers", header: []any{"State", "Unique customers"}}
	for _, c := range r.CustomerDistribution.Rows {
		customers.rows = append(customers.rows, []any{c.State, c.UniqueCustomers})
	}

	return []sheet{summary, daily, spending, categories, reviews, rfm, states, customers}
}

// ordersSheet copies the first exportOrderRows filtered rows via the
// table's string dataframe.
func ordersSheet(t *dataset.OrderTable) sheet {
	s := sheet{name: "Orders"}
	for _, col := range dataset.OrderColumns() {
		s.header = append(s.header, col)
	}
	if t.Len() == 0 {
		return s
	}

	records := t.DataFrame(exportOrderRows).Records()
	for _, rec := range records[1:] {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		s.rows = append(s.rows, row)
	}
	return s
}
