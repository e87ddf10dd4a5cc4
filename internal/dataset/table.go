package dataset

import (
	"slices"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"ecommerce-dashboard/internal/models"
)

// DateLayout is the calendar-day layout used for range bounds.
const DateLayout = "2006-01-02"

// OrderTable is an immutable set of order line items sorted by approved
// timestamp, with rows lacking one placed last. Filtering returns views
// that share the backing array, so Rows must be treated as read-only.
type OrderTable struct {
	rows []models.OrderRecord
	// dated is the number of leading rows with an approved timestamp.
	dated int
}

// NewOrderTable copies rows and orders them by approved timestamp.
func NewOrderTable(rows []models.OrderRecord) *OrderTable {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b models.OrderRecord) int {
		switch {
		case a.ApprovedAt.IsZero() && b.ApprovedAt.IsZero():
			return 0
		case a.ApprovedAt.IsZero():
			return 1
		case b.ApprovedAt.IsZero():
			return -1
		}
		return a.ApprovedAt.Compare(b.ApprovedAt)
	})
	return newSortedTable(sorted)
}

func newSortedTable(rows []models.OrderRecord) *OrderTable {
	dated := sort.Search(len(rows), func(i int) bool {
		return rows[i].ApprovedAt.IsZero()
	})
	return &OrderTable{rows: rows, dated: dated}
}

func (t *OrderTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows exposes the underlying records. Callers must not modify them.
func (t *OrderTable) Rows() []models.OrderRecord {
	if t == nil {
		return nil
	}
	return t.rows
}

// Bounds returns the first and last approved calendar days.
func (t *OrderTable) Bounds() (minDay, maxDay time.Time, ok bool) {
	if t == nil || t.dated == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.rows[0].ApprovedDay(), t.rows[t.dated-1].ApprovedDay(), true
}

// FilterByDate keeps rows whose approved day lies in [start, end]. Ranges
// outside the data yield an empty table; only end < start is rejected.
func FilterByDate(t *OrderTable, start, end time.Time) (*OrderTable, error) {
	start, end = models.Day(start), models.Day(end)
	if end.Before(start) {
		return nil, &InvalidRangeError{Start: start, End: end, Reason: "end date is before start date"}
	}
	if t == nil {
		return newSortedTable(nil), nil
	}

	lo := sort.Search(t.dated, func(i int) bool {
		return !t.rows[i].ApprovedDay().Before(start)
	})
	hi := sort.Search(t.dated, func(i int) bool {
		return t.rows[i].ApprovedDay().After(end)
	})
	if hi < lo {
		hi = lo
	}

	view := t.rows[lo:hi:hi]
	return &OrderTable{rows: view, dated: len(view)}, nil
}

// ValidateRange applies the date picker's constraints: the range must be
// ordered and lie within the table's approved-date bounds.
func ValidateRange(t *OrderTable, start, end time.Time) error {
	start, end = models.Day(start), models.Day(end)
	if end.Before(start) {
		return &InvalidRangeError{Start: start, End: end, Reason: "end date is before start date"}
	}

	minDay, maxDay, ok := t.Bounds()
	if !ok {
		return nil
	}
	if start.Before(minDay) || end.After(maxDay) {
		return &InvalidRangeError{
			Start:  start,
			End:    end,
			Reason: "range must lie within " + minDay.Format(DateLayout) + ".." + maxDay.Format(DateLayout),
		}
	}
	return nil
}

// DataFrame renders the first limit rows (all rows when limit <= 0) as a
// string-typed dataframe using the source column names.
func (t *OrderTable) DataFrame(limit int) dataframe.DataFrame {
	rows := t.Rows()
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, slices.Clone(orderColumns))
	for _, r := range rows {
		records = append(records, formatRecord(r))
	}

	return dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
}
