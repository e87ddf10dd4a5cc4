package metrics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 30, 0, 0, time.UTC)
}

func sampleRows() []models.OrderRecord {
	return []models.OrderRecord{
		{OrderID: "o1", CustomerID: "c1", CustomerUniqueID: "u1", ApprovedAt: at(2018, 1, 1, 9), PaymentValue: 10, Category: "toys", ReviewScore: 5, CustomerState: "SP"},
		{OrderID: "o1", CustomerID: "c1", CustomerUniqueID: "u1", ApprovedAt: at(2018, 1, 1, 9), PaymentValue: 20, Category: "toys", ReviewScore: 5, CustomerState: "SP"},
		{OrderID: "o2", CustomerID: "c2", CustomerUniqueID: "u2", ApprovedAt: at(2018, 1, 3, 14), PaymentValue: 5, Category: "books", ReviewScore: 3, CustomerState: "RJ"},
		{OrderID: "o3", CustomerID: "c3", CustomerUniqueID: "u1", ApprovedAt: at(2018, 1, 5, 8), PaymentValue: 40, Category: "garden", ReviewScore: 0, CustomerState: "SP"},
		{OrderID: "o4", CustomerID: "c4", CustomerUniqueID: "u3", ApprovedAt: at(2018, 1, 5, 20), PaymentValue: 15.5, Category: "", ReviewScore: 4, CustomerState: "MG"},
	}
}

func TestDailyOrders_ThreeOrdersSameDay(t *testing.T) {
	rows := []models.OrderRecord{
		{OrderID: "a", ApprovedAt: at(2018, 1, 1, 8), PaymentValue: 10.00},
		{OrderID: "b", ApprovedAt: at(2018, 1, 1, 12), PaymentValue: 20.00},
		{OrderID: "c", ApprovedAt: at(2018, 1, 1, 23), PaymentValue: 5.00},
	}

	got := DailyOrders(rows)

	require.Len(t, got, 1)
	assert.Equal(t, day(2018, 1, 1), got[0].Day)
	assert.Equal(t, 3, got[0].OrderCount)
	assert.Equal(t, 3, got[0].UniqueOrders)
	assert.InDelta(t, 35.00, got[0].Revenue, 1e-9)
}

func TestDailyOrders_NoZeroFill(t *testing.T) {
	got := DailyOrders(sampleRows())

	require.Len(t, got, 3)
	assert.Equal(t, day(2018, 1, 1), got[0].Day)
	assert.Equal(t, day(2018, 1, 3), got[1].Day)
	assert.Equal(t, day(2018, 1, 5), got[2].Day)
	assert.Equal(t, 2, got[0].OrderCount)
	assert.Equal(t, 1, got[0].UniqueOrders)
}

func TestDailyOrders_RevenueMatchesPaymentTotal(t *testing.T) {
	rows := sampleRows()
	var want float64
	for _, r := range rows {
		want += r.PaymentValue
	}

	var got float64
	for _, d := range DailyOrders(rows) {
		got += d.Revenue
	}
	assert.InDelta(t, want, got, 1e-9)
}

func TestDailySpending(t *testing.T) {
	got := DailySpending(sampleRows())

	require.Len(t, got, 3)
	assert.InDelta(t, 30.0, got[0].TotalSpend, 1e-9)
	assert.InDelta(t, 5.0, got[1].TotalSpend, 1e-9)
	assert.InDelta(t, 55.5, got[2].TotalSpend, 1e-9)
}

func TestCategorySummary_SortedAndComplete(t *testing.T) {
	rows := sampleRows()
	got := CategorySummary(rows)

	want := []models.CategorySummaryRow{
		{Category: "toys", ItemsSold: 2},
		{Category: "books", ItemsSold: 1},
		{Category: "garden", ItemsSold: 1},
		{Category: "unknown", ItemsSold: 1},
	}
	assert.Equal(t, want, got)

	total := 0
	for i, c := range got {
		total += c.ItemsSold
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].ItemsSold, c.ItemsSold)
		}
	}
	assert.Equal(t, len(rows), total)
}

func TestTopAndBottomCategories(t *testing.T) {
	summary := CategorySummary(sampleRows())

	top := TopCategories(summary, 2)
	bottom := BottomCategories(summary, 2)

	assert.Equal(t, []string{"toys", "books"}, categoryNames(top))
	assert.Equal(t, []string{"unknown", "garden"}, categoryNames(bottom))
	assert.Len(t, TopCategories(summary, 10), 4)
	assert.Empty(t, BottomCategories(nil, 5))
}

func categoryNames(rows []models.CategorySummaryRow) []string {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Category
	}
	return names
}

func TestReviewScores(t *testing.T) {
	got := ReviewScores(sampleRows())

	assert.Equal(t, []models.ReviewBucket{
		{Score: 3, Count: 1},
		{Score: 4, Count: 1},
		{Score: 5, Count: 2},
	}, got.Buckets)
	assert.Equal(t, 5, got.Mode)
	assert.Equal(t, 4, got.Total)
	assert.InDelta(t, 4.25, got.Mean, 1e-9)
}

func TestReviewScores_TieTakesSmallestScore(t *testing.T) {
	rows := []models.OrderRecord{
		{ReviewScore: 4}, {ReviewScore: 2}, {ReviewScore: 4}, {ReviewScore: 2}, {ReviewScore: 1},
	}

	got := ReviewScores(rows)

	assert.Equal(t, 2, got.Mode)
	assert.Equal(t, 5, got.Total)
}

func TestRFM(t *testing.T) {
	got := RFM(sampleRows())

	want := []models.RFMRow{
		{CustomerID: "u1", Recency: 0, Frequency: 2, Monetary: 70},
		{CustomerID: "u2", Recency: 2, Frequency: 1, Monetary: 5},
		{CustomerID: "u3", Recency: 0, Frequency: 1, Monetary: 15.5},
	}
	assert.Equal(t, want, got)
	for _, r := range got {
		assert.GreaterOrEqual(t, r.Recency, 0)
	}
}

func TestRFM_FallsBackToCustomerID(t *testing.T) {
	rows := []models.OrderRecord{
		{OrderID: "o1", CustomerID: "c9", ApprovedAt: at(2018, 2, 1, 1), PaymentValue: 3},
	}

	got := RFM(rows)

	require.Len(t, got, 1)
	assert.Equal(t, "c9", got[0].CustomerID)
}

func TestAverageRFM(t *testing.T) {
	avg := AverageRFM([]models.RFMRow{
		{Recency: 0, Frequency: 2, Monetary: 10},
		{Recency: 4, Frequency: 1, Monetary: 20},
	})

	assert.InDelta(t, 2.0, avg.Recency, 1e-9)
	assert.InDelta(t, 1.5, avg.Frequency, 1e-9)
	assert.InDelta(t, 15.0, avg.Monetary, 1e-9)
	assert.Equal(t, models.RFMAverages{}, AverageRFM(nil))
}

func TestStateSummary(t *testing.T) {
	got := StateSummary(sampleRows())

	assert.Equal(t, []models.StateSummaryRow{
		{State: "MG", TotalOrders: 1, TotalRevenue: 15.5},
		{State: "RJ", TotalOrders: 1, TotalRevenue: 5},
		{State: "SP", TotalOrders: 3, TotalRevenue: 70},
	}, got.Rows)
	assert.Equal(t, "SP", got.TopState)
}

func TestStateSummary_TieTakesFirstState(t *testing.T) {
	rows := []models.OrderRecord{
		{OrderID: "1", CustomerState: "SP"},
		{OrderID: "2", CustomerState: "BA"},
	}

	assert.Equal(t, "BA", StateSummary(rows).TopState)
}

func TestCustomerDistribution(t *testing.T) {
	got := CustomerDistribution(sampleRows())

	assert.Equal(t, []models.CustomerDistributionRow{
		{State: "SP", UniqueCustomers: 2},
		{State: "MG", UniqueCustomers: 1},
		{State: "RJ", UniqueCustomers: 1},
	}, got.Rows)
	assert.Equal(t, "SP", got.TopState)
}

func TestFillMissingDays(t *testing.T) {
	rows := DailyOrders(sampleRows())

	filled := FillMissingDays(rows, day(2018, 1, 1), day(2018, 1, 5))

	require.Len(t, filled, 5)
	assert.Equal(t, day(2018, 1, 2), filled[1].Day)
	assert.Zero(t, filled[1].OrderCount)
	assert.Equal(t, rows[1], filled[2])
}

func TestCompute(t *testing.T) {
	report, err := Compute(context.Background(), dataset.NewOrderTable(sampleRows()))
	require.NoError(t, err)

	assert.False(t, report.Empty)
	assert.Equal(t, 5, report.Rows)
	assert.Equal(t, day(2018, 1, 1), report.Start)
	assert.Equal(t, day(2018, 1, 5), report.End)
	assert.Equal(t, 5, report.Totals.Orders)
	assert.InDelta(t, 90.5, report.Totals.Revenue, 1e-9)
	assert.InDelta(t, 90.5, report.Totals.Spending, 1e-9)
	assert.InDelta(t, 90.5/3, report.Totals.AverageSpending, 1e-9)
	assert.Equal(t, 5, report.Totals.ItemsOrdered)
	assert.Equal(t, 2, report.Totals.AverageItems)
	assert.InDelta(t, 4.25, report.Totals.AverageReview, 1e-9)
	assert.Equal(t, 5, report.Totals.MostCommonReview)
	assert.Len(t, report.TopCategories, 4)
	assert.Equal(t, "SP", report.States.TopState)
}

func TestCompute_EmptyTable(t *testing.T) {
	report, err := Compute(context.Background(), dataset.NewOrderTable(nil))
	require.NoError(t, err)

	assert.True(t, report.Empty)
	assert.NotNil(t, report.DailyOrders)
	assert.Empty(t, report.DailyOrders)
	assert.Empty(t, report.DailySpending)
	assert.Empty(t, report.Categories)
	assert.Empty(t, report.Reviews.Buckets)
	assert.Zero(t, report.Reviews.Mode)
	assert.Empty(t, report.RFM)
	assert.Empty(t, report.States.Rows)
	assert.Empty(t, report.States.TopState)
	assert.Empty(t, report.CustomerDistribution.Rows)
	assert.Equal(t, Totals{}, report.Totals)
}

func TestCompute_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compute(ctx, dataset.NewOrderTable(sampleRows()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompute_Deterministic(t *testing.T) {
	table := dataset.NewOrderTable(sampleRows())

	first, err := Compute(context.Background(), table)
	require.NoError(t, err)
	second, err := Compute(context.Background(), table)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reports differ (-first +second):\n%s", diff)
	}

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func BenchmarkCompute(b *testing.B) {
	rows := make([]models.OrderRecord, 10000)
	for i := range rows {
		rows[i] = models.OrderRecord{
			OrderID:       "o" + string(rune('a'+i%26)),
			CustomerID:    "c" + string(rune('a'+i%13)),
			ApprovedAt:    day(2018, 1, 1).AddDate(0, 0, i%90),
			PaymentValue:  float64(i % 100),
			Category:      "cat" + string(rune('a'+i%7)),
			ReviewScore:   i%5 + 1,
			CustomerState: "S" + string(rune('A'+i%20)),
		}
	}
	table := dataset.NewOrderTable(rows)

	b.ResetTimer()
	for b.Loop() {
		_, _ = Compute(context.Background(), table)
	}
}
