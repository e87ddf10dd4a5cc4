package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"ecommerce-dashboard/internal/models"
)

const (
	ColOrderID             = "order_id"
	ColCustomerID          = "customer_id"
	ColCustomerUniqueID    = "customer_unique_id"
	ColApprovedAt          = "order_approved_at"
	ColPurchasedAt         = "order_purchase_timestamp"
	ColDeliveredCarrierAt  = "order_delivered_carrier_date"
	ColDeliveredCustomerAt = "order_delivered_customer_date"
	ColEstimatedDeliveryAt = "order_estimated_delivery_date"
	ColShippingLimitAt     = "shipping_limit_date"
	ColPaymentValue        = "payment_value"
	ColCategory            = "product_category_name_english"
	ColProductID           = "product_id"
	ColOrderItemID         = "order_item_id"
	ColReviewScore         = "review_score"
	ColCustomerState       = "customer_state"

	ColGeoLng       = "geolocation_lng"
	ColGeoLat       = "geolocation_lat"
	ColGeoZipPrefix = "geolocation_zip_code_prefix"
	ColGeoState     = "geolocation_state"
)

// orderColumns is the required header set, in export order.
var orderColumns = []string{
	ColOrderID,
	ColCustomerID,
	ColCustomerUniqueID,
	ColPurchasedAt,
	ColApprovedAt,
	ColDeliveredCarrierAt,
	ColDeliveredCustomerAt,
	ColEstimatedDeliveryAt,
	ColShippingLimitAt,
	ColPaymentValue,
	ColCategory,
	ColProductID,
	ColOrderItemID,
	ColReviewScore,
	ColCustomerState,
}

// OrderColumns returns the orders header in export order.
func OrderColumns() []string {
	return slices.Clone(orderColumns)
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	DateLayout,
}

const timestampLayout = "2006-01-02 15:04:05"

// Options control how sources are fetched and cached.
type Options struct {
	// FetchTimeout bounds a single HTTP attempt.
	FetchTimeout time.Duration
	// Retries is the number of extra HTTP attempts after the first.
	Retries int
	// CacheDir holds gob snapshots of parsed local files. Empty disables it.
	CacheDir   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Load reads an orders file from a local path or an http(s) URL. Any
// malformed value fails the whole load.
func Load(ctx context.Context, source string, opts Options) (*OrderTable, error) {
	opts = opts.withDefaults()

	if cached, err := loadFromCache(source, opts.CacheDir); err == nil {
		opts.Logger.Info("loaded orders from cache", "source", source, "records", cached.Len())
		return cached, nil
	}

	df, err := readFrame(ctx, source, opts)
	if err != nil {
		return nil, err
	}

	table, err := parseOrders(source, df)
	if err != nil {
		return nil, err
	}

	if err := saveToCache(source, opts.CacheDir, table); err != nil {
		opts.Logger.Warn("failed to save cache", "source", source, "error", err)
	}
	return table, nil
}

// LoadGeolocation reads longitude/latitude points for the map view.
func LoadGeolocation(ctx context.Context, source string, opts Options) ([]models.GeoPoint, error) {
	opts = opts.withDefaults()

	df, err := readFrame(ctx, source, opts)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(source, df, ColGeoLng, ColGeoLat); err != nil {
		return nil, err
	}

	lngs := df.Col(ColGeoLng).Records()
	lats := df.Col(ColGeoLat).Records()
	zips := optionalColumn(df, ColGeoZipPrefix)
	states := optionalColumn(df, ColGeoState)

	points := make([]models.GeoPoint, 0, len(lngs))
	for i := range lngs {
		lng, err := strconv.ParseFloat(strings.TrimSpace(lngs[i]), 64)
		if err != nil {
			return nil, &LoadError{Source: source, Column: ColGeoLng, Row: i + 1, Err: fmt.Errorf("%w: %q", ErrInvalidValue, lngs[i])}
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(lats[i]), 64)
		if err != nil {
			return nil, &LoadError{Source: source, Column: ColGeoLat, Row: i + 1, Err: fmt.Errorf("%w: %q", ErrInvalidValue, lats[i])}
		}
		points = append(points, models.GeoPoint{
			Longitude: lng,
			Latitude:  lat,
			ZipPrefix: cell(zips, i),
			State:     cell(states, i),
		})
	}
	return points, nil
}

func readFrame(ctx context.Context, source string, opts Options) (dataframe.DataFrame, error) {
	data, err := readSource(ctx, source, opts)
	if err != nil {
		return dataframe.DataFrame{}, &LoadError{Source: source, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return dataframe.DataFrame{}, &LoadError{Source: source, Err: ErrNoRecords}
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, &LoadError{Source: source, Err: fmt.Errorf("%w: %v", ErrNoRecords, df.Err)}
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, &LoadError{Source: source, Err: ErrNoRecords}
	}
	return df, nil
}

func readSource(ctx context.Context, source string, opts Options) ([]byte, error) {
	if !isRemote(source) {
		return os.ReadFile(source)
	}

	var data []byte
	err := retryWithBackoff(ctx, opts.Retries+1, opts.Logger, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.FetchTimeout)
		defer cancel()

		body, err := fetch(attemptCtx, opts.HTTPClient, source)
		if err != nil {
			return err
		}
		data = body
		return nil
	})
	return data, err
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// retryWithBackoff runs fn up to attempts times, sleeping attempt² × 100ms
// between tries.
func retryWithBackoff(ctx context.Context, attempts int, logger *slog.Logger, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			logger.Warn("retrying fetch", "attempt", attempt+1, "max_attempts", attempts, "backoff", backoff)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("all %d attempts failed, last error: %w", attempts, lastErr)
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func requireColumns(source string, df dataframe.DataFrame, cols ...string) error {
	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}
	for _, col := range cols {
		if !present[col] {
			return &LoadError{Source: source, Column: col, Err: ErrMissingColumn}
		}
	}
	return nil
}

func optionalColumn(df dataframe.DataFrame, name string) []string {
	for _, n := range df.Names() {
		if n == name {
			return df.Col(name).Records()
		}
	}
	return nil
}

func cell(col []string, i int) string {
	if i >= len(col) || isNull(col[i]) {
		return ""
	}
	return strings.TrimSpace(col[i])
}

func parseOrders(source string, df dataframe.DataFrame) (*OrderTable, error) {
	if err := requireColumns(source, df, orderColumns...); err != nil {
		return nil, err
	}

	cols := make(map[string][]string, len(orderColumns))
	for _, name := range orderColumns {
		cols[name] = df.Col(name).Records()
	}

	n := df.Nrow()
	rows := make([]models.OrderRecord, n)
	for i := 0; i < n; i++ {
		rec, err := parseRow(cols, i)
		if err != nil {
			err.Source = source
			return nil, err
		}
		rows[i] = rec
	}

	return NewOrderTable(rows), nil
}

func parseRow(cols map[string][]string, i int) (models.OrderRecord, *LoadError) {
	rec := models.OrderRecord{
		OrderID:          cell(cols[ColOrderID], i),
		CustomerID:       cell(cols[ColCustomerID], i),
		CustomerUniqueID: cell(cols[ColCustomerUniqueID], i),
		Category:         cell(cols[ColCategory], i),
		ProductID:        cell(cols[ColProductID], i),
		OrderItemID:      strings.TrimSuffix(cell(cols[ColOrderItemID], i), ".0"),
		CustomerState:    cell(cols[ColCustomerState], i),
	}

	timestamps := []struct {
		col string
		dst *time.Time
	}{
		{ColPurchasedAt, &rec.PurchasedAt},
		{ColApprovedAt, &rec.ApprovedAt},
		{ColDeliveredCarrierAt, &rec.DeliveredCarrierAt},
		{ColDeliveredCustomerAt, &rec.DeliveredCustomerAt},
		{ColEstimatedDeliveryAt, &rec.EstimatedDeliveryAt},
		{ColShippingLimitAt, &rec.ShippingLimitAt},
	}
	for _, ts := range timestamps {
		t, err := parseTimestamp(cols[ts.col][i])
		if err != nil {
			return rec, &LoadError{Column: ts.col, Row: i + 1, Err: err}
		}
		*ts.dst = t
	}

	if raw := cols[ColPaymentValue][i]; !isNull(raw) {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return rec, &LoadError{Column: ColPaymentValue, Row: i + 1, Err: fmt.Errorf("%w: %q", ErrInvalidValue, raw)}
		}
		rec.PaymentValue = v
	}

	if raw := cols[ColReviewScore][i]; !isNull(raw) {
		score, err := parseScore(raw)
		if err != nil {
			return rec, &LoadError{Column: ColReviewScore, Row: i + 1, Err: err}
		}
		rec.ReviewScore = score
	}

	return rec, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if isNull(raw) {
		return time.Time{}, nil
	}
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable timestamp %q", ErrInvalidValue, raw)
}

// parseScore accepts "4" as well as the "4.0" pandas writes for a column
// that contained missing values.
func parseScore(raw string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f != float64(int(f)) || f < 1 || f > 5 {
		return 0, fmt.Errorf("%w: review score %q", ErrInvalidValue, raw)
	}
	return int(f), nil
}

func isNull(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "NA", "NaN", "nan", "<nil>":
		return true
	}
	return false
}

func formatRecord(r models.OrderRecord) []string {
	review := ""
	if r.ReviewScore > 0 {
		review = strconv.Itoa(r.ReviewScore)
	}
	return []string{
		r.OrderID,
		r.CustomerID,
		r.CustomerUniqueID,
		formatTimestamp(r.PurchasedAt),
		formatTimestamp(r.ApprovedAt),
		formatTimestamp(r.DeliveredCarrierAt),
		formatTimestamp(r.DeliveredCustomerAt),
		formatTimestamp(r.EstimatedDeliveryAt),
		formatTimestamp(r.ShippingLimitAt),
		strconv.FormatFloat(r.PaymentValue, 'f', 2, 64),
		r.Category,
		r.ProductID,
		r.OrderItemID,
		review,
		r.CustomerState,
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}
