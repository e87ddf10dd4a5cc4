package models

import "time"

// OrderRecord is one order line item, pre-joined with product, customer and
// review attributes. Zero time values mean the timestamp was missing and a
// zero ReviewScore means the order has no review.
type OrderRecord struct {
	OrderID             string
	CustomerID          string
	CustomerUniqueID    string
	PurchasedAt         time.Time
	ApprovedAt          time.Time
	DeliveredCarrierAt  time.Time
	DeliveredCustomerAt time.Time
	EstimatedDeliveryAt time.Time
	ShippingLimitAt     time.Time
	PaymentValue        float64
	Category            string
	ProductID           string
	OrderItemID         string
	ReviewScore         int
	CustomerState       string
}

// ApprovedDay truncates the approved timestamp to its calendar day.
func (o OrderRecord) ApprovedDay() time.Time {
	return Day(o.ApprovedAt)
}

// Day drops the clock part of t.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type GeoPoint struct {
	Longitude float64 `json:"lng"`
	Latitude  float64 `json:"lat"`
	ZipPrefix string  `json:"zip_prefix,omitempty"`
	State     string  `json:"state,omitempty"`
}

type DailyOrdersRow struct {
	Day          time.Time `json:"day"`
	OrderCount   int       `json:"order_count"`
	UniqueOrders int       `json:"unique_orders"`
	Revenue      float64   `json:"revenue"`
}

type DailySpendingRow struct {
	Day        time.Time `json:"day"`
	TotalSpend float64   `json:"total_spend"`
}

type CategorySummaryRow struct {
	Category  string `json:"category"`
	ItemsSold int    `json:"items_sold"`
}

type ReviewBucket struct {
	Score int `json:"score"`
	Count int `json:"count"`
}

type ReviewHistogram struct {
	Buckets []ReviewBucket `json:"buckets"`
	Mode    int            `json:"mode"`
	Mean    float64        `json:"mean"`
	Total   int            `json:"total"`
}

type RFMRow struct {
	CustomerID string  `json:"customer_id"`
	Recency    int     `json:"recency"`
	Frequency  int     `json:"frequency"`
	Monetary   float64 `json:"monetary"`
}

type RFMAverages struct {
	Recency   float64 `json:"recency"`
	Frequency float64 `json:"frequency"`
	Monetary  float64 `json:"monetary"`
}

type StateSummaryRow struct {
	State        string  `json:"state"`
	TotalOrders  int     `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
}

type StateSummary struct {
	Rows     []StateSummaryRow `json:"rows"`
	TopState string            `json:"top_state"`
}

type CustomerDistributionRow struct {
	State           string `json:"state"`
	UniqueCustomers int    `json:"unique_customers"`
}

type CustomerDistribution struct {
	Rows     []CustomerDistributionRow `json:"rows"`
	TopState string                    `json:"top_state"`
}
