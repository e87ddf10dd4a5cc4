package templates

import (
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"

	"ecommerce-dashboard/internal/metrics"
)

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"
	chartScript    = "https://cdn.jsdelivr.net/npm/chart.js@4.4.4/dist/chart.umd.min.js"
)

// PageData seeds the dashboard with the loaded date bounds and the report
// for the default range.
type PageData struct {
	Title  string
	Min    string
	Max    string
	Report *metrics.Report
}

// ChartSignals are the Datastar signals the charts redraw from. The
// underscore prefix keeps them out of requests sent back to the server.
func ChartSignals(r *metrics.Report) map[string]any {
	return map[string]any{
		"_dailyOrders":   r.DailyOrders,
		"_dailySpending": r.DailySpending,
		"_categories":    r.Categories,
		"_reviews":       r.Reviews.Buckets,
		"_states":        r.States.Rows,
	}
}

func initialSignals(p PageData) (string, error) {
	signals := ChartSignals(p.Report)
	signals["start"] = Date(p.Report.Start)
	signals["end"] = Date(p.Report.End)
	b, err := json.Marshal(signals)
	return string(b), err
}

func Dashboard(p PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		signals, err := initialSignals(p)
		if err != nil {
			return err
		}
		title := p.Title
		if title == "" {
			title = "E-Commerce Dashboard"
		}

		w := &writer{w: out}
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.raw(`<title>`)
		w.text(title)
		w.raw(`</title>`)
		w.raw(`<script type="module" src="` + datastarScript + `"></script>`)
		w.raw(`<script src="` + chartScript + `"></script>`)
		w.raw(`<style>` + pageStyle + `</style></head>`)

		w.raw(`<body data-signals="`)
		w.text(signals)
		w.raw(`" data-effect="window.drawCharts && window.drawCharts($_dailyOrders, $_dailySpending, $_categories, $_reviews, $_states)">`)

		w.raw(`<header><h1>`)
		w.text(title)
		w.raw(`</h1><form class="range" data-on:submit__prevent="@get('/sse/refresh-all')">`)
		dateInput(w, "start", "Start date", p.Min, p.Max)
		dateInput(w, "end", "End date", p.Min, p.Max)
		w.raw(`<button type="submit">Apply</button>`)
		w.raw(`<a href="/api/export.xlsx" data-attr:href="'/api/export.xlsx?start=' + $start + '&end=' + $end">Export XLSX</a>`)
		w.raw(`</form></header><main>`)

		if err := renderAll(ctx, w, out, ReportStatus(p.Report), SummaryCards(p.Report)); err != nil {
			return err
		}

		w.raw(`<section><h2>Daily orders</h2><canvas id="daily-orders-chart"></canvas></section>`)
		w.raw(`<section><h2>Daily spending</h2><canvas id="daily-spending-chart"></canvas></section>`)
		w.raw(`<section><h2>Product categories</h2><canvas id="categories-chart"></canvas>`)
		if err := renderAll(ctx, w, out, CategoryTables(p.Report)); err != nil {
			return err
		}
		w.raw(`</section><section><h2>Review scores</h2><canvas id="reviews-chart"></canvas>`)
		if err := renderAll(ctx, w, out, ReviewTable(p.Report.Reviews)); err != nil {
			return err
		}
		w.raw(`</section><section><h2>Customer RFM</h2>`)
		if err := renderAll(ctx, w, out, RFMSummary(p.Report.RFMAverages, len(p.Report.RFM))); err != nil {
			return err
		}
		w.raw(`</section><section><h2>Orders by state</h2><canvas id="states-chart"></canvas>`)
		if err := renderAll(ctx, w, out, StateTable(p.Report.States)); err != nil {
			return err
		}
		w.raw(`</section><section><h2>Customers by state</h2>`)
		if err := renderAll(ctx, w, out, CustomerTable(p.Report.CustomerDistribution)); err != nil {
			return err
		}
		w.raw(`</section></main><script>` + chartsJS + `</script></body></html>`)
		return w.err
	})
}

func renderAll(ctx context.Context, w *writer, out io.Writer, components ...templ.Component) error {
	if w.err != nil {
		return w.err
	}
	for _, c := range components {
		if err := c.Render(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func dateInput(w *writer, name, label, minDate, maxDate string) {
	w.raw(`<label>`)
	w.text(label)
	w.raw(` <input type="date" name="` + name + `" data-bind:` + name + ` min="`)
	w.text(minDate)
	w.raw(`" max="`)
	w.text(maxDate)
	w.raw(`"></label>`)
}

const pageStyle = `
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7fb;color:#1d2433}
header{display:flex;flex-wrap:wrap;justify-content:space-between;align-items:center;padding:1rem 2rem;background:#fff;border-bottom:1px solid #e3e6ef}
main{display:grid;gap:1.5rem;padding:1.5rem 2rem}
section{background:#fff;border-radius:8px;padding:1rem 1.5rem}
.range{display:flex;gap:1rem;align-items:center}
.cards{display:grid;grid-template-columns:repeat(auto-fit,minmax(180px,1fr));gap:1rem}
.card{background:#fff;border-radius:8px;padding:1rem;display:flex;flex-direction:column}
.card-label{font-size:.85rem;color:#5b6478}
.card-value{font-size:1.4rem}
.split{display:grid;grid-template-columns:1fr 1fr;gap:1rem}
.modern-table{width:100%;border-collapse:collapse}
.modern-table th,.modern-table td{text-align:left;padding:.4rem .6rem;border-bottom:1px solid #eceef4}
.category-badge{background:#eef1fb;border-radius:4px;padding:.1rem .4rem}
.status-banner{background:#fff4e5;border:1px solid #ffd8a8;border-radius:6px;padding:.6rem 1rem}
`

const chartsJS = `
(function(){
  const charts = {};
  function draw(id, type, labels, data, label){
    const el = document.getElementById(id);
    if (!el || !window.Chart) return;
    if (charts[id]) charts[id].destroy();
    charts[id] = new Chart(el, {type: type, data: {labels: labels, datasets: [{label: label, data: data}]}});
  }
  window.drawCharts = function(orders, spending, categories, reviews, states){
    draw("daily-orders-chart", "line", orders.map(r => r.day.slice(0,10)), orders.map(r => r.order_count), "Orders");
    draw("daily-spending-chart", "line", spending.map(r => r.day.slice(0,10)), spending.map(r => r.total_spend), "Spending");
    draw("categories-chart", "bar", categories.slice(0,10).map(r => r.category), categories.slice(0,10).map(r => r.items_sold), "Items sold");
    draw("reviews-chart", "bar", reviews.map(r => r.score), reviews.map(r => r.count), "Reviews");
    draw("states-chart", "bar", states.map(r => r.state), states.map(r => r.total_orders), "Orders");
  };
})();
`
