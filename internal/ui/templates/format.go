package templates

import (
	"io"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency renders v as dollars with thousands separators, e.g. $1,234.56.
func Currency(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// Count renders n with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

func Decimal(v float64) string {
	return printer.Sprintf("%.2f", v)
}

func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// writer accumulates the first write error so components can emit markup
// without checking every call.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) cell(s string) {
	w.raw("<td>")
	w.text(s)
	w.raw("</td>")
}
