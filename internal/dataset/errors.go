package dataset

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrNoRecords     = errors.New("no records found")
	ErrInvalidValue  = errors.New("invalid value")
)

// LoadError reports why a source could not be turned into a table. Row is
// the 1-based data row (header excluded) and is zero when the failure is not
// tied to a row.
type LoadError struct {
	Source string
	Column string
	Row    int
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Row > 0:
		return fmt.Sprintf("load %s: row %d column %q: %v", e.Source, e.Row, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("load %s: column %q: %v", e.Source, e.Column, e.Err)
	default:
		return fmt.Sprintf("load %s: %v", e.Source, e.Err)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// InvalidRangeError is returned for date ranges that end before they start
// or, when validated against a table, fall outside the loaded dates.
type InvalidRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s..%s: %s",
		e.Start.Format(DateLayout), e.End.Format(DateLayout), e.Reason)
}
