// Package clock fixes the wall-clock policy for the reservation engine.
// The gate compares the scheduled opening instant against "now"; all such
// comparisons go through a Clock so tests can pin time, and so the served
// time carries the studio's regional offset rather than the host zone.
package clock

import (
	"fmt"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Fixed returns times in a fixed regional offset from UTC.  The zero value
// uses UTC itself.
type Fixed struct {
	loc *time.Location
}

// NewFixed builds a Fixed clock at the given offset in hours east of UTC.
// The studio runs on KST, so the usual offset is +9.
func NewFixed(offsetHours int) Fixed {
	return Fixed{loc: time.FixedZone(zoneName(offsetHours), offsetHours*3600)}
}

func zoneName(offsetHours int) string {
	switch offsetHours {
	case 9:
		return "KST"
	case 0:
		return "UTC"
	}
	return fmt.Sprintf("UTC%+d", offsetHours)
}

func (f Fixed) Now() time.Time {
	loc := f.loc
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}
