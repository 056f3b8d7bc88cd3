package model

import "strings"

// Keys of the system_settings table.  The table is a simple key/value map
// with nullable TEXT values; these three keys are seeded at setup and are
// the only ones the engine reads.
const (
	KeyReservationEnabled = "reservation_enabled"
	KeyReservationOpensAt = "reservation_opens_at"
	KeyLastClearedFor     = "last_cleared_for"
)

// Settings is the typed view over the system_settings rows.  OpensAt and
// LastClearedFor carry the raw stored timestamp strings; the one-shot
// clear guard compares them byte for byte, so they are not parsed here.
type Settings struct {
	Enabled        bool
	OpensAt        *string
	LastClearedFor *string
}

// ParseSettings builds a Settings view from the raw key/value rows.
// A missing or non-"true" reservation_enabled value counts as disabled.
func ParseSettings(raw map[string]*string) Settings {
	var s Settings
	if v := raw[KeyReservationEnabled]; v != nil {
		s.Enabled = strings.EqualFold(*v, "true")
	}
	s.OpensAt = raw[KeyReservationOpensAt]
	s.LastClearedFor = raw[KeyLastClearedFor]
	return s
}
