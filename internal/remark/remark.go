// Package remark assembles the status log written to a profile's remark and
// summarizes it for the output sheets.
package remark

import (
	"strconv"
	"strings"
	"time"
)

const (
	LocationAdded   = "Location Added"
	LocationError   = "Error Processing Location"
	LocationMissing = "Location Info Missing"
	TwoFAAdded      = "2FA Added"
	TwoFAMissing    = "2FA Info Missing"
	AccountAdded    = "Account Added"
	AccountMissing  = "Account Info Missing"

	NeverOpened = "Never Opened"
)

// Inputs are the row facts that decide each outcome line.
type Inputs struct {
	Address  string
	Geocoded bool
	TwoFAKey string
	Username string
	Password string
}

// Lines returns the outcome lines in their fixed order: location, 2FA, account.
func Lines(in Inputs) []string {
	lines := make([]string, 0, 3)
	switch {
	case strings.TrimSpace(in.Address) == "":
		lines = append(lines, LocationMissing)
	case in.Geocoded:
		lines = append(lines, LocationAdded)
	default:
		lines = append(lines, LocationError)
	}

	if strings.TrimSpace(in.TwoFAKey) != "" {
		lines = append(lines, TwoFAAdded)
	} else {
		lines = append(lines, TwoFAMissing)
	}

	if HasAccount(in.Username, in.Password) {
		lines = append(lines, AccountAdded)
	} else {
		lines = append(lines, AccountMissing)
	}
	return lines
}

// Assemble appends the outcome lines to base, one per line.
func Assemble(base string, in Inputs) string {
	var b strings.Builder
	b.WriteString(base)
	for _, l := range Lines(in) {
		b.WriteByte('\n')
		b.WriteString(l)
	}
	return b.String()
}

// HasAccount reports whether both login fields are present.
func HasAccount(username, password string) bool {
	return strings.TrimSpace(username) != "" && strings.TrimSpace(password) != ""
}

// FirstLine is the summary mirrored into the output sheets.
func FirstLine(remark string) string {
	first, _, _ := strings.Cut(remark, "\n")
	return strings.TrimRight(first, "\r")
}

// FormatLastOpen renders an AdsPower last_open_time (Unix seconds) in loc.
// Empty, zero, unparsable and epoch-day values read as never opened.
func FormatLastOpen(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return NeverOpened
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs < 0 {
		return NeverOpened
	}
	t := time.Unix(secs, 0).In(loc)
	if t.Year() == 1970 && t.Month() == time.January && t.Day() == 1 {
		return NeverOpened
	}
	return t.Format("02 Jan 06 03:04 PM")
}
