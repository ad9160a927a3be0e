/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// RFC3339NoZone is RFC3339 without the timezone suffix, interpreted as UTC.
	RFC3339NoZone = "2006-01-02T15:04:05"
	// RFC3339Milli is RFC3339 with millisecond precision.
	RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"

	// unixMilliThreshold splits Unix seconds from milliseconds by magnitude.
	unixMilliThreshold = 1e12
)

var standardParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCronStandard parses a standard 5-field cron expression or a descriptor
// such as "@every 90s" and returns the schedule.
func ParseCronStandard(expr string) (cron.Schedule, error) {
	return standardParser.Parse(expr)
}

// CvtTime3339ToCronStandard converts an RFC3339 timestamp into a standard cron
// expression that fires once a year at that minute, together with the parsed time.
func CvtTime3339ToCronStandard(timeStr string) (string, time.Time, error) {
	t, err := CvtStrToRFC3339Milli(timeStr)
	if err != nil {
		return "", time.Time{}, err
	}
	expr := fmt.Sprintf("%d %d %d %d *", t.Minute(), t.Hour(), t.Day(), int(t.Month()))
	return expr, t, nil
}

// CvtStrToRFC3339Milli parses a timestamp that may carry nanosecond, millisecond
// or no sub-second precision. A timestamp without a zone suffix is treated as UTC.
func CvtStrToRFC3339Milli(timeStr string) (time.Time, error) {
	layouts := []string{time.RFC3339Nano, RFC3339Milli, RFC3339NoZone}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, timeStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("failed to parse time %q: %v", timeStr, lastErr)
}

// ParseFlexible parses a timestamp given either as RFC3339 text or as a Unix
// epoch in seconds or milliseconds.
func ParseFlexible(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return FromUnixFlexible(v), nil
	}
	return CvtStrToRFC3339Milli(raw)
}

// FromUnixFlexible converts a numeric epoch to UTC time. Magnitude above 1e12
// is treated as milliseconds, anything smaller as seconds.
func FromUnixFlexible(v float64) time.Time {
	if v > unixMilliThreshold {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

// FormatRFC3339 formats the time without a zone suffix.
func FormatRFC3339(t time.Time) string {
	return t.Format(RFC3339NoZone)
}

// FormatDuration renders a duration in seconds as a compact string like "1h1m1s".
// Zero components are omitted, except that a zero duration renders as "0s".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	var sb strings.Builder
	if h > 0 {
		fmt.Fprintf(&sb, "%dh", h)
	}
	if m > 0 {
		fmt.Fprintf(&sb, "%dm", m)
	}
	if s > 0 {
		fmt.Fprintf(&sb, "%ds", s)
	}
	return sb.String()
}
