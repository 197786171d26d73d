package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Span is the number of seconds between two consecutive candles.
type Span int64

const (
	OneMinute      Span = 60
	FiveMinutes    Span = 300
	TenMinutes     Span = 600
	FifteenMinutes Span = 900
	ThirtyMinutes  Span = 1800
	OneHour        Span = 3600
	TwoHours       Span = 7200
	FourHours      Span = 14400
	SixHours       Span = 21600
	TwelveHours    Span = 43200
	OneDay         Span = 86400
	ThreeDays      Span = 259200
	OneWeek        Span = 604800
)

var spanToInterval = map[Span]string{
	OneMinute:      "MINUTE_1",
	FiveMinutes:    "MINUTE_5",
	TenMinutes:     "MINUTE_10",
	FifteenMinutes: "MINUTE_15",
	ThirtyMinutes:  "MINUTE_30",
	OneHour:        "HOUR_1",
	TwoHours:       "HOUR_2",
	FourHours:      "HOUR_4",
	SixHours:       "HOUR_6",
	TwelveHours:    "HOUR_12",
	OneDay:         "DAY_1",
	ThreeDays:      "DAY_3",
	OneWeek:        "WEEK_1",
}

var intervalToSpan = map[string]Span{
	"MINUTE_1":  OneMinute,
	"MINUTE_5":  FiveMinutes,
	"MINUTE_10": TenMinutes,
	"MINUTE_15": FifteenMinutes,
	"MINUTE_30": ThirtyMinutes,
	"HOUR_1":    OneHour,
	"HOUR_2":    TwoHours,
	"HOUR_4":    FourHours,
	"HOUR_6":    SixHours,
	"HOUR_12":   TwelveHours,
	"DAY_1":     OneDay,
	"DAY_3":     ThreeDays,
	"WEEK_1":    OneWeek,
}

var namedSpans = map[string]Span{
	"minutely": OneMinute,
	"hourly":   OneHour,
	"daily":    OneDay,
	"weekly":   OneWeek,
}

// Interval returns the exchange interval token for span. Spans must match
// the table exactly.
func Interval(span Span) (string, error) {
	interval, ok := spanToInterval[span]
	if !ok {
		return "", fmt.Errorf("%w: %d seconds", ErrUnsupportedSpan, int64(span))
	}
	return interval, nil
}

func (s Span) Interval() (string, error) {
	return Interval(s)
}

func (s Span) String() string {
	if interval, ok := spanToInterval[s]; ok {
		return interval
	}
	return fmt.Sprintf("%ds", int64(s))
}

func (s Span) Duration() time.Duration {
	return time.Duration(s) * time.Second
}

// Per is the directory label of the span in the data layout.
func (s Span) Per() string {
	return strconv.FormatInt(int64(s), 10)
}

func ParseInterval(interval string) (Span, error) {
	s, ok := intervalToSpan[interval]
	if !ok {
		return 0, fmt.Errorf("%w: interval %q", ErrUnsupportedSpan, interval)
	}
	return s, nil
}

// ParseSpan accepts a number of seconds, a named period (minutely, hourly,
// daily, weekly) or an interval token such as "HOUR_4".
func ParseSpan(s string) (Span, error) {
	s = strings.TrimSpace(s)
	if span, ok := namedSpans[strings.ToLower(s)]; ok {
		return span, nil
	}
	if span, ok := intervalToSpan[strings.ToUpper(s)]; ok {
		return span, nil
	}

	seconds, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedSpan, s)
	}

	span := Span(seconds)
	if _, err := Interval(span); err != nil {
		return 0, err
	}
	return span, nil
}
