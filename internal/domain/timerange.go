package domain

import (
	"fmt"
	"math"
	"time"
)

// MaxTimestamp bounds both ends of a range so they still fit in an int64 once
// converted to milliseconds.
const MaxTimestamp = math.MaxInt64 / 1000

// MaxWindows is the most windows a single range may be split into.
const MaxWindows = 1 << 20

// TimeRange is the half-open interval [Start, End) in Unix seconds.
type TimeRange struct {
	Start int64
	End   int64
}

func (tr TimeRange) Validate() error {
	if tr.Start < -MaxTimestamp || tr.Start > MaxTimestamp || tr.End < -MaxTimestamp || tr.End > MaxTimestamp {
		return fmt.Errorf("%w: bounds [%d, %d) outside [-%d, %d]", ErrInvalidRange, tr.Start, tr.End, int64(MaxTimestamp), int64(MaxTimestamp))
	}
	if tr.Start >= tr.End {
		return fmt.Errorf("%w: start %d is not before end %d", ErrInvalidRange, tr.Start, tr.End)
	}
	return nil
}

func (tr TimeRange) Contains(ts int64) bool {
	return tr.Start <= ts && ts < tr.End
}

func (tr TimeRange) Seconds() int64 {
	return tr.End - tr.Start
}

// Windows splits the range into contiguous windows of width seconds. The last
// window is clipped to End. Ranges needing more than MaxWindows fail.
func (tr TimeRange) Windows(width int64) ([]TimeRange, error) {
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: window width %d", ErrInvalidRange, width)
	}

	count := (tr.Seconds()-1)/width + 1
	if count > MaxWindows {
		return nil, fmt.Errorf("%w: %d windows of %d seconds, at most %d allowed", ErrInvalidRange, count, width, MaxWindows)
	}

	windows := make([]TimeRange, 0, count)
	for from := tr.Start; from < tr.End; {
		to := tr.End
		if width < tr.End-from {
			to = from + width
		}
		windows = append(windows, TimeRange{Start: from, End: to})
		from = to
	}

	return windows, nil
}

// Floor rounds both bounds down to a multiple of span.
func (tr TimeRange) Floor(span Span) TimeRange {
	s := int64(span)
	if s <= 0 {
		return tr
	}
	return TimeRange{
		Start: tr.Start - tr.Start%s,
		End:   tr.End - tr.End%s,
	}
}

func (tr TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)",
		time.Unix(tr.Start, 0).UTC().Format(time.DateTime),
		time.Unix(tr.End, 0).UTC().Format(time.DateTime),
	)
}
