package alarm

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const timeOfDayLayout = "15:04"

// nextWindow resolves two times of day to the next concrete [start, end]
// window strictly after now. An end at or before the start is read as the
// following day; a start that has already passed shifts the whole window
// forward by one day.
func nextWindow(start, end string, now time.Time) (time.Time, time.Time, error) {
	st, err := time.Parse(timeOfDayLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadTimeOfDay, start)
	}
	et, err := time.Parse(timeOfDayLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadTimeOfDay, end)
	}

	y, m, d := now.Date()
	startAt := time.Date(y, m, d, st.Hour(), st.Minute(), 0, 0, now.Location())
	endAt := time.Date(y, m, d, et.Hour(), et.Minute(), 0, 0, now.Location())

	if !endAt.After(startAt) {
		endAt = endAt.Add(24 * time.Hour)
	}

	if !startAt.After(now) {
		startAt = startAt.Add(24 * time.Hour)
		endAt = endAt.Add(24 * time.Hour)
	}

	return startAt, endAt, nil
}

// pickInstant chooses a uniformly random minute offset inside [startAt, endAt]
func pickInstant(startAt, endAt time.Time) time.Time {
	minutes := int(endAt.Sub(startAt) / time.Minute)
	offset := rand.IntN(minutes + 1)
	return startAt.Add(time.Duration(offset) * time.Minute)
}
