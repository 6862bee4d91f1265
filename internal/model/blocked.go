package model

import (
	"sort"
	"time"
)

// BlockedDate is the stored record for one date closed to new bookings.
type BlockedDate struct {
	Date      string    `json:"date"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// BlockedDates is a set of "YYYY-MM-DD" dates. A nil set blocks nothing.
type BlockedDates map[string]struct{}

func NewBlockedDates(dates ...string) BlockedDates {
	set := make(BlockedDates, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

func (b BlockedDates) Contains(date string) bool {
	if b == nil {
		return false
	}
	_, ok := b[date]
	return ok
}

func (b BlockedDates) Add(date string) {
	b[date] = struct{}{}
}

func (b BlockedDates) Remove(date string) {
	delete(b, date)
}

// Sorted returns the dates in ascending order.
func (b BlockedDates) Sorted() []string {
	out := make([]string, 0, len(b))
	for d := range b {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
