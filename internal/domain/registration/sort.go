package registration

import (
	"cmp"
	"slices"
)

// SortKey names a sortable column of the registration table.
type SortKey string

const (
	SortNone            SortKey = ""
	SortStudentName     SortKey = "student_name"
	SortStudentClass    SortKey = "student_class"
	SortPaymentVerified SortKey = "payment_verified"
	SortCreatedAt       SortKey = "created_at"
)

// SortableKeys lists every column that can be sorted.
var SortableKeys = []SortKey{SortStudentName, SortStudentClass, SortPaymentVerified, SortCreatedAt}

// SortDir is the sort direction.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// SortState is the table's current sort key and direction.
// The zero value keeps the input order.
type SortState struct {
	Key SortKey
	Dir SortDir
}

// Toggle returns the state after a click on the header of key.
// Same key flips the direction; a different key starts ascending.
// INVARIANT: receiver is not mutated
func (s SortState) Toggle(key SortKey) SortState {
	if s.Key == key {
		if s.Dir == Asc {
			return SortState{Key: key, Dir: Desc}
		}
		return SortState{Key: key, Dir: Asc}
	}
	return SortState{Key: key, Dir: Asc}
}

// Indicator returns the arrow shown next to the header of key.
func (s SortState) Indicator(key SortKey) string {
	if s.Key != key || key == SortNone {
		return ""
	}
	if s.Dir == Desc {
		return "↓"
	}
	return "↑"
}

// SortRegistrations returns a sorted copy of list.
// PRE: none
// POST: list is not modified; rows with equal keys keep their input order
func SortRegistrations(list []Registration, s SortState) []Registration {
	out := slices.Clone(list)
	if s.Key == SortNone {
		return out
	}
	slices.SortStableFunc(out, func(a, b Registration) int {
		c := compareBy(s.Key, a, b)
		if s.Dir == Desc {
			return -c
		}
		return c
	})
	return out
}

func compareBy(key SortKey, a, b Registration) int {
	switch key {
	case SortStudentName:
		return cmp.Compare(a.StudentName, b.StudentName)
	case SortStudentClass:
		return cmp.Compare(a.StudentClass, b.StudentClass)
	case SortPaymentVerified:
		return cmp.Compare(boolRank(a.PaymentVerified), boolRank(b.PaymentVerified))
	case SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func boolRank(v bool) int {
	if v {
		return 1
	}
	return 0
}
