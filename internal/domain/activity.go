package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ActivityID identifies a persisted activity.
// A nil *ActivityID means the activity has not been stored yet.
type ActivityID = uuid.UUID

// Activity is an immutable record of one withdrawal or deposit leg.
// The owner is the account whose window the activity belongs to.
type Activity struct {
	ID              *ActivityID
	OwnerAccountID  AccountID
	SourceAccountID AccountID
	TargetAccountID AccountID
	Timestamp       time.Time
	Money           Money
}

// IsNew reports whether the activity still has to be persisted
func (a Activity) IsNew() bool {
	return a.ID == nil
}

// ActivityWindow is the ordered set of activities observed since an account's baseline
type ActivityWindow struct {
	activities []Activity
}

// NewActivityWindow creates a window from the given activities (copied)
func NewActivityWindow(activities ...Activity) *ActivityWindow {
	w := &ActivityWindow{activities: make([]Activity, len(activities))}
	copy(w.activities, activities)
	return w
}

// AddActivity appends an activity to the window
func (w *ActivityWindow) AddActivity(activity Activity) {
	w.activities = append(w.activities, activity)
}

// Activities returns a copy of the activities in insertion order
func (w *ActivityWindow) Activities() []Activity {
	out := make([]Activity, len(w.activities))
	copy(out, w.activities)
	return out
}

// NewActivities returns the activities that have no ID yet
func (w *ActivityWindow) NewActivities() []Activity {
	out := make([]Activity, 0)
	for _, a := range w.activities {
		if a.IsNew() {
			out = append(out, a)
		}
	}
	return out
}

// StartTimestamp returns the timestamp of the earliest activity.
// Returns false for an empty window.
func (w *ActivityWindow) StartTimestamp() (time.Time, bool) {
	ts := w.sortedTimestamps()
	if len(ts) == 0 {
		return time.Time{}, false
	}
	return ts[0], true
}

// EndTimestamp returns the timestamp of the latest activity.
// Returns false for an empty window.
func (w *ActivityWindow) EndTimestamp() (time.Time, bool) {
	ts := w.sortedTimestamps()
	if len(ts) == 0 {
		return time.Time{}, false
	}
	return ts[len(ts)-1], true
}

func (w *ActivityWindow) sortedTimestamps() []time.Time {
	ts := make([]time.Time, 0, len(w.activities))
	for _, a := range w.activities {
		ts = append(ts, a.Timestamp)
	}
	sort.Slice(ts, func(i, j int) bool {
		return ts[i].Before(ts[j])
	})
	return ts
}

// CalculateBalance sums the activities of the window from the point of view of accountID:
// deposits into the account minus withdrawals from it
func (w *ActivityWindow) CalculateBalance(accountID AccountID) Money {
	deposits := ZeroMoney
	withdrawals := ZeroMoney

	for _, a := range w.activities {
		if a.TargetAccountID == accountID {
			deposits = deposits.Add(a.Money)
		}
		if a.SourceAccountID == accountID {
			withdrawals = withdrawals.Add(a.Money)
		}
	}

	return deposits.Subtract(withdrawals)
}
