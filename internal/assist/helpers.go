package assist

import (
	"reflect"
	"time"

	"github.com/google/uuid"

	"schedassist/internal/types"
)

// wallClockLayout is the format of all event timestamps: wall-clock time with
// no offset, interpreted against the event's own timezone.
const wallClockLayout = "2006-01-02T15:04:05"

// addMinutes shifts a wall-clock timestamp by the given number of minutes.
func addMinutes(ts string, minutes int) (string, error) {
	t, err := time.Parse(wallClockLayout, ts)
	if err != nil {
		return "", err
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format(wallClockLayout), nil
}

// eventMinutes returns the event's duration in minutes, deriving it from the
// start and end timestamps when the Duration field is unset.
func eventMinutes(ev types.Event) int {
	if ev.Duration > 0 {
		return ev.Duration
	}
	start, err1 := time.Parse(wallClockLayout, ev.StartDate)
	end, err2 := time.Parse(wallClockLayout, ev.EndDate)
	if err1 != nil || err2 != nil || !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// remindersFromMinutes builds one reminder per offset for the given event.
func remindersFromMinutes(minutes []int, ev types.Event) []types.Reminder {
	if len(minutes) == 0 {
		return nil
	}
	reminders := make([]types.Reminder, 0, len(minutes))
	for _, m := range minutes {
		reminders = append(reminders, types.Reminder{
			ID:       uuid.New().String(),
			UserID:   ev.UserID,
			EventID:  ev.ID,
			Timezone: ev.Timezone,
			Minutes:  m,
		})
	}
	return reminders
}

// spliceBufferTimes synthesizes pre/post buffer events for ev according to its
// TimeBlocking settings and rewrites ev's buffer linkage in place. Returns nil
// when ev has no buffer settings.
func spliceBufferTimes(ev *types.Event) []types.Event {
	if ev.TimeBlocking == nil {
		return nil
	}

	var buffers []types.Event
	if ev.TimeBlocking.BeforeEvent > 0 {
		start, err := addMinutes(ev.StartDate, -ev.TimeBlocking.BeforeEvent)
		if err == nil {
			id := uuid.New().String()
			buffers = append(buffers, types.Event{
				ID:          id,
				UserID:      ev.UserID,
				CalendarID:  ev.CalendarID,
				Title:       "Buffer time",
				StartDate:   start,
				EndDate:     ev.StartDate,
				Timezone:    ev.Timezone,
				Duration:    ev.TimeBlocking.BeforeEvent,
				IsPreEvent:  true,
				PostEventID: &ev.ID,
			})
			ev.PreEventID = &id
		}
	}
	if ev.TimeBlocking.AfterEvent > 0 {
		end, err := addMinutes(ev.EndDate, ev.TimeBlocking.AfterEvent)
		if err == nil {
			id := uuid.New().String()
			buffers = append(buffers, types.Event{
				ID:          id,
				UserID:      ev.UserID,
				CalendarID:  ev.CalendarID,
				Title:       "Buffer time",
				StartDate:   ev.EndDate,
				EndDate:     end,
				Timezone:    ev.Timezone,
				Duration:    ev.TimeBlocking.AfterEvent,
				IsPostEvent: true,
				PreEventID:  &ev.ID,
			})
			ev.PostEventID = &id
		}
	}
	return buffers
}

// dedupeEvents removes structurally equal events, keeping first occurrences.
// Equality is full deep equality, not ID equality: the same event fetched
// through two aggregation paths may differ in attached preferences, and both
// variants must survive.
func dedupeEvents(events []types.Event) []types.Event {
	var out []types.Event
	for _, ev := range events {
		dup := false
		for _, kept := range out {
			if reflect.DeepEqual(ev, kept) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, ev)
		}
	}
	return out
}

// dedupeAttendees removes structurally equal attendees, keeping first
// occurrences.
func dedupeAttendees(attendees []types.Attendee) []types.Attendee {
	var out []types.Attendee
	for _, a := range attendees {
		dup := false
		for _, kept := range out {
			if reflect.DeepEqual(a, kept) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, a)
		}
	}
	return out
}
