package assist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedassist/internal/types"
)

func TestAddMinutes(t *testing.T) {
	got, err := addMinutes("2026-09-01T09:00:00", 90)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01T10:30:00", got)

	got, err = addMinutes("2026-09-01T00:15:00", -30)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31T23:45:00", got)

	_, err = addMinutes("not-a-timestamp", 10)
	assert.Error(t, err)
}

func TestEventMinutes(t *testing.T) {
	assert.Equal(t, 45, eventMinutes(types.Event{Duration: 45}))

	derived := types.Event{
		StartDate: "2026-09-01T09:00:00",
		EndDate:   "2026-09-01T10:30:00",
	}
	assert.Equal(t, 90, eventMinutes(derived))

	inverted := types.Event{
		StartDate: "2026-09-01T10:00:00",
		EndDate:   "2026-09-01T09:00:00",
	}
	assert.Equal(t, 0, eventMinutes(inverted))
}

func TestSpliceBufferTimes(t *testing.T) {
	ev := types.Event{
		ID:         "ev-1",
		UserID:     "user-1",
		CalendarID: "cal-1",
		StartDate:  "2026-09-01T09:00:00",
		EndDate:    "2026-09-01T10:00:00",
		Timezone:   "America/New_York",
		TimeBlocking: &types.BufferTimeSettings{
			BeforeEvent: 15,
			AfterEvent:  10,
		},
	}

	buffers := spliceBufferTimes(&ev)
	require.Len(t, buffers, 2)

	pre, post := buffers[0], buffers[1]

	assert.True(t, pre.IsPreEvent)
	assert.Equal(t, "2026-09-01T08:45:00", pre.StartDate)
	assert.Equal(t, "2026-09-01T09:00:00", pre.EndDate)
	require.NotNil(t, pre.PostEventID)
	assert.Equal(t, "ev-1", *pre.PostEventID)

	assert.True(t, post.IsPostEvent)
	assert.Equal(t, "2026-09-01T10:00:00", post.StartDate)
	assert.Equal(t, "2026-09-01T10:10:00", post.EndDate)
	require.NotNil(t, post.PreEventID)
	assert.Equal(t, "ev-1", *post.PreEventID)

	// Owner linkage rewritten in place.
	require.NotNil(t, ev.PreEventID)
	require.NotNil(t, ev.PostEventID)
	assert.Equal(t, pre.ID, *ev.PreEventID)
	assert.Equal(t, post.ID, *ev.PostEventID)
}

func TestSpliceBufferTimesNoSettings(t *testing.T) {
	ev := types.Event{ID: "ev-1"}
	assert.Nil(t, spliceBufferTimes(&ev))
}

func TestDedupeEventsStructural(t *testing.T) {
	base := types.Event{ID: "ev-1", UserID: "user-1", StartDate: "2026-09-01T09:00:00"}

	// Same ID but different attached preferences: both variants survive.
	withRanges := base
	withRanges.PreferredTimeRanges = []types.PreferredTimeRange{
		{ID: "r1", DayOfWeek: 2, StartTime: "09:00", EndTime: "11:00"},
	}

	deduped := dedupeEvents([]types.Event{base, base, withRanges, withRanges, base})
	assert.Len(t, deduped, 2)
	assert.Equal(t, base, deduped[0])
	assert.Equal(t, withRanges, deduped[1])
}

func TestDedupeAttendees(t *testing.T) {
	a := types.Attendee{ID: "att-1", MeetingID: "m-1"}
	b := types.Attendee{ID: "att-2", MeetingID: "m-1"}

	deduped := dedupeAttendees([]types.Attendee{a, b, a})
	assert.Equal(t, []types.Attendee{a, b}, deduped)
}

func TestRemindersFromMinutes(t *testing.T) {
	ev := types.Event{ID: "ev-1", UserID: "user-1", Timezone: "UTC"}

	reminders := remindersFromMinutes([]int{10, 30}, ev)
	require.Len(t, reminders, 2)
	for i, r := range reminders {
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, "ev-1", r.EventID)
		assert.Equal(t, "user-1", r.UserID)
		assert.Equal(t, []int{10, 30}[i], r.Minutes)
	}

	assert.Nil(t, remindersFromMinutes(nil, ev))
}
