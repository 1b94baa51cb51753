package assist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedassist/internal/types"
)

func newTestEngine(events *fakeEventStore, prefs *fakePreferenceStore, index *fakeSimilarityIndex, embed *fakeEmbedder) *Engine {
	e := NewEngine(events, prefs, index, embed, testLogger())
	e.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestDecide(t *testing.T) {
	assert.Equal(t, ActionApplyCategoryDefaults, Decide(false, false))
	assert.Equal(t, ActionApplyCategoryDefaultsWithUserMods, Decide(false, true))
	assert.Equal(t, ActionCopyFromPrevious, Decide(true, false))
	assert.Equal(t, ActionMergeCategoryAndPrevious, Decide(true, true))
}

func TestProcessEventNoMatchAppliesCategoryDefaults(t *testing.T) {
	index := &fakeSimilarityIndex{}
	events := &fakeEventStore{
		listCategories: func(_ context.Context, eventID string) ([]types.Category, error) {
			require.Equal(t, "ev-1", eventID)
			return []types.Category{{ID: "cat-1", UserID: "user-1", DefaultReminders: []int{10, 30}}}, nil
		},
	}
	prefs := &fakePreferenceStore{
		getUserPreferences: func(_ context.Context, _ string) (*types.UserPreferences, error) {
			t.Fatal("no-match path must not consult user preferences")
			return nil, nil
		},
	}
	engine := newTestEngine(events, prefs, index, &fakeEmbedder{})

	ev := types.Event{ID: "ev-1", UserID: "user-1", Title: "Budget review", Notes: "q3"}

	out, err := engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)

	require.Len(t, out.Reminders, 2)
	assert.Equal(t, "ev-1", out.Reminders[0].EventID)
	assert.Equal(t, 10, out.Reminders[0].Minutes, "reminders sourced from the category defaults")

	require.Len(t, index.added, 1)
	entry := index.added[0]
	assert.Equal(t, "ev-1", entry.ID, "entry keyed by event ID")
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, "Budget review:q3", entry.SourceEventText)
	assert.NotEmpty(t, entry.Vector)
}

func TestProcessEventNoMatchWithoutPreferencesRow(t *testing.T) {
	index := &fakeSimilarityIndex{}
	prefs := &fakePreferenceStore{
		getUserPreferences: func(_ context.Context, _ string) (*types.UserPreferences, error) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUserPrefs, "user preferences not found", nil)
		},
	}
	engine := newTestEngine(&fakeEventStore{}, prefs, index, &fakeEmbedder{})

	ev := types.Event{ID: "ev-1", UserID: "user-1", Title: "Errand"}

	// A user with no preferences row must still process: the no-match path
	// degrades to a pass-through instead of failing the whole message.
	out, err := engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, ev, out.Event)
	assert.Empty(t, out.Reminders)
	require.Len(t, index.added, 1)
}

func TestProcessEventUserModifiedRemindersNotOverwritten(t *testing.T) {
	index := &fakeSimilarityIndex{}
	events := &fakeEventStore{
		listCategories: func(_ context.Context, _ string) ([]types.Category, error) {
			return []types.Category{{ID: "cat-1", UserID: "user-1", DefaultReminders: []int{10}}}, nil
		},
	}
	engine := newTestEngine(events, &fakePreferenceStore{}, index, &fakeEmbedder{})

	ev := types.Event{ID: "ev-1", UserID: "user-1", Title: "Standup", UserModifiedReminders: true}

	out, err := engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, out.Reminders)
	require.Len(t, index.added, 1)
}

func TestProcessEventRecordIsIdempotentPerEvent(t *testing.T) {
	index := &fakeSimilarityIndex{}
	engine := newTestEngine(&fakeEventStore{}, &fakePreferenceStore{}, index, &fakeEmbedder{})

	ev := types.Event{ID: "ev-1", UserID: "user-1", Title: "Standup"}

	// A redelivered message processes the same event twice; both records carry
	// the same document ID so the index overwrites instead of duplicating.
	_, err := engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	_, err = engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)

	require.Len(t, index.added, 2)
	assert.Equal(t, index.added[0].ID, index.added[1].ID)
}

func TestProcessEventCategoryDefaults(t *testing.T) {
	index := &fakeSimilarityIndex{}
	events := &fakeEventStore{
		listCategories: func(_ context.Context, eventID string) ([]types.Category, error) {
			require.Equal(t, "ev-1", eventID)
			return []types.Category{{
				ID:                   "cat-1",
				UserID:               "user-1",
				Name:                 "deep work",
				DefaultReminders:     []int{5},
				DefaultPriorityLevel: intPtr(7),
				DefaultModifiable:    boolPtr(false),
				DefaultTimeBlocking:  &types.BufferTimeSettings{BeforeEvent: 10},
			}}, nil
		},
	}
	engine := newTestEngine(events, &fakePreferenceStore{}, index, &fakeEmbedder{})

	ev := types.Event{
		ID:                     "ev-1",
		UserID:                 "user-1",
		Title:                  "Write design doc",
		StartDate:              "2026-09-02T09:00:00",
		EndDate:                "2026-09-02T10:00:00",
		Priority:               1,
		Modifiable:             true,
		UserModifiedCategories: true,
	}

	out, err := engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, 7, out.Event.Priority)
	assert.False(t, out.Event.Modifiable)
	require.Len(t, out.Reminders, 1)
	assert.Equal(t, 5, out.Reminders[0].Minutes)
	require.NotNil(t, out.Event.TimeBlocking)
	require.Len(t, out.BufferTimes, 1)
	assert.True(t, out.BufferTimes[0].IsPreEvent)

	require.Len(t, index.added, 1)
}

func TestProcessEventNoCategoriesStillRecorded(t *testing.T) {
	index := &fakeSimilarityIndex{}
	engine := newTestEngine(&fakeEventStore{}, &fakePreferenceStore{}, index, &fakeEmbedder{})

	ev := types.Event{ID: "ev-1", UserID: "user-1", Title: "Errand", UserModifiedCategories: true}

	out, err := engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, ev, out.Event, "no categories leaves the event unchanged")
	require.Len(t, index.added, 1)
}

func TestProcessEventCopyFromPrevious(t *testing.T) {
	prev := types.Event{
		ID:                 "ev-prev",
		UserID:             "user-1",
		Priority:           8,
		Modifiable:         false,
		PreferredDayOfWeek: intPtr(2),
		PreferredTime:      strPtr("09:00"),
		TimeBlocking:       &types.BufferTimeSettings{AfterEvent: 15},
		CopyPriorityLevel:  true,
		CopyModifiable:     true,
		CopyTimePreference: true,
		CopyTimeBlocking:   true,
		CopyReminders:      true,
	}

	index := &fakeSimilarityIndex{
		searchNearest: func(_ context.Context, _ string, _ []float32) (string, bool, error) {
			return "ev-prev", true, nil
		},
	}
	events := &fakeEventStore{
		getByID: func(_ context.Context, id string) (*types.Event, error) {
			require.Equal(t, "ev-prev", id)
			return &prev, nil
		},
		listPreferredRanges: func(_ context.Context, eventID string) ([]types.PreferredTimeRange, error) {
			require.Equal(t, "ev-prev", eventID)
			return []types.PreferredTimeRange{{ID: "r1", EventID: "ev-prev", DayOfWeek: 2, StartTime: "09:00", EndTime: "11:00"}}, nil
		},
		listReminders: func(_ context.Context, eventID string) ([]types.Reminder, error) {
			require.Equal(t, "ev-prev", eventID)
			return []types.Reminder{{ID: "old", EventID: "ev-prev", Minutes: 20}}, nil
		},
	}
	engine := newTestEngine(events, &fakePreferenceStore{}, index, &fakeEmbedder{})

	ev := types.Event{
		ID:        "ev-new",
		UserID:    "user-1",
		Title:     "Weekly budget review",
		StartDate: "2026-09-02T09:00:00",
		EndDate:   "2026-09-02T10:00:00",
		Priority:  1,
	}

	out, err := engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, 8, out.Event.Priority)
	assert.False(t, out.Event.Modifiable)
	require.NotNil(t, out.Event.PreferredDayOfWeek)
	assert.Equal(t, 2, *out.Event.PreferredDayOfWeek)

	require.Len(t, out.Event.PreferredTimeRanges, 1)
	assert.Equal(t, "ev-new", out.Event.PreferredTimeRanges[0].EventID, "ranges rebound to the new event")

	require.Len(t, out.Reminders, 1)
	assert.Equal(t, "ev-new", out.Reminders[0].EventID)
	assert.Equal(t, 20, out.Reminders[0].Minutes)
	assert.NotEqual(t, "old", out.Reminders[0].ID, "reminders get fresh IDs")

	require.Len(t, out.BufferTimes, 1)
	assert.True(t, out.BufferTimes[0].IsPostEvent)

	assert.True(t, out.Event.CopyPriorityLevel, "copy flags carried forward")

	assert.Empty(t, index.added, "copy path does not record a new entry")
	assert.Empty(t, index.deleted)
}

func TestProcessEventStaleReferenceHealed(t *testing.T) {
	index := &fakeSimilarityIndex{
		searchNearest: func(_ context.Context, _ string, _ []float32) (string, bool, error) {
			return "ev-gone", true, nil
		},
	}
	events := &fakeEventStore{
		getByID: func(_ context.Context, _ string) (*types.Event, error) {
			return nil, nil
		},
	}
	engine := newTestEngine(events, &fakePreferenceStore{}, index, &fakeEmbedder{})

	ev := types.Event{ID: "ev-new", UserID: "user-1", Title: "Budget review"}

	_, err := engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)

	require.Equal(t, []string{"ev-gone"}, index.deleted, "stale entry removed")
	require.Len(t, index.added, 1, "fallback path re-records the new event")
	assert.Equal(t, "ev-new", index.added[0].ID)
}

func TestProcessEventMergeWithoutCategoriesUsesPreferenceGates(t *testing.T) {
	prev := types.Event{
		ID:                "ev-prev",
		UserID:            "user-1",
		Priority:          9,
		CopyPriorityLevel: true,
		CopyModifiable:    true,
		Modifiable:        false,
	}

	index := &fakeSimilarityIndex{
		searchNearest: func(_ context.Context, _ string, _ []float32) (string, bool, error) {
			return "ev-prev", true, nil
		},
	}
	events := &fakeEventStore{
		getByID: func(_ context.Context, _ string) (*types.Event, error) {
			return &prev, nil
		},
	}
	prefs := &fakePreferenceStore{
		getUserPreferences: func(_ context.Context, _ string) (*types.UserPreferences, error) {
			// Priority copy enabled at the preference level, modifiable not.
			return &types.UserPreferences{
				UserID:            "user-1",
				CopyPriorityLevel: true,
				Reminders:         []int{15},
			}, nil
		},
	}
	engine := newTestEngine(events, prefs, index, &fakeEmbedder{})

	ev := types.Event{
		ID:                     "ev-new",
		UserID:                 "user-1",
		Title:                  "Budget review",
		Priority:               1,
		Modifiable:             true,
		UserModifiedCategories: true,
	}

	out, err := engine.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, 9, out.Event.Priority, "priority copy allowed by preferences")
	assert.True(t, out.Event.Modifiable, "modifiable copy blocked by preferences")
	require.Len(t, out.Reminders, 1)
	assert.Equal(t, 15, out.Reminders[0].Minutes, "preference reminders fill the gap")
}

func boolPtr(b bool) *bool { return &b }
