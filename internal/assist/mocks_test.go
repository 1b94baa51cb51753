package assist

import (
	"context"

	"schedassist/internal/types"
)

// Function-backed fakes for the store interfaces. Unset functions return
// empty results so tests only wire the paths they exercise.

type fakeEventStore struct {
	listForWindow       func(ctx context.Context, userID, windowStart, windowEnd string) ([]types.Event, error)
	getByID             func(ctx context.Context, id string) (*types.Event, error)
	listPreferredRanges func(ctx context.Context, eventID string) ([]types.PreferredTimeRange, error)
	listReminders       func(ctx context.Context, eventID string) ([]types.Reminder, error)
	listCategories      func(ctx context.Context, eventID string) ([]types.Category, error)
}

func (f *fakeEventStore) ListForWindow(ctx context.Context, userID, windowStart, windowEnd string) ([]types.Event, error) {
	if f.listForWindow == nil {
		return nil, nil
	}
	return f.listForWindow(ctx, userID, windowStart, windowEnd)
}

func (f *fakeEventStore) GetByID(ctx context.Context, id string) (*types.Event, error) {
	if f.getByID == nil {
		return nil, nil
	}
	return f.getByID(ctx, id)
}

func (f *fakeEventStore) ListPreferredTimeRangesForEvent(ctx context.Context, eventID string) ([]types.PreferredTimeRange, error) {
	if f.listPreferredRanges == nil {
		return nil, nil
	}
	return f.listPreferredRanges(ctx, eventID)
}

func (f *fakeEventStore) ListRemindersForEvent(ctx context.Context, eventID string) ([]types.Reminder, error) {
	if f.listReminders == nil {
		return nil, nil
	}
	return f.listReminders(ctx, eventID)
}

func (f *fakeEventStore) ListCategoriesForEvent(ctx context.Context, eventID string) ([]types.Category, error) {
	if f.listCategories == nil {
		return nil, nil
	}
	return f.listCategories(ctx, eventID)
}

type fakeMeetingStore struct {
	getByID             func(ctx context.Context, id string) (*types.MeetingAssist, error)
	listAttendees       func(ctx context.Context, meetingID string) ([]types.Attendee, error)
	listAttendeeEvents  func(ctx context.Context, attendeeID, windowStart, windowEnd string) ([]types.MeetingAssistEvent, error)
	listPreferredRanges func(ctx context.Context, meetingID string) ([]types.PreferredTimeRange, error)
	listUpcoming        func(ctx context.Context, userID, windowStart, windowEnd string, excludeIDs []string) ([]types.MeetingAssist, error)
}

func (f *fakeMeetingStore) GetByID(ctx context.Context, id string) (*types.MeetingAssist, error) {
	if f.getByID == nil {
		return nil, nil
	}
	return f.getByID(ctx, id)
}

func (f *fakeMeetingStore) ListAttendees(ctx context.Context, meetingID string) ([]types.Attendee, error) {
	if f.listAttendees == nil {
		return nil, nil
	}
	return f.listAttendees(ctx, meetingID)
}

func (f *fakeMeetingStore) ListAttendeeEvents(ctx context.Context, attendeeID, windowStart, windowEnd string) ([]types.MeetingAssistEvent, error) {
	if f.listAttendeeEvents == nil {
		return nil, nil
	}
	return f.listAttendeeEvents(ctx, attendeeID, windowStart, windowEnd)
}

func (f *fakeMeetingStore) ListPreferredTimeRanges(ctx context.Context, meetingID string) ([]types.PreferredTimeRange, error) {
	if f.listPreferredRanges == nil {
		return nil, nil
	}
	return f.listPreferredRanges(ctx, meetingID)
}

func (f *fakeMeetingStore) ListUpcoming(ctx context.Context, userID, windowStart, windowEnd string, excludeIDs []string) ([]types.MeetingAssist, error) {
	if f.listUpcoming == nil {
		return nil, nil
	}
	return f.listUpcoming(ctx, userID, windowStart, windowEnd, excludeIDs)
}

type fakePreferenceStore struct {
	getUserPreferences func(ctx context.Context, userID string) (*types.UserPreferences, error)
	getGlobalCalendar  func(ctx context.Context, userID string) (*types.Calendar, error)
}

func (f *fakePreferenceStore) GetUserPreferences(ctx context.Context, userID string) (*types.UserPreferences, error) {
	if f.getUserPreferences == nil {
		return &types.UserPreferences{UserID: userID, MaxWorkLoadPercent: 100}, nil
	}
	return f.getUserPreferences(ctx, userID)
}

func (f *fakePreferenceStore) GetGlobalCalendar(ctx context.Context, userID string) (*types.Calendar, error) {
	if f.getGlobalCalendar == nil {
		return nil, nil
	}
	return f.getGlobalCalendar(ctx, userID)
}

type fakeSimilarityIndex struct {
	searchNearest func(ctx context.Context, userID string, vector []float32) (string, bool, error)

	added   []types.TrainingEntry
	deleted []string

	addErr    error
	deleteErr error
}

func (f *fakeSimilarityIndex) SearchNearest(ctx context.Context, userID string, vector []float32) (string, bool, error) {
	if f.searchNearest == nil {
		return "", false, nil
	}
	return f.searchNearest(ctx, userID, vector)
}

func (f *fakeSimilarityIndex) AddTrainingEntry(_ context.Context, entry types.TrainingEntry) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, entry)
	return nil
}

func (f *fakeSimilarityIndex) DeleteTrainingEntry(_ context.Context, eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vector == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return f.vector, nil
}

type fakePayloadStage struct {
	puts map[string]any
	err  error
}

func (f *fakePayloadStage) Put(_ context.Context, key string, v any) error {
	if f.err != nil {
		return f.err
	}
	if f.puts == nil {
		f.puts = map[string]any{}
	}
	f.puts[key] = v
	return nil
}

type solveCall struct {
	singletonID string
	hostID      string
	fileKey     string
	timeslots   []types.Timeslot
	users       []types.PlannerUser
	eventParts  []types.EventPart
}

type fakeSolver struct {
	calls []solveCall
	err   error
}

func (f *fakeSolver) SolveDay(_ context.Context, singletonID, hostID, fileKey string, timeslots []types.Timeslot, users []types.PlannerUser, eventParts []types.EventPart) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, solveCall{
		singletonID: singletonID,
		hostID:      hostID,
		fileKey:     fileKey,
		timeslots:   timeslots,
		users:       users,
		eventParts:  eventParts,
	})
	return nil
}
