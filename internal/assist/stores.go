// Package assist implements the scheduling pipeline's domain stages: request
// intake, attendee and event aggregation, personalization of unlinked events,
// and assembly of the planning payload handed to the external solver.
package assist

import (
	"context"

	"schedassist/internal/types"
)

// EventStore provides calendar event reads. Implemented by db.EventRepository.
type EventStore interface {
	// ListForWindow returns the user's live events inside the planning window.
	ListForWindow(ctx context.Context, userID, windowStart, windowEnd string) ([]types.Event, error)

	// GetByID returns (nil, nil) when the event does not exist or is deleted.
	GetByID(ctx context.Context, id string) (*types.Event, error)

	ListPreferredTimeRangesForEvent(ctx context.Context, eventID string) ([]types.PreferredTimeRange, error)
	ListRemindersForEvent(ctx context.Context, eventID string) ([]types.Reminder, error)
	ListCategoriesForEvent(ctx context.Context, eventID string) ([]types.Category, error)
}

// MeetingStore provides meeting assist reads. Implemented by
// db.MeetingAssistRepository.
type MeetingStore interface {
	// GetByID returns (nil, nil) when the meeting assist does not exist.
	GetByID(ctx context.Context, id string) (*types.MeetingAssist, error)

	ListAttendees(ctx context.Context, meetingID string) ([]types.Attendee, error)
	ListAttendeeEvents(ctx context.Context, attendeeID, windowStart, windowEnd string) ([]types.MeetingAssistEvent, error)
	ListPreferredTimeRanges(ctx context.Context, meetingID string) ([]types.PreferredTimeRange, error)
	ListUpcoming(ctx context.Context, userID, windowStart, windowEnd string, excludeIDs []string) ([]types.MeetingAssist, error)
}

// PreferenceStore provides user preference and calendar reads. Implemented by
// db.PreferencesRepository.
type PreferenceStore interface {
	GetUserPreferences(ctx context.Context, userID string) (*types.UserPreferences, error)

	// GetGlobalCalendar returns (nil, nil) when the user has no global calendar.
	GetGlobalCalendar(ctx context.Context, userID string) (*types.Calendar, error)
}

// SimilarityIndex is the training-entry vector store. Implemented by
// similarity.Index.
type SimilarityIndex interface {
	// SearchNearest returns the event ID of the user's closest training entry,
	// or found=false when no entry clears the match floor.
	SearchNearest(ctx context.Context, userID string, vector []float32) (eventID string, found bool, err error)

	AddTrainingEntry(ctx context.Context, entry types.TrainingEntry) error
	DeleteTrainingEntry(ctx context.Context, eventID string) error
}

// Embedder converts event text into a vector. Implemented by
// external.EmbeddingsClient.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PayloadStage writes planning payloads to the object stage. Implemented by
// stage.ObjectStage.
type PayloadStage interface {
	Put(ctx context.Context, key string, v any) error
}

// Solver submits planning runs to the external constraint solver. Implemented
// by external.PlannerClient.
type Solver interface {
	SolveDay(ctx context.Context, singletonID, hostID, fileKey string, timeslots []types.Timeslot, users []types.PlannerUser, eventParts []types.EventPart) error
}
