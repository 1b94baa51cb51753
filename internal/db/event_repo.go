package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"schedassist/internal/types"
)

// eventColumns is the canonical column list for scanning events. Keep in sync
// with scanEvent.
const eventColumns = `id, user_id, calendar_id, title, notes, start_date, end_date, timezone,
	duration, priority, modifiable, meeting_id, is_meeting, is_external_meeting,
	is_pre_event, is_post_event, pre_event_id, post_event_id, time_blocking,
	preferred_day_of_week, preferred_time,
	user_modified_categories, user_modified_reminders, user_modified_time_blocking,
	user_modified_time_preference, user_modified_priority_level, user_modified_modifiable,
	copy_reminders, copy_time_blocking, copy_time_preference, copy_priority_level,
	copy_modifiable, copy_categories`

// EventRepository provides data access for the events and
// preferred_time_ranges tables.
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new EventRepository backed by the given
// database connection (pool or transaction).
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row pgx.Row) (types.Event, error) {
	var e types.Event
	err := row.Scan(
		&e.ID, &e.UserID, &e.CalendarID, &e.Title, &e.Notes, &e.StartDate, &e.EndDate, &e.Timezone,
		&e.Duration, &e.Priority, &e.Modifiable, &e.MeetingID, &e.IsMeeting, &e.IsExternalMeeting,
		&e.IsPreEvent, &e.IsPostEvent, &e.PreEventID, &e.PostEventID, &e.TimeBlocking,
		&e.PreferredDayOfWeek, &e.PreferredTime,
		&e.UserModifiedCategories, &e.UserModifiedReminders, &e.UserModifiedTimeBlocking,
		&e.UserModifiedTimePreference, &e.UserModifiedPriorityLevel, &e.UserModifiedModifiable,
		&e.CopyReminders, &e.CopyTimeBlocking, &e.CopyTimePreference, &e.CopyPriorityLevel,
		&e.CopyModifiable, &e.CopyCategories,
	)
	return e, err
}

// ListForWindow returns the user's non-deleted, non-all-day events whose start
// falls inside the given planning window. Window bounds are wall-clock
// timestamps ("2006-01-02T15:04:05") interpreted in the event's own timezone;
// lexicographic comparison on the canonical format is equivalent to temporal
// ordering.
func (r *EventRepository) ListForWindow(ctx context.Context, userID, windowStart, windowEnd string) ([]types.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE user_id = $1
		   AND deleted = FALSE
		   AND all_day = FALSE
		   AND start_date >= $2
		   AND start_date <= $3
		 ORDER BY start_date`,
		userID, windowStart, windowEnd,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list events for window", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan event row", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate event rows", err)
	}
	return events, nil
}

// GetByID fetches a single live event. Returns (nil, nil) when the event does
// not exist or has been deleted, so callers can distinguish staleness from
// infrastructure failure.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*types.Event, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE id = $1 AND deleted = FALSE`,
		id,
	)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get event", err)
	}
	return &e, nil
}

// ListPreferredTimeRangesForEvent returns the per-event preferred time ranges.
func (r *EventRepository) ListPreferredTimeRangesForEvent(ctx context.Context, eventID string) ([]types.PreferredTimeRange, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, meeting_id, user_id, host_id, day_of_week, start_time, end_time
		 FROM preferred_time_ranges
		 WHERE event_id = $1`,
		eventID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list preferred time ranges", err)
	}
	defer rows.Close()

	var ranges []types.PreferredTimeRange
	for rows.Next() {
		var p types.PreferredTimeRange
		if err := rows.Scan(&p.ID, &p.EventID, &p.MeetingID, &p.UserID, &p.HostID, &p.DayOfWeek, &p.StartTime, &p.EndTime); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan preferred time range", err)
		}
		ranges = append(ranges, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate preferred time ranges", err)
	}
	return ranges, nil
}

// ListRemindersForEvent returns the reminders attached to an event.
func (r *EventRepository) ListRemindersForEvent(ctx context.Context, eventID string) ([]types.Reminder, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, event_id, timezone, minutes, use_default
		 FROM reminders
		 WHERE event_id = $1 AND deleted = FALSE`,
		eventID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list reminders for event", err)
	}
	defer rows.Close()

	var reminders []types.Reminder
	for rows.Next() {
		var rem types.Reminder
		if err := rows.Scan(&rem.ID, &rem.UserID, &rem.EventID, &rem.Timezone, &rem.Minutes, &rem.UseDefault); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reminder", err)
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate reminders", err)
	}
	return reminders, nil
}

// ListCategoriesForEvent returns the categories linked to an event via the
// category_events join table.
func (r *EventRepository) ListCategoriesForEvent(ctx context.Context, eventID string) ([]types.Category, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.user_id, c.name, c.default_reminders, c.default_time_blocking,
		        c.default_time_preference, c.default_priority_level, c.default_modifiable,
		        c.copy_reminders, c.copy_time_blocking, c.copy_time_preference,
		        c.copy_priority_level, c.copy_modifiable
		 FROM categories c
		 JOIN category_events ce ON ce.category_id = c.id
		 WHERE ce.event_id = $1 AND c.deleted = FALSE`,
		eventID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list categories for event", err)
	}
	defer rows.Close()

	var cats []types.Category
	for rows.Next() {
		var c types.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.DefaultReminders, &c.DefaultTimeBlocking,
			&c.DefaultTimePreference, &c.DefaultPriorityLevel, &c.DefaultModifiable,
			&c.CopyReminders, &c.CopyTimeBlocking, &c.CopyTimePreference,
			&c.CopyPriorityLevel, &c.CopyModifiable); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan category", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate categories", err)
	}
	return cats, nil
}
