package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"schedassist/internal/types"
)

// MeetingAssistRepository provides data access for meeting assists, their
// attendees, attendee-submitted events, and meeting-level time preferences.
type MeetingAssistRepository struct {
	db DBTX
}

// NewMeetingAssistRepository creates a new MeetingAssistRepository backed by
// the given database connection (pool or transaction).
func NewMeetingAssistRepository(db DBTX) *MeetingAssistRepository {
	return &MeetingAssistRepository{db: db}
}

const meetingAssistColumns = `id, user_id, summary, notes, timezone, window_start_date,
	window_end_date, duration, priority, calendar_id, reminders, buffer_time,
	min_threshold_count, attendee_count, cancelled`

func scanMeetingAssist(row pgx.Row) (types.MeetingAssist, error) {
	var m types.MeetingAssist
	err := row.Scan(
		&m.ID, &m.UserID, &m.Summary, &m.Notes, &m.Timezone, &m.WindowStartDate,
		&m.WindowEndDate, &m.Duration, &m.Priority, &m.CalendarID, &m.ReminderMinutes,
		&m.BufferTime, &m.MinThresholdCount, &m.AttendeeCount, &m.Cancelled,
	)
	return m, err
}

// GetByID fetches a meeting assist. Returns (nil, nil) when it does not exist.
func (r *MeetingAssistRepository) GetByID(ctx context.Context, id string) (*types.MeetingAssist, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+meetingAssistColumns+`
		 FROM meeting_assists
		 WHERE id = $1`,
		id,
	)
	m, err := scanMeetingAssist(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get meeting assist", err)
	}
	return &m, nil
}

// ListAttendees returns all attendees of a meeting assist.
func (r *MeetingAssistRepository) ListAttendees(ctx context.Context, meetingID string) ([]types.Attendee, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, meeting_id, host_id, name, primary_email, timezone, external_attendee
		 FROM meeting_assist_attendees
		 WHERE meeting_id = $1`,
		meetingID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list meeting assist attendees", err)
	}
	defer rows.Close()

	var attendees []types.Attendee
	for rows.Next() {
		var a types.Attendee
		if err := rows.Scan(&a.ID, &a.UserID, &a.MeetingID, &a.HostID, &a.Name, &a.PrimaryEmail, &a.Timezone, &a.ExternalAttendee); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan attendee", err)
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate attendees", err)
	}
	return attendees, nil
}

// ListAttendeeEvents returns the availability events an external attendee
// submitted whose start falls inside the planning window.
func (r *MeetingAssistRepository) ListAttendeeEvents(ctx context.Context, attendeeID, windowStart, windowEnd string) ([]types.MeetingAssistEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, attendee_id, summary, notes, start_date, end_date, timezone, calendar_id, meeting_id
		 FROM meeting_assist_events
		 WHERE attendee_id = $1
		   AND start_date >= $2
		   AND start_date <= $3
		 ORDER BY start_date`,
		attendeeID, windowStart, windowEnd,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list attendee events", err)
	}
	defer rows.Close()

	var events []types.MeetingAssistEvent
	for rows.Next() {
		var e types.MeetingAssistEvent
		if err := rows.Scan(&e.ID, &e.AttendeeID, &e.Summary, &e.Notes, &e.StartDate, &e.EndDate, &e.Timezone, &e.CalendarID, &e.MeetingID); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan attendee event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate attendee events", err)
	}
	return events, nil
}

// ListPreferredTimeRanges returns the meeting-level preferred time ranges.
func (r *MeetingAssistRepository) ListPreferredTimeRanges(ctx context.Context, meetingID string) ([]types.PreferredTimeRange, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, meeting_id, user_id, host_id, day_of_week, start_time, end_time
		 FROM meeting_assist_preferred_time_ranges
		 WHERE meeting_id = $1`,
		meetingID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list meeting preferred time ranges", err)
	}
	defer rows.Close()

	var ranges []types.PreferredTimeRange
	for rows.Next() {
		var p types.PreferredTimeRange
		var eventID *string
		if err := rows.Scan(&p.ID, &eventID, &p.MeetingID, &p.UserID, &p.HostID, &p.DayOfWeek, &p.StartTime, &p.EndTime); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan meeting preferred time range", err)
		}
		if eventID != nil {
			p.EventID = *eventID
		}
		ranges = append(ranges, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate meeting preferred time ranges", err)
	}
	return ranges, nil
}

// ListUpcoming returns the host's non-cancelled meeting assists whose window
// starts inside [windowStart, windowEnd], excluding the given meeting IDs.
// Callers extend windowEnd by one day to catch assists straddling the boundary.
func (r *MeetingAssistRepository) ListUpcoming(ctx context.Context, userID, windowStart, windowEnd string, excludeIDs []string) ([]types.MeetingAssist, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+meetingAssistColumns+`
		 FROM meeting_assists
		 WHERE user_id = $1
		   AND cancelled = FALSE
		   AND window_start_date >= $2
		   AND window_start_date <= $3
		   AND NOT (id = ANY($4))
		 ORDER BY window_start_date`,
		userID, windowStart, windowEnd, excludeIDs,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list upcoming meeting assists", err)
	}
	defer rows.Close()

	var assists []types.MeetingAssist
	for rows.Next() {
		m, err := scanMeetingAssist(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan meeting assist", err)
		}
		assists = append(assists, m)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate meeting assists", err)
	}
	return assists, nil
}
