package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"schedassist/internal/types"
)

// PreferencesRepository provides data access for user preferences and global
// calendars.
type PreferencesRepository struct {
	db DBTX
}

// NewPreferencesRepository creates a new PreferencesRepository backed by the
// given database connection (pool or transaction).
func NewPreferencesRepository(db DBTX) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// GetUserPreferences fetches a user's scheduling defaults. Missing preferences
// are a data integrity problem for personalization, so absence is returned as
// a not-found AppError rather than (nil, nil).
func (r *PreferencesRepository) GetUserPreferences(ctx context.Context, userID string) (*types.UserPreferences, error) {
	var p types.UserPreferences
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, reminders, work_times, max_work_load_percent,
		        max_number_of_meetings, min_number_of_breaks, back_to_back_meetings,
		        copy_reminders, copy_time_blocking, copy_time_preference,
		        copy_priority_level, copy_modifiable, copy_categories
		 FROM user_preferences
		 WHERE user_id = $1 AND deleted = FALSE`,
		userID,
	).Scan(
		&p.ID, &p.UserID, &p.Reminders, &p.WorkTimes, &p.MaxWorkLoadPercent,
		&p.MaxNumberOfMeetings, &p.MinNumberOfBreaks, &p.BackToBackMeetings,
		&p.CopyReminders, &p.CopyTimeBlocking, &p.CopyTimePreference,
		&p.CopyPriorityLevel, &p.CopyModifiable, &p.CopyCategories,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeNotFoundUserPrefs,
				"user preferences not found", err, map[string]any{"user_id": userID})
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get user preferences", err)
	}
	return &p, nil
}

// GetGlobalCalendar fetches the user's global primary calendar. Returns
// (nil, nil) when the user has none; synthesized events then fall back to the
// meeting assist's calendar.
func (r *PreferencesRepository) GetGlobalCalendar(ctx context.Context, userID string) (*types.Calendar, error) {
	var c types.Calendar
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, global_primary
		 FROM calendars
		 WHERE user_id = $1 AND global_primary = TRUE`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.GlobalPrimary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get global calendar", err)
	}
	return &c, nil
}
