// Package types defines the shared domain model, error taxonomy, and message
// contracts for the meeting-assist scheduling pipeline. Types here carry no
// behavior beyond simple conversions; business logic lives in the worker
// packages.
package types

import "time"

// Event is a calendar event as seen by the scheduling pipeline. JSON field
// names follow the staged-payload contract consumed by the external planner,
// so they are camelCase and must not be renamed casually.
type Event struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"userId" db:"user_id"`
	CalendarID string `json:"calendarId,omitempty" db:"calendar_id"`
	Title      string `json:"title,omitempty" db:"title"`
	Notes      string `json:"notes,omitempty" db:"notes"`

	// StartDate/EndDate are wall-clock timestamps in the event's timezone,
	// formatted as "2006-01-02T15:04:05" (no offset).
	StartDate string `json:"startDate" db:"start_date"`
	EndDate   string `json:"endDate" db:"end_date"`
	Timezone  string `json:"timezone,omitempty" db:"timezone"`

	// Duration in minutes. Zero means derive from StartDate/EndDate.
	Duration int `json:"duration,omitempty" db:"duration"`

	Priority   int  `json:"priority" db:"priority"`
	Modifiable bool `json:"modifiable" db:"modifiable"`

	// MeetingID links the event to a meeting assist. Nil for standalone events.
	MeetingID         *string `json:"meetingId,omitempty" db:"meeting_id"`
	IsMeeting         bool    `json:"isMeeting,omitempty" db:"is_meeting"`
	IsExternalMeeting bool    `json:"isExternalMeeting,omitempty" db:"is_external_meeting"`

	// Buffer-event linkage. A host event may own a synthetic pre/post event;
	// buffer events point back at their owner.
	IsPreEvent  bool    `json:"isPreEvent,omitempty" db:"is_pre_event"`
	IsPostEvent bool    `json:"isPostEvent,omitempty" db:"is_post_event"`
	PreEventID  *string `json:"preEventId,omitempty" db:"pre_event_id"`
	PostEventID *string `json:"postEventId,omitempty" db:"post_event_id"`

	TimeBlocking *BufferTimeSettings `json:"timeBlocking,omitempty" db:"time_blocking"`

	// Time preference hints consumed by the planner.
	PreferredDayOfWeek *int    `json:"preferredDayOfWeek,omitempty" db:"preferred_day_of_week"`
	PreferredTime      *string `json:"preferredTime,omitempty" db:"preferred_time"`

	PreferredTimeRanges []PreferredTimeRange `json:"preferredTimeRanges,omitempty" db:"-"`

	// User-modified flags control which attributes personalization may touch.
	UserModifiedCategories     bool `json:"userModifiedCategories,omitempty" db:"user_modified_categories"`
	UserModifiedReminders      bool `json:"userModifiedReminders,omitempty" db:"user_modified_reminders"`
	UserModifiedTimeBlocking   bool `json:"userModifiedTimeBlocking,omitempty" db:"user_modified_time_blocking"`
	UserModifiedTimePreference bool `json:"userModifiedTimePreference,omitempty" db:"user_modified_time_preference"`
	UserModifiedPriorityLevel  bool `json:"userModifiedPriorityLevel,omitempty" db:"user_modified_priority_level"`
	UserModifiedModifiable     bool `json:"userModifiedModifiable,omitempty" db:"user_modified_modifiable"`

	// Copy-forward flags. When set on a previously trained event, the matching
	// attribute is copied onto new similar events.
	CopyReminders      bool `json:"copyReminders,omitempty" db:"copy_reminders"`
	CopyTimeBlocking   bool `json:"copyTimeBlocking,omitempty" db:"copy_time_blocking"`
	CopyTimePreference bool `json:"copyTimePreference,omitempty" db:"copy_time_preference"`
	CopyPriorityLevel  bool `json:"copyPriorityLevel,omitempty" db:"copy_priority_level"`
	CopyModifiable     bool `json:"copyModifiable,omitempty" db:"copy_modifiable"`
	CopyCategories     bool `json:"copyCategories,omitempty" db:"copy_categories"`
}

// BufferTimeSettings describes padding minutes around an event.
type BufferTimeSettings struct {
	BeforeEvent int `json:"beforeEvent,omitempty"`
	AfterEvent  int `json:"afterEvent,omitempty"`
}

// PreferredTimeRange is a recurring window during which an event or meeting
// prefers to be scheduled. DayOfWeek is 1 (Monday) through 7 (Sunday), or -1
// when the preference applies to any day.
type PreferredTimeRange struct {
	ID        string  `json:"id" db:"id"`
	EventID   string  `json:"eventId,omitempty" db:"event_id"`
	MeetingID *string `json:"meetingId,omitempty" db:"meeting_id"`
	UserID    string  `json:"userId,omitempty" db:"user_id"`
	HostID    string  `json:"hostId,omitempty" db:"host_id"`
	DayOfWeek int     `json:"dayOfWeek" db:"day_of_week"`
	StartTime string  `json:"startTime" db:"start_time"` // "HH:MM"
	EndTime   string  `json:"endTime" db:"end_time"`     // "HH:MM"
}

// MeetingAssist is a scheduling request for a meeting whose exact time the
// planner chooses inside the assist's window.
type MeetingAssist struct {
	ID                string              `json:"id" db:"id"`
	UserID            string              `json:"userId" db:"user_id"` // host
	Summary           string              `json:"summary,omitempty" db:"summary"`
	Notes             string              `json:"notes,omitempty" db:"notes"`
	Timezone          string              `json:"timezone" db:"timezone"`
	WindowStartDate   string              `json:"windowStartDate" db:"window_start_date"`
	WindowEndDate     string              `json:"windowEndDate" db:"window_end_date"`
	Duration          int                 `json:"duration" db:"duration"`
	Priority          int                 `json:"priority" db:"priority"`
	CalendarID        *string             `json:"calendarId,omitempty" db:"calendar_id"`
	ReminderMinutes   []int               `json:"reminders,omitempty" db:"reminders"`
	BufferTime        *BufferTimeSettings `json:"bufferTime,omitempty" db:"buffer_time"`
	MinThresholdCount *int                `json:"minThresholdCount,omitempty" db:"min_threshold_count"`
	AttendeeCount     *int                `json:"attendeeCount,omitempty" db:"attendee_count"`
	Cancelled         bool                `json:"cancelled,omitempty" db:"cancelled"`
}

// Attendee is a participant attached to a meeting assist. External attendees
// have no account in the system; their availability arrives as
// MeetingAssistEvents submitted through the handshake flow.
type Attendee struct {
	ID               string `json:"id" db:"id"`
	UserID           string `json:"userId,omitempty" db:"user_id"`
	MeetingID        string `json:"meetingId" db:"meeting_id"`
	HostID           string `json:"hostId" db:"host_id"`
	Name             string `json:"name,omitempty" db:"name"`
	PrimaryEmail     string `json:"primaryEmail,omitempty" db:"primary_email"`
	Timezone         string `json:"timezone,omitempty" db:"timezone"`
	ExternalAttendee bool   `json:"externalAttendee" db:"external_attendee"`
}

// MeetingAssistEvent is an availability event submitted by an external
// attendee. It lives outside the internal calendar store and is converted to
// an Event before planning.
type MeetingAssistEvent struct {
	ID         string  `json:"id" db:"id"`
	AttendeeID string  `json:"attendeeId" db:"attendee_id"`
	Summary    string  `json:"summary,omitempty" db:"summary"`
	Notes      string  `json:"notes,omitempty" db:"notes"`
	StartDate  string  `json:"startDate" db:"start_date"`
	EndDate    string  `json:"endDate" db:"end_date"`
	Timezone   string  `json:"timezone,omitempty" db:"timezone"`
	CalendarID string  `json:"calendarId,omitempty" db:"calendar_id"`
	MeetingID  *string `json:"meetingId,omitempty" db:"meeting_id"`
}

// ToEvent converts an external attendee's availability event into the internal
// Event shape, attributing it to the given user ID. The converted event is
// immutable so the planner treats it as occupied time.
func (m MeetingAssistEvent) ToEvent(userID string) Event {
	return Event{
		ID:         m.ID,
		UserID:     userID,
		CalendarID: m.CalendarID,
		Title:      m.Summary,
		Notes:      m.Notes,
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		Timezone:   m.Timezone,
		MeetingID:  m.MeetingID,
		Modifiable: false,
	}
}

// Reminder is a notification offset attached to an event.
type Reminder struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"userId" db:"user_id"`
	EventID    string `json:"eventId" db:"event_id"`
	Timezone   string `json:"timezone,omitempty" db:"timezone"`
	Minutes    int    `json:"minutes" db:"minutes"`
	UseDefault bool   `json:"useDefault" db:"use_default"`
}

// Category is a user-defined event class carrying default scheduling
// attributes applied to events classified under it.
type Category struct {
	ID                    string               `json:"id" db:"id"`
	UserID                string               `json:"userId" db:"user_id"`
	Name                  string               `json:"name" db:"name"`
	DefaultReminders      []int                `json:"defaultReminders,omitempty" db:"default_reminders"`
	DefaultTimeBlocking   *BufferTimeSettings  `json:"defaultTimeBlocking,omitempty" db:"default_time_blocking"`
	DefaultTimePreference []PreferredTimeRange `json:"defaultTimePreference,omitempty" db:"default_time_preference"`
	DefaultPriorityLevel  *int                 `json:"defaultPriorityLevel,omitempty" db:"default_priority_level"`
	DefaultModifiable     *bool                `json:"defaultModifiable,omitempty" db:"default_modifiable"`
	CopyReminders         bool                 `json:"copyReminders,omitempty" db:"copy_reminders"`
	CopyTimeBlocking      bool                 `json:"copyTimeBlocking,omitempty" db:"copy_time_blocking"`
	CopyTimePreference    bool                 `json:"copyTimePreference,omitempty" db:"copy_time_preference"`
	CopyPriorityLevel     bool                 `json:"copyPriorityLevel,omitempty" db:"copy_priority_level"`
	CopyModifiable        bool                 `json:"copyModifiable,omitempty" db:"copy_modifiable"`
}

// WorkTime is a user's working window for one day of the week.
type WorkTime struct {
	DayOfWeek string `json:"dayOfWeek"` // "MONDAY".."SUNDAY"
	StartTime string `json:"startTime"` // "HH:MM"
	EndTime   string `json:"endTime"`   // "HH:MM"
	UserID    string `json:"userId,omitempty"`
	HostID    string `json:"hostId,omitempty"`
}

// UserPreferences holds per-user scheduling defaults consulted by the
// personalization engine and the planning assembler.
type UserPreferences struct {
	ID                  string     `json:"id" db:"id"`
	UserID              string     `json:"userId" db:"user_id"`
	Reminders           []int      `json:"reminders,omitempty" db:"reminders"`
	WorkTimes           []WorkTime `json:"workTimes,omitempty" db:"work_times"`
	MaxWorkLoadPercent  int        `json:"maxWorkLoadPercent,omitempty" db:"max_work_load_percent"`
	MaxNumberOfMeetings int        `json:"maxNumberOfMeetings,omitempty" db:"max_number_of_meetings"`
	MinNumberOfBreaks   int        `json:"minNumberOfBreaks,omitempty" db:"min_number_of_breaks"`
	BackToBackMeetings  bool       `json:"backToBackMeetings,omitempty" db:"back_to_back_meetings"`
	CopyReminders       bool       `json:"copyReminders,omitempty" db:"copy_reminders"`
	CopyTimeBlocking    bool       `json:"copyTimeBlocking,omitempty" db:"copy_time_blocking"`
	CopyTimePreference  bool       `json:"copyTimePreference,omitempty" db:"copy_time_preference"`
	CopyPriorityLevel   bool       `json:"copyPriorityLevel,omitempty" db:"copy_priority_level"`
	CopyModifiable      bool       `json:"copyModifiable,omitempty" db:"copy_modifiable"`
	CopyCategories      bool       `json:"copyCategories,omitempty" db:"copy_categories"`
}

// Calendar identifies a user's calendar. Only the global (primary) calendar is
// relevant here; it receives synthesized meeting events.
type Calendar struct {
	ID            string `json:"id" db:"id"`
	UserID        string `json:"userId" db:"user_id"`
	GlobalPrimary bool   `json:"globalPrimary" db:"global_primary"`
}

// TrainingEntry is a vector-store record linking an event's text embedding to
// the event it was derived from. Entries drive nearest-neighbor matching of
// new events against previously personalized ones.
type TrainingEntry struct {
	ID              string    `json:"id"` // event ID
	UserID          string    `json:"userId"`
	Vector          []float32 `json:"embeddings"`
	SourceEventText string    `json:"source_event_text"`
	CreatedAt       time.Time `json:"created_at"`
}
