package types

// ScheduleRequest is the broker message that kicks off a scheduling run for a
// host's planning window. It is the transport envelope consumed by the
// schedule worker; JSON tags use camelCase to match the producing services.
type ScheduleRequest struct {
	UserID          string `json:"userId" validate:"required"`
	WindowStartDate string `json:"windowStartDate" validate:"required"`
	WindowEndDate   string `json:"windowEndDate" validate:"required"`
	Timezone        string `json:"timezone" validate:"required"`

	// Replan context, set when an already-planned meeting is being moved.
	// Carried through the staged payload into the downstream worker payload.
	IsReplan              bool   `json:"isReplan,omitempty"`
	EventBeingReplannedID string `json:"eventBeingReplannedId,omitempty"`
	OriginalGoogleEventID string `json:"originalGoogleEventId,omitempty"`
	OriginalCalendarID    string `json:"originalCalendarId,omitempty"`
}

// EventPart is a fixed-length slice of an event handed to the planner. Long
// events are split into consecutive parts sharing a GroupID so the solver can
// place them contiguously.
type EventPart struct {
	GroupID   string  `json:"groupId"`
	EventID   string  `json:"eventId"`
	Part      int     `json:"part"`
	LastPart  int     `json:"lastPart"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	UserID    string  `json:"userId"`
	HostID    string  `json:"hostId"`
	Priority  int     `json:"priority"`
	MeetingID *string `json:"meetingId,omitempty"`

	MeetingPart     int `json:"meetingPart,omitempty"`
	MeetingLastPart int `json:"meetingLastPart,omitempty"`

	PreferredDayOfWeek *int    `json:"preferredDayOfWeek,omitempty"`
	PreferredTime      *string `json:"preferredTime,omitempty"`
	Modifiable         bool    `json:"modifiable"`

	// Full event snapshot for downstream materialization.
	Event Event `json:"event"`
}

// Timeslot is a candidate placement slot offered to the planner.
type Timeslot struct {
	DayOfWeek string `json:"dayOfWeek"` // "MONDAY".."SUNDAY"
	StartTime string `json:"startTime"` // "HH:MM"
	EndTime   string `json:"endTime"`   // "HH:MM"
	MonthDay  string `json:"monthDay"`  // "--MM-DD"
	HostID    string `json:"hostId"`
	Date      string `json:"date,omitempty"` // "2006-01-02"
}

// PlannerUser is the per-user constraint block handed to the planner.
type PlannerUser struct {
	ID                  string     `json:"id"`
	HostID              string     `json:"hostId"`
	MaxWorkLoadPercent  int        `json:"maxWorkLoadPercent"`
	MaxNumberOfMeetings int        `json:"maxNumberOfMeetings"`
	MinNumberOfBreaks   int        `json:"minNumberOfBreaks"`
	BackToBackMeetings  bool       `json:"backToBackMeetings"`
	WorkTimes           []WorkTime `json:"workTimes"`
}

// PlanningPayload is the claim-check document staged in the object store while
// the external solver works on a run. The solver callback references it by
// file key; the materializer reads and deletes it.
type PlanningPayload struct {
	SingletonID string `json:"singletonId"`
	HostID      string `json:"hostId"`

	EventParts []EventPart `json:"eventParts"`
	AllEvents  []Event     `json:"allEvents"`

	Breaks             []Event    `json:"breaks,omitempty"`
	OldEvents          []Event    `json:"oldEvents"`
	OldAttendeeEvents  []Event    `json:"oldAttendeeEvents,omitempty"`
	NewHostBufferTimes []Event    `json:"newHostBufferTimes,omitempty"`
	NewHostReminders   []Reminder `json:"newHostReminders,omitempty"`

	HostTimezone string `json:"hostTimezone"`

	IsReplan              bool   `json:"isReplan,omitempty"`
	OriginalGoogleEventID string `json:"originalGoogleEventId,omitempty"`
	OriginalCalendarID    string `json:"originalCalendarId,omitempty"`
}

// SolutionCallback is the request body the external solver POSTs back once a
// run completes. Score format: "<hard>hard/<medium>medium/<soft>soft".
type SolutionCallback struct {
	Score         string        `json:"score,omitempty"`
	HostID        string        `json:"hostId"`
	FileKey       string        `json:"fileKey"`
	EventPartList []EventPart   `json:"eventPartList,omitempty"`
	TimeslotList  []Timeslot    `json:"timeslotList,omitempty"`
	UserList      []PlannerUser `json:"userList,omitempty"`
}

// WorkerPayload is the materialized solution document staged for the calendar
// worker. It joins the solver's placement output with the original planning
// context so the downstream worker needs no further lookups.
type WorkerPayload struct {
	EventPartList []EventPart   `json:"eventPartList"`
	UserList      []PlannerUser `json:"userList"`
	TimeslotList  []Timeslot    `json:"timeslotList"`
	Score         string        `json:"score"`
	FileKey       string        `json:"fileKey"`
	HostID        string        `json:"hostId"`
	SingletonID   string        `json:"singletonId"`

	AllEvents          []Event    `json:"allEvents"`
	Breaks             []Event    `json:"breaks,omitempty"`
	OldEvents          []Event    `json:"oldEvents"`
	OldAttendeeEvents  []Event    `json:"oldAttendeeEvents,omitempty"`
	NewHostBufferTimes []Event    `json:"newHostBufferTimes,omitempty"`
	NewHostReminders   []Reminder `json:"newHostReminders,omitempty"`
	HostTimezone       string     `json:"hostTimezone"`

	IsReplan              bool   `json:"isReplan,omitempty"`
	OriginalGoogleEventID string `json:"originalGoogleEventId,omitempty"`
	OriginalCalendarID    string `json:"originalCalendarId,omitempty"`
}

// WorkerMessage is the broker message published after a solution is
// materialized. Consumers fetch the full payload from the object store.
type WorkerMessage struct {
	FileKey string `json:"fileKey"`
}
