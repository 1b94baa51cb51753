package assist

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"schedassist/internal/stage"
	"schedassist/internal/types"
)

// partMinutes is the fixed slice length events are split into for the solver.
const partMinutes = 30

// Default working window used for users with no configured work times.
const (
	defaultWorkStart = "08:00"
	defaultWorkEnd   = "18:00"
)

// Assembler builds the planning payload from aggregation and personalization
// output, stages it in the object store, and submits the run to the solver.
type Assembler struct {
	prefs  PreferenceStore
	stage  PayloadStage
	solver Solver
	log    *slog.Logger
}

// NewAssembler creates an Assembler over the given collaborators.
func NewAssembler(prefs PreferenceStore, st PayloadStage, solver Solver, log *slog.Logger) *Assembler {
	return &Assembler{
		prefs:  prefs,
		stage:  st,
		solver: solver,
		log:    log,
	}
}

// AssembleInput carries everything the assembler needs for one run.
type AssembleInput struct {
	Request      types.ScheduleRequest
	Agg          *AggregateResult
	Personalized []types.Event
	Reminders    []types.Reminder
	BufferTimes  []types.Event
}

// Assemble merges the run's events, builds event parts, timeslots, and the
// user list, stages the payload, and submits the run. It returns the staged
// payload and its object key.
func (a *Assembler) Assemble(ctx context.Context, in AssembleInput) (*types.PlanningPayload, string, error) {
	req := in.Request
	singletonID := uuid.New().String()

	allEvents := make([]types.Event, 0,
		len(in.Personalized)+len(in.Agg.MeetingEvents)+len(in.Agg.FutureEvents)+len(in.Agg.AttendeeEvents))
	allEvents = append(allEvents, in.Personalized...)
	allEvents = append(allEvents, in.Agg.MeetingEvents...)
	allEvents = append(allEvents, in.Agg.FutureEvents...)
	allEvents = append(allEvents, in.Agg.AttendeeEvents...)
	allEvents = dedupeEvents(allEvents)

	hostReminders := append([]types.Reminder(nil), in.Reminders...)
	hostBuffers := append([]types.Event(nil), in.BufferTimes...)

	// Meeting-level reminder and buffer settings apply to the host's canonical
	// meeting events.
	for _, assist := range in.Agg.Assists {
		for i := range allEvents {
			ev := &allEvents[i]
			if ev.MeetingID == nil || *ev.MeetingID != assist.ID || ev.UserID != req.UserID {
				continue
			}
			if len(assist.ReminderMinutes) > 0 {
				hostReminders = append(hostReminders, remindersFromMinutes(assist.ReminderMinutes, *ev)...)
			}
			if assist.BufferTime != nil && ev.TimeBlocking == nil {
				settings := *assist.BufferTime
				ev.TimeBlocking = &settings
				hostBuffers = append(hostBuffers, spliceBufferTimes(ev)...)
			}
		}
	}
	allEvents = append(allEvents, hostBuffers...)

	eventParts := buildEventParts(allEvents, req.UserID)

	timeslots, err := a.buildTimeslots(ctx, req)
	if err != nil {
		return nil, "", err
	}

	users, err := a.buildUserList(ctx, req, in.Agg)
	if err != nil {
		return nil, "", err
	}

	if len(eventParts) == 0 || len(timeslots) == 0 || len(users) == 0 {
		return nil, "", types.NewAppErrorWithDetails(types.ErrCodeValidationEmptyPlan,
			"planning payload has no work for the solver", nil,
			map[string]any{
				"event_parts": len(eventParts),
				"timeslots":   len(timeslots),
				"users":       len(users),
			})
	}

	payload := &types.PlanningPayload{
		SingletonID:           singletonID,
		HostID:                req.UserID,
		EventParts:            eventParts,
		AllEvents:             allEvents,
		OldEvents:             in.Agg.OldEvents,
		OldAttendeeEvents:     in.Agg.AttendeeEvents,
		NewHostBufferTimes:    hostBuffers,
		NewHostReminders:      hostReminders,
		HostTimezone:          req.Timezone,
		IsReplan:              req.IsReplan,
		OriginalGoogleEventID: req.OriginalGoogleEventID,
		OriginalCalendarID:    req.OriginalCalendarID,
	}

	key := stage.PlanningKey(req.UserID, singletonID)
	if req.IsReplan {
		key = stage.ReplanKey(req.UserID, singletonID, req.EventBeingReplannedID)
	}

	if err := a.stage.Put(ctx, key, payload); err != nil {
		return nil, "", err
	}

	if err := a.solver.SolveDay(ctx, singletonID, req.UserID, key, timeslots, users, eventParts); err != nil {
		return nil, "", err
	}

	a.log.InfoContext(ctx, "planning run submitted",
		"host_id", req.UserID,
		"singleton_id", singletonID,
		"file_key", key,
		"event_parts", len(eventParts),
		"timeslots", len(timeslots),
		"users", len(users),
	)
	return payload, key, nil
}

// buildEventParts splits each event into consecutive fixed-length parts
// sharing the event's ID as group. Events shorter than one part still produce
// a single part.
func buildEventParts(events []types.Event, hostID string) []types.EventPart {
	var parts []types.EventPart
	for _, ev := range events {
		minutes := eventMinutes(ev)
		if minutes <= 0 {
			continue
		}
		lastPart := int(math.Ceil(float64(minutes) / partMinutes))
		if lastPart < 1 {
			lastPart = 1
		}

		start := ev.StartDate
		for part := 1; part <= lastPart; part++ {
			end, err := addMinutes(start, partMinutes)
			if err != nil {
				break
			}
			if part == lastPart {
				end = ev.EndDate
			}
			p := types.EventPart{
				GroupID:            ev.ID,
				EventID:            ev.ID,
				Part:               part,
				LastPart:           lastPart,
				StartDate:          start,
				EndDate:            end,
				UserID:             ev.UserID,
				HostID:             hostID,
				Priority:           ev.Priority,
				MeetingID:          ev.MeetingID,
				PreferredDayOfWeek: ev.PreferredDayOfWeek,
				PreferredTime:      ev.PreferredTime,
				Modifiable:         ev.Modifiable,
				Event:              ev,
			}
			if ev.MeetingID != nil {
				p.MeetingPart = part
				p.MeetingLastPart = lastPart
			}
			parts = append(parts, p)
			start = end
		}
	}
	return parts
}

// buildTimeslots generates candidate slots for every day of the planning
// window using the host's work times, falling back to a default working day.
func (a *Assembler) buildTimeslots(ctx context.Context, req types.ScheduleRequest) ([]types.Timeslot, error) {
	windowStart, err := time.Parse(wallClockLayout, req.WindowStartDate)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidWindow,
			"window start date is not a valid timestamp", err,
			map[string]any{"window_start_date": req.WindowStartDate})
	}
	windowEnd, err := time.Parse(wallClockLayout, req.WindowEndDate)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidWindow,
			"window end date is not a valid timestamp", err,
			map[string]any{"window_end_date": req.WindowEndDate})
	}
	if !windowEnd.After(windowStart) {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidWindow,
			"window end date is not after window start date", nil,
			map[string]any{
				"window_start_date": req.WindowStartDate,
				"window_end_date":   req.WindowEndDate,
			})
	}

	workTimes := map[string]types.WorkTime{}
	prefs, err := a.prefs.GetUserPreferences(ctx, req.UserID)
	if err == nil {
		for _, wt := range prefs.WorkTimes {
			workTimes[wt.DayOfWeek] = wt
		}
	} else {
		a.log.WarnContext(ctx, "failed to load host preferences, using default work times",
			"host_id", req.UserID,
			"error", err,
		)
	}

	var slots []types.Timeslot
	for day := windowStart; day.Before(windowEnd); day = day.AddDate(0, 0, 1) {
		dayName := dayOfWeekName(day.Weekday())
		start, end := defaultWorkStart, defaultWorkEnd
		if wt, ok := workTimes[dayName]; ok {
			start, end = wt.StartTime, wt.EndTime
		}
		slots = append(slots, daySlots(day, dayName, start, end, req.UserID)...)
	}
	return slots, nil
}

// daySlots emits the fixed-length slots between start and end ("HH:MM") for
// one day. Malformed work times yield no slots for the day.
func daySlots(day time.Time, dayName, start, end, hostID string) []types.Timeslot {
	st, err1 := time.Parse("15:04", start)
	en, err2 := time.Parse("15:04", end)
	if err1 != nil || err2 != nil || !en.After(st) {
		return nil
	}

	monthDay := day.Format("--01-02")
	date := day.Format("2006-01-02")

	var slots []types.Timeslot
	for cur := st; cur.Add(partMinutes * time.Minute).Compare(en) <= 0; cur = cur.Add(partMinutes * time.Minute) {
		slots = append(slots, types.Timeslot{
			DayOfWeek: dayName,
			StartTime: cur.Format("15:04"),
			EndTime:   cur.Add(partMinutes * time.Minute).Format("15:04"),
			MonthDay:  monthDay,
			HostID:    hostID,
			Date:      date,
		})
	}
	return slots
}

// dayOfWeekName maps time.Weekday to the planner's day names.
func dayOfWeekName(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "MONDAY"
	case time.Tuesday:
		return "TUESDAY"
	case time.Wednesday:
		return "WEDNESDAY"
	case time.Thursday:
		return "THURSDAY"
	case time.Friday:
		return "FRIDAY"
	case time.Saturday:
		return "SATURDAY"
	default:
		return "SUNDAY"
	}
}

// buildUserList builds one planner user per participant. Internal attendees
// get their stored preferences; lookup failures and external attendees fall
// back to defaults so one broken profile never sinks the run.
func (a *Assembler) buildUserList(ctx context.Context, req types.ScheduleRequest, agg *AggregateResult) ([]types.PlannerUser, error) {
	seen := map[string]bool{}
	var users []types.PlannerUser

	add := func(userID string, internal bool) {
		if userID == "" || seen[userID] {
			return
		}
		seen[userID] = true

		user := types.PlannerUser{
			ID:                  userID,
			HostID:              req.UserID,
			MaxWorkLoadPercent:  100,
			BackToBackMeetings:  false,
			MaxNumberOfMeetings: 0,
			MinNumberOfBreaks:   0,
		}
		if internal {
			prefs, err := a.prefs.GetUserPreferences(ctx, userID)
			if err != nil {
				a.log.WarnContext(ctx, "failed to load attendee preferences, using defaults",
					"user_id", userID,
					"host_id", req.UserID,
					"error", err,
				)
			} else {
				user.MaxWorkLoadPercent = prefs.MaxWorkLoadPercent
				user.MaxNumberOfMeetings = prefs.MaxNumberOfMeetings
				user.MinNumberOfBreaks = prefs.MinNumberOfBreaks
				user.BackToBackMeetings = prefs.BackToBackMeetings
				user.WorkTimes = prefs.WorkTimes
			}
		}
		if user.MaxWorkLoadPercent <= 0 {
			user.MaxWorkLoadPercent = 100
		}
		users = append(users, user)
	}

	add(req.UserID, true)
	for _, att := range dedupeAttendees(agg.InternalAttendees) {
		add(att.UserID, true)
	}
	for _, att := range dedupeAttendees(agg.ExternalAttendees) {
		id := att.UserID
		if id == "" {
			id = att.ID
		}
		add(id, false)
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("assist: no planner users resolved for host %s", req.UserID)
	}
	return users, nil
}
