package assist

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"schedassist/internal/types"
)

// Aggregator collects everything the planner needs to see for one host's
// window: the host's own events, the canonical event for each meeting assist,
// the other participants' availability, and synthesized events for future
// meeting assists that cleared their attendee threshold.
type Aggregator struct {
	events   EventStore
	meetings MeetingStore
	prefs    PreferenceStore
	log      *slog.Logger

	// randIndex picks a preferred-time-range index in [min, max).
	// Injectable for deterministic tests.
	randIndex func(min, max int) int
}

// NewAggregator creates an Aggregator over the given stores.
func NewAggregator(events EventStore, meetings MeetingStore, prefs PreferenceStore, log *slog.Logger) *Aggregator {
	return &Aggregator{
		events:    events,
		meetings:  meetings,
		prefs:     prefs,
		log:       log,
		randIndex: defaultRandIndex,
	}
}

// defaultRandIndex implements the uniform pick floor(random()*(max-min))+min.
func defaultRandIndex(min, max int) int {
	if max <= min {
		return min
	}
	return int(math.Floor(rand.Float64()*float64(max-min))) + min
}

// AggregateResult is the aggregation output consumed by the personalization
// engine and the planning assembler.
type AggregateResult struct {
	// UnlinkedEvents are the host's events with no meeting link; these flow
	// through the personalization engine.
	UnlinkedEvents []types.Event

	// MeetingEvents are the canonical promoted events, one per attendee per
	// meeting assist. They bypass personalization.
	MeetingEvents []types.Event

	// AttendeeEvents is the shared pool of other participants' events,
	// forwarded so the planner sees their busy time.
	AttendeeEvents []types.Event

	// FutureEvents are synthesized events for future meeting assists that
	// cleared their attendee threshold.
	FutureEvents []types.Event

	InternalAttendees []types.Attendee
	ExternalAttendees []types.Attendee

	// Assists are the meeting assists encountered in the window, used by the
	// assembler for host reminder and buffer handling.
	Assists []types.MeetingAssist

	// OldEvents is the untouched snapshot of the host's window events, staged
	// alongside the plan so the materializer can diff old against new.
	OldEvents []types.Event
}

// Aggregate runs the full aggregation pass for one schedule request.
// Per-attendee lookup failures are logged and skipped; failures scoped to the
// whole payload (the host's own listing, a meeting listing) propagate as
// errors so the message is redelivered.
func (a *Aggregator) Aggregate(ctx context.Context, req types.ScheduleRequest) (*AggregateResult, error) {
	hostEvents, err := a.events.ListForWindow(ctx, req.UserID, req.WindowStartDate, req.WindowEndDate)
	if err != nil {
		return nil, err
	}

	res := &AggregateResult{
		OldEvents: append([]types.Event(nil), hostEvents...),
	}

	// listed tracks event IDs already collected, so pool events that duplicate
	// an already promoted or listed event are dropped.
	listed := make(map[string]bool, len(hostEvents))

	var meetingIDs []string
	for _, ev := range hostEvents {
		if ev.MeetingID == nil {
			listed[ev.ID] = true
			res.UnlinkedEvents = append(res.UnlinkedEvents, a.withEventTimeRanges(ctx, ev))
			continue
		}
		meetingIDs = append(meetingIDs, *ev.MeetingID)
		if err := a.processMeeting(ctx, req, *ev.MeetingID, ev, res, listed); err != nil {
			return nil, err
		}
	}

	if err := a.processFutureAssists(ctx, req, meetingIDs, res); err != nil {
		return nil, err
	}

	a.log.InfoContext(ctx, "aggregation complete",
		"host_id", req.UserID,
		"unlinked_events", len(res.UnlinkedEvents),
		"meeting_events", len(res.MeetingEvents),
		"attendee_events", len(res.AttendeeEvents),
		"future_events", len(res.FutureEvents),
		"assists", len(res.Assists),
	)
	return res, nil
}

// withEventTimeRanges attaches the event's own preferred time ranges. A
// lookup failure is logged and the event proceeds without preferences.
func (a *Aggregator) withEventTimeRanges(ctx context.Context, ev types.Event) types.Event {
	ranges, err := a.events.ListPreferredTimeRangesForEvent(ctx, ev.ID)
	if err != nil {
		a.log.WarnContext(ctx, "failed to load event time preferences, proceeding without",
			"event_id", ev.ID,
			"error", err,
		)
		return ev
	}
	if len(ranges) > 0 {
		ev.PreferredTimeRanges = ranges
	}
	return ev
}

// processMeeting handles one meeting assist linked from a host event:
// partitions attendees, promotes each attendee's meeting-linked event into the
// canonical list, and forwards their remaining events to the shared pool.
func (a *Aggregator) processMeeting(ctx context.Context, req types.ScheduleRequest, meetingID string, hostEvent types.Event, res *AggregateResult, listed map[string]bool) error {
	assist, err := a.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return err
	}
	if assist == nil {
		a.log.WarnContext(ctx, "host event references missing meeting assist, skipping",
			"event_id", hostEvent.ID,
			"meeting_id", meetingID,
		)
		return nil
	}

	ranges, err := a.meetings.ListPreferredTimeRanges(ctx, meetingID)
	if err != nil {
		return err
	}
	attendees, err := a.meetings.ListAttendees(ctx, meetingID)
	if err != nil {
		return err
	}

	res.Assists = append(res.Assists, *assist)

	for _, att := range attendees {
		if att.ExternalAttendee {
			res.ExternalAttendees = append(res.ExternalAttendees, att)
			a.collectExternalAttendee(ctx, req, *assist, att, ranges, res, listed)
			continue
		}
		res.InternalAttendees = append(res.InternalAttendees, att)
		a.collectInternalAttendee(ctx, req, *assist, att, hostEvent, ranges, res, listed)
	}
	return nil
}

// collectExternalAttendee promotes the attendee's submitted event that matches
// the meeting and forwards the rest to the shared pool. Lookup failures skip
// the attendee.
func (a *Aggregator) collectExternalAttendee(ctx context.Context, req types.ScheduleRequest, assist types.MeetingAssist, att types.Attendee, ranges []types.PreferredTimeRange, res *AggregateResult, listed map[string]bool) {
	events, err := a.meetings.ListAttendeeEvents(ctx, att.ID, req.WindowStartDate, req.WindowEndDate)
	if err != nil {
		a.log.WarnContext(ctx, "failed to list external attendee events, skipping attendee",
			"attendee_id", att.ID,
			"meeting_id", assist.ID,
			"error", err,
		)
		return
	}

	var promotedID string
	for _, mae := range events {
		if mae.MeetingID != nil && *mae.MeetingID == assist.ID {
			promoted := a.promote(mae.ToEvent(att.UserID), assist, ranges)
			if !listed[promoted.ID] {
				listed[promoted.ID] = true
				res.MeetingEvents = append(res.MeetingEvents, promoted)
			}
			promotedID = mae.ID
			break
		}
	}
	for _, mae := range events {
		if mae.ID == promotedID || listed[mae.ID] {
			continue
		}
		listed[mae.ID] = true
		res.AttendeeEvents = append(res.AttendeeEvents, mae.ToEvent(att.UserID))
	}
}

// collectInternalAttendee promotes the attendee's own meeting-linked event and
// forwards the rest of their window to the shared pool. For the host, the
// triggering event itself is promoted and its siblings are already listed.
func (a *Aggregator) collectInternalAttendee(ctx context.Context, req types.ScheduleRequest, assist types.MeetingAssist, att types.Attendee, hostEvent types.Event, ranges []types.PreferredTimeRange, res *AggregateResult, listed map[string]bool) {
	if att.UserID == req.UserID {
		if !listed[hostEvent.ID] {
			listed[hostEvent.ID] = true
			res.MeetingEvents = append(res.MeetingEvents, a.promote(hostEvent, assist, ranges))
		}
		return
	}

	events, err := a.events.ListForWindow(ctx, att.UserID, req.WindowStartDate, req.WindowEndDate)
	if err != nil {
		a.log.WarnContext(ctx, "failed to list internal attendee events, skipping attendee",
			"attendee_id", att.ID,
			"user_id", att.UserID,
			"meeting_id", assist.ID,
			"error", err,
		)
		return
	}

	var promotedID string
	for _, ev := range events {
		if ev.MeetingID != nil && *ev.MeetingID == assist.ID {
			promoted := a.promote(ev, assist, ranges)
			if !listed[promoted.ID] {
				listed[promoted.ID] = true
				res.MeetingEvents = append(res.MeetingEvents, promoted)
			}
			promotedID = ev.ID
			break
		}
	}
	for _, ev := range events {
		if ev.ID == promotedID || listed[ev.ID] {
			continue
		}
		listed[ev.ID] = true
		res.AttendeeEvents = append(res.AttendeeEvents, ev)
	}
}

// promote turns an attendee event into the canonical planner-facing meeting
// event: meeting-linked, modifiable, carrying the assist's duration, priority
// floor, and the meeting-level time preferences.
func (a *Aggregator) promote(ev types.Event, assist types.MeetingAssist, ranges []types.PreferredTimeRange) types.Event {
	ev.MeetingID = &assist.ID
	ev.IsMeeting = true
	ev.Modifiable = true
	ev.Duration = assist.Duration
	if assist.Priority > ev.Priority {
		ev.Priority = assist.Priority
	}
	if len(ranges) > 0 {
		ev.PreferredTimeRanges = ranges
	}
	return ev
}

// processFutureAssists finds the host's upcoming meeting assists that are not
// already represented in the window and synthesizes an event per attendee for
// each one that cleared its attendee threshold. The lookup window is extended
// by one day past the planning window to catch assists straddling the edge.
func (a *Aggregator) processFutureAssists(ctx context.Context, req types.ScheduleRequest, excludeIDs []string, res *AggregateResult) error {
	windowEndPlus, err := addMinutes(req.WindowEndDate, 24*60)
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidWindow,
			"window end date is not a valid timestamp", err,
			map[string]any{"window_end_date": req.WindowEndDate})
	}
	if excludeIDs == nil {
		excludeIDs = []string{}
	}

	assists, err := a.meetings.ListUpcoming(ctx, req.UserID, req.WindowStartDate, windowEndPlus, excludeIDs)
	if err != nil {
		return err
	}

	for _, assist := range assists {
		if assist.MinThresholdCount == nil || assist.AttendeeCount == nil {
			continue
		}
		if *assist.AttendeeCount < *assist.MinThresholdCount {
			a.log.InfoContext(ctx, "future meeting assist below attendee threshold, skipping",
				"meeting_id", assist.ID,
				"attendee_count", *assist.AttendeeCount,
				"min_threshold", *assist.MinThresholdCount,
			)
			continue
		}
		if err := a.synthesizeForAssist(ctx, assist, res); err != nil {
			return err
		}
	}
	return nil
}

// synthesizeForAssist creates one event per attendee of a future meeting
// assist. Per-attendee failures are logged and skipped.
func (a *Aggregator) synthesizeForAssist(ctx context.Context, assist types.MeetingAssist, res *AggregateResult) error {
	ranges, err := a.meetings.ListPreferredTimeRanges(ctx, assist.ID)
	if err != nil {
		return err
	}
	attendees, err := a.meetings.ListAttendees(ctx, assist.ID)
	if err != nil {
		return err
	}

	res.Assists = append(res.Assists, assist)

	for _, att := range attendees {
		ev, err := a.synthesizeEvent(ctx, assist, att, ranges)
		if err != nil {
			a.log.WarnContext(ctx, "failed to synthesize future meeting event, skipping attendee",
				"attendee_id", att.ID,
				"meeting_id", assist.ID,
				"error", err,
			)
			continue
		}
		res.FutureEvents = append(res.FutureEvents, ev)
		if att.ExternalAttendee {
			res.ExternalAttendees = append(res.ExternalAttendees, att)
		} else {
			res.InternalAttendees = append(res.InternalAttendees, att)
		}
	}
	return nil
}

// synthesizeEvent builds the placeholder event the planner will position for
// one attendee of a future meeting assist. When the assist carries preferred
// time ranges, one is picked uniformly at random and its day/start become the
// event's preference hints; with no ranges the event carries no hints.
// Internal attendees get their global calendar when one exists.
func (a *Aggregator) synthesizeEvent(ctx context.Context, assist types.MeetingAssist, att types.Attendee, ranges []types.PreferredTimeRange) (types.Event, error) {
	endDate, err := addMinutes(assist.WindowStartDate, assist.Duration)
	if err != nil {
		return types.Event{}, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidWindow,
			"meeting assist window start is not a valid timestamp", err,
			map[string]any{"meeting_id": assist.ID})
	}

	userID := att.UserID
	if userID == "" {
		userID = att.ID
	}

	ev := types.Event{
		ID:                  uuid.New().String(),
		UserID:              userID,
		Title:               assist.Summary,
		Notes:               assist.Notes,
		StartDate:           assist.WindowStartDate,
		EndDate:             endDate,
		Timezone:            assist.Timezone,
		Duration:            assist.Duration,
		Priority:            assist.Priority,
		MeetingID:           &assist.ID,
		IsMeeting:           true,
		Modifiable:          true,
		PreferredTimeRanges: ranges,
	}

	if len(ranges) > 0 {
		idx := a.randIndex(0, len(ranges))
		picked := ranges[idx]
		ev.PreferredDayOfWeek = &picked.DayOfWeek
		ev.PreferredTime = &picked.StartTime
	}

	if !att.ExternalAttendee {
		cal, err := a.prefs.GetGlobalCalendar(ctx, att.UserID)
		if err != nil {
			return types.Event{}, err
		}
		if cal != nil {
			ev.CalendarID = cal.ID
			return ev, nil
		}
	}
	if assist.CalendarID != nil {
		ev.CalendarID = *assist.CalendarID
	}
	return ev, nil
}
