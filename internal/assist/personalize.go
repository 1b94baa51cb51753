package assist

import (
	"context"
	"log/slog"
	"time"

	"schedassist/internal/types"
)

// Action is the personalization decision for one event, chosen from whether a
// similar trained event exists and whether the user has hand-assigned
// categories on the new event.
type Action int

const (
	// ActionApplyCategoryDefaults applies the defaults of the event's own
	// categories and records the event as a new training entry. With no
	// categories the event passes through unchanged but is still recorded.
	ActionApplyCategoryDefaults Action = iota

	// ActionApplyCategoryDefaultsWithUserMods is the category-defaults
	// application for an event whose categories the user hand-assigned; the
	// event's user-modified flags shield hand-set attributes.
	ActionApplyCategoryDefaultsWithUserMods

	// ActionCopyFromPrevious copies the matched previous event's copy-enabled
	// attributes onto the new event. No new training entry is recorded.
	ActionCopyFromPrevious

	// ActionMergeCategoryAndPrevious reconciles the matched previous event
	// with the new event's categories, category settings winning where the
	// previous event has no copy flag set.
	ActionMergeCategoryAndPrevious
)

// Decide picks the personalization action for one event.
func Decide(matchFound, userModifiedCategories bool) Action {
	switch {
	case !matchFound && !userModifiedCategories:
		return ActionApplyCategoryDefaults
	case !matchFound && userModifiedCategories:
		return ActionApplyCategoryDefaultsWithUserMods
	case matchFound && !userModifiedCategories:
		return ActionCopyFromPrevious
	default:
		return ActionMergeCategoryAndPrevious
	}
}

// Engine personalizes unlinked events: it matches each event against the
// user's training history by text similarity and either applies defaults,
// copies settings from the matched previous event, or merges the two.
type Engine struct {
	events EventStore
	prefs  PreferenceStore
	index  SimilarityIndex
	embed  Embedder
	log    *slog.Logger

	now func() time.Time
}

// NewEngine creates a personalization Engine over the given collaborators.
func NewEngine(events EventStore, prefs PreferenceStore, index SimilarityIndex, embed Embedder, log *slog.Logger) *Engine {
	return &Engine{
		events: events,
		prefs:  prefs,
		index:  index,
		embed:  embed,
		log:    log,
		now:    time.Now,
	}
}

// Outcome is the personalized event together with the reminders and buffer
// events personalization produced for it.
type Outcome struct {
	Event       types.Event
	Reminders   []types.Reminder
	BufferTimes []types.Event
}

// ProcessEvent personalizes one unlinked event. The event's title and notes
// are embedded and matched against the user's training entries; the action
// taken follows Decide. A match that points at a deleted event is healed by
// removing the stale training entry and falling back to the no-match path.
func (e *Engine) ProcessEvent(ctx context.Context, ev types.Event) (*Outcome, error) {
	text := eventText(ev)

	vector, err := e.embed.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	matchID, found, err := e.index.SearchNearest(ctx, ev.UserID, vector)
	if err != nil {
		return nil, err
	}

	switch Decide(found, ev.UserModifiedCategories) {
	case ActionApplyCategoryDefaults, ActionApplyCategoryDefaultsWithUserMods:
		return e.applyCategoryDefaults(ctx, ev, text, vector)
	case ActionCopyFromPrevious:
		prev, err := e.resolveMatch(ctx, ev, matchID)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			return e.applyCategoryDefaults(ctx, ev, text, vector)
		}
		return e.copyFromPrevious(ctx, ev, *prev)
	default:
		prev, err := e.resolveMatch(ctx, ev, matchID)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			return e.applyCategoryDefaults(ctx, ev, text, vector)
		}
		return e.mergePreviousWithCategories(ctx, ev, *prev)
	}
}

// eventText is the similarity text for an event: title and notes joined.
func eventText(ev types.Event) string {
	if ev.Notes == "" {
		return ev.Title
	}
	return ev.Title + ":" + ev.Notes
}

// resolveMatch loads the matched previous event. A match pointing at a
// missing event is stale: the training entry is deleted and nil is returned
// so the caller falls back to the no-match path, which re-records the event.
func (e *Engine) resolveMatch(ctx context.Context, ev types.Event, matchID string) (*types.Event, error) {
	prev, err := e.events.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		return prev, nil
	}

	e.log.InfoContext(ctx, "training entry references deleted event, healing",
		"event_id", ev.ID,
		"stale_event_id", matchID,
	)
	if err := e.index.DeleteTrainingEntry(ctx, matchID); err != nil {
		return nil, err
	}
	return nil, nil
}

// record writes the event into the training index, keyed by event ID so a
// redelivered message overwrites rather than duplicates.
func (e *Engine) record(ctx context.Context, ev types.Event, text string, vector []float32) error {
	return e.index.AddTrainingEntry(ctx, types.TrainingEntry{
		ID:              ev.ID,
		UserID:          ev.UserID,
		Vector:          vector,
		SourceEventText: text,
		CreatedAt:       e.now().UTC(),
	})
}

// applyCategoryDefaults applies the defaults of the event's own categories to
// an event with no training match, then records it. With no categories the
// event passes through unchanged but is still recorded. User preferences are
// never consulted on this path, so a user without a preferences row still
// processes cleanly.
func (e *Engine) applyCategoryDefaults(ctx context.Context, ev types.Event, text string, vector []float32) (*Outcome, error) {
	categories, err := e.events.ListCategoriesForEvent(ctx, ev.ID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Event: ev}
	for _, cat := range categories {
		e.applyCategory(&out.Event, out, cat)
	}

	if err := e.record(ctx, out.Event, text, vector); err != nil {
		return nil, err
	}
	return out, nil
}

// applyCategory layers one category's defaults onto the event, respecting the
// event's user-modified flags.
func (e *Engine) applyCategory(ev *types.Event, out *Outcome, cat types.Category) {
	if !ev.UserModifiedPriorityLevel && cat.DefaultPriorityLevel != nil && *cat.DefaultPriorityLevel > ev.Priority {
		ev.Priority = *cat.DefaultPriorityLevel
	}
	if !ev.UserModifiedModifiable && cat.DefaultModifiable != nil {
		ev.Modifiable = *cat.DefaultModifiable
	}
	if !ev.UserModifiedReminders && len(cat.DefaultReminders) > 0 && len(out.Reminders) == 0 {
		out.Reminders = remindersFromMinutes(cat.DefaultReminders, *ev)
	}
	if !ev.UserModifiedTimeBlocking && cat.DefaultTimeBlocking != nil && ev.TimeBlocking == nil {
		settings := *cat.DefaultTimeBlocking
		ev.TimeBlocking = &settings
		out.BufferTimes = append(out.BufferTimes, spliceBufferTimes(ev)...)
	}
	if !ev.UserModifiedTimePreference && len(cat.DefaultTimePreference) > 0 && len(ev.PreferredTimeRanges) == 0 {
		ranges := make([]types.PreferredTimeRange, 0, len(cat.DefaultTimePreference))
		for _, r := range cat.DefaultTimePreference {
			r.EventID = ev.ID
			r.UserID = ev.UserID
			ranges = append(ranges, r)
		}
		ev.PreferredTimeRanges = ranges
	}
}

// copyFromPrevious copies the previous event's copy-enabled attributes onto
// the new event. The previous event's copy flags opt attributes in; the new
// event's user-modified flags opt them back out. No training entry is
// recorded: the previous entry already covers this text neighborhood.
func (e *Engine) copyFromPrevious(ctx context.Context, ev types.Event, prev types.Event) (*Outcome, error) {
	out := &Outcome{Event: ev}

	if prev.CopyPriorityLevel && !ev.UserModifiedPriorityLevel && prev.Priority > out.Event.Priority {
		out.Event.Priority = prev.Priority
	}
	if prev.CopyModifiable && !ev.UserModifiedModifiable {
		out.Event.Modifiable = prev.Modifiable
	}
	if prev.CopyTimePreference && !ev.UserModifiedTimePreference {
		out.Event.PreferredDayOfWeek = prev.PreferredDayOfWeek
		out.Event.PreferredTime = prev.PreferredTime
		ranges, err := e.events.ListPreferredTimeRangesForEvent(ctx, prev.ID)
		if err != nil {
			return nil, err
		}
		rebound := make([]types.PreferredTimeRange, 0, len(ranges))
		for _, r := range ranges {
			r.EventID = out.Event.ID
			rebound = append(rebound, r)
		}
		if len(rebound) > 0 {
			out.Event.PreferredTimeRanges = rebound
		}
	}
	if prev.CopyReminders && !ev.UserModifiedReminders {
		prevReminders, err := e.events.ListRemindersForEvent(ctx, prev.ID)
		if err != nil {
			return nil, err
		}
		minutes := make([]int, 0, len(prevReminders))
		for _, r := range prevReminders {
			minutes = append(minutes, r.Minutes)
		}
		out.Reminders = remindersFromMinutes(minutes, out.Event)
	}
	if prev.CopyTimeBlocking && !ev.UserModifiedTimeBlocking && prev.TimeBlocking != nil {
		settings := *prev.TimeBlocking
		out.Event.TimeBlocking = &settings
		out.BufferTimes = append(out.BufferTimes, spliceBufferTimes(&out.Event)...)
	}

	// Carry the copy flags forward so events matched against this one later
	// inherit the same behavior.
	out.Event.CopyReminders = prev.CopyReminders
	out.Event.CopyTimeBlocking = prev.CopyTimeBlocking
	out.Event.CopyTimePreference = prev.CopyTimePreference
	out.Event.CopyPriorityLevel = prev.CopyPriorityLevel
	out.Event.CopyModifiable = prev.CopyModifiable
	out.Event.CopyCategories = prev.CopyCategories

	return out, nil
}

// mergePreviousWithCategories reconciles a matched previous event with the
// new event's hand-assigned categories: previous-event attributes win where
// their copy flag is set, category defaults fill the rest. With no categories
// on the new event, the user's preference copy flags arbitrate instead.
func (e *Engine) mergePreviousWithCategories(ctx context.Context, ev types.Event, prev types.Event) (*Outcome, error) {
	categories, err := e.events.ListCategoriesForEvent(ctx, ev.ID)
	if err != nil {
		return nil, err
	}

	if len(categories) == 0 {
		return e.mergePreviousWithPreferences(ctx, ev, prev)
	}

	out, err := e.copyFromPrevious(ctx, ev, prev)
	if err != nil {
		return nil, err
	}
	for _, cat := range categories {
		merged := out.Event
		if prev.CopyPriorityLevel {
			merged.UserModifiedPriorityLevel = true
		}
		if prev.CopyModifiable {
			merged.UserModifiedModifiable = true
		}
		if prev.CopyReminders || len(out.Reminders) > 0 {
			merged.UserModifiedReminders = true
		}
		if prev.CopyTimeBlocking || merged.TimeBlocking != nil {
			merged.UserModifiedTimeBlocking = true
		}
		if prev.CopyTimePreference || len(merged.PreferredTimeRanges) > 0 {
			merged.UserModifiedTimePreference = true
		}
		e.applyCategory(&merged, out, cat)

		// Restore the event's own modification flags; the overrides above only
		// shield already-copied attributes from the category pass.
		merged.UserModifiedPriorityLevel = ev.UserModifiedPriorityLevel
		merged.UserModifiedModifiable = ev.UserModifiedModifiable
		merged.UserModifiedReminders = ev.UserModifiedReminders
		merged.UserModifiedTimeBlocking = ev.UserModifiedTimeBlocking
		merged.UserModifiedTimePreference = ev.UserModifiedTimePreference
		out.Event = merged
	}
	return out, nil
}

// mergePreviousWithPreferences falls back to the user's preference copy flags
// when the matched path expected categories but the event carries none.
func (e *Engine) mergePreviousWithPreferences(ctx context.Context, ev types.Event, prev types.Event) (*Outcome, error) {
	prefs, err := e.prefs.GetUserPreferences(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}

	// Preference-level copy flags gate which previous attributes transfer.
	gated := prev
	gated.CopyReminders = gated.CopyReminders && prefs.CopyReminders
	gated.CopyTimeBlocking = gated.CopyTimeBlocking && prefs.CopyTimeBlocking
	gated.CopyTimePreference = gated.CopyTimePreference && prefs.CopyTimePreference
	gated.CopyPriorityLevel = gated.CopyPriorityLevel && prefs.CopyPriorityLevel
	gated.CopyModifiable = gated.CopyModifiable && prefs.CopyModifiable

	out, err := e.copyFromPrevious(ctx, ev, gated)
	if err != nil {
		return nil, err
	}
	if len(out.Reminders) == 0 && !ev.UserModifiedReminders && len(prefs.Reminders) > 0 {
		out.Reminders = remindersFromMinutes(prefs.Reminders, out.Event)
	}
	return out, nil
}
