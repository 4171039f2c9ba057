package types

// EventType defines the type of event emitted by the engine.
type EventType string

const (
	EventTypeActiveHover      EventType = "active_hover"      // EventTypeActiveHover indicates a new qualifying hover while the modifier is held.
	EventTypeHoverCleared     EventType = "hover_cleared"     // EventTypeHoverCleared indicates the active hover and selection were dropped.
	EventTypeSuggestionsStart EventType = "suggestions_start" // EventTypeSuggestionsStart indicates a generation call was issued.
	EventTypeSuggestions      EventType = "suggestions"       // EventTypeSuggestions indicates generated suggestions are available.
	EventTypeSuggestionsError EventType = "suggestions_error" // EventTypeSuggestionsError indicates generation failed after retries.
	EventTypeSecondaryOpened  EventType = "secondary_opened"  // EventTypeSecondaryOpened indicates the split panel loaded a location.
	EventTypeSecondaryClosed  EventType = "secondary_closed"  // EventTypeSecondaryClosed indicates the split panel was torn down.
	EventTypeComposeDone      EventType = "compose_done"      // EventTypeComposeDone indicates a compose action finished.
	EventTypeHeldChanged      EventType = "held_changed"      // EventTypeHeldChanged indicates the merged modifier state flipped.
)

// Event is emitted by the engine to the suggestion panel.
type Event struct {
	// Hover is the merged state that produced the event, when relevant.
	Hover *MergedHoverState

	// Suggestions holds generated replies (for suggestion events).
	Suggestions []string

	// Error carries the failure for error events.
	Error error

	// Text is the hover text a suggestion event belongs to.
	Text string

	// URL is the location involved in panel events.
	URL string

	// Held is the merged modifier state (for held events).
	Held bool

	Type EventType
}

// NewActiveHoverEvent creates an active hover event.
func NewActiveHoverEvent(hover MergedHoverState) Event {
	return Event{Type: EventTypeActiveHover, Hover: &hover, Text: hover.TextValue()}
}

// NewHoverClearedEvent creates a hover cleared event.
func NewHoverClearedEvent() Event {
	return Event{Type: EventTypeHoverCleared}
}

// NewSuggestionsStartEvent creates a generation start event.
func NewSuggestionsStartEvent(text string) Event {
	return Event{Type: EventTypeSuggestionsStart, Text: text}
}

// NewSuggestionsEvent creates a suggestions event.
func NewSuggestionsEvent(text string, suggestions []string) Event {
	return Event{Type: EventTypeSuggestions, Text: text, Suggestions: suggestions}
}

// NewSuggestionsErrorEvent creates a generation error event.
func NewSuggestionsErrorEvent(text string, err error) Event {
	return Event{Type: EventTypeSuggestionsError, Text: text, Error: err}
}

// NewSecondaryOpenedEvent creates a secondary opened event.
func NewSecondaryOpenedEvent(url string) Event {
	return Event{Type: EventTypeSecondaryOpened, URL: url}
}

// NewSecondaryClosedEvent creates a secondary closed event.
func NewSecondaryClosedEvent() Event {
	return Event{Type: EventTypeSecondaryClosed}
}

// NewComposeDoneEvent creates a compose done event. err is nil on success.
func NewComposeDoneEvent(text string, err error) Event {
	return Event{Type: EventTypeComposeDone, Text: text, Error: err}
}

// NewHeldChangedEvent creates a held changed event.
func NewHeldChangedEvent(held bool) Event {
	return Event{Type: EventTypeHeldChanged, Held: held}
}

// IsError reports whether the event carries a failure.
func (e Event) IsError() bool {
	return e.Error != nil
}
