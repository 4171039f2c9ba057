package types

import "strings"

// SourceContext identifies which embedded document a reading came from.
type SourceContext string

const (
	SourcePrimary   SourceContext = "primary"   // SourcePrimary is the main feed document.
	SourceSecondary SourceContext = "secondary" // SourceSecondary is the split-panel document opened beside it.
)

// HoverState is the snapshot an embedded context exports for the host to poll.
// It is owned by the injected script and read-only to the host.
type HoverState struct {
	// CtrlHeld reports the context's own modifier tracker.
	CtrlHeld bool `json:"ctrlHeld"`

	// HostHeld is the host tracker as last pushed into the context.
	HostHeld bool `json:"hostHeld"`

	// Text is the extracted entity text, nil when the pointer is not over a
	// qualifying entity.
	Text *string `json:"text"`

	// TextHTML is the markup of the entity's text element. The host prefers it
	// over Text because it keeps emoji rendered as images.
	TextHTML string `json:"textHtml,omitempty"`

	X float64 `json:"x"`
	Y float64 `json:"y"`

	// HelperReady mirrors the in-context ready flag.
	HelperReady bool `json:"helperReady"`

	// URL is the location of the document at read time.
	URL string `json:"url,omitempty"`

	// PendingNavigation is set when the context cancelled a click that should
	// open in the secondary panel instead.
	PendingNavigation *NavigationIntent `json:"pendingNavigation,omitempty"`
}

// HasText reports whether the state carries hover text.
func (s HoverState) HasText() bool {
	return s.Text != nil && *s.Text != ""
}

// MergedHoverState is the single authoritative state computed by the host on
// every polling tick.
type MergedHoverState struct {
	CtrlHeld bool
	Text     *string
	X        float64
	Y        float64
	Source   SourceContext
}

// HasText reports whether the merged state carries hover text.
func (s MergedHoverState) HasText() bool {
	return s.Text != nil && *s.Text != ""
}

// TextValue returns the hover text or the empty string.
func (s MergedHoverState) TextValue() string {
	if s.Text == nil {
		return ""
	}
	return *s.Text
}

// NavigationIntent describes a click the primary context intercepted.
type NavigationIntent struct {
	Href            string `json:"href"`
	From            string `json:"from"`
	TriggerSelector string `json:"triggerSelector,omitempty"`
}

// PasteKind is the kind of data carried across the clipboard bridge.
type PasteKind string

const (
	PasteKindImage PasteKind = "image" // PasteKindImage carries a data URL.
	PasteKindText  PasteKind = "text"  // PasteKindText carries plain text.
	PasteKindNone  PasteKind = ""      // PasteKindNone means no data was available.
)

// PasteRequest asks the privileged side for clipboard contents.
type PasteRequest struct {
	RequestID string `json:"requestId"`
	Kind      string `json:"kind"`
}

// PasteResponse answers exactly one PasteRequest.
type PasteResponse struct {
	RequestID string    `json:"requestId"`
	Kind      PasteKind `json:"kind"`
	Payload   string    `json:"payload"`
}

// HasData reports whether the response carries clipboard contents.
func (r PasteResponse) HasData() bool {
	return r.Kind != PasteKindNone && r.Payload != ""
}

// NoData builds the empty response used on timeout or when the clipboard is empty.
func NoData(requestID string) PasteResponse {
	return PasteResponse{RequestID: requestID, Kind: PasteKindNone}
}

// AnchorKind describes what was scrolled when a ScrollRecord was saved.
type AnchorKind string

const (
	AnchorViewport AnchorKind = "viewport" // AnchorViewport is the window scroll offset.
	AnchorElement  AnchorKind = "element"  // AnchorElement is a scrollable ancestor element.
)

// ScrollRecord is the saved scroll offset for one location key.
type ScrollRecord struct {
	LocationKey     string     `json:"locationKey"`
	Value           float64    `json:"value"`
	AnchorKind      AnchorKind `json:"anchorKind"`
	ElementSelector string     `json:"elementSelector,omitempty"`
}

// StringPtr returns a pointer to a trimmed copy of s, or nil when s is blank.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
