package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_LeftVariantOnly(t *testing.T) {
	tracker := NewTracker("Control", LocationLeft)

	assert.False(t, tracker.Handle(Event{Key: "Control", Location: LocationRight, Down: true}))
	assert.False(t, tracker.Held())

	assert.True(t, tracker.Handle(Event{Key: "Control", Location: LocationLeft, Down: true}))
	assert.True(t, tracker.Held())

	// Releasing the other variant must not clear the tracked one.
	assert.False(t, tracker.Handle(Event{Key: "Control", Location: LocationRight, Down: false}))
	assert.True(t, tracker.Held())

	assert.True(t, tracker.Handle(Event{Key: "Control", Location: LocationLeft, Down: false}))
	assert.False(t, tracker.Held())
}

func TestTracker_AutoRepeatFiresOnce(t *testing.T) {
	tracker := NewTracker("Control", LocationAny)

	var transitions []bool
	tracker.OnChange(func(held bool) { transitions = append(transitions, held) })

	tracker.Handle(Event{Key: "Control", Location: LocationLeft, Down: true})
	for i := 0; i < 10; i++ {
		tracker.Handle(Event{Key: "Control", Location: LocationLeft, Down: true, Repeat: true})
	}
	tracker.Handle(Event{Key: "Control", Location: LocationLeft, Down: false})

	assert.Equal(t, []bool{true, false}, transitions)
}

func TestTracker_BlurClears(t *testing.T) {
	tracker := NewTracker("Control", LocationAny)
	tracker.Handle(Event{Key: "Control", Down: true})

	assert.True(t, tracker.Blur())
	assert.False(t, tracker.Held())
	assert.False(t, tracker.Blur(), "blur while released is not a transition")
}

func TestTracker_IgnoresOtherKeys(t *testing.T) {
	tracker := NewTracker("Control", LocationAny)
	assert.False(t, tracker.Handle(Event{Key: "Shift", Down: true}))
	assert.False(t, tracker.Held())
}

func TestTracker_Toggle(t *testing.T) {
	tracker := NewTracker("Control", LocationLeft)
	assert.True(t, tracker.Toggle())
	assert.True(t, tracker.Held())
	assert.False(t, tracker.Toggle())
	assert.False(t, tracker.Held())
}
