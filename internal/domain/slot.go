package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slot names one of the two photo inputs.
type Slot string

const (
	SlotChildhood  Slot = "childhood"
	SlotPresentDay Slot = "present-day"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotChildhood, SlotPresentDay}

// ParseSlot resolves a slot name, ignoring case and surrounding whitespace.
func ParseSlot(name string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(name))) {
	case SlotChildhood:
		return SlotChildhood, nil
	case SlotPresentDay, "present":
		return SlotPresentDay, nil
	default:
		return "", ErrUnknownSlot
	}
}

// Label is the human-facing name, e.g. "Present-Day Photo".
func (s Slot) Label() string {
	return cases.Title(language.English).String(string(s)) + " Photo"
}
