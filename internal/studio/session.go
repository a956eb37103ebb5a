// Package studio holds the single UI session: the two photo slots, the
// generation orchestrator and the result presenter.
package studio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

const (
	// DefaultGenerationTimeout bounds a single call to the generator.
	DefaultGenerationTimeout = 2 * time.Minute

	MissingInputMessage = "Please upload both a childhood and a present-day photo."
	GenericFailure      = "An unexpected error occurred. Please try again."
	TimeoutFailure      = "The generation service did not respond in time. Please try again."
	CanceledFailure     = "The generation was cancelled. Please try again."
)

// Generator is the external image generation service. Implementations make
// exactly one attempt per call.
type Generator interface {
	Generate(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error)

func (f GeneratorFunc) Generate(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
	return f(ctx, childhood, present)
}

// Options configures a Session.
type Options struct {
	Generator         Generator
	GenerationTimeout time.Duration
	Logger            *zerolog.Logger
}

// Session owns all UI state. Session methods are the only writers; observers
// read copies through Snapshot.
type Session struct {
	generator Generator
	timeout   time.Duration
	logger    zerolog.Logger

	mu     sync.Mutex
	slots  map[domain.Slot]domain.EncodedImage
	result domain.EncodedImage
	status domain.RequestStatus
	notice string
	// token identifies the current generation; Reset bumps it so a
	// superseded completion is dropped.
	token uint64
}

// NewSession constructs an idle session with both slots empty.
func NewSession(opts Options) *Session {
	timeout := opts.GenerationTimeout
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Session{
		generator: opts.Generator,
		timeout:   timeout,
		logger:    logger,
		slots:     make(map[domain.Slot]domain.EncodedImage, len(domain.Slots)),
		status:    domain.Idle(),
	}
}

// Set stores img in slot. An empty image clears the slot.
func (s *Session) Set(slot domain.Slot, img domain.EncodedImage) error {
	if !validSlot(slot) {
		return domain.ErrUnknownSlot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if img.IsZero() {
		delete(s.slots, slot)
	} else {
		s.slots[slot] = img
	}
	s.notice = ""
	return nil
}

// Remove clears slot. The other slot, the result and the status are kept.
func (s *Session) Remove(slot domain.Slot) error {
	return s.Set(slot, domain.EncodedImage{})
}

// SetNotice records a user-visible message about the last input change.
func (s *Session) SetNotice(message string) {
	s.mu.Lock()
	s.notice = message
	s.mu.Unlock()
}

// Reset clears both slots, the result and any message, and returns to Idle.
// A generation still running keeps going but its outcome is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[domain.Slot]domain.EncodedImage, len(domain.Slots))
	s.result = domain.EncodedImage{}
	s.status = domain.Idle()
	s.notice = ""
	s.token++
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Childhood: s.slots[domain.SlotChildhood],
		Present:   s.slots[domain.SlotPresentDay],
		Result:    s.result,
		Status:    s.status,
		Notice:    s.notice,
	}
}

func validSlot(slot domain.Slot) bool {
	for _, known := range domain.Slots {
		if slot == known {
			return true
		}
	}
	return false
}

// Snapshot is an immutable view of a Session.
type Snapshot struct {
	Childhood domain.EncodedImage
	Present   domain.EncodedImage
	Result    domain.EncodedImage
	Status    domain.RequestStatus
	Notice    string
}

// Slot returns the image held by slot.
func (s Snapshot) Slot(slot domain.Slot) domain.EncodedImage {
	switch slot {
	case domain.SlotChildhood:
		return s.Childhood
	case domain.SlotPresentDay:
		return s.Present
	default:
		return domain.EncodedImage{}
	}
}

// CanGenerate reports whether the generate trigger should be enabled.
func (s Snapshot) CanGenerate() bool {
	return !s.Childhood.IsZero() && !s.Present.IsZero() && !s.Status.IsInFlight()
}

// HasResult reports whether a generated image is available.
func (s Snapshot) HasResult() bool {
	return !s.Result.IsZero()
}
