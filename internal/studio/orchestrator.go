package studio

import (
	"context"
	"errors"
	"strings"
	"time"

	"studio/internal/domain"
)

// Generate runs one generation attempt with the images currently in the
// slots and waits for it. The returned error is informational: every failure
// is also recorded as the Failed status with a user-facing message.
func (s *Session) Generate(ctx context.Context) error {
	done, err := s.Start(ctx)
	if err != nil {
		return err
	}
	return <-done
}

// Start validates the inputs and enters InFlight before returning; the
// provider call then runs in the background. done receives the outcome once
// it has been recorded. Validation and in-flight errors are returned
// directly and nothing is started.
func (s *Session) Start(ctx context.Context) (<-chan error, error) {
	s.mu.Lock()
	if s.status.IsInFlight() {
		s.mu.Unlock()
		return nil, domain.ErrGenerationInFlight
	}
	childhood := s.slots[domain.SlotChildhood]
	present := s.slots[domain.SlotPresentDay]
	if childhood.IsZero() || present.IsZero() {
		s.result = domain.EncodedImage{}
		s.status = domain.Failed(MissingInputMessage)
		s.mu.Unlock()
		return nil, &domain.ValidationError{Message: MissingInputMessage}
	}
	s.token++
	token := s.token
	s.result = domain.EncodedImage{}
	s.status = domain.InFlight()
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.run(ctx, token, childhood, present)
	}()
	return done, nil
}

// run makes the single provider call for the attempt identified by token.
func (s *Session) run(ctx context.Context, token uint64, childhood, present domain.EncodedImage) error {
	start := time.Now()
	var (
		result domain.EncodedImage
		err    error
	)
	defer func() {
		s.finish(token, result, err, time.Since(start))
	}()

	if s.generator == nil {
		err = &domain.ServiceError{Err: errors.New("studio: no generator configured")}
		return err
	}

	s.logger.Info().
		Int("childhood_bytes", len(childhood.Data)).
		Int("present_bytes", len(present.Data)).
		Dur("timeout", s.timeout).
		Msg("studio: generation started")

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err = s.generator.Generate(callCtx, childhood, present)
	if err == nil && result.IsZero() {
		err = &domain.ServiceError{Err: domain.ErrEmptyImage}
	}
	return err
}

// finish records the outcome of the attempt identified by token and always
// leaves the InFlight state, unless the attempt was superseded by Reset.
func (s *Session) finish(token uint64, result domain.EncodedImage, err error, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.logger.Debug().Dur("elapsed", elapsed).Msg("studio: discarding superseded generation")
		return
	}
	if err != nil {
		message := FailureMessage(err)
		s.result = domain.EncodedImage{}
		s.status = domain.Failed(message)
		s.logger.Warn().Err(err).Dur("elapsed", elapsed).Str("message", message).Msg("studio: generation failed")
		return
	}
	s.result = result
	s.status = domain.Succeeded()
	s.logger.Info().
		Dur("elapsed", elapsed).
		Str("media_type", result.MediaType).
		Int("bytes", len(result.Data)).
		Msg("studio: generation succeeded")
}

// FailureMessage converts a generation error into the text shown to the user.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	var validation *domain.ValidationError
	if errors.As(err, &validation) && validation.Message != "" {
		return validation.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutFailure
	}
	if errors.Is(err, context.Canceled) {
		return CanceledFailure
	}
	var svc *domain.ServiceError
	if errors.As(err, &svc) {
		if msg := strings.TrimSpace(svc.Message); msg != "" {
			return msg
		}
		return GenericFailure
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return GenericFailure
}
