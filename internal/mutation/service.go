// Package mutation turns a (prompt, state, schema) triple into one completion
// request and interprets the backend's raw text as the replacement state.
package mutation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"gptodo/internal/completion"
	"gptodo/internal/models"
)

// Recorder persists an operator-facing record of each handled mutation.
type Recorder interface {
	RecordMutation(ctx context.Context, record *models.MutationRecord) error
}

// Service is stateless per request and safe for concurrent use.
type Service struct {
	completer completion.Completer
	params    completion.Params
	recorder  Recorder
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder stores a MutationRecord for every request that reaches the backend.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the wall clock used for prompt metadata.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithParams overrides completion.DefaultParams.
func WithParams(p completion.Params) Option {
	return func(s *Service) { s.params = p }
}

// NewService creates a Service backed by c.
func NewService(c completion.Completer, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		completer: c,
		params:    completion.DefaultParams,
		now:       time.Now,
		log:       logger.With().Str("component", "mutation").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mutate validates req, makes exactly one backend call and returns the parsed
// state. Failures are *Error values.
func (s *Service) Mutate(ctx context.Context, req models.MutationRequest) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, NewError(InvalidArgument, err.Error(), nil)
	}

	prompt, err := BuildPrompt(req, s.now())
	if err != nil {
		return nil, NewError(InvalidArgument, "invalid json", err)
	}

	record := &models.MutationRecord{
		ID:        ulid.Make().String(),
		Prompt:    req.Prompt,
		CreatedAt: s.now(),
	}
	log := s.logger(ctx).With().Str("mutation_id", record.ID).Logger()

	start := time.Now()
	text, err := s.completer.Complete(ctx, prompt, s.params)
	record.Duration = time.Since(start)
	if err != nil {
		record.Status = models.MutationTransportFailed
		s.record(ctx, log, record)
		log.Error().Err(err).Msg("completion backend call failed")
		return nil, NewError(Unavailable, "completion backend unavailable", err)
	}

	state, err := parseState(text)
	if err != nil {
		record.Status = models.MutationParseFailed
		record.RawOutput = text
		s.record(ctx, log, record)
		log.Error().Err(err).Str("raw_output", text).Msg("error parsing JSON")
		return nil, NewError(ParseFailed, "error parsing JSON", err)
	}

	record.Status = models.MutationApplied
	s.record(ctx, log, record)
	log.Info().Dur("duration", record.Duration).Msg("mutation applied")

	return state, nil
}

func (s *Service) record(ctx context.Context, log zerolog.Logger, record *models.MutationRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordMutation(ctx, record); err != nil {
		log.Warn().Err(err).Msg("failed to record mutation")
	}
}

// logger prefers the request-scoped logger installed by logging.Middleware.
func (s *Service) logger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l.With().Str("component", "mutation").Logger()
	}
	return s.log
}
