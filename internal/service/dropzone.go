package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ning0612/Dropzone/internal/core/classify"
	"github.com/Ning0612/Dropzone/internal/core/resolve"
	"github.com/Ning0612/Dropzone/internal/domain"
	"github.com/Ning0612/Dropzone/internal/logger"
	"github.com/Ning0612/Dropzone/internal/metrics"
)

// Emitter receives the single change event of an interaction.
// Calls are serialized.
type Emitter func(event domain.ChangeEvent)

// DropService turns drops and native selections into change events.
// Each interaction emits at most once. Starting a new interaction cancels the
// one in flight, and an interaction that finishes after being replaced
// returns domain.ErrSuperseded without emitting.
type DropService struct {
	policy     domain.Policy
	classifier classify.Classifier
	resolver   resolve.Resolver
	emit       Emitter
	logger     logger.Logger
	metrics    *metrics.Recorder
	now        func() time.Time

	mu         sync.Mutex // guards generation and cancel
	generation uint64
	cancel     context.CancelFunc

	emitMu sync.Mutex
}

// Option configures a DropService
type Option func(*DropService)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *DropService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *DropService) {
		s.metrics = m
	}
}

// WithClassifier replaces the policy-derived classifier
func WithClassifier(c classify.Classifier) Option {
	return func(s *DropService) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithClock sets the time source used for EmittedAt
func WithClock(now func() time.Time) Option {
	return func(s *DropService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDropService creates a drop service for policy
func NewDropService(policy domain.Policy, resolver resolve.Resolver, emit Emitter, opts ...Option) (*DropService, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if emit == nil {
		return nil, fmt.Errorf("emitter cannot be nil")
	}

	s := &DropService{
		policy:     policy,
		classifier: classify.NewDefaultClassifier(policy),
		resolver:   resolver,
		emit:       emit,
		logger:     &logger.NullLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("dropzone", policy.Name)

	return s, nil
}

// Policy returns the policy the service was built with
func (s *DropService) Policy() domain.Policy {
	return s.policy
}

// HandleDrop resolves and classifies a drop payload and emits the result.
// A nil payload is an error in development mode and ignored otherwise.
// A drop that resolves to no files still emits two empty lists.
func (s *DropService) HandleDrop(ctx context.Context, payload *resolve.Payload) error {
	if s.policy.Disabled {
		s.logger.Debug("drop ignored", "reason", domain.ErrDisabled)
		s.metrics.RecordInteraction(metrics.ResultNoop)
		return nil
	}
	if payload == nil {
		s.metrics.RecordInteraction(metrics.ResultNoop)
		if s.policy.Development {
			return domain.ErrNoPayload
		}
		return nil
	}

	ctx, gen, done := s.begin(ctx)
	defer done()

	id := uuid.NewString()
	log := s.logger.With("interaction", id)
	log.Debug("drop started", "items", len(payload.Items), "expand", s.policy.ExpandDirectories)

	files, err := s.resolver.Resolve(ctx, *payload, s.policy.ExpandDirectories)
	if err != nil {
		if !s.isCurrent(gen) {
			log.Debug("drop superseded during resolve")
			s.metrics.RecordInteraction(metrics.ResultSuperseded)
			return domain.ErrSuperseded
		}
		if errors.Is(err, context.Canceled) {
			log.Debug("drop cancelled")
		} else {
			log.Error("drop failed", "error", err)
		}
		s.metrics.RecordInteraction(metrics.ResultFailed)
		return fmt.Errorf("resolve drop: %w", err)
	}

	result := s.classifier.ClassifyAll(files)
	return s.deliver(gen, id, domain.InteractionDrop, result, log)
}

// HandleSelection classifies a flat native selection and emits the result.
// Directories are never expanded. An empty selection emits nothing.
func (s *DropService) HandleSelection(ctx context.Context, files []domain.FileCandidate) error {
	if s.policy.Disabled {
		s.logger.Debug("selection ignored", "reason", domain.ErrDisabled)
		s.metrics.RecordInteraction(metrics.ResultNoop)
		return nil
	}
	if len(files) == 0 {
		s.metrics.RecordInteraction(metrics.ResultNoop)
		return nil
	}

	_, gen, done := s.begin(ctx)
	defer done()

	id := uuid.NewString()
	log := s.logger.With("interaction", id)
	log.Debug("selection started", "files", len(files))

	result := s.classifier.ClassifyAll(files)
	return s.deliver(gen, id, domain.InteractionSelect, result, log)
}

// begin starts a new interaction generation and cancels the previous one
func (s *DropService) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.cancel = cancel
	s.mu.Unlock()

	done := func() {
		s.mu.Lock()
		if s.generation == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}
	return ctx, gen, done
}

func (s *DropService) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

// deliver emits result unless a newer interaction has started
func (s *DropService) deliver(gen uint64, id string, kind domain.InteractionKind, result domain.SelectResult, log logger.Logger) error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if !s.isCurrent(gen) {
		log.Debug("interaction superseded before emit")
		s.metrics.RecordInteraction(metrics.ResultSuperseded)
		return domain.ErrSuperseded
	}

	event := domain.ChangeEvent{
		Source:        s.policy.Name,
		InteractionID: id,
		Kind:          kind,
		EmittedAt:     s.now(),
		SelectResult:  result,
	}
	s.emit(event)

	s.metrics.RecordResult(result)
	s.metrics.RecordInteraction(metrics.ResultEmitted)
	log.Info("change emitted",
		"kind", kind,
		"added", len(result.AddedFiles),
		"rejected", len(result.RejectedFiles),
	)
	return nil
}
