// Package stream turns periodic submissions snapshots into a bounded,
// ordered stream of new-filing events for one entity.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/filingwatch/internal/edgar"
	"github.com/seenimoa/filingwatch/internal/logging"
	"github.com/seenimoa/filingwatch/pkg/models"
)

const (
	DefaultMinInterval = 5 * time.Second
	DefaultMaxInterval = 300 * time.Second
)

// Source supplies snapshots and document URLs. *edgar.Client satisfies it.
type Source interface {
	GetSnapshot(ctx context.Context, cik string, ttl time.Duration) (*models.SubmissionsSnapshot, error)
	PrimaryDocURL(cik string, r models.FilingRecord) string
}

var _ Source = (*edgar.Client)(nil)

// Subscription describes what a stream watches.
type Subscription struct {
	CIK          string
	Forms        []string
	PollInterval time.Duration
	MaxEvents    int
}

// Poller runs change-detection streams against a shared Source.
type Poller struct {
	source      Source
	ttl         time.Duration
	minInterval time.Duration
	maxInterval time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Poller.
type Option func(*Poller)

// WithSnapshotTTL sets the freshness bound used for each poll.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(p *Poller) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithIntervalBounds sets the accepted poll interval range.
func WithIntervalBounds(min, max time.Duration) Option {
	return func(p *Poller) {
		if min > 0 && max >= min {
			p.minInterval = min
			p.maxInterval = max
		}
	}
}

// WithLogger sets the logger for stream lifecycle events. A nil logger
// discards them.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = logging.OrDiscard(l) }
}

// WithClock replaces the clock that stamps each event's ObservedAt.
// A nil clock is ignored.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPoller creates a poller reading from src.
func NewPoller(src Source, opts ...Option) *Poller {
	p := &Poller{
		source:      src,
		ttl:         edgar.StreamSnapshotTTL,
		minInterval: DefaultMinInterval,
		maxInterval: DefaultMaxInterval,
		logger:      logging.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IntervalBounds returns the accepted poll interval range.
func (p *Poller) IntervalBounds() (time.Duration, time.Duration) {
	return p.minInterval, p.maxInterval
}

// Validate checks a subscription against the poller's limits and returns
// it with a canonical CIK.
func (p *Poller) Validate(sub Subscription) (Subscription, error) {
	cik, err := edgar.CanonicalCIK(sub.CIK)
	if err != nil {
		return sub, err
	}
	sub.CIK = cik
	if sub.PollInterval < p.minInterval || sub.PollInterval > p.maxInterval {
		return sub, fmt.Errorf("poll interval %s outside [%s, %s]", sub.PollInterval, p.minInterval, p.maxInterval)
	}
	if sub.MaxEvents < 1 {
		return sub, fmt.Errorf("max events must be at least 1, got %d", sub.MaxEvents)
	}
	return sub, nil
}

// Stream is one running subscription. Consumers must drain Events until it
// is closed, or cancel the context passed to Subscribe.
type Stream struct {
	ID string

	events  chan models.StreamEvent
	done    chan struct{}
	summary models.StreamSummary
}

// Events returns the event channel. It is closed when the stream ends.
func (s *Stream) Events() <-chan models.StreamEvent { return s.events }

// Done is closed once the summary is available.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Wait blocks until the stream ends and returns its summary.
func (s *Stream) Wait() models.StreamSummary {
	<-s.done
	return s.summary
}

// Subscribe validates sub and starts its polling loop. Cancelling ctx ends
// the stream with status cancelled; it is never reported as an error.
func (p *Poller) Subscribe(ctx context.Context, sub Subscription) (*Stream, error) {
	sub, err := p.Validate(sub)
	if err != nil {
		return nil, err
	}
	s := &Stream{
		ID:     uuid.NewString(),
		events: make(chan models.StreamEvent),
		done:   make(chan struct{}),
	}
	go p.run(ctx, s, sub)
	return s, nil
}

func (p *Poller) run(ctx context.Context, s *Stream, sub Subscription) {
	log := p.logger.With("stream", s.ID, "cik", sub.CIK)
	log.Info("stream started", "forms", sub.Forms, "interval", sub.PollInterval, "max_events", sub.MaxEvents)

	var (
		cursor  string
		emitted int
		seq     int
		status  = models.StreamSucceeded
	)

loop:
	for emitted < sub.MaxEvents {
		if ctx.Err() != nil {
			status = models.StreamCancelled
			break
		}

		// The iteration itself is not aborted by cancellation.
		ev, ok := p.poll(context.WithoutCancel(ctx), sub, &cursor)
		if ok {
			seq++
			ev.Seq = seq
			select {
			case s.events <- ev:
			case <-ctx.Done():
				status = models.StreamCancelled
				break loop
			}
			if ev.Type == models.EventFiling {
				emitted++
				log.Info("filing emitted", "accession", ev.Filing.AccessionNumber, "form", ev.Filing.FormType(), "emitted", emitted)
			} else {
				log.Warn("poll failed", "error", ev.Message)
			}
		}
		if emitted >= sub.MaxEvents {
			break
		}

		if err := sleep(ctx, sub.PollInterval); err != nil {
			status = models.StreamCancelled
			break
		}
	}

	s.summary = models.StreamSummary{ID: s.ID, Status: status, Emitted: emitted}
	log.Info("stream stopped", "status", status, "emitted", emitted)
	close(s.events)
	close(s.done)
}

// poll runs one iteration. It reports an event to deliver, if any, and
// advances the cursor when a new latest filing is seen.
func (p *Poller) poll(ctx context.Context, sub Subscription, cursor *string) (models.StreamEvent, bool) {
	snap, err := p.source.GetSnapshot(ctx, sub.CIK, p.ttl)
	if err != nil {
		return p.errorEvent(sub.CIK, err), true
	}
	records := edgar.Normalize(snap.Filings.Recent)
	if err := edgar.CheckOrder(records); err != nil {
		return p.errorEvent(sub.CIK, err), true
	}
	records = edgar.FilterForms(records, sub.Forms)
	if len(records) == 0 {
		return models.StreamEvent{}, false
	}

	latest := records[0]
	if latest.AccessionNumber == *cursor {
		return models.StreamEvent{}, false
	}
	*cursor = latest.AccessionNumber

	return models.StreamEvent{
		Type:        models.EventFiling,
		CIK:         sub.CIK,
		Filing:      &latest,
		DocumentURL: p.source.PrimaryDocURL(sub.CIK, latest),
		ObservedAt:  p.now(),
	}, true
}

func (p *Poller) errorEvent(cik string, err error) models.StreamEvent {
	return models.StreamEvent{
		Type:       models.EventError,
		CIK:        cik,
		Message:    err.Error(),
		Retryable:  true,
		ObservedAt: p.now(),
	}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
