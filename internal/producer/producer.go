package producer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"facewatch/internal/models"
)

// DefaultSampleInterval is how often the classification stream is sampled.
const DefaultSampleInterval = 300 * time.Millisecond

// Classifier is the external classification capability. Detect is the
// sampling call and may return several results per tick; DetectSingle is
// the higher-quality single-target call used by enrollment.
type Classifier interface {
	Detect(ctx context.Context) ([]Detection, error)
	DetectSingle(ctx context.Context) (*Detection, error)
}

// Config tunes a Producer.
type Config struct {
	// Interval between sampling ticks. Defaults to DefaultSampleInterval.
	Interval time.Duration
	// SessionID tags shipped events; nil ships untagged events.
	SessionID *int64
	// Logger defaults to a standard logrus logger.
	Logger *logrus.Logger
}

// Producer converts the continuous classification stream into discrete,
// throttled, scored events and ships them without blocking the sampling
// loop. The tick interval is a fixed timer, never back-pressured by prior
// ticks' network calls: ships are fire-and-forget and may overlap in
// flight, so events can reach the server out of chronological order.
type Producer struct {
	classifier Classifier
	shipper    *Shipper
	tracker    *Tracker
	interval   time.Duration
	sessionID  *int64
	log        *logrus.Logger

	stop chan struct{}
	done chan struct{}
}

// New creates a producer. The tracker holds this session's aggregates and
// stays readable after Stop.
func New(classifier Classifier, shipper *Shipper, tracker *Tracker, cfg Config) *Producer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Producer{
		classifier: classifier,
		shipper:    shipper,
		tracker:    tracker,
		interval:   interval,
		sessionID:  cfg.SessionID,
		log:        logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Tracker returns the session aggregate state. Local aggregates are
// authoritative for the current session even when server persistence is
// down.
func (p *Producer) Tracker() *Tracker {
	return p.tracker
}

// Start launches the sampling loop in its own goroutine.
func (p *Producer) Start() {
	go p.run()
}

// Stop halts the sampling loop and waits for the current tick to finish.
// Ships already dispatched are left to complete or fail on their own; no
// cancellation propagates to in-flight network calls.
func (p *Producer) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Producer) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.tick(context.Background())
		}
	}
}

// tick samples the classifier once. A classification failure logs and skips
// the tick; it never stops the loop.
func (p *Producer) tick(ctx context.Context) {
	detections, err := p.classifier.Detect(ctx)
	if err != nil {
		p.log.WithError(err).Warn("classification failed, skipping tick")
		return
	}

	for _, d := range detections {
		update := p.tracker.Observe(d)
		if !update.Counted {
			continue
		}
		go p.ship(d, update.Delta)
	}
}

// ship posts one accepted event. Failures are logged and swallowed: event
// delivery is best-effort and must never surface to the user or interrupt
// sampling. The local aggregate was already updated in Observe.
func (p *Producer) ship(d Detection, delta int) {
	label := d.Label
	if label == "" {
		label = "unknown"
	}
	emotion := d.Emotion
	confidence := d.Confidence
	timestamp := time.Now().UTC().Format(time.RFC3339)

	ev := models.PostEventRequest{
		FaceLabel:  &label,
		Confidence: &confidence,
		Delta:      &delta,
		SessionID:  p.sessionID,
		Timestamp:  &timestamp,
	}
	if emotion != "" {
		ev.Emotion = &emotion
	}

	if err := p.shipper.ShipEvent(context.Background(), ev); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"label":   label,
			"emotion": emotion,
		}).Debug("event ship failed")
	}
}
