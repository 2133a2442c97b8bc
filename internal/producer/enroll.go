package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	enrollAttempts = 4
	enrollBackoff  = 250 * time.Millisecond
)

// Enroller performs the explicit, user-triggered enrollment action:
// associate a classification descriptor with a human-chosen label. It is
// the only producer-side path allowed to surface a failure to the user.
type Enroller struct {
	classifier Classifier
	shipper    *Shipper
	log        *logrus.Logger
}

// NewEnroller creates an enroller sharing the producer's classifier and
// shipper.
func NewEnroller(classifier Classifier, shipper *Shipper, logger *logrus.Logger) *Enroller {
	if logger == nil {
		logger = logrus.New()
	}
	return &Enroller{classifier: classifier, shipper: shipper, log: logger}
}

// Enroll captures a descriptor for label and registers it with the server.
// It retries the single-target classification a bounded number of times
// with a short backoff, then falls back to one broad multi-result scan
// picking the largest-area detection. The bounded retries keep enrollment
// from permanently stalling the sampling loop it shares the classifier
// with. Only when both paths produce nothing does the failure surface.
func (e *Enroller) Enroll(ctx context.Context, label string) error {
	if label == "" {
		return fmt.Errorf("enrollment label is required")
	}

	for attempt := 1; attempt <= enrollAttempts; attempt++ {
		d, err := e.classifier.DetectSingle(ctx)
		if err == nil && d != nil && len(d.Descriptor) > 0 {
			return e.register(ctx, label, d.Descriptor)
		}
		if err != nil {
			e.log.WithError(err).WithField("attempt", attempt).Debug("single-face detection failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(enrollBackoff):
		}
	}

	// Fallback: broad scan, pick the largest detection carrying a descriptor.
	detections, err := e.classifier.Detect(ctx)
	if err != nil {
		return fmt.Errorf("no face detected for %q: %w", label, err)
	}
	var best *Detection
	for i := range detections {
		d := &detections[i]
		if len(d.Descriptor) == 0 {
			continue
		}
		if best == nil || d.Area > best.Area {
			best = d
		}
	}
	if best == nil {
		return fmt.Errorf("no usable face detected for %q after %d attempts", label, enrollAttempts)
	}

	e.log.WithField("label", label).Info("enrolling via broad-scan fallback")
	return e.register(ctx, label, best.Descriptor)
}

func (e *Enroller) register(ctx context.Context, label string, descriptor []float64) error {
	if err := e.shipper.EnrollFace(ctx, label, descriptor); err != nil {
		return fmt.Errorf("failed to register face %q: %w", label, err)
	}
	e.log.WithFields(logrus.Fields{
		"label":      label,
		"descriptor": len(descriptor),
	}).Info("face enrolled")
	return nil
}
