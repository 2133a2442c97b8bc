// Command simulator drives the event producer against a running ingestion
// server with a synthetic classifier, standing in for the browser webcam
// client during development.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"facewatch/internal/producer"
)

var emotions = []string{"happy", "neutral", "surprised", "sad", "angry", "fearful", "disgusted", "dull"}

// syntheticClassifier emits plausible detections for a fixed cast of
// identities. Each identity drifts between emotions slowly enough for the
// throttle rule to matter.
type syntheticClassifier struct {
	rng    *rand.Rand
	labels []string
	moods  map[string]string
}

func newSyntheticClassifier(faces int, seed int64) *syntheticClassifier {
	rng := rand.New(rand.NewSource(seed))
	labels := make([]string, faces)
	moods := make(map[string]string, faces)
	for i := range labels {
		labels[i] = fmt.Sprintf("student-%d", i+1)
		moods[labels[i]] = emotions[rng.Intn(len(emotions))]
	}
	return &syntheticClassifier{rng: rng, labels: labels, moods: moods}
}

func (s *syntheticClassifier) Detect(ctx context.Context) ([]producer.Detection, error) {
	detections := make([]producer.Detection, 0, len(s.labels))
	for _, label := range s.labels {
		// 10% chance of a mood change per tick
		if s.rng.Float64() < 0.10 {
			s.moods[label] = emotions[s.rng.Intn(len(emotions))]
		}
		detections = append(detections, producer.Detection{
			Label:      label,
			Emotion:    s.moods[label],
			Confidence: 55 + s.rng.Float64()*45,
			Area:       10000 + s.rng.Float64()*30000,
			Descriptor: s.descriptor(),
		})
	}
	return detections, nil
}

func (s *syntheticClassifier) DetectSingle(ctx context.Context) (*producer.Detection, error) {
	all, _ := s.Detect(ctx)
	if len(all) == 0 {
		return nil, fmt.Errorf("no face found")
	}
	return &all[0], nil
}

func (s *syntheticClassifier) descriptor() []float64 {
	d := make([]float64, 128)
	for i := range d {
		d[i] = s.rng.NormFloat64()
	}
	return d
}

func main() {
	server := flag.String("server", "http://localhost:4000", "ingestion server base URL")
	faces := flag.Int("faces", 3, "number of synthetic identities")
	interval := flag.Duration("interval", producer.DefaultSampleInterval, "sampling interval")
	duration := flag.Duration("duration", 30*time.Second, "how long to run")
	enroll := flag.Bool("enroll", false, "enroll the synthetic identities before sampling")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	scoring := flag.String("scoring", "", "YAML file overriding the emotion point table")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var table producer.ScoreTable
	if *scoring != "" {
		loaded, err := producer.LoadScoreTable(*scoring)
		if err != nil {
			logger.WithError(err).Fatal("could not load scoring file")
		}
		table = loaded
	}

	shipper := producer.NewShipper(*server)
	classifier := newSyntheticClassifier(*faces, *seed)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if !shipper.Healthy(ctx) {
		logger.Warnf("server %s not answering /health, events will be dropped", *server)
	}

	var sessionID *int64
	name := "sim-" + uuid.NewString()[:8]
	if id, err := shipper.CreateSession(ctx, name, map[string]any{"simulator": true, "faces": *faces}); err != nil {
		logger.WithError(err).Warn("could not create session, shipping untagged events")
	} else {
		sessionID = &id
		logger.WithFields(logrus.Fields{"session": name, "id": id}).Info("session created")
	}

	if *enroll {
		enroller := producer.NewEnroller(classifier, shipper, logger)
		for i := 0; i < *faces; i++ {
			label := fmt.Sprintf("student-%d", i+1)
			if err := enroller.Enroll(ctx, label); err != nil {
				logger.WithError(err).WithField("label", label).Error("enrollment failed")
			}
		}
	}

	tracker := producer.NewTracker(table)
	p := producer.New(classifier, shipper, tracker, producer.Config{
		Interval:  *interval,
		SessionID: sessionID,
		Logger:    logger,
	})

	logger.WithFields(logrus.Fields{
		"interval": *interval,
		"duration": *duration,
		"faces":    *faces,
	}).Info("sampling started")

	p.Start()
	time.Sleep(*duration)
	p.Stop()

	for _, stats := range tracker.Snapshot() {
		logger.WithFields(logrus.Fields{
			"label":      stats.Label,
			"score":      stats.Score,
			"detections": stats.Detections,
			"emotions":   stats.Emotions,
		}).Info("session aggregate")
	}
}
