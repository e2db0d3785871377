package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/finguard/finguard/internal/messaging"
	"github.com/finguard/finguard/pkg/metrics"
)

// featureVectorLength is the expected size of incoming feature vectors.
const featureVectorLength = 5

// TokenSource resolves the push tokens registered for a user. Satisfied by
// the notifications service.
type TokenSource interface {
	Tokens(ctx context.Context, userSub string) ([]string, error)
}

// Worker scores consumed feature messages and publishes an alert for every
// transfer the classifier flags above the threshold.
type Worker struct {
	logger     *zap.Logger
	classifier Classifier
	tokens     TokenSource
	alerts     messaging.Producer
	threshold  float64
}

// NewWorker creates the scoring worker. tokens may be nil when push fan-out
// is disabled; alerts are still published without tokens.
func NewWorker(logger *zap.Logger, classifier Classifier, tokens TokenSource, alerts messaging.Producer, threshold float64) *Worker {
	return &Worker{
		logger:     logger,
		classifier: classifier,
		tokens:     tokens,
		alerts:     alerts,
		threshold:  threshold,
	}
}

// Handle processes one consumed feature message. It satisfies
// messaging.MessageHandler.
func (w *Worker) Handle(ctx context.Context, _ string, value []byte) error {
	var msg messaging.FeatureMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return fmt.Errorf("failed to decode feature message: %w", err)
	}
	if len(msg.Features) != featureVectorLength {
		return fmt.Errorf("feature vector has %d values, want %d", len(msg.Features), featureVectorLength)
	}

	probability, err := w.classifier.Score(ctx, msg.Features)
	if err != nil {
		return fmt.Errorf("failed to score transfer %s: %w", msg.TraceID, err)
	}

	logger := w.logger.With(
		zap.String("trace_id", msg.TraceID),
		zap.String("user_sub", msg.UserSub),
		zap.Float64("probability", probability))

	if probability < w.threshold {
		metrics.ScoringPredictions.WithLabelValues("clean").Inc()
		logger.Debug("Transfer scored clean")
		return nil
	}
	metrics.ScoringPredictions.WithLabelValues("flagged").Inc()

	var tokens []string
	if w.tokens != nil {
		tokens, err = w.tokens.Tokens(ctx, msg.UserSub)
		if err != nil {
			// Alert anyway; the push fan-out downstream can retry token lookup.
			logger.Warn("Failed to load push tokens for alert", zap.Error(err))
			tokens = nil
		}
	}

	alert := &messaging.AlertMessage{
		TraceID:     msg.TraceID,
		UserSub:     msg.UserSub,
		Probability: probability,
		PushTokens:  tokens,
	}
	if err := w.alerts.Publish(ctx, msg.UserSub, nil, alert); err != nil {
		return fmt.Errorf("failed to publish alert for %s: %w", msg.TraceID, err)
	}

	logger.Info("Fraud alert published")
	return nil
}
