package publisher

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/registry"
)

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDead
)

type deadLetter struct {
	reason enums.OutboxDLQErrorReason
	err    error
}

// classify decides what happens to row after a publish attempt.
func classify(row models.OutboxEvent, err error, maxAttempts int) outcome {
	if err == nil {
		return outcomePublished
	}
	var nonRetryable registry.NonRetryableError
	if errors.As(err, &nonRetryable) || row.AttemptCount+1 >= maxAttempts {
		return outcomeDead
	}
	return outcomeRetry
}

func deadLetterFor(row models.OutboxEvent, err error, maxAttempts int, resolveFailed bool) deadLetter {
	var nonRetryable registry.NonRetryableError
	if resolveFailed || errors.As(err, &nonRetryable) {
		return deadLetter{reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}
	return deadLetter{
		reason: enums.OutboxDLQReasonMaxAttempts,
		err:    fmt.Errorf("gave up after %d of %d attempts: %w", row.AttemptCount+1, maxAttempts, err),
	}
}
