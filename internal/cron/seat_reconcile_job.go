package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

type seatReconciler interface {
	ReconcileSeatCounts(ctx context.Context) (int64, error)
}

type SeatReconcileJobParams struct {
	Logger *logger.Logger
	Users  seatReconciler
}

// NewSeatReconcileJob repairs current_employees drift on hr accounts.
func NewSeatReconcileJob(params SeatReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &seatReconcileJob{logg: params.Logger, users: params.Users}, nil
}

type seatReconcileJob struct {
	logg  *logger.Logger
	users seatReconciler
}

func (j *seatReconcileJob) Name() string { return "seat-reconcile" }

func (j *seatReconcileJob) Run(ctx context.Context) error {
	corrected, err := j.users.ReconcileSeatCounts(ctx)
	if err != nil {
		return fmt.Errorf("seat reconcile: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "accounts_corrected", corrected)
	if corrected > 0 {
		j.logg.Warn(logCtx, "seat counts drifted from active affiliations")
		return nil
	}
	j.logg.Info(logCtx, "seat counts consistent")
	return nil
}
