// Package store persists prediction results. Firestore is the production
// backend; SQLite keeps a local history when no cloud project is configured.
package store

import (
	"context"

	"github.com/Brownie44l1/ecosnap-api/internal/model"
)

type PredictionStore interface {
	SavePrediction(ctx context.Context, result model.PredictionResult) error
	Close() error
}

// Nop discards every result.
type Nop struct{}

func (Nop) SavePrediction(context.Context, model.PredictionResult) error { return nil }

func (Nop) Close() error { return nil }
