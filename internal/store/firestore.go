package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/Brownie44l1/ecosnap-api/internal/model"
)

type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore connects to Firestore. An empty projectID lets the client
// detect the project from credentials or the metadata server.
func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

// SavePrediction adds one document with a server-assigned timestamp.
func (s *FirestoreStore) SavePrediction(ctx context.Context, result model.PredictionResult) error {
	_, _, err := s.client.Collection(s.collection).Add(ctx, document(result))
	if err != nil {
		return fmt.Errorf("add to %s: %w", s.collection, err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func document(result model.PredictionResult) map[string]interface{} {
	return map[string]interface{}{
		"label":      result.Label,
		"confidence": result.Confidence,
		"suggestion": result.Suggestion,
		"image_url":  result.ImageURL,
		"timestamp":  firestore.ServerTimestamp,
	}
}
