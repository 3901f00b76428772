package db

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"go-vigia/spatial"
)

const (
	incidentsCollection = "incidents"
	analyticsCollection = "analytics_monthly"
	reportsCollection   = "monthly_reports"
)

// HashString hashes a given string using SHA-256 and returns its hex
// representation. Used for deterministic document ids.
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// InitFirestore builds a Firestore client from the base64-encoded service
// account JSON in FIREBASE_CREDENTIALS.
func InitFirestore(ctx context.Context) (*firestore.Client, error) {
	encodedCreds := os.Getenv("FIREBASE_CREDENTIALS")
	if encodedCreds == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS environment variable not set")
	}
	creds, err := base64.StdEncoding.DecodeString(encodedCreds)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Firestore credentials: %w", err)
	}

	opt := option.WithCredentialsJSON(creds)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	return client, nil
}

// Store is the Firestore-backed incident store. It maintains an in-process
// spatial index over incident locations because Firestore has no native
// radius query.
type Store struct {
	client *firestore.Client
	index  *spatial.Index
	log    zerolog.Logger
}

func NewStore(client *firestore.Client, logger zerolog.Logger) *Store {
	return &Store{
		client: client,
		index:  spatial.NewIndex(),
		log:    logger,
	}
}

// Close closes the underlying Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}
