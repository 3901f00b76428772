package db

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go-vigia/types"
)

func bucketDocID(month, locality, categoryGroup string) string {
	return HashString(month + "|" + locality + "|" + categoryGroup)
}

// UpsertBucket overwrites the bucket for its (month, locality, categoryGroup)
// key. Full Set so reruns are idempotent.
func (s *Store) UpsertBucket(ctx context.Context, b types.AnalyticsBucket) error {
	id := bucketDocID(b.Month, b.Locality, b.CategoryGroup)
	_, err := s.client.Collection(analyticsCollection).Doc(id).Set(ctx, &b)
	if err != nil {
		return fmt.Errorf("upserting analytics bucket %s: %w", id, err)
	}
	return nil
}

// BucketsForMonth returns every bucket row written for the month.
func (s *Store) BucketsForMonth(ctx context.Context, month string) ([]types.AnalyticsBucket, error) {
	iter := s.client.Collection(analyticsCollection).
		Where("month", "==", month).
		Documents(ctx)
	defer iter.Stop()

	var rows []types.AnalyticsBucket
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating analytics collection: %w", err)
		}

		var b types.AnalyticsBucket
		if err := doc.DataTo(&b); err != nil {
			return nil, fmt.Errorf("decoding analytics bucket %s: %w", doc.Ref.ID, err)
		}
		rows = append(rows, b)
	}
	return rows, nil
}

// UpsertMonthlyReport overwrites the month's consolidated report.
func (s *Store) UpsertMonthlyReport(ctx context.Context, r types.MonthlyReport) error {
	_, err := s.client.Collection(reportsCollection).Doc(r.Month).Set(ctx, &r)
	if err != nil {
		return fmt.Errorf("upserting monthly report %s: %w", r.Month, err)
	}
	return nil
}

// GetMonthlyReport loads the report for "YYYY-MM".
func (s *Store) GetMonthlyReport(ctx context.Context, month string) (*types.MonthlyReport, error) {
	doc, err := s.client.Collection(reportsCollection).Doc(month).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting monthly report %s: %w", month, err)
	}

	var r types.MonthlyReport
	if err := doc.DataTo(&r); err != nil {
		return nil, fmt.Errorf("decoding monthly report %s: %w", month, err)
	}
	return &r, nil
}
