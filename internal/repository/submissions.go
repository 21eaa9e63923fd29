package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const submissionsCollection = "submissions"

type SubmissionsRepository struct {
	mongoRepo *MongoRepository
}

func NewSubmissionsRepository(mongoRepo *MongoRepository) *SubmissionsRepository {
	return &SubmissionsRepository{
		mongoRepo: mongoRepo,
	}
}

// EnsureIndexes makes attemptID unique per drive and speeds up drive lookups
func (r *SubmissionsRepository) EnsureIndexes(ctx context.Context) error {
	err := r.mongoRepo.EnsureIndexes(ctx, submissionsCollection,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "driveId", Value: 1}, {Key: "attemptID", Value: 1}, {Key: "filename", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create submission indexes: %w", err)
	}
	return nil
}

// UpsertSubmission stores a submission, replacing an earlier delivery of the same file
func (r *SubmissionsRepository) UpsertSubmission(ctx context.Context, submission *models.Submission) error {
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}

	filter := bson.M{
		"driveId":   submission.DriveID,
		"attemptID": submission.AttemptID,
		"filename":  submission.Filename,
	}
	update := bson.M{"$set": submission}

	if err := r.mongoRepo.UpsertOne(ctx, submissionsCollection, filter, update); err != nil {
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	return nil
}

// GetSubmissionsByDriveID returns a drive's submissions in a stable order
func (r *SubmissionsRepository) GetSubmissionsByDriveID(ctx context.Context, driveID string) ([]*models.Submission, error) {
	filter := bson.M{"driveId": driveID}
	opts := options.Find().SetSort(bson.D{{Key: "attemptID", Value: 1}, {Key: "filename", Value: 1}})

	cursor, err := r.mongoRepo.FindMany(ctx, submissionsCollection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var submissions []*models.Submission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}

	return submissions, nil
}

func (r *SubmissionsRepository) CountSubmissionsByDriveID(ctx context.Context, driveID string) (int64, error) {
	filter := bson.M{"driveId": driveID}

	count, err := r.mongoRepo.CountDocuments(ctx, submissionsCollection, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	return count, nil
}
