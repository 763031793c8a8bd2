package mongo

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const progressCollectionName = "progress"

// mongoProgressRepository implements repository.ProgressRepository
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new progress repository backed by MongoDB.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

// CreateIfAbsent upserts keyed on the deterministic record id. $setOnInsert
// means a repeat never touches the stored completion timestamp.
func (r *mongoProgressRepository) CreateIfAbsent(ctx context.Context, rec *domain.ProgressRecord) (*domain.ProgressRecord, bool, error) {
	if rec.AssignmentID == "" || rec.StepID == "" {
		return nil, false, errors.New("progress record requires assignmentId and stepId")
	}
	id := domain.ProgressRecordID(rec.AssignmentID, rec.StepID)
	update := bson.M{"$setOnInsert": bson.M{
		"assignmentId": rec.AssignmentID,
		"stepId":       rec.StepID,
		"clientId":     rec.ClientID,
		"completed":    true,
		"completedAt":  rec.CompletedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, false, err
	}
	// A duplicate key means a concurrent upsert won the insert.
	created := err == nil && result.UpsertedCount == 1

	var stored domain.ProgressRecord
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&stored); err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

// ListByAssignment retrieves the records of one assignment in completion order.
func (r *mongoProgressRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]domain.ProgressRecord, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "completedAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"assignmentId": assignmentID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []domain.ProgressRecord{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// EnsureProgressIndexes creates necessary indexes for the progress collection.
func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One record per (assignment, step); _id already encodes it, this
			// keeps the guarantee if ids are ever generated differently.
			Keys:    bson.D{{Key: "assignmentId", Value: 1}, {Key: "stepId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
