package mongo

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const assignmentCollectionName = "assignments"

// mongoAssignmentRepository implements repository.AssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new Assignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// Create inserts a new assignment. The partial unique index on
// (planId, clientId, active=true) rejects a second active assignment.
func (r *mongoAssignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	if assignment.ID == "" || assignment.PlanID == "" || assignment.ClientID == "" {
		return errors.New("assignment requires id, planId and clientId")
	}
	assignment.Active = assignment.IsActive()

	if _, err := r.collection.InsertOne(ctx, assignment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrActiveAssignmentExists
		}
		return err
	}
	return nil
}

// GetByID retrieves an assignment by its ID.
func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	var assignment domain.Assignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// FindActive returns the active assignment for a (plan, client) pair.
func (r *mongoAssignmentRepository) FindActive(ctx context.Context, planID, clientID string) (*domain.Assignment, error) {
	var assignment domain.Assignment
	filter := bson.M{"planId": planID, "clientId": clientID, "active": true}
	err := r.collection.FindOne(ctx, filter).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// List retrieves assignments matching the filter, oldest first.
func (r *mongoAssignmentRepository) List(ctx context.Context, f repository.AssignmentFilter) ([]domain.Assignment, error) {
	filter := bson.M{}
	if f.PlanID != "" {
		filter["planId"] = f.PlanID
	}
	if f.CoachID != "" {
		filter["coachId"] = f.CoachID
	}
	if f.ClientID != "" {
		filter["clientId"] = f.ClientID
	}
	if f.ActiveOnly {
		filter["active"] = true
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	assignments := []domain.Assignment{}
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpdateStatus is a compare-and-set on status: the write only lands if the
// document still holds from.
func (r *mongoAssignmentRepository) UpdateStatus(ctx context.Context, id string, from, to domain.AssignmentStatus) (*domain.Assignment, error) {
	set := bson.M{
		"status":    to,
		"updatedAt": time.Now().UTC(),
	}
	if to == domain.StatusCompleted {
		set["active"] = false
	}
	filter := bson.M{"_id": id, "status": from}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Assignment
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missOrConflict(ctx, id)
		}
		return nil, err
	}
	return &updated, nil
}

// Withdraw deactivates an assignment that is still active.
func (r *mongoAssignmentRepository) Withdraw(ctx context.Context, id string) (*domain.Assignment, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "active": true}
	update := bson.M{"$set": bson.M{
		"active":      false,
		"withdrawnAt": now,
		"updatedAt":   now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Assignment
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missOrConflict(ctx, id)
		}
		return nil, err
	}
	return &updated, nil
}

// missOrConflict tells a missing document apart from a failed guard.
func (r *mongoAssignmentRepository) missOrConflict(ctx context.Context, id string) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrStatusConflict
}

// EnsureAssignmentIndexes creates necessary indexes for the assignments collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// At most one active assignment per (plan, client)
			Keys: bson.D{{Key: "planId", Value: 1}, {Key: "clientId", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_plan_client").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			// Coach listings, optionally by plan
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "planId", Value: 1}},
			Options: options.Index(),
		},
		{
			// A client's assignments
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
