package mongo

import (
	"alcyxob/plan-tracker/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI and
// pings the primary before handing the client out.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// The initial connect can succeed against an unresponsive server.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on. The unique
// ones carry the idempotence invariants, so failures are returned.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	steps := []struct {
		collection string
		ensure     func(context.Context, *mongo.Collection) error
	}{
		{userCollectionName, EnsureUserIndexes},
		{planCollectionName, EnsurePlanIndexes},
		{assignmentCollectionName, EnsureAssignmentIndexes},
		{progressCollectionName, EnsureProgressIndexes},
	}
	for _, s := range steps {
		if err := s.ensure(ctx, db.Collection(s.collection)); err != nil {
			logger.Error("index creation failed", zap.String("collection", s.collection), zap.Error(err))
			return err
		}
		logger.Debug("indexes ensured", zap.String("collection", s.collection))
	}
	return nil
}

// NewRepositories wires every repository against db.
func NewRepositories(db *mongo.Database) *repository.Repositories {
	return &repository.Repositories{
		Users:       NewMongoUserRepository(db),
		Plans:       NewMongoPlanRepository(db),
		Assignments: NewMongoAssignmentRepository(db),
		Progress:    NewMongoProgressRepository(db),
	}
}
