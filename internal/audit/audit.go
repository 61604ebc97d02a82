// Package audit keeps a queryable log of CRM sync outcomes in MongoDB.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const SyncEventsCollection = "sync_events"

// Recorder stores sync outcomes and reads them back per entity
type Recorder interface {
	Record(ctx context.Context, outcome models.SyncOutcome)
	History(ctx context.Context, entity, entityID string, limit int64) ([]models.SyncOutcome, error)
}

// Mongo writes outcomes into the sync_events collection
type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
	log      *logrus.Logger
}

// Connect opens the audit database and verifies it with a ping
func Connect(ctx context.Context, uri, db string, log *logrus.Logger) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Mongo{client: client, database: client.Database(db), log: log}, nil
}

// Close disconnects the client
func (m *Mongo) Close(ctx context.Context) error {
	if m.client != nil {
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Record inserts one outcome. Failures are logged and never reach the caller.
func (m *Mongo) Record(ctx context.Context, outcome models.SyncOutcome) {
	if m == nil || m.database == nil {
		return
	}
	if outcome.At.IsZero() {
		outcome.At = time.Now().UTC()
	}

	if _, err := m.database.Collection(SyncEventsCollection).InsertOne(ctx, outcome); err != nil {
		m.log.WithFields(logrus.Fields{
			"entity":    outcome.Entity,
			"entity_id": outcome.EntityID,
			"action":    outcome.Action,
		}).WithError(err).Error("Failed to write sync event")
	}
}

// History returns the latest outcomes for one entity, newest first
func (m *Mongo) History(ctx context.Context, entity, entityID string, limit int64) ([]models.SyncOutcome, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit)
	cur, err := m.database.Collection(SyncEventsCollection).Find(ctx, bson.M{"entity": entity, "entity_id": entityID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync events: %w", err)
	}
	defer cur.Close(ctx)

	events := []models.SyncOutcome{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode sync events: %w", err)
	}
	return events, nil
}

// Discard drops every outcome
type Discard struct{}

func (Discard) Record(context.Context, models.SyncOutcome) {}

func (Discard) History(context.Context, string, string, int64) ([]models.SyncOutcome, error) {
	return []models.SyncOutcome{}, nil
}
