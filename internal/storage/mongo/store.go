// Package mongo provides a MongoDB implementation of storage.Store that
// keeps each ledger, with its full history, in a single document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/storage"
)

const colLedgers = "ledgers"

// compile-time interface check
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection
	now    func() time.Time
}

// New connects to uri, selects database and ensures indexes exist.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("roommates/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("roommates/mongo: ping: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		db:     db,
		col:    db.Collection(colLedgers),
		now:    now,
	}
	if err := s.Migrate(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Migrate creates the ledger collection indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("roommates/mongo: migrate %s indexes: %w", colLedgers, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateLedger(ctx context.Context, ledger *models.Ledger) error {
	if ledger.ID == "" {
		ledger.ID = uuid.New().String()
	}
	t := s.now()

	m := toLedgerModel(ledger)
	m.Version = 1
	m.CreatedAt = t
	m.ModifiedAt = t

	if _, err := s.col.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", storage.ErrAlreadyExists, ledger.Name)
		}
		return fmt.Errorf("roommates/mongo: create ledger: %w", err)
	}

	ledger.Version = 1
	ledger.CreatedAt = t
	ledger.ModifiedAt = t
	return nil
}

func (s *Store) GetLedger(ctx context.Context, ledgerID string) (*models.Ledger, error) {
	var m ledgerModel
	err := s.col.FindOne(ctx, bson.M{"_id": ledgerID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, ledgerID)
		}
		return nil, fmt.Errorf("roommates/mongo: get ledger: %w", err)
	}
	return fromLedgerModel(&m), nil
}

func (s *Store) ListLedgersByGroup(ctx context.Context, groupID string) ([]*models.Ledger, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "name", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, fmt.Errorf("roommates/mongo: list ledgers: %w", err)
	}

	var docs []ledgerModel
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("roommates/mongo: decode ledgers: %w", err)
	}

	result := make([]*models.Ledger, len(docs))
	for i := range docs {
		result[i] = fromLedgerModel(&docs[i])
	}
	return result, nil
}

// SaveLedger replaces the document only if its stored version still equals
// ledger.Version.
func (s *Store) SaveLedger(ctx context.Context, ledger *models.Ledger) error {
	t := s.now()

	m := toLedgerModel(ledger)
	m.Version = ledger.Version + 1
	m.ModifiedAt = t

	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": ledger.ID, "version": ledger.Version}, m)
	if err != nil {
		return fmt.Errorf("roommates/mongo: save ledger: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.col.CountDocuments(ctx, bson.M{"_id": ledger.ID})
		if err != nil {
			return fmt.Errorf("roommates/mongo: check ledger: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, ledger.ID)
		}
		return fmt.Errorf("%w: ledger %s at version %d", storage.ErrVersionConflict, ledger.ID, ledger.Version)
	}

	ledger.Version = m.Version
	ledger.ModifiedAt = t
	return nil
}

// now truncates to milliseconds, the precision of BSON dates.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
