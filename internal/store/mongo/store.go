// Package mongo is the document-store backend selected with STORE_DRIVER=mongo.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/money"
	"github.com/evn/pos_backend/internal/store"
)

// Collection name constants.
const (
	colBranches = "branches"
	colSales    = "sales"
	colShifts   = "shifts"
)

const openShiftIndex = "shifts_one_open_per_branch"

var _ store.Store = (*Store)(nil)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("pos/mongo: connect: %w", err)
	}
	st := New(client, database)
	if err := st.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return st, nil
}

func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

func (s *Store) Migrate(ctx context.Context) error {
	for col, idx := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("pos/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("pos/mongo: ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==================== Branch Store ====================

func (s *Store) CreateBranch(ctx context.Context, b *models.Branch) error {
	if _, err := s.db.Collection(colBranches).InsertOne(ctx, b); err != nil {
		return fmt.Errorf("pos/mongo: create branch: %w", err)
	}
	return nil
}

func (s *Store) GetBranch(ctx context.Context, branchID string) (*models.Branch, error) {
	var b models.Branch
	err := s.db.Collection(colBranches).FindOne(ctx, bson.M{"_id": branchID}).Decode(&b)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("pos/mongo: get branch: %w", err)
	}
	return &b, nil
}

func (s *Store) ListBranches(ctx context.Context, ownerID string) ([]*models.Branch, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.db.Collection(colBranches).Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("pos/mongo: list branches: %w", err)
	}

	branches := make([]*models.Branch, 0)
	if err := cur.All(ctx, &branches); err != nil {
		return nil, fmt.Errorf("pos/mongo: decode branches: %w", err)
	}
	return branches, nil
}

// ==================== Sale Store ====================

func (s *Store) InsertSales(ctx context.Context, sales []*models.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	docs := make([]any, len(sales))
	for i, sale := range sales {
		docs[i] = sale
	}
	if _, err := s.db.Collection(colSales).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("pos/mongo: insert sales: %w", err)
	}
	return nil
}

func (s *Store) SumCashSales(ctx context.Context, branchID string, from, to time.Time) (money.Cents, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"branch_id":      branchID,
			"payment_method": string(models.PaymentCash),
			"status":         string(models.SaleClosed),
			"closed_at":      bson.M{"$gte": from, "$lte": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$total_cents"},
		}}},
	}

	cur, err := s.db.Collection(colSales).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("pos/mongo: sum cash sales: %w", err)
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("pos/mongo: decode cash sum: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return money.Cents(rows[0].Total), nil
}

// ==================== Shift Store ====================

func (s *Store) GetShift(ctx context.Context, shiftID string) (*models.Shift, error) {
	return s.findShift(ctx, bson.M{"_id": shiftID})
}

func (s *Store) FindOpenShift(ctx context.Context, branchID string) (*models.Shift, error) {
	return s.findShift(ctx, bson.M{"branch_id": branchID, "status": string(models.ShiftOpen)})
}

func (s *Store) findShift(ctx context.Context, filter bson.M) (*models.Shift, error) {
	var sh models.Shift
	err := s.db.Collection(colShifts).FindOne(ctx, filter).Decode(&sh)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("pos/mongo: find shift: %w", err)
	}
	return &sh, nil
}

func (s *Store) InsertShift(ctx context.Context, sh *models.Shift) error {
	if _, err := s.db.Collection(colShifts).InsertOne(ctx, sh); err != nil {
		if mongo.IsDuplicateKeyError(err) && sh.IsOpen() {
			return store.ErrDuplicateOpenShift
		}
		return fmt.Errorf("pos/mongo: insert shift: %w", err)
	}
	return nil
}

func (s *Store) CloseShift(ctx context.Context, shiftID string, c models.ShiftClosing) error {
	set := bson.M{
		"status":                 string(models.ShiftClosed),
		"closed_at":              c.ClosedAt,
		"closing_actual_cents":   int64(c.ActualCash),
		"closing_expected_cents": int64(c.ExpectedCash),
		"closing_diff_cents":     int64(c.Diff),
		"updated_at":             c.ClosedAt,
	}
	update := bson.M{"$set": set}
	if c.Notes != nil {
		set["notes"] = *c.Notes
	} else {
		update["$unset"] = bson.M{"notes": ""}
	}

	res, err := s.db.Collection(colShifts).UpdateOne(ctx,
		bson.M{"_id": shiftID, "status": string(models.ShiftOpen)},
		update,
	)
	if err != nil {
		return fmt.Errorf("pos/mongo: close shift: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.db.Collection(colShifts).CountDocuments(ctx, bson.M{"_id": shiftID})
	if err != nil {
		return fmt.Errorf("pos/mongo: check shift: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrShiftNotOpen
}

func (s *Store) ListShifts(ctx context.Context, branchID string, limit int) ([]*models.Shift, error) {
	opts := options.Find().SetSort(bson.D{{Key: "opened_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cur, err := s.db.Collection(colShifts).Find(ctx, bson.M{"branch_id": branchID}, opts)
	if err != nil {
		return nil, fmt.Errorf("pos/mongo: list shifts: %w", err)
	}
	shifts := make([]*models.Shift, 0)
	if err := cur.All(ctx, &shifts); err != nil {
		return nil, fmt.Errorf("pos/mongo: decode shifts: %w", err)
	}
	return shifts, nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colBranches: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colSales: {
			{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "payment_method", Value: 1}, {Key: "status", Value: 1}, {Key: "closed_at", Value: 1}}},
		},
		colShifts: {
			{
				Keys: bson.D{{Key: "branch_id", Value: 1}},
				Options: options.Index().
					SetName(openShiftIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": string(models.ShiftOpen)}),
			},
			{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "opened_at", Value: -1}}},
		},
	}
}
