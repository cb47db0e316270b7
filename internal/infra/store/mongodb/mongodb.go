package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aegis-sign/solwallet/internal/infra/store"
)

const (
	accountsCollection = "users"
	recordsCollection  = "txns"

	defaultDialTimeout = 5 * time.Second
)

// Store 基于 MongoDB 实现 store.AccountStore 与 store.RecordStore。
type Store struct {
	client   *mongo.Client
	accounts *mongo.Collection
	records  *mongo.Collection
}

// accountDoc 与历史部署的字段名保持兼容。
type accountDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	Email      string             `bson:"email"`
	Password   string             `bson:"password"`
	PublicKey  string             `bson:"publickey"`
	PrivateKey string             `bson:"privatekey"`
}

type recordDoc struct {
	Signature string             `bson:"signature"`
	Result    string             `bson:"result"`
	Timestamp string             `bson:"timestamp"`
	Category  string             `bson:"category"`
	Owner     primitive.ObjectID `bson:"user"`
}

// Dial 建立连接、探活并确保唯一索引。
func Dial(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database is required")
	}
	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(database)
	s := &Store{
		client:   client,
		accounts: db.Collection(accountsCollection),
		records:  db.Collection(recordsCollection),
	}
	if err := s.ensureIndexes(dialCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("mongo create email index: %w", err)
	}
	if _, err := s.records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "signature", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("mongo create signature index: %w", err)
	}
	return nil
}

// Close 断开底层连接。
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// CreateAccount 实现 store.AccountStore。
func (s *Store) CreateAccount(ctx context.Context, account store.Account) (string, error) {
	doc := accountDoc{
		Name:     account.Name,
		Email:    account.Email,
		Password: account.PasswordHash,
	}
	res, err := s.accounts.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", store.ErrDuplicateEmail
		}
		return "", fmt.Errorf("mongo insert account: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("mongo insert account: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// AccountByEmail 实现 store.AccountStore。
func (s *Store) AccountByEmail(ctx context.Context, email string) (store.Account, error) {
	var doc accountDoc
	err := s.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Account{}, store.ErrNotFound
	}
	if err != nil {
		return store.Account{}, fmt.Errorf("mongo find account: %w", err)
	}
	return toAccount(doc), nil
}

// AccountByID 实现 store.AccountStore。
func (s *Store) AccountByID(ctx context.Context, id string) (store.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.Account{}, store.ErrNotFound
	}
	var doc accountDoc
	err = s.accounts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Account{}, store.ErrNotFound
	}
	if err != nil {
		return store.Account{}, fmt.Errorf("mongo find account: %w", err)
	}
	return toAccount(doc), nil
}

// SetKeypair 实现 store.AccountStore。
func (s *Store) SetKeypair(ctx context.Context, id, publicKey, privateKey string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.accounts.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"publickey": publicKey, "privatekey": privateKey},
	})
	if err != nil {
		return fmt.Errorf("mongo set keypair: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AppendRecord 实现 store.RecordStore。
func (s *Store) AppendRecord(ctx context.Context, record store.Record) error {
	owner, err := primitive.ObjectIDFromHex(record.Owner)
	if err != nil {
		return fmt.Errorf("mongo append record: invalid owner id %q", record.Owner)
	}
	doc := recordDoc{
		Signature: record.Signature,
		Result:    string(record.Result),
		Timestamp: record.Timestamp,
		Category:  string(record.Category),
		Owner:     owner,
	}
	if _, err := s.records.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateSignature
		}
		return fmt.Errorf("mongo insert record: %w", err)
	}
	return nil
}

// RecordsByOwner 实现 store.RecordStore，按插入顺序返回。
func (s *Store) RecordsByOwner(ctx context.Context, owner string) ([]store.Record, error) {
	oid, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return nil, store.ErrNotFound
	}
	cursor, err := s.records.Find(ctx, bson.M{"user": oid}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo find records: %w", err)
	}
	defer cursor.Close(ctx)
	out := make([]store.Record, 0)
	for cursor.Next(ctx) {
		var doc recordDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo decode record: %w", err)
		}
		out = append(out, store.Record{
			Signature: doc.Signature,
			Result:    store.Result(doc.Result),
			Timestamp: doc.Timestamp,
			Category:  store.Category(doc.Category),
			Owner:     doc.Owner.Hex(),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo iterate records: %w", err)
	}
	return out, nil
}

// MarkResult 实现 store.RecordStore，条件过滤保证 PENDING→终态只发生一次。
func (s *Store) MarkResult(ctx context.Context, signature string, result store.Result) (bool, error) {
	if !result.Terminal() {
		return false, fmt.Errorf("result %q is not terminal", result)
	}
	res, err := s.records.UpdateOne(ctx,
		bson.M{"signature": signature, "result": string(store.ResultPending)},
		bson.M{"$set": bson.M{"result": string(result)}},
	)
	if err != nil {
		return false, fmt.Errorf("mongo mark result: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func toAccount(doc accountDoc) store.Account {
	return store.Account{
		ID:           doc.ID.Hex(),
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.Password,
		PublicKey:    doc.PublicKey,
		PrivateKey:   doc.PrivateKey,
	}
}
