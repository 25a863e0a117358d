package corpus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// DefaultCollection is the collection the seed command fills.
const DefaultCollection = "constitution_datas"

// MongoSource reads parts from a MongoDB collection. It owns the client and
// binds the collection once; every caller goes through that binding.
type MongoSource struct {
	client     *mongo.Client
	collection *mongo.Collection
	label      string
}

// NewMongoSource connects to uri and binds database/collection.
func NewMongoSource(ctx context.Context, uri, database, collection string) (*MongoSource, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: mongodb connect: %v", domain.ErrDependencyUnavailable, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: mongodb ping: %v", domain.ErrDependencyUnavailable, err)
	}

	return &MongoSource{
		client:     client,
		collection: client.Database(database).Collection(collection),
		label:      fmt.Sprintf("mongodb:%s.%s", database, collection),
	}, nil
}

func (s *MongoSource) Load(ctx context.Context) ([]Part, error) {
	cursor, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "PartNo", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: find parts: %v", domain.ErrCorpusLoad, err)
	}

	var parts []Part
	if err := cursor.All(ctx, &parts); err != nil {
		return nil, fmt.Errorf("%w: decode parts: %v", domain.ErrCorpusLoad, err)
	}
	return parts, nil
}

// Replace deletes every stored part and inserts parts in their place.
func (s *MongoSource) Replace(ctx context.Context, parts []Part) error {
	if _, err := s.collection.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("delete parts: %w", err)
	}
	if len(parts) == 0 {
		return nil
	}

	docs := make([]any, len(parts))
	for i, p := range parts {
		docs[i] = p
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert parts: %w", err)
	}
	return nil
}

// Count returns the number of stored parts.
func (s *MongoSource) Count(ctx context.Context) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.D{})
}

func (s *MongoSource) Describe() string {
	return s.label
}

// Close disconnects the client.
func (s *MongoSource) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// UnmarshalBSONValue accepts both string and numeric identifiers.
func (i *Ident) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeString:
		*i = Ident(strings.TrimSpace(v.StringValue()))
	case bson.TypeInt32:
		*i = Ident(strconv.FormatInt(int64(v.Int32()), 10))
	case bson.TypeInt64:
		*i = Ident(strconv.FormatInt(v.Int64(), 10))
	case bson.TypeDouble:
		*i = Ident(strconv.FormatFloat(v.Double(), 'f', -1, 64))
	case bson.TypeNull, bson.TypeUndefined:
		*i = ""
	default:
		return fmt.Errorf("unsupported identifier type %s", t)
	}
	return nil
}

// UnmarshalBSONValue mirrors the JSON behaviour: non-string bodies become empty.
func (t *Body) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	if bt != bson.TypeString {
		*t = ""
		return nil
	}
	*t = Body(bson.RawValue{Type: bt, Value: data}.StringValue())
	return nil
}
