package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"cert-quiz/internal/quiz"
)

type Config struct {
	URI        string
	Database   string
	Collection string
	PoolSize   uint64
	Fields     quiz.FieldNames
}

// Store reads question documents from a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	fields     quiz.FieldNames
}

func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongo uri is required")
	}

	clientOptions := options.Client().ApplyURI(cfg.URI)
	if cfg.PoolSize > 0 {
		clientOptions.SetMaxPoolSize(cfg.PoolSize)
	}

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return NewStore(client, cfg), nil
}

func NewStore(client *mongo.Client, cfg Config) *Store {
	fields := cfg.Fields
	if fields == (quiz.FieldNames{}) {
		fields = quiz.DefaultFieldNames()
	}
	return &Store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		fields:     fields,
	}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) FetchQuestions(ctx context.Context, category string, limit int) ([]quiz.Record, error) {
	filter := bson.M{}
	if category != "" {
		filter[s.fields.Category] = category
	}

	findOpts := options.Find()
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	records := make([]quiz.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, quiz.RecordFromDocument(plainDocument(doc), s.fields))
	}
	return records, nil
}

// SeedQuestions upserts one document per record, keyed by question text.
func (s *Store) SeedQuestions(ctx context.Context, records []quiz.Record) (int, error) {
	written := 0
	for _, record := range records {
		text := strings.TrimSpace(record.QuestionText)
		if text == "" {
			continue
		}
		record.QuestionText = text

		_, err := s.collection.ReplaceOne(
			ctx,
			bson.M{s.fields.QuestionText: text},
			documentFromRecord(record, s.fields),
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			return written, fmt.Errorf("upsert question %q: %w", text, err)
		}
		written++
	}
	return written, nil
}

func documentFromRecord(record quiz.Record, fields quiz.FieldNames) bson.M {
	doc := bson.M{
		fields.QuestionText: record.QuestionText,
		fields.Category:     record.Category,
		fields.Choices:      record.Choices,
		fields.Answers:      record.Answers,
	}
	if record.Images != "" && fields.Images != "" {
		doc[fields.Images] = record.Images
	}
	return doc
}

// plainDocument unwraps driver container types so the shared document mapper
// sees plain maps and slices.
func plainDocument(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		out[key] = plainValue(value)
	}
	return out
}

func plainValue(value any) any {
	switch typed := value.(type) {
	case bson.A:
		items := make([]any, 0, len(typed))
		for _, item := range typed {
			items = append(items, plainValue(item))
		}
		return items
	case bson.M:
		return plainDocument(typed)
	case bson.D:
		m := make(bson.M, len(typed))
		for _, elem := range typed {
			m[elem.Key] = elem.Value
		}
		return plainDocument(m)
	default:
		return value
	}
}
