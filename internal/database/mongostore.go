package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"facewatch/internal/models"
)

// Collection names
const (
	CollectionFaces    = "faces"
	CollectionEvents   = "events"
	CollectionSessions = "sessions"
	CollectionStudents = "students"
	CollectionCounters = "counters"
)

// MongoStore implements Store on MongoDB. Identifiers are backend-generated
// via an atomic counter document per collection, so they are monotonic for
// the lifetime of the database, not the process. They are not comparable to
// file-store ids.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoStore connects, pings and ensures indexes. Connection failures are
// returned to the caller (the selector downgrades them to a warning).
func NewMongoStore(uri string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)
	store := &MongoStore{
		client:   client,
		database: client.Database(dbName),
	}

	if err := store.ensureIndexes(ctx); err != nil {
		log.Printf("⚠️  Failed to create MongoDB indexes: %v", err)
	}

	return store, nil
}

// extractDBName pulls the database name out of the URI path component,
// e.g. mongodb://localhost:27017/telemetry?authSource=admin -> telemetry.
func extractDBName(uri string) string {
	lastSlash, questionMark := -1, -1
	for i, c := range uri {
		if c == '/' {
			lastSlash = i
		}
		if c == '?' && questionMark == -1 {
			questionMark = i
		}
	}
	if lastSlash != -1 {
		start := lastSlash + 1
		end := len(uri)
		if questionMark != -1 && questionMark > lastSlash {
			end = questionMark
		}
		if start < end {
			name := uri[start:end]
			// A ':' or '@' means the last '/' belonged to the scheme,
			// not a path component (no database name in the URI).
			if !strings.ContainsAny(name, ":@") {
				return name
			}
		}
	}
	return "facewatch"
}

func (m *MongoStore) ensureIndexes(ctx context.Context) error {
	if err := m.createIndexes(ctx, CollectionEvents, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "faceLabel", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "timestamp", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create events indexes: %w", err)
	}
	if err := m.createIndexes(ctx, CollectionStudents, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("failed to create students indexes: %w", err)
	}
	if err := m.createIndexes(ctx, CollectionFaces, []mongo.IndexModel{
		{Keys: bson.D{{Key: "label", Value: 1}}},
		{Keys: bson.D{{Key: "id", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create faces indexes: %w", err)
	}
	return nil
}

func (m *MongoStore) createIndexes(ctx context.Context, collectionName string, indexes []mongo.IndexModel) error {
	_, err := m.database.Collection(collectionName).Indexes().CreateMany(ctx, indexes)
	return err
}

// nextID atomically increments and returns the counter for name. The $inc
// upsert makes allocation atomic on the server, so concurrent processes
// sharing the database never repeat an id.
func (m *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := m.database.Collection(CollectionCounters).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return counter.Seq, nil
}

// GetFaces returns all enrolled faces newest-first. Read failures degrade to
// an empty list.
func (m *MongoStore) GetFaces(ctx context.Context) []models.Face {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: -1}})
	cursor, err := m.database.Collection(CollectionFaces).Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Printf("⚠️  Failed to read faces: %v", err)
		return []models.Face{}
	}
	defer cursor.Close(ctx)

	faces := []models.Face{}
	if err := cursor.All(ctx, &faces); err != nil {
		log.Printf("⚠️  Failed to decode faces: %v", err)
		return []models.Face{}
	}
	return faces
}

func (m *MongoStore) AddFace(ctx context.Context, label string, descriptor []float64) (int64, error) {
	id, err := m.nextID(ctx, CollectionFaces)
	if err != nil {
		return 0, err
	}
	face := models.Face{
		ID:         id,
		Label:      label,
		Descriptor: descriptor,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := m.database.Collection(CollectionFaces).InsertOne(ctx, face); err != nil {
		return 0, fmt.Errorf("failed to insert face: %w", err)
	}
	return id, nil
}

func (m *MongoStore) InsertEvent(ctx context.Context, ev models.Event) (int64, error) {
	id, err := m.nextID(ctx, CollectionEvents)
	if err != nil {
		return 0, err
	}
	ev.ID = id
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if _, err := m.database.Collection(CollectionEvents).InsertOne(ctx, ev); err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

func (m *MongoStore) GetEvents(ctx context.Context, filter EventFilter) []models.Event {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}

	query := bson.M{}
	if filter.FaceLabel != nil {
		query["faceLabel"] = *filter.FaceLabel
	}
	if filter.SessionID != nil {
		query["sessionId"] = *filter.SessionID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.database.Collection(CollectionEvents).Find(ctx, query, opts)
	if err != nil {
		log.Printf("⚠️  Failed to read events: %v", err)
		return []models.Event{}
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		log.Printf("⚠️  Failed to decode events: %v", err)
		return []models.Event{}
	}
	return events
}

func (m *MongoStore) GetStudentHistory(ctx context.Context, email string) (*models.StudentRecord, error) {
	var rec models.StudentRecord
	err := m.database.Collection(CollectionStudents).FindOne(ctx, bson.M{"email": email}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student history: %w", err)
	}
	return &rec, nil
}

// SetStudentHistory is an atomic upsert keyed by email.
func (m *MongoStore) SetStudentHistory(ctx context.Context, email, name string, history map[string]any) error {
	update := bson.M{
		"$set": bson.M{
			"name":    name,
			"history": history,
		},
		"$setOnInsert": bson.M{
			"email": email,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := m.database.Collection(CollectionStudents).UpdateOne(ctx, bson.M{"email": email}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert student history: %w", err)
	}
	return nil
}

func (m *MongoStore) AddSession(ctx context.Context, name *string, meta map[string]any) (int64, error) {
	id, err := m.nextID(ctx, CollectionSessions)
	if err != nil {
		return 0, err
	}
	sess := models.Session{
		ID:        id,
		Name:      name,
		Meta:      meta,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := m.database.Collection(CollectionSessions).InsertOne(ctx, sess); err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	return id, nil
}

func (m *MongoStore) GetSessions(ctx context.Context) []models.Session {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: -1}})
	cursor, err := m.database.Collection(CollectionSessions).Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Printf("⚠️  Failed to read sessions: %v", err)
		return []models.Session{}
	}
	defer cursor.Close(ctx)

	sessions := []models.Session{}
	if err := cursor.All(ctx, &sessions); err != nil {
		log.Printf("⚠️  Failed to decode sessions: %v", err)
		return []models.Session{}
	}
	return sessions
}

// ClearAll wipes every collection independently, best-effort. There is no
// transaction across collections: a crash mid-clear can leave some wiped and
// others not. The first error is reported, later collections are still
// attempted.
func (m *MongoStore) ClearAll(ctx context.Context) error {
	collections := []string{
		CollectionFaces,
		CollectionEvents,
		CollectionSessions,
		CollectionStudents,
		CollectionCounters,
	}

	var firstErr error
	for _, name := range collections {
		if _, err := m.database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			log.Printf("⚠️  Failed to clear collection %s: %v", name, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to clear %s: %w", name, err)
			}
		}
	}
	return firstErr
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoStore) Backend() string { return "mongodb" }

func (m *MongoStore) Close(ctx context.Context) error {
	log.Println("🔌 Closing MongoDB connection...")
	return m.client.Disconnect(ctx)
}
