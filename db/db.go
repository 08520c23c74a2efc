package db

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"debateloop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client
var MongoDatabase *mongo.Database
var TranscriptCollection *mongo.Collection
var ReportCollection *mongo.Collection

// ArchivedTranscript is the Mongo document written for a finished debate.
// The file store stays authoritative; this archive serves search and
// analytics.
type ArchivedTranscript struct {
	SessionID    string                  `bson:"sessionId"`
	Topic        string                  `bson:"topic"`
	Participants []models.Participant    `bson:"participants"`
	Status       string                  `bson:"status"`
	Turns        []models.DiscussionTurn `bson:"turns"`
	MaxTurns     int                     `bson:"maxTurns"`
	CreatedAt    time.Time               `bson:"createdAt"`
	UpdatedAt    time.Time               `bson:"updatedAt"`
	ArchivedAt   time.Time               `bson:"archivedAt"`
}

// ArchivedReport stores the final quality report of a session.
type ArchivedReport struct {
	SessionID string               `bson:"sessionId"`
	Report    models.QualityReport `bson:"report"`
	CreatedAt time.Time            `bson:"createdAt"`
}

// extractDBName parses the database name from the URI, defaulting to "debateloop"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "debateloop"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:] // Trim leading '/'
	}
	return "debateloop"
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI
func ConnectMongoDB(uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection with a ping
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	MongoClient = client
	dbName := extractDBName(uri)
	log.Printf("Using database: %s", dbName)

	MongoDatabase = client.Database(dbName)
	TranscriptCollection = MongoDatabase.Collection("debate_transcripts")
	ReportCollection = MongoDatabase.Collection("debate_reports")
	return nil
}

// ArchiveTranscript stores a completed session's transcript. A nil
// collection (archive not configured) is a no-op.
func ArchiveTranscript(session *models.DebateSession) error {
	if TranscriptCollection == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc := ArchivedTranscript{
		SessionID:    session.SessionID,
		Topic:        session.Topic,
		Participants: session.Participants,
		Status:       string(session.Status),
		Turns:        session.TurnHistory,
		MaxTurns:     session.MaxTurns,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
		ArchivedAt:   time.Now(),
	}
	if _, err := TranscriptCollection.InsertOne(ctx, doc); err != nil {
		log.Printf("Error archiving transcript for session %s: %v", session.SessionID, err)
		return err
	}
	return nil
}

// ArchiveReport stores a session's final quality report.
func ArchiveReport(sessionID string, report models.QualityReport) error {
	if ReportCollection == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc := ArchivedReport{
		SessionID: sessionID,
		Report:    report,
		CreatedAt: time.Now(),
	}
	if _, err := ReportCollection.InsertOne(ctx, doc); err != nil {
		log.Printf("Error archiving quality report for session %s: %v", sessionID, err)
		return err
	}
	return nil
}

// GetArchivedTranscript retrieves an archived transcript by session id.
func GetArchivedTranscript(sessionID string) (*ArchivedTranscript, error) {
	if TranscriptCollection == nil {
		return nil, fmt.Errorf("transcript archive not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc ArchivedTranscript
	err := TranscriptCollection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no archived transcript for session: %s", sessionID)
		}
		return nil, err
	}
	return &doc, nil
}
