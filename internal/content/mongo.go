// Package content implements the MongoDB-backed content store. Document
// bodies, including the opaque template payload, live here; only the
// checklist changes after creation.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"groupware/approval-portal/approval-portal-backend/internal/approval"
	"groupware/approval-portal/approval-portal-backend/internal/templates"
)

const collectionName = "documents"

// Store holds approval document bodies in a MongoDB collection.
type Store struct {
	coll *mongo.Collection
}

// NewStore creates a content store on the given database.
func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(collectionName)}
}

type contentDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Kind         string             `bson:"kind"`
	WriterID     string             `bson:"writer_id"`
	ApproverIDs  []string           `bson:"approver_ids"`
	Checklist    []bool             `bson:"checklist"`
	ReferenceIDs []string           `bson:"reference_ids"`
	Payload      string             `bson:"payload"`
	CreatedAt    time.Time          `bson:"created_at"`
}

// CreateDocument inserts the body and returns the assigned object id in hex.
func (s *Store) CreateDocument(ctx context.Context, doc *approval.Document) (string, error) {
	record := contentDocument{
		Kind:         string(doc.Kind),
		WriterID:     doc.WriterID.String(),
		ApproverIDs:  uuidStrings(doc.ApproverIDs),
		Checklist:    append([]bool{}, doc.Checklist...),
		ReferenceIDs: uuidStrings(doc.ReferenceIDs),
		Payload:      string(doc.Payload),
		CreatedAt:    doc.CreatedAt,
	}

	res, err := s.coll.InsertOne(ctx, record)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	id := oid.Hex()
	doc.ID = id
	return id, nil
}

// GetDocument loads a body by id. Unknown and malformed ids both return
// (nil, nil): neither names a stored document.
func (s *Store) GetDocument(ctx context.Context, id string) (*approval.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var record contentDocument
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record.toDocument()
}

// AppendDecision pushes one checklist entry.
func (s *Store) AppendDecision(ctx context.Context, id string, decision bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", id, err)
	}

	res, err := s.coll.UpdateByID(ctx, oid, bson.M{"$push": bson.M{"checklist": decision}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteDocument removes a body. Deleting an unknown id is not an error.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", id, err)
	}
	_, err = s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *contentDocument) toDocument() (*approval.Document, error) {
	writerID, err := uuid.Parse(r.WriterID)
	if err != nil {
		return nil, fmt.Errorf("stored writer id: %w", err)
	}
	approverIDs, err := parseUUIDs(r.ApproverIDs)
	if err != nil {
		return nil, fmt.Errorf("stored approver ids: %w", err)
	}
	referenceIDs, err := parseUUIDs(r.ReferenceIDs)
	if err != nil {
		return nil, fmt.Errorf("stored reference ids: %w", err)
	}

	return &approval.Document{
		ID:           r.ID.Hex(),
		Kind:         templates.Kind(r.Kind),
		WriterID:     writerID,
		ApproverIDs:  approverIDs,
		Checklist:    r.Checklist,
		ReferenceIDs: referenceIDs,
		Payload:      json.RawMessage(r.Payload),
		CreatedAt:    r.CreatedAt,
	}, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
