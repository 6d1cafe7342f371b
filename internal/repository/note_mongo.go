package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/notes-backend/internal/model"
)

type noteDoc struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Title      string    `bson:"note_title"`
	Content    string    `bson:"note_content"`
	CreatedOn  time.Time `bson:"created_on"`
	LastUpdate time.Time `bson:"last_update"`
}

func (d noteDoc) model() (*model.Note, error) {
	n := &model.Note{
		Title:      d.Title,
		Content:    d.Content,
		CreatedOn:  d.CreatedOn.UTC(),
		LastUpdate: d.LastUpdate.UTC(),
	}
	return fillNoteIDs(n, d.ID, d.UserID)
}

// MongoNoteRepo stores notes in a MongoDB collection.
type MongoNoteRepo struct {
	coll *mongo.Collection
}

func NewMongoNoteRepo(db *mongo.Database) *MongoNoteRepo {
	return &MongoNoteRepo{coll: db.Collection("notes")}
}

func ownedBy(ownerID, noteID uuid.UUID) bson.D {
	return bson.D{{Key: "_id", Value: noteID.String()}, {Key: "user_id", Value: ownerID.String()}}
}

func (r *MongoNoteRepo) Insert(ctx context.Context, n *model.Note) error {
	_, err := r.coll.InsertOne(ctx, noteDoc{
		ID:         n.NoteID.String(),
		UserID:     n.UserID.String(),
		Title:      n.Title,
		Content:    n.Content,
		CreatedOn:  n.CreatedOn,
		LastUpdate: n.LastUpdate,
	})
	return err
}

func (r *MongoNoteRepo) FindByID(ctx context.Context, ownerID, noteID uuid.UUID) (*model.Note, error) {
	var d noteDoc
	if err := r.coll.FindOne(ctx, ownedBy(ownerID, noteID)).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return d.model()
}

func (r *MongoNoteRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_on", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.D{{Key: "user_id", Value: ownerID.String()}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*model.Note{}
	for cur.Next(ctx) {
		var d noteDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		n, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoNoteRepo) Update(ctx context.Context, n *model.Note) error {
	n.LastUpdate = model.Today(time.Now())
	res, err := r.coll.UpdateOne(ctx, ownedBy(n.UserID, n.NoteID),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "note_title", Value: n.Title},
			{Key: "note_content", Value: n.Content},
			{Key: "last_update", Value: n.LastUpdate},
		}}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (r *MongoNoteRepo) Delete(ctx context.Context, ownerID, noteID uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, ownedBy(ownerID, noteID))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNoteNotFound
	}
	return nil
}

var _ NoteStore = (*MongoNoteRepo)(nil)
