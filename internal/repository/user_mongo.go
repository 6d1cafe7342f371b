package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/notes-backend/internal/model"
)

// userDoc is the stored shape of a user in the users collection.
type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	FullName     *string   `bson:"full_name"`
	Disabled     bool      `bson:"disabled"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toUserDoc(u *model.User) userDoc {
	return userDoc{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Disabled:     !u.Active,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) model() (*model.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:           id,
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		Active:       !d.Disabled,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

// MongoUserRepo stores users in a MongoDB collection. Uniqueness of
// username and email comes from the indexes created by
// database.EnsureIndexes.
type MongoUserRepo struct {
	coll *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection("users")}
}

func (r *MongoUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "username", Value: username}})
}

func (r *MongoUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var d userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return d.model()
}

func (r *MongoUserRepo) Insert(ctx context.Context, u *model.User) error {
	if _, err := r.coll.InsertOne(ctx, toUserDoc(u)); err != nil {
		return translateMongoDuplicate(err)
	}
	return nil
}

func (r *MongoUserRepo) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = model.Today(time.Now())
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: u.ID.String()}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "email", Value: u.Email},
			{Key: "full_name", Value: u.FullName},
			{Key: "disabled", Value: !u.Active},
			{Key: "password_hash", Value: u.PasswordHash},
			{Key: "updated_at", Value: u.UpdatedAt},
		}}})
	if err != nil {
		return translateMongoDuplicate(err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// emailIndex is the unique index on users.email created by
// database.EnsureIndexes.
const emailIndex = "email_1"

// translateMongoDuplicate maps an E11000 error onto the sentinel of the
// violated index. Anything not on the email index is a username clash.
func translateMongoDuplicate(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	for _, msg := range duplicateMessages(err) {
		if violatedIndex(msg) == emailIndex {
			return ErrEmailTaken
		}
	}
	return ErrUsernameTaken
}

// violatedIndex reads the index name from a message shaped like
// "E11000 duplicate key error collection: db.users index: email_1 dup key: {...}".
// The first "index: " precedes the key values, so user input cannot spoof it.
func violatedIndex(msg string) string {
	_, rest, ok := strings.Cut(msg, "index: ")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}

// duplicateMessages collects the server messages of the E11000 entries.
func duplicateMessages(err error) []string {
	var msgs []string
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				msgs = append(msgs, e.Message)
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 {
				msgs = append(msgs, e.Message)
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		msgs = append(msgs, ce.Message)
	}
	return msgs
}

var _ UserDirectory = (*MongoUserRepo)(nil)
