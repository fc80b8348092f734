package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/account-service/internal/model"
)

const userCollection = "users"

// userDocument is the BSON shape of a user. Ids are ObjectIDs.
type userDocument struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Email          string        `bson:"email"`
	FirstName      string        `bson:"first_name"`
	LastName       string        `bson:"last_name"`
	HashedPassword string        `bson:"hashed_password"`
	IsActive       bool          `bson:"is_active"`
	IsVerified     bool          `bson:"is_verified"`
	Role           string        `bson:"role"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}

func (d userDocument) toModel() model.User {
	return model.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		PasswordHash: d.HashedPassword,
		IsActive:     d.IsActive,
		IsVerified:   d.IsVerified,
		Role:         model.Role(d.Role),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserMongoRepo is the MongoDB user store.
type UserMongoRepo struct {
	coll *mongo.Collection
}

// NewUserMongoRepo ensures the unique email index exists. The index is what
// makes concurrent registrations with the same email safe.
func NewUserMongoRepo(ctx context.Context, db *mongo.Database) (*UserMongoRepo, error) {
	coll := db.Collection(userCollection)
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create user indexes: %w", err)
	}
	return &UserMongoRepo{coll: coll}, nil
}

func (r *UserMongoRepo) ValidID(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}

func (r *UserMongoRepo) Insert(ctx context.Context, u model.User) (model.User, error) {
	doc := userDocument{
		ID:             bson.NewObjectID(),
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		HashedPassword: u.PasswordHash,
		IsActive:       u.IsActive,
		IsVerified:     u.IsVerified,
		Role:           string(u.Role),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *UserMongoRepo) findOne(ctx context.Context, filter bson.M) (model.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *UserMongoRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return model.User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserMongoRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserMongoRepo) Update(ctx context.Context, id string, upd UserUpdate) (model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return model.User{}, ErrNotFound
	}

	set := bson.M{"updated_at": upd.UpdatedAt}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.FirstName != nil {
		set["first_name"] = *upd.FirstName
	}
	if upd.LastName != nil {
		set["last_name"] = *upd.LastName
	}
	if upd.PasswordHash != nil {
		set["hashed_password"] = *upd.PasswordHash
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	if upd.IsVerified != nil {
		set["is_verified"] = *upd.IsVerified
	}
	if upd.Role != nil {
		set["role"] = string(*upd.Role)
	}

	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return model.User{}, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return model.User{}, ErrEmailExists
	case err != nil:
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *UserMongoRepo) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *UserMongoRepo) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]model.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toModel())
	}
	return users, nil
}

func (r *UserMongoRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserMongoRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
