package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/user-service/internal/domain"
)

const (
	mongoUsersCollection       = "users"
	mongoAuthoritiesCollection = "authorities"
)

// Core reads leave the embedded role set on the server.
var mongoCoreProjection = bson.M{"authorities": 0}

type mongoUserDocument struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email"`
	FirstName      string    `bson:"first_name"`
	LastName       string    `bson:"last_name"`
	ImageURL       string    `bson:"image_url"`
	LangKey        string    `bson:"lang_key"`
	Activated      bool      `bson:"activated"`
	ActivationKey  *string   `bson:"activation_key,omitempty"`
	PasswordHash   string    `bson:"password_hash"`
	CreatedBy      string    `bson:"created_by"`
	CreatedAt      time.Time `bson:"created_at"`
	LastModifiedBy string    `bson:"last_modified_by"`
	LastModifiedAt time.Time `bson:"last_modified_at"`
	Authorities    []string  `bson:"authorities,omitempty"`
}

type mongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository returns a MongoDB-backed implementation.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{users: db.Collection(mongoUsersCollection)}
}

// EnsureMongoIndexes creates the unique indexes backing username, email and activation key.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(mongoUsersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("ux_users_username").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("ux_users_email").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "activation_key", Value: 1}},
			Options: options.Index().SetName("ux_users_activation_key").SetUnique(true).
				SetPartialFilterExpression(bson.M{"activation_key": bson.M{"$type": "string"}}),
		},
	})
	return err
}

func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User, authorities []string) error {
	doc := toMongoUserDocument(user)
	doc.Authorities = authorities
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return mapMongoError(err)
	}
	return nil
}

func (r *mongoUserRepository) Update(ctx context.Context, user *domain.User, authorities []string) error {
	set := bson.M{
		"username":         user.Username,
		"email":            user.Email,
		"first_name":       user.FirstName,
		"last_name":        user.LastName,
		"image_url":        user.ImageURL,
		"lang_key":         user.LangKey,
		"activated":        user.Activated,
		"password_hash":    user.PasswordHash,
		"last_modified_by": user.LastModifiedBy,
		"last_modified_at": user.LastModifiedAt,
	}
	if authorities != nil {
		set["authorities"] = authorities
	}
	update := bson.M{"$set": set}
	if user.ActivationKey != nil {
		set["activation_key"] = *user.ActivationKey
	} else {
		update["$unset"] = bson.M{"activation_key": ""}
	}

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) DeleteByUsername(ctx context.Context, username string) error {
	res, err := r.users.DeleteOne(ctx, bson.M{"username": username})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, bson.M{"username": username})
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) GetByActivationKey(ctx context.Context, key string) (*domain.User, error) {
	return r.getOne(ctx, bson.M{"activation_key": key})
}

func (r *mongoUserRepository) getOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc mongoUserDocument
	err := r.users.FindOne(ctx, filter, options.FindOne().SetProjection(mongoCoreProjection)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *mongoUserRepository) List(ctx context.Context, page PageRequest) ([]domain.User, int64, error) {
	page = page.Normalize()
	filter := bson.M{"username": bson.M{"$ne": domain.AnonymousUsername}}

	total, err := r.users.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	direction := 1
	if page.Desc {
		direction = -1
	}
	sortKey := mongoSortKey(page.Sort)
	sortSpec := bson.D{{Key: sortKey, Value: direction}}
	if sortKey != "_id" {
		sortSpec = append(sortSpec, bson.E{Key: "_id", Value: 1})
	}
	opts := options.Find().
		SetProjection(mongoCoreProjection).
		SetSort(sortSpec).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Size))

	cursor, err := r.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var result []domain.User
	for cursor.Next(ctx) {
		var doc mongoUserDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, err
		}
		result = append(result, *doc.toDomain())
	}
	return result, total, cursor.Err()
}

func (r *mongoUserRepository) GetAuthorities(ctx context.Context, userID string) ([]string, error) {
	var doc struct {
		Authorities []string `bson:"authorities"`
	}
	opts := options.FindOne().SetProjection(bson.M{"authorities": 1})
	if err := r.users.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.Authorities == nil {
		return []string{}, nil
	}
	return doc.Authorities, nil
}

type mongoAuthorityRepository struct {
	authorities *mongo.Collection
}

// NewMongoAuthorityRepository returns a MongoDB-backed implementation.
func NewMongoAuthorityRepository(db *mongo.Database) AuthorityRepository {
	return &mongoAuthorityRepository{authorities: db.Collection(mongoAuthoritiesCollection)}
}

func (r *mongoAuthorityRepository) List(ctx context.Context) ([]string, error) {
	cursor, err := r.authorities.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	names := []string{}
	for cursor.Next(ctx) {
		var doc struct {
			Name string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		names = append(names, doc.Name)
	}
	return names, cursor.Err()
}

func (r *mongoAuthorityRepository) Ensure(ctx context.Context, name string) error {
	_, err := r.authorities.UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$setOnInsert": bson.M{"name": name}},
		options.Update().SetUpsert(true))
	return err
}

func toMongoUserDocument(user *domain.User) mongoUserDocument {
	return mongoUserDocument{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		ImageURL:       user.ImageURL,
		LangKey:        user.LangKey,
		Activated:      user.Activated,
		ActivationKey:  user.ActivationKey,
		PasswordHash:   user.PasswordHash,
		CreatedBy:      user.CreatedBy,
		CreatedAt:      user.CreatedAt,
		LastModifiedBy: user.LastModifiedBy,
		LastModifiedAt: user.LastModifiedAt,
	}
}

func (d mongoUserDocument) toDomain() *domain.User {
	return &domain.User{
		ID:             d.ID,
		Username:       d.Username,
		Email:          d.Email,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		ImageURL:       d.ImageURL,
		LangKey:        d.LangKey,
		Activated:      d.Activated,
		ActivationKey:  d.ActivationKey,
		PasswordHash:   d.PasswordHash,
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt,
		LastModifiedBy: d.LastModifiedBy,
		LastModifiedAt: d.LastModifiedAt,
	}
}

func mongoSortKey(field SortField) string {
	switch field {
	case SortByUsername:
		return "username"
	case SortByEmail:
		return "email"
	case SortByCreatedAt:
		return "created_at"
	default:
		return "_id"
	}
}

func mapMongoError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ux_users_username"):
		return &DuplicateError{Field: FieldUsername}
	case strings.Contains(msg, "ux_users_email"):
		return &DuplicateError{Field: FieldEmail}
	case strings.Contains(msg, "ux_users_activation_key"):
		return &DuplicateError{Field: FieldActivationKey}
	default:
		return &DuplicateError{Field: FieldID}
	}
}
