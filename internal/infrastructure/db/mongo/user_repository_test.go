package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
)

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create assigns an id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := &UserRepository{col: mt.Coll}

		got, err := repo.Create(context.Background(), &domain.User{
			Name:  "Alice",
			Email: "alice@example.com",
			Role:  domain.RoleUser,
		})
		if err != nil {
			mt.Fatalf("create: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(got.ID); err != nil {
			mt.Fatalf("expected an ObjectID hex, got %q", got.ID)
		}
	})

	mt.Run("duplicate email maps to ErrDuplicateEmail", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: users index: email_unique",
		}))
		repo := &UserRepository{col: mt.Coll}

		_, err := repo.Create(context.Background(), &domain.User{Email: "alice@example.com"})
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			mt.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	mt.Run("find by email", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "db.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Alice"},
			{Key: "email", Value: "alice@example.com"},
			{Key: "password", Value: "$2a$10$hash"},
			{Key: "role", Value: "admin"},
			{Key: "createdAt", Value: time.Now()},
		}))
		repo := &UserRepository{col: mt.Coll}

		got, err := repo.FindByEmail(context.Background(), "alice@example.com")
		if err != nil {
			mt.Fatalf("find: %v", err)
		}
		if got.ID != id.Hex() || got.Role != domain.RoleAdmin || got.PasswordHash != "$2a$10$hash" {
			mt.Fatalf("unexpected user %+v", got)
		}
	})

	mt.Run("unknown email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch))
		repo := &UserRepository{col: mt.Coll}

		if _, err := repo.FindByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
			mt.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := &UserRepository{col: mt.Coll}
		if _, err := repo.FindByID(context.Background(), "xyz"); !errors.Is(err, domain.ErrUserNotFound) {
			mt.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}
