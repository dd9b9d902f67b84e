package repository

import (
	"context"
	"errors"

	"taskapi/internal/domain/model"
)

// emailのunique制約違反
var ErrEmailTaken = errors.New("email already taken")

// Find系は見つからない場合 (nil, nil) を返す
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}
