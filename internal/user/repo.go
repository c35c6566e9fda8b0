package user

import (
	"context"

	"github.com/antonminaichev/dermamart/internal/types/user"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *user.User) error
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)
	FindUserByID(ctx context.Context, id string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUserRole(ctx context.Context, id, role string) (*user.User, error)
}
