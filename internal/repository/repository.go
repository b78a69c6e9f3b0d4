// Package repository defines the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite); tests
// substitute in-memory fakes. Keeping persistence behind an interface means
// the store can be swapped without touching business logic.
package repository

import (
	"context"

	"github.com/sakif/account-service/internal/model"
)

// UserRepository is the durable store of account records.
//
// Create fails with apperror.ErrConflict when the username or email is
// already taken. GetByID and GetByEmail fail with apperror.ErrNotFound when
// no matching record exists. Save persists the full current state of the
// record — there is no partial-field persistence primitive; sparse update
// semantics live in the service layer.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Save(ctx context.Context, user *model.User) error
}
