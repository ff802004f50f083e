package interfaces

import (
	"context"
	"errors"

	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionStore interface {
	Save(ctx context.Context, session models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
}
