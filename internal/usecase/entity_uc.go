// File: internal/usecase/entity_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ EntityUseCase = (*entityUC)(nil)

// EntityUseCase creates marketplace tenants. Slug assignment and the
// creator's permission bootstrap happen here, synchronously and visibly,
// rather than as save-time hooks.
type EntityUseCase interface {
	Create(ctx context.Context, name, creatorUserID string) (*model.Entity, error)
	GetByID(ctx context.Context, id string) (*model.Entity, error)
	GetBySlug(ctx context.Context, s string) (*model.Entity, error)
}

type entityUC struct {
	entities repository.EntityRepository
	perms    PermissionUseCase
	log      *zerolog.Logger
}

func NewEntityUseCase(entities repository.EntityRepository, perms PermissionUseCase, logger *zerolog.Logger) *entityUC {
	l := logger.With().Str("component", "EntityUC").Logger()
	return &entityUC{entities: entities, perms: perms, log: &l}
}

func (u *entityUC) Create(ctx context.Context, name, creatorUserID string) (*model.Entity, error) {
	if name == "" || creatorUserID == "" {
		return nil, domain.ErrInvalidArgument
	}

	s, err := u.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}
	e, err := model.NewEntity(uuid.NewString(), name, s)
	if err != nil {
		return nil, err
	}
	if err := u.entities.Save(ctx, repository.NoTX, e); err != nil {
		return nil, err
	}

	if err := u.perms.Grant(ctx, creatorUserID, e.ID, model.CapAdmin); err != nil {
		return nil, err
	}

	u.log.Info().Str("entity_id", e.ID).Str("slug", e.Slug).Msg("entity created")
	return e, nil
}

// uniqueSlug derives a slug from the name, suffixing it when taken.
func (u *entityUC) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	candidate := base
	for i := 0; ; i++ {
		_, err := u.entities.FindBySlug(ctx, repository.NoTX, candidate)
		if errors.Is(err, domain.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
		if i >= 5 {
			return "", domain.ErrOperationFailed
		}
	}
}

func (u *entityUC) GetByID(ctx context.Context, id string) (*model.Entity, error) {
	return u.entities.FindByID(ctx, repository.NoTX, id)
}

func (u *entityUC) GetBySlug(ctx context.Context, s string) (*model.Entity, error) {
	return u.entities.FindBySlug(ctx, repository.NoTX, s)
}
