// File: internal/usecase/permission_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/adapter"
	"marketplace-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PermissionUseCase = (*permissionUC)(nil)

// PermissionUseCase manages entity-scoped capabilities. Admin is a superset:
// granting it grants every known capability; revoking it strips everything
// except member, so demoted users keep base access. Unknown capability names
// are forwarded to the observer instead of rejected.
type PermissionUseCase interface {
	Grant(ctx context.Context, userID, entityID string, capability model.Capability) error
	Revoke(ctx context.Context, userID, entityID string, capability model.Capability) error
	Has(ctx context.Context, userID, entityID string, capability model.Capability) (bool, error)
	List(ctx context.Context, userID, entityID string) ([]model.Capability, error)
}

type permissionUC struct {
	perms    repository.PermissionRepository
	observer adapter.PermissionObserver
	log      *zerolog.Logger
}

func NewPermissionUseCase(perms repository.PermissionRepository, observer adapter.PermissionObserver, logger *zerolog.Logger) *permissionUC {
	l := logger.With().Str("component", "PermissionUC").Logger()
	return &permissionUC{perms: perms, observer: observer, log: &l}
}

func (u *permissionUC) Grant(ctx context.Context, userID, entityID string, capability model.Capability) error {
	if userID == "" || entityID == "" {
		return domain.ErrInvalidArgument
	}
	if !capability.Known() {
		u.log.Debug().
			Str("entity_id", entityID).
			Str("capability", string(capability)).
			Msg("forwarding unknown capability")
		u.observer.UnknownCapability(ctx, entityID, userID, string(capability))
		return nil
	}

	if capability == model.CapAdmin {
		for _, c := range model.KnownCapabilities {
			if err := u.perms.Grant(ctx, repository.NoTX, entityID, userID, c); err != nil {
				return err
			}
		}
		u.log.Info().Str("entity_id", entityID).Str("user_id", userID).Msg("admin granted")
		return nil
	}
	return u.perms.Grant(ctx, repository.NoTX, entityID, userID, capability)
}

func (u *permissionUC) Revoke(ctx context.Context, userID, entityID string, capability model.Capability) error {
	if userID == "" || entityID == "" {
		return domain.ErrInvalidArgument
	}
	if !capability.Known() {
		u.observer.UnknownCapability(ctx, entityID, userID, string(capability))
		return nil
	}

	if capability == model.CapAdmin {
		// Demotion keeps the member capability.
		for _, c := range model.KnownCapabilities {
			if c == model.CapMember {
				continue
			}
			if err := u.perms.Revoke(ctx, repository.NoTX, entityID, userID, c); err != nil {
				return err
			}
		}
		u.log.Info().Str("entity_id", entityID).Str("user_id", userID).Msg("admin revoked, member retained")
		return nil
	}
	return u.perms.Revoke(ctx, repository.NoTX, entityID, userID, capability)
}

func (u *permissionUC) Has(ctx context.Context, userID, entityID string, capability model.Capability) (bool, error) {
	return u.perms.Has(ctx, repository.NoTX, entityID, userID, capability)
}

func (u *permissionUC) List(ctx context.Context, userID, entityID string) ([]model.Capability, error) {
	return u.perms.ListByUser(ctx, repository.NoTX, entityID, userID)
}
