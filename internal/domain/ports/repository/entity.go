package repository

import (
	"context"

	"marketplace-billing/internal/domain/model"
)

// EntityRepository is the port for marketplace tenants.
type EntityRepository interface {
	Save(ctx context.Context, tx Tx, e *model.Entity) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Entity, error)
	FindBySlug(ctx context.Context, tx Tx, slug string) (*model.Entity, error)
	CountAll(ctx context.Context, tx Tx) (int, error)
}

// PermissionRepository stores (entity, user, capability) rows queried by
// the permission manager.
type PermissionRepository interface {
	Grant(ctx context.Context, tx Tx, entityID, userID string, cap model.Capability) error
	Revoke(ctx context.Context, tx Tx, entityID, userID string, cap model.Capability) error
	Has(ctx context.Context, tx Tx, entityID, userID string, cap model.Capability) (bool, error)
	ListByUser(ctx context.Context, tx Tx, entityID, userID string) ([]model.Capability, error)
}
