package adapter

import "context"

// PermissionObserver receives capability names the permission manager does
// not recognize. Unknown names are forwarded rather than rejected so other
// subsystems can claim them.
type PermissionObserver interface {
	UnknownCapability(ctx context.Context, entityID, userID, capability string)
}
