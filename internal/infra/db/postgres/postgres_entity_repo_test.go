//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

func TestEntityRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewEntityRepo(testPool)
	ctx := context.Background()
	cleanup(t)

	entity, err := model.NewEntity("ent-1", "Acme GmbH", "acme-gmbh")
	if err != nil {
		t.Fatalf("model.NewEntity() failed: %v", err)
	}

	t.Run("should create and read a new entity", func(t *testing.T) {
		if err := repo.Save(ctx, repository.NoTX, entity); err != nil {
			t.Fatalf("Failed to save entity: %v", err)
		}

		found, err := repo.FindByID(ctx, repository.NoTX, "ent-1")
		if err != nil {
			t.Fatalf("Failed to find entity by ID: %v", err)
		}
		if found.Name != "Acme GmbH" || found.Slug != "acme-gmbh" {
			t.Errorf("Mismatch in retrieved entity. Got name '%s' and slug '%s'", found.Name, found.Slug)
		}
	})

	t.Run("should find by slug", func(t *testing.T) {
		found, err := repo.FindBySlug(ctx, repository.NoTX, "acme-gmbh")
		if err != nil {
			t.Fatalf("Failed to find entity by slug: %v", err)
		}
		if found.ID != "ent-1" {
			t.Errorf("expected ent-1, got %s", found.ID)
		}
	})

	t.Run("should return ErrNotFound for a missing slug", func(t *testing.T) {
		_, err := repo.FindBySlug(ctx, repository.NoTX, "no-such-slug")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("should count entities", func(t *testing.T) {
		other, _ := model.NewEntity("ent-2", "Globex", "globex")
		repo.Save(ctx, repository.NoTX, other)

		n, err := repo.CountAll(ctx, repository.NoTX)
		if err != nil {
			t.Fatalf("CountAll failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 entities, got %d", n)
		}
	})
}

func TestPermissionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewPermissionRepo(testPool)
	ctx := context.Background()
	cleanup(t)
	seedEntity(t, "ent-1", "acme")

	t.Run("grant is idempotent", func(t *testing.T) {
		if err := repo.Grant(ctx, repository.NoTX, "ent-1", "user-1", model.CapPostJob); err != nil {
			t.Fatalf("Grant failed: %v", err)
		}
		// Second grant of the same row must not error.
		if err := repo.Grant(ctx, repository.NoTX, "ent-1", "user-1", model.CapPostJob); err != nil {
			t.Fatalf("Repeated grant failed: %v", err)
		}

		ok, err := repo.Has(ctx, repository.NoTX, "ent-1", "user-1", model.CapPostJob)
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if !ok {
			t.Error("expected capability to be present")
		}
	})

	t.Run("list returns all of a user's capabilities", func(t *testing.T) {
		repo.Grant(ctx, repository.NoTX, "ent-1", "user-1", model.CapPostEvent)

		caps, err := repo.ListByUser(ctx, repository.NoTX, "ent-1", "user-1")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(caps) != 2 {
			t.Errorf("expected 2 capabilities, got %v", caps)
		}
	})

	t.Run("revoke removes only the named capability", func(t *testing.T) {
		if err := repo.Revoke(ctx, repository.NoTX, "ent-1", "user-1", model.CapPostJob); err != nil {
			t.Fatalf("Revoke failed: %v", err)
		}

		ok, _ := repo.Has(ctx, repository.NoTX, "ent-1", "user-1", model.CapPostJob)
		if ok {
			t.Error("expected post_job to be revoked")
		}
		ok, _ = repo.Has(ctx, repository.NoTX, "ent-1", "user-1", model.CapPostEvent)
		if !ok {
			t.Error("expected post_event to survive")
		}
	})
}
