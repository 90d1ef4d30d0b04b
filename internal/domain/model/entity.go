package model

import (
	"time"

	"marketplace-billing/internal/domain"
)

// Entity is a marketplace tenant (company, organizer). The slug is assigned
// once at creation and never changes.
type Entity struct {
	ID        string // UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}

func NewEntity(id, name, slug string) (*Entity, error) {
	if id == "" || name == "" || slug == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Entity{ID: id, Name: name, Slug: slug, CreatedAt: time.Now()}, nil
}

// Capability is a named permission a user holds on one entity.
type Capability string

const (
	CapMember         Capability = "member"
	CapAdmin          Capability = "admin"
	CapPostJob        Capability = "post_job"
	CapPostEvent      Capability = "post_event"
	CapPostCareerFair Capability = "post_career_fair"
	CapManageBilling  Capability = "manage_billing"
)

// KnownCapabilities is the closed set the permission manager understands.
// Admin implies every other capability when granted.
var KnownCapabilities = []Capability{
	CapMember,
	CapAdmin,
	CapPostJob,
	CapPostEvent,
	CapPostCareerFair,
	CapManageBilling,
}

func (c Capability) Known() bool {
	for _, k := range KnownCapabilities {
		if c == k {
			return true
		}
	}
	return false
}
