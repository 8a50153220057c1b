package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Group is the persisted roster: who may send to the group and who
// administers it. Live channel subscription is a separate, session
// scoped concept owned by the presence registry.
type Group struct {
	ID        string
	Name      string
	Creator   string
	Members   []string
	Admins    []string
	CreatedAt time.Time
}

// NewGroup creates a group whose creator is its first member and admin.
func NewGroup(name, creator string) Group {
	return Group{
		ID:        uuid.NewString(),
		Name:      name,
		Creator:   creator,
		Members:   []string{creator},
		Admins:    []string{creator},
		CreatedAt: time.Now().UTC(),
	}
}

func (g Group) HasMember(userID string) bool {
	return lo.Contains(g.Members, userID)
}

func (g Group) HasAdmin(userID string) bool {
	return lo.Contains(g.Admins, userID)
}

func (g *Group) AddMember(userID string) {
	if !lo.Contains(g.Members, userID) {
		g.Members = append(g.Members, userID)
	}
}

func (g *Group) RemoveMember(userID string) {
	g.Members = lo.Without(g.Members, userID)
	g.Admins = lo.Without(g.Admins, userID)
}

func (g *Group) PromoteAdmin(userID string) bool {
	if !lo.Contains(g.Members, userID) {
		return false
	}
	if !lo.Contains(g.Admins, userID) {
		g.Admins = append(g.Admins, userID)
	}
	return true
}
