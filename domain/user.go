package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is keyed by Username, the stable identifier exchanged on the wire.
// JoinedGroups mirrors persisted group membership and is the source of
// truth for channel rejoin after a reconnect.
type User struct {
	ID           string
	Username     string
	Name         string
	PasswordHash string
	PublicKey    string
	AvatarPath   string
	Roles        []string
	JoinedGroups []string
	CreatedAt    time.Time
}

func NewUser(username, name, passwordHash, publicKey string) User {
	return User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		PublicKey:    publicKey,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}
}

func (u User) IsMemberOf(groupID string) bool {
	for _, g := range u.JoinedGroups {
		if g == groupID {
			return true
		}
	}
	return false
}
