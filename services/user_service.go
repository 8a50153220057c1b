//go:generate go run go.uber.org/mock/mockgen -source=user_service.go -destination=../mocks/mock_user_service.go -package=mocks
package services

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"converse/domain"
	"converse/domain/mimetypes"
	"converse/errors"
	"converse/repositories"
)

type IUserService interface {
	GetProfile(username string) (Profile, error)
	UpdateProfile(username, name, publicKey string) error
	UpdateAvatar(username string, data []byte) (string, error)
}

// Profile is the public view of a user, with credentials stripped.
type Profile struct {
	Username     string   `json:"username"`
	Name         string   `json:"name"`
	PublicKey    string   `json:"public_key"`
	AvatarPath   string   `json:"avatar_path,omitempty"`
	JoinedGroups []string `json:"joined_groups,omitempty"`
}

type UserService struct {
	log       *slog.Logger
	users     repositories.IUserRepository
	avatarDir string
}

func NewUserService(log *slog.Logger, users repositories.IUserRepository, avatarDir string) *UserService {
	return &UserService{log: log, users: users, avatarDir: avatarDir}
}

func (s *UserService) GetProfile(username string) (Profile, error) {
	user, err := s.users.GetUser(username)
	if err != nil {
		return Profile{}, err
	}
	return toProfile(user), nil
}

func (s *UserService) UpdateProfile(username, name, publicKey string) error {
	user, err := s.users.GetUser(username)
	if err != nil {
		return err
	}
	if name != "" {
		user.Name = name
	}
	if publicKey != "" {
		user.PublicKey = publicKey
	}
	return s.users.UpdateUser(user)
}

// UpdateAvatar sniffs the actual content type of the upload. The file
// extension comes from the detected MIME, never from the client.
func (s *UserService) UpdateAvatar(username string, data []byte) (string, error) {
	user, err := s.users.GetUser(username)
	if err != nil {
		return "", err
	}

	mime, ok := mimetypes.DetectAvatar(data)
	if !ok {
		return "", fmt.Errorf("%w: unsupported avatar type", errors.ErrInvalidContent)
	}

	if err := os.MkdirAll(s.avatarDir, 0o755); err != nil {
		return "", fmt.Errorf("avatar dir: %w", err)
	}
	path := filepath.Join(s.avatarDir, username+mime.Extension())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("avatar write: %w", err)
	}

	user.AvatarPath = path
	if err := s.users.UpdateUser(user); err != nil {
		return "", err
	}
	s.log.Info("avatar updated", "user", username, "mime", mime.String())
	return path, nil
}

func toProfile(user domain.User) Profile {
	return Profile{
		Username:     user.Username,
		Name:         user.Name,
		PublicKey:    user.PublicKey,
		AvatarPath:   user.AvatarPath,
		JoinedGroups: user.JoinedGroups,
	}
}
