//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"converse/domain"
	"converse/errors"
)

type IUserRepository interface {
	CreateUser(user domain.User) error
	GetUser(username string) (domain.User, error)
	UpdateUser(user domain.User) error
}

// UserRepository persists user records under "user:{username}".
// The username is the stable identifier used across the whole system;
// JoinedGroups on the record is the rejoin source after a reconnect.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

func userKey(username string) []byte {
	return []byte("user:" + username)
}

func (u UserRepository) CreateUser(user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return u.db.Update(func(txn *badger.Txn) error {
		key := userKey(user.Username)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
}

func (u UserRepository) GetUser(username string) (domain.User, error) {
	var user domain.User

	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// UpdateUser overwrites the stored record. The caller is expected to
// have loaded it first.
func (u UserRepository) UpdateUser(user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(user.Username), data)
	})
}
