//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"converse/domain"
	"converse/errors"
)

type IGroupRepository interface {
	CreateGroup(group domain.Group) error
	GetGroup(groupID string) (domain.Group, error)
	UpdateGroup(group domain.Group) error
	DeleteGroup(groupID string) error
}

// GroupRepository persists the group roster under "group:{id}".
type GroupRepository struct {
	db *badger.DB
}

func NewGroupRepository(db *badger.DB) IGroupRepository {
	return &GroupRepository{db: db}
}

func groupKey(groupID string) []byte {
	return []byte("group:" + groupID)
}

func (g GroupRepository) CreateGroup(group domain.Group) error {
	data, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return g.db.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(group.ID), data)
	})
}

func (g GroupRepository) GetGroup(groupID string) (domain.Group, error) {
	var group domain.Group

	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(groupKey(groupID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &group)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

func (g GroupRepository) UpdateGroup(group domain.Group) error {
	data, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return g.db.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(group.ID), data)
	})
}

func (g GroupRepository) DeleteGroup(groupID string) error {
	return g.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(groupKey(groupID))
	})
}
