//go:generate go run go.uber.org/mock/mockgen -source=group_service.go -destination=../mocks/mock_group_service.go -package=mocks
package services

import (
	"log/slog"

	"github.com/samber/lo"

	"converse/domain"
	"converse/errors"
	"converse/repositories"
)

type IGroupService interface {
	CreateGroup(name, creatorID string) (domain.Group, error)
	DeleteGroup(groupID, callerID string) error
	AddMember(groupID, callerID, userID string) error
	RemoveMember(groupID, callerID, userID string) error
	PromoteAdmin(groupID, callerID, userID string) error
	GetGroup(groupID string) (domain.Group, error)
	UserGroups(userID string) ([]domain.Group, error)
}

// GroupService owns the persisted roster. Membership changes are
// mirrored into each member's JoinedGroups list, which is what channel
// rejoin reads on reconnect.
type GroupService struct {
	log    *slog.Logger
	groups repositories.IGroupRepository
	users  repositories.IUserRepository
}

func NewGroupService(log *slog.Logger, groups repositories.IGroupRepository, users repositories.IUserRepository) *GroupService {
	return &GroupService{log: log, groups: groups, users: users}
}

func (s *GroupService) CreateGroup(name, creatorID string) (domain.Group, error) {
	if name == "" || creatorID == "" {
		return domain.Group{}, errors.ErrEmptyIdentifier
	}
	creator, err := s.users.GetUser(creatorID)
	if err != nil {
		return domain.Group{}, err
	}

	group := domain.NewGroup(name, creatorID)
	if err := s.groups.CreateGroup(group); err != nil {
		return domain.Group{}, err
	}

	creator.JoinedGroups = append(creator.JoinedGroups, group.ID)
	if err := s.users.UpdateUser(creator); err != nil {
		return domain.Group{}, err
	}
	s.log.Info("group created", "group", group.ID, "creator", creatorID)
	return group, nil
}

func (s *GroupService) DeleteGroup(groupID, callerID string) error {
	group, err := s.groups.GetGroup(groupID)
	if err != nil {
		return err
	}
	if !group.HasAdmin(callerID) {
		return errors.ErrNotGroupAdmin
	}

	for _, member := range group.Members {
		if err := s.forgetGroup(member, groupID); err != nil {
			s.log.Warn("could not update member on group delete", "member", member, "error", err)
		}
	}
	return s.groups.DeleteGroup(groupID)
}

func (s *GroupService) AddMember(groupID, callerID, userID string) error {
	group, err := s.groups.GetGroup(groupID)
	if err != nil {
		return err
	}
	if !group.HasAdmin(callerID) {
		return errors.ErrNotGroupAdmin
	}
	user, err := s.users.GetUser(userID)
	if err != nil {
		return err
	}

	group.AddMember(userID)
	if err := s.groups.UpdateGroup(group); err != nil {
		return err
	}

	if !user.IsMemberOf(groupID) {
		user.JoinedGroups = append(user.JoinedGroups, groupID)
		return s.users.UpdateUser(user)
	}
	return nil
}

// RemoveMember is allowed for admins, or for a member removing itself
// (leaving the group).
func (s *GroupService) RemoveMember(groupID, callerID, userID string) error {
	group, err := s.groups.GetGroup(groupID)
	if err != nil {
		return err
	}
	if !group.HasAdmin(callerID) && callerID != userID {
		return errors.ErrNotGroupAdmin
	}
	if !group.HasMember(userID) {
		return errors.ErrNotGroupMember
	}

	group.RemoveMember(userID)
	if err := s.groups.UpdateGroup(group); err != nil {
		return err
	}
	return s.forgetGroup(userID, groupID)
}

func (s *GroupService) PromoteAdmin(groupID, callerID, userID string) error {
	group, err := s.groups.GetGroup(groupID)
	if err != nil {
		return err
	}
	if !group.HasAdmin(callerID) {
		return errors.ErrNotGroupAdmin
	}
	if !group.PromoteAdmin(userID) {
		return errors.ErrNotGroupMember
	}
	return s.groups.UpdateGroup(group)
}

func (s *GroupService) GetGroup(groupID string) (domain.Group, error) {
	return s.groups.GetGroup(groupID)
}

// UserGroups resolves the rejoin list. Dangling ids (deleted groups)
// are skipped, not treated as errors.
func (s *GroupService) UserGroups(userID string) ([]domain.Group, error) {
	user, err := s.users.GetUser(userID)
	if err != nil {
		return nil, err
	}

	var groups []domain.Group
	for _, groupID := range user.JoinedGroups {
		group, err := s.groups.GetGroup(groupID)
		if err != nil {
			continue
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *GroupService) forgetGroup(userID, groupID string) error {
	user, err := s.users.GetUser(userID)
	if err != nil {
		return err
	}
	user.JoinedGroups = lo.Without(user.JoinedGroups, groupID)
	return s.users.UpdateUser(user)
}
