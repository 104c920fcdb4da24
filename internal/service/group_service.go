package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
	appErrors "github.com/studysync/studysync-api/pkg/errors"
)

type groupRepository interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.StudyGroup, int, error)
	FindByID(ctx context.Context, id string) (*models.StudyGroup, error)
	Create(ctx context.Context, group *models.StudyGroup) error
	Update(ctx context.Context, group *models.StudyGroup) error
	Delete(ctx context.Context, id string) error
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	FindMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	AddMember(ctx context.Context, member *models.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID string) error
}

// CreateGroupRequest holds payload for creating a study group.
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required"`
	Subject     string  `json:"subject" validate:"required"`
	Description *string `json:"description"`
}

// UpdateGroupRequest holds payload for updating a study group.
type UpdateGroupRequest struct {
	Name        string  `json:"name" validate:"required"`
	Subject     string  `json:"subject" validate:"required"`
	Description *string `json:"description"`
}

// GroupService handles study group and membership use-cases.
type GroupService struct {
	repo      groupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs the group service.
func NewGroupService(repo groupRepository, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, validator: validate, logger: logger}
}

// List returns study groups and pagination metadata.
func (s *GroupService) List(ctx context.Context, filter models.GroupFilter) ([]models.StudyGroup, *models.Pagination, error) {
	groups, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return groups, pagination, nil
}

// Get returns a study group by ID.
func (s *GroupService) Get(ctx context.Context, id string) (*models.StudyGroup, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

// Create makes a new group and enrolls the creator as its owner member.
func (s *GroupService) Create(ctx context.Context, userID string, req CreateGroupRequest) (*models.StudyGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	group := &models.StudyGroup{
		Name:        req.Name,
		Subject:     req.Subject,
		Description: req.Description,
		CreatedBy:   userID,
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	owner := &models.GroupMember{GroupID: group.ID, UserID: userID, Role: models.GroupRoleOwner}
	if err := s.repo.AddMember(ctx, owner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll group owner")
	}
	group.MemberCount = 1
	return group, nil
}

// Update modifies a group; only the owner may update.
func (s *GroupService) Update(ctx context.Context, userID, id string, req UpdateGroupRequest) (*models.StudyGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	group, err := s.requireOwner(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	group.Name = req.Name
	group.Subject = req.Subject
	group.Description = req.Description
	if err := s.repo.Update(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}
	return group, nil
}

// Delete removes a group; only the owner may delete.
func (s *GroupService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.requireOwner(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	return nil
}

// Members returns the group's membership list.
func (s *GroupService) Members(ctx context.Context, id string) ([]models.GroupMember, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group members")
	}
	return members, nil
}

// Join adds the user to a group as a regular member.
func (s *GroupService) Join(ctx context.Context, userID, id string) (*models.GroupMember, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindMember(ctx, id, userID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyMember, "")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	member := &models.GroupMember{GroupID: id, UserID: userID, Role: models.GroupRoleMember}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join group")
	}
	return member, nil
}

// Leave removes the user's membership. The owner cannot leave their own
// group; they delete it instead.
func (s *GroupService) Leave(ctx context.Context, userID, id string) error {
	member, err := s.repo.FindMember(ctx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotMember, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if member.Role == models.GroupRoleOwner {
		return appErrors.Clone(appErrors.ErrForbidden, "group owner cannot leave; delete the group instead")
	}
	if err := s.repo.RemoveMember(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave group")
	}
	return nil
}

func (s *GroupService) requireOwner(ctx context.Context, userID, id string) (*models.StudyGroup, error) {
	group, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if group.CreatedBy != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the group owner may modify the group")
	}
	return group, nil
}
