package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
	appErrors "github.com/studysync/studysync-api/pkg/errors"
)

type mockGroupRepo struct {
	groups  map[string]*models.StudyGroup
	members map[string]*models.GroupMember
}

func memberKey(groupID, userID string) string { return groupID + "/" + userID }

func (m *mockGroupRepo) List(ctx context.Context, filter models.GroupFilter) ([]models.StudyGroup, int, error) {
	var out []models.StudyGroup
	for _, g := range m.groups {
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (m *mockGroupRepo) FindByID(ctx context.Context, id string) (*models.StudyGroup, error) {
	if g, ok := m.groups[id]; ok {
		copy := *g
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) Create(ctx context.Context, group *models.StudyGroup) error {
	if m.groups == nil {
		m.groups = make(map[string]*models.StudyGroup)
	}
	if group.ID == "" {
		group.ID = "generated-group"
	}
	copy := *group
	m.groups[group.ID] = &copy
	return nil
}

func (m *mockGroupRepo) Update(ctx context.Context, group *models.StudyGroup) error {
	copy := *group
	m.groups[group.ID] = &copy
	return nil
}

func (m *mockGroupRepo) Delete(ctx context.Context, id string) error {
	delete(m.groups, id)
	return nil
}

func (m *mockGroupRepo) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	var out []models.GroupMember
	for _, member := range m.members {
		if member.GroupID == groupID {
			out = append(out, *member)
		}
	}
	return out, nil
}

func (m *mockGroupRepo) FindMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	if member, ok := m.members[memberKey(groupID, userID)]; ok {
		copy := *member
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) AddMember(ctx context.Context, member *models.GroupMember) error {
	if m.members == nil {
		m.members = make(map[string]*models.GroupMember)
	}
	copy := *member
	m.members[memberKey(member.GroupID, member.UserID)] = &copy
	return nil
}

func (m *mockGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	delete(m.members, memberKey(groupID, userID))
	return nil
}

func TestGroupServiceCreateEnrollsOwner(t *testing.T) {
	repo := &mockGroupRepo{}
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	group, err := svc.Create(context.Background(), "user-1", CreateGroupRequest{Name: "Calc crew", Subject: "Mathematics"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", group.CreatedBy)
	assert.Equal(t, 1, group.MemberCount)

	member, err := repo.FindMember(context.Background(), group.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.GroupRoleOwner, member.Role)
}

func TestGroupServiceJoinTwiceConflicts(t *testing.T) {
	repo := &mockGroupRepo{groups: map[string]*models.StudyGroup{
		"g1": {ID: "g1", Name: "Crew", Subject: "Math", CreatedBy: "owner"},
	}}
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	_, err := svc.Join(context.Background(), "user-2", "g1")
	require.NoError(t, err)

	_, err = svc.Join(context.Background(), "user-2", "g1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyMember.Code, appErr.Code)
}

func TestGroupServiceLeave(t *testing.T) {
	repo := &mockGroupRepo{
		groups: map[string]*models.StudyGroup{
			"g1": {ID: "g1", Name: "Crew", Subject: "Math", CreatedBy: "owner"},
		},
		members: map[string]*models.GroupMember{
			memberKey("g1", "owner"):  {GroupID: "g1", UserID: "owner", Role: models.GroupRoleOwner},
			memberKey("g1", "user-2"): {GroupID: "g1", UserID: "user-2", Role: models.GroupRoleMember},
		},
	}
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Leave(context.Background(), "user-2", "g1"))
	_, err := repo.FindMember(context.Background(), "g1", "user-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGroupServiceOwnerCannotLeave(t *testing.T) {
	repo := &mockGroupRepo{
		groups: map[string]*models.StudyGroup{
			"g1": {ID: "g1", Name: "Crew", Subject: "Math", CreatedBy: "owner"},
		},
		members: map[string]*models.GroupMember{
			memberKey("g1", "owner"): {GroupID: "g1", UserID: "owner", Role: models.GroupRoleOwner},
		},
	}
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	err := svc.Leave(context.Background(), "owner", "g1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestGroupServiceLeaveNotMember(t *testing.T) {
	repo := &mockGroupRepo{groups: map[string]*models.StudyGroup{
		"g1": {ID: "g1", Name: "Crew", Subject: "Math", CreatedBy: "owner"},
	}}
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	err := svc.Leave(context.Background(), "stranger", "g1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotMember.Code, appErr.Code)
}

func TestGroupServiceUpdateRequiresOwner(t *testing.T) {
	repo := &mockGroupRepo{groups: map[string]*models.StudyGroup{
		"g1": {ID: "g1", Name: "Crew", Subject: "Math", CreatedBy: "owner"},
	}}
	svc := NewGroupService(repo, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "user-2", "g1", UpdateGroupRequest{Name: "New", Subject: "Math"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
