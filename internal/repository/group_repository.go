package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studysync/studysync-api/internal/models"
)

// GroupRepository manages persistence for study groups and their members.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `g.id, g.name, g.subject, g.description, g.created_by, g.created_at, g.updated_at,
        (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id) AS member_count`

// List returns groups matching the provided filters.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.StudyGroup, int, error) {
	baseQuery := `FROM study_groups g WHERE 1=1`
	var args []interface{}
	var conditions []string

	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(g.subject) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Subject))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(g.name) LIKE $%d OR LOWER(g.subject) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.MemberID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = $%d)", len(args)+1))
		args = append(args, filter.MemberID)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":       "g.name",
		"subject":    "g.subject",
		"created_at": "g.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "g.created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", groupColumns, baseQuery, column, sortOrder, pageSize, offset)

	var groups []models.StudyGroup
	if err := r.db.SelectContext(ctx, &groups, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}

	return groups, total, nil
}

// FindByID fetches a group by ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.StudyGroup, error) {
	query := fmt.Sprintf("SELECT %s FROM study_groups g WHERE g.id = $1 LIMIT 1", groupColumns)
	var group models.StudyGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find group by id: %w", err)
	}
	return &group, nil
}

// Create inserts a new group.
func (r *GroupRepository) Create(ctx context.Context, group *models.StudyGroup) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	const query = `INSERT INTO study_groups (id, name, subject, description, created_by, created_at, updated_at)
        VALUES (:id, :name, :subject, :description, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// Update modifies an existing group.
func (r *GroupRepository) Update(ctx context.Context, group *models.StudyGroup) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE study_groups SET name = :name, subject = :subject, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// Delete removes a group and its memberships.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM study_groups WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// ListMembers returns the members of a group ordered by join time.
func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	const query = `SELECT id, group_id, user_id, role, joined_at FROM group_members WHERE group_id = $1 ORDER BY joined_at ASC`
	var members []models.GroupMember
	if err := r.db.SelectContext(ctx, &members, query, groupID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return members, nil
}

// FindMember returns a user's membership row if present.
func (r *GroupRepository) FindMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	const query = `SELECT id, group_id, user_id, role, joined_at FROM group_members WHERE group_id = $1 AND user_id = $2 LIMIT 1`
	var member models.GroupMember
	if err := r.db.GetContext(ctx, &member, query, groupID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find group member: %w", err)
	}
	return &member, nil
}

// AddMember inserts a membership row.
func (r *GroupRepository) AddMember(ctx context.Context, member *models.GroupMember) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO group_members (id, group_id, user_id, role, joined_at) VALUES (:id, :group_id, :user_id, :role, :joined_at)`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	const query = `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}
