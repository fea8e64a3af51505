package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

func (r *Repository) CreateUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{
		Name:         value.Name,
		Email:        strings.ToLower(strings.TrimSpace(value.Email)),
		Username:     strings.TrimSpace(value.Username),
		PasswordHash: value.PasswordHash,
		Role:         string(value.Role),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.User{}, internal(err)
	}
	return m.toDomain(), nil
}

func (r *Repository) UpdateUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{
		ID:           value.ID,
		Name:         value.Name,
		Email:        strings.ToLower(strings.TrimSpace(value.Email)),
		Username:     strings.TrimSpace(value.Username),
		PasswordHash: value.PasswordHash,
		Role:         string(value.Role),
	}
	res := r.db.WithContext(ctx).Model(&m).
		Select("name", "email", "username", "password_hash", "role", "updated_at").
		Updates(&m)
	if err := affected(res, "user"); err != nil {
		return domain.User{}, err
	}
	return r.GetUserByID(ctx, value.ID)
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.User{}, notFound(err, "user")
	}
	return m.toDomain(), nil
}

// GetUserByLogin matches the username or the email, ignoring case.
func (r *Repository) GetUserByLogin(ctx context.Context, login string) (domain.User, error) {
	login = strings.TrimSpace(login)
	var m UserModel
	err := r.db.WithContext(ctx).
		Where("lower(username) = lower(?) OR email = ?", login, strings.ToLower(login)).
		First(&m).Error
	if err != nil {
		return domain.User{}, notFound(err, "user")
	}
	return m.toDomain(), nil
}

func (r *Repository) ListUsers(ctx context.Context, query string, limit int) ([]domain.User, error) {
	q := r.db.WithContext(ctx).Model(&UserModel{})
	if strings.TrimSpace(query) != "" {
		like := "%" + strings.TrimSpace(query) + "%"
		q = q.Where("email LIKE ? OR username LIKE ? OR name LIKE ?", like, like, like)
	}
	rows := make([]UserModel, 0)
	if err := q.Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, internal(err)
	}
	result := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) DeleteUser(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&UserModel{}, id), "user")
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&count).Error
	return count, internal(err)
}

func (r *Repository) CreateAPIToken(ctx context.Context, value domain.APIToken) (domain.APIToken, error) {
	m := APITokenModel{UserID: value.UserID, Name: value.Name, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.APIToken{}, internal(err)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (domain.APIToken, error) {
	var m APITokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.APIToken{}, notFound(err, "token")
	}
	return m.toDomain(), nil
}

func (r *Repository) DeleteAPITokenByTokenHash(ctx context.Context, tokenHash string) error {
	return internal(r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&APITokenModel{}).Error)
}

func (r *Repository) CreateAuditLog(ctx context.Context, value domain.AuditLog) error {
	m := AuditLogModel{
		ActorUserID: value.ActorUserID,
		Action:      value.Action,
		TargetType:  value.TargetType,
		TargetID:    value.TargetID,
		Metadata:    value.Metadata,
	}
	return internal(r.db.WithContext(ctx).Create(&m).Error)
}

func (r *Repository) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	type row struct {
		ID            uint
		ActorUserID   *uint
		ActorUsername string
		Action        string
		TargetType    string
		TargetID      *uint
		Metadata      string
		CreatedAt     time.Time
	}
	rows := make([]row, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT a.id,
       a.actor_user_id,
       COALESCE(u.username, '') AS actor_username,
       a.action,
       a.target_type,
       a.target_id,
       a.metadata,
       a.created_at
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_user_id
ORDER BY a.id DESC
LIMIT ?
`, limit).Scan(&rows).Error
	if err != nil {
		return nil, internal(err)
	}
	result := make([]domain.AuditRecord, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.AuditRecord{
			ID:            m.ID,
			ActorUserID:   m.ActorUserID,
			ActorUsername: m.ActorUsername,
			Action:        m.Action,
			TargetType:    m.TargetType,
			TargetID:      m.TargetID,
			Metadata:      m.Metadata,
			CreatedAt:     m.CreatedAt,
		})
	}
	return result, nil
}
