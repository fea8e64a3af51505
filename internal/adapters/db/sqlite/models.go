package sqlite

import (
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"not null;default:''"`
	Email        string `gorm:"not null;uniqueIndex"`
	Username     string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:'USER'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type APITokenModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (APITokenModel) TableName() string { return "api_tokens" }

type CommunityModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string `gorm:"not null;default:''"`
	ParentID    *uint  `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CommunityModel) TableName() string { return "communities" }

type CollectionModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string `gorm:"not null;default:''"`
	CommunityID uint   `gorm:"not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CollectionModel) TableName() string { return "collections" }

type ItemModel struct {
	ID           uint   `gorm:"primaryKey"`
	Title        string `gorm:"not null"`
	Status       string `gorm:"not null;index;default:'DRAFT'"`
	CollectionID uint   `gorm:"not null;index"`
	SubmitterID  uint   `gorm:"not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ItemModel) TableName() string { return "items" }

type MetadataFieldModel struct {
	ID     uint   `gorm:"primaryKey"`
	ItemID uint   `gorm:"not null;index"`
	Key    string `gorm:"not null;index"`
	Value  string `gorm:"not null;default:''"`
}

func (MetadataFieldModel) TableName() string { return "metadata_fields" }

type BitstreamModel struct {
	ID            uint   `gorm:"primaryKey"`
	ItemID        uint   `gorm:"not null;index"`
	Name          string `gorm:"not null"`
	MimeType      string `gorm:"not null"`
	Size          int64  `gorm:"not null;default:0"`
	StorageKey    string `gorm:"not null;uniqueIndex"`
	DownloadCount int64  `gorm:"not null;default:0"`
	CreatedAt     time.Time
}

func (BitstreamModel) TableName() string { return "bitstreams" }

type AuditLogModel struct {
	ID          uint `gorm:"primaryKey"`
	ActorUserID *uint
	Action      string `gorm:"not null;index"`
	TargetType  string `gorm:"not null;index"`
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

func (AuditLogModel) TableName() string { return "audit_logs" }

func (m UserModel) toDomain() domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (m APITokenModel) toDomain() domain.APIToken {
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}
}

func (m CommunityModel) toDomain() domain.Community {
	return domain.Community{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		ParentID:    m.ParentID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (m CollectionModel) toDomain() domain.Collection {
	return domain.Collection{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CommunityID: m.CommunityID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (m ItemModel) toDomain() domain.Item {
	return domain.Item{
		ID:           m.ID,
		Title:        m.Title,
		Status:       domain.ItemStatus(m.Status),
		CollectionID: m.CollectionID,
		SubmitterID:  m.SubmitterID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (m MetadataFieldModel) toDomain() domain.MetadataField {
	return domain.MetadataField{ID: m.ID, ItemID: m.ItemID, Key: m.Key, Value: m.Value}
}

func (m BitstreamModel) toDomain() domain.Bitstream {
	return domain.Bitstream{
		ID:            m.ID,
		ItemID:        m.ItemID,
		Name:          m.Name,
		MimeType:      m.MimeType,
		Size:          m.Size,
		StorageKey:    m.StorageKey,
		DownloadCount: m.DownloadCount,
		CreatedAt:     m.CreatedAt,
	}
}
