package domain

import (
	"math"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleReviewer  Role = "REVIEWER"
	RoleSubmitter Role = "SUBMITTER"
	RoleUser      Role = "USER"
)

func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdmin, RoleReviewer, RoleSubmitter, RoleUser:
		return Role(value), true
	}
	return "", false
}

type ItemStatus string

const (
	StatusDraft     ItemStatus = "DRAFT"
	StatusInReview  ItemStatus = "IN_REVIEW"
	StatusPublished ItemStatus = "PUBLISHED"
	StatusRejected  ItemStatus = "REJECTED"
)

func ParseItemStatus(value string) (ItemStatus, bool) {
	switch ItemStatus(value) {
	case StatusDraft, StatusInReview, StatusPublished, StatusRejected:
		return ItemStatus(value), true
	}
	return "", false
}

type Community struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ParentID    *uint     `json:"parent_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CommunitySummary struct {
	Community
	SubCommunityCount int64 `json:"sub_community_count"`
	CollectionCount   int64 `json:"collection_count"`
}

type CommunityDetail struct {
	Community
	SubCommunities []Community         `json:"sub_communities"`
	Collections    []CollectionSummary `json:"collections"`
}

type Collection struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CommunityID uint      `json:"community_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CollectionSummary struct {
	Collection
	ItemCount int64 `json:"item_count"`
}

type Item struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	Status       ItemStatus `json:"status"`
	CollectionID uint       `json:"collection_id"`
	SubmitterID  uint       `json:"submitter_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ItemDetail is an item together with everything it owns.
type ItemDetail struct {
	Item
	CollectionName string          `json:"collection_name"`
	SubmitterName  string          `json:"submitter_name"`
	Metadata       []MetadataField `json:"metadata"`
	Bitstreams     []Bitstream     `json:"bitstreams"`
}

// ItemListing is the row shape used by search, browse and queues.
type ItemListing struct {
	Item
	CollectionName string `json:"collection_name"`
	Abstract       string `json:"abstract"`
}

type MetadataField struct {
	ID     uint   `json:"id"`
	ItemID uint   `json:"item_id"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

type MetadataUpdate struct {
	ID    uint   `json:"id"`
	Value string `json:"value"`
}

type Bitstream struct {
	ID            uint      `json:"id"`
	ItemID        uint      `json:"item_id"`
	Name          string    `json:"name"`
	MimeType      string    `json:"mime_type"`
	Size          int64     `json:"size"`
	StorageKey    string    `json:"-"`
	DownloadCount int64     `json:"download_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type User struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type APIToken struct {
	ID        uint
	UserID    uint
	Name      string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Identity is the authenticated actor of a request.
type Identity struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

type AuditLog struct {
	ID          uint
	ActorUserID *uint
	Action      string
	TargetType  string
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

type AuditRecord struct {
	ID            uint      `json:"id"`
	ActorUserID   *uint     `json:"actor_user_id"`
	ActorUsername string    `json:"actor_username"`
	Action        string    `json:"action"`
	TargetType    string    `json:"target_type"`
	TargetID      *uint     `json:"target_id"`
	Metadata      string    `json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
}

type Page[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
}

func NewPage[T any](items []T, total int64, page, size int) Page[T] {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, CurrentPage: page, TotalPages: pages}
}

// PageOffset is the index of the first row on page. It saturates at
// math.MaxInt for pages too large to address.
func PageOffset(page, size int) int {
	if page < 1 || size < 1 {
		return 0
	}
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}
