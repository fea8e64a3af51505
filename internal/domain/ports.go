package domain

import (
	"context"
	"io"
	"time"
)

// Repository is the persistence port. Implementations return ErrNotFound
// for missing rows.
type Repository interface {
	// InTx runs fn against a repository bound to one transaction. The
	// transaction commits when fn returns nil.
	InTx(ctx context.Context, fn func(tx Repository) error) error

	CreateCommunity(ctx context.Context, value Community) (Community, error)
	UpdateCommunity(ctx context.Context, value Community) (Community, error)
	GetCommunity(ctx context.Context, id uint) (Community, error)
	ListCommunities(ctx context.Context) ([]Community, error)
	ListRootCommunities(ctx context.Context) ([]CommunitySummary, error)
	ListSubCommunities(ctx context.Context, parentID uint) ([]Community, error)
	CountCommunityChildren(ctx context.Context, id uint) (subCommunities, collections int64, err error)
	DeleteCommunity(ctx context.Context, id uint) error

	CreateCollection(ctx context.Context, value Collection) (Collection, error)
	UpdateCollection(ctx context.Context, value Collection) (Collection, error)
	GetCollection(ctx context.Context, id uint) (Collection, error)
	// ListCollections counts published items only.
	ListCollections(ctx context.Context, communityID *uint) ([]CollectionSummary, error)
	CountCollectionItems(ctx context.Context, id uint) (int64, error)
	DeleteCollection(ctx context.Context, id uint) error

	CreateItem(ctx context.Context, value Item) (Item, error)
	UpdateItem(ctx context.Context, value Item) (Item, error)
	RenameItem(ctx context.Context, id uint, title string) error
	// SetItemStatus only applies while the stored status still equals from.
	SetItemStatus(ctx context.Context, id uint, from, to ItemStatus) (Item, error)
	GetItem(ctx context.Context, id uint) (Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]ItemListing, int64, error)
	SearchItems(ctx context.Context, query SearchQuery) ([]ItemListing, int64, error)
	DeleteItem(ctx context.Context, id uint) error
	ItemCreationTimes(ctx context.Context, status ItemStatus) ([]time.Time, error)

	CreateMetadata(ctx context.Context, value MetadataField) (MetadataField, error)
	GetMetadata(ctx context.Context, id uint) (MetadataField, error)
	UpdateMetadataValue(ctx context.Context, id uint, value string) error
	DeleteMetadata(ctx context.Context, id uint) error
	DeleteItemMetadata(ctx context.Context, itemID uint) error
	ListMetadata(ctx context.Context, itemID uint) ([]MetadataField, error)
	PublishedMetadataValues(ctx context.Context, key string) ([]string, error)
	// IssuedYearBounds reads the 4-digit year prefix of dc.date.issued.
	IssuedYearBounds(ctx context.Context) (minYear, maxYear *int, err error)
	// IssuedYearHistogram only counts full YYYY-MM-DD values.
	IssuedYearHistogram(ctx context.Context, limit int) ([]YearCount, error)

	CreateBitstream(ctx context.Context, value Bitstream) (Bitstream, error)
	GetBitstream(ctx context.Context, id uint) (Bitstream, error)
	ListBitstreams(ctx context.Context, itemID uint) ([]Bitstream, error)
	DeleteBitstream(ctx context.Context, id uint) error
	DeleteItemBitstreams(ctx context.Context, itemID uint) error
	IncrementDownloads(ctx context.Context, id uint) error
	PublishedBitstreams(ctx context.Context) ([]Bitstream, error)
	TopDownloadedItems(ctx context.Context, limit int) ([]ItemDownloads, error)
	CollectionActivity(ctx context.Context) ([]CollectionActivity, error)
	CountSummary(ctx context.Context) (StatsSummary, error)

	CreateUser(ctx context.Context, value User) (User, error)
	UpdateUser(ctx context.Context, value User) (User, error)
	GetUserByID(ctx context.Context, id uint) (User, error)
	GetUserByLogin(ctx context.Context, login string) (User, error)
	ListUsers(ctx context.Context, query string, limit int) ([]User, error)
	DeleteUser(ctx context.Context, id uint) error
	CountUsers(ctx context.Context) (int64, error)

	CreateAPIToken(ctx context.Context, value APIToken) (APIToken, error)
	GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (APIToken, error)
	DeleteAPITokenByTokenHash(ctx context.Context, tokenHash string) error

	CreateAuditLog(ctx context.Context, value AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]AuditRecord, error)
}

// FileStore keeps bitstream content addressed by an opaque storage key.
type FileStore interface {
	Store(ctx context.Context, name string, r io.Reader) (key string, size int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// SessionSigner issues and verifies browser session tokens.
type SessionSigner interface {
	Issue(identity Identity) (string, error)
	Parse(token string) (Identity, error)
}
