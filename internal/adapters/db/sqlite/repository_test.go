package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	db, err := Open(filepath.Join(t.TempDir(), "rdmc_test.db"))
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(db)
}

type fixture struct {
	repo       *Repository
	submitter  domain.User
	community  domain.Community
	collection domain.Collection
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	repo := newTestRepository(t)

	user, err := repo.CreateUser(ctx, domain.User{Name: "Sam", Email: "sam@example.org", Username: "sam", PasswordHash: "x", Role: domain.RoleSubmitter})
	require.NoError(t, err)
	community, err := repo.CreateCommunity(ctx, domain.Community{Name: "Research"})
	require.NoError(t, err)
	collection, err := repo.CreateCollection(ctx, domain.Collection{Name: "Reports", CommunityID: community.ID})
	require.NoError(t, err)

	return fixture{repo: repo, submitter: user, community: community, collection: collection}
}

// item creates an item with one metadata row per pair of keys and values.
func (f fixture) item(t *testing.T, title string, status domain.ItemStatus, fields ...string) domain.Item {
	t.Helper()
	ctx := context.Background()
	item, err := f.repo.CreateItem(ctx, domain.Item{Title: title, Status: status, CollectionID: f.collection.ID, SubmitterID: f.submitter.ID})
	require.NoError(t, err)
	require.Zero(t, len(fields)%2)
	for i := 0; i < len(fields); i += 2 {
		_, err := f.repo.CreateMetadata(ctx, domain.MetadataField{ItemID: item.ID, Key: fields[i], Value: fields[i+1]})
		require.NoError(t, err)
	}
	return item
}

func (f fixture) bitstream(t *testing.T, itemID uint, key string, downloads int64, at time.Time) domain.Bitstream {
	t.Helper()
	b, err := f.repo.CreateBitstream(context.Background(), domain.Bitstream{
		ItemID:        itemID,
		Name:          key + ".pdf",
		MimeType:      "application/pdf",
		Size:          10,
		StorageKey:    key,
		DownloadCount: downloads,
		CreatedAt:     at,
	})
	require.NoError(t, err)
	return b
}

func TestSearchOnlyReturnsPublishedItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	published := f.item(t, "Water quality survey", domain.StatusPublished, domain.KeyAuthor, "Doe, Jane")
	f.item(t, "Water quality draft", domain.StatusDraft, domain.KeyAuthor, "Doe, Jane")
	f.item(t, "Water quality pending", domain.StatusInReview)
	f.item(t, "Water quality rejected", domain.StatusRejected)

	query, err := domain.SearchQuery{Text: "water"}.Normalize()
	require.NoError(t, err)
	items, total, err := f.repo.SearchItems(ctx, query)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, published.ID, items[0].ID)
	assert.Equal(t, "Reports", items[0].CollectionName)

	query, err = domain.SearchQuery{Facet: domain.FieldAuthor, FacetValue: "jane"}.Normalize()
	require.NoError(t, err)
	items, total, err = f.repo.SearchItems(ctx, query)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, published.ID, items[0].ID)

	values, err := f.repo.PublishedMetadataValues(ctx, domain.KeyAuthor)
	require.NoError(t, err)
	assert.Equal(t, []string{"Doe, Jane"}, values)
}

func TestSearchMatchesMetadataAndAbstract(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	item := f.item(t, "Annual report", domain.StatusPublished,
		domain.KeySubject, "Hydrology; Climate",
		domain.KeyAbstract, "Rivers across the region")
	f.item(t, "Other report", domain.StatusPublished, domain.KeySubject, "Economics")

	query, err := domain.SearchQuery{Text: "hydro"}.Normalize()
	require.NoError(t, err)
	items, total, err := f.repo.SearchItems(ctx, query)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, item.ID, items[0].ID)
	assert.Equal(t, "Rivers across the region", items[0].Abstract)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.item(t, "Growth of 50% in yields", domain.StatusPublished)
	f.item(t, "Growth of 500 units", domain.StatusPublished)

	query, err := domain.SearchQuery{Text: "50%"}.Normalize()
	require.NoError(t, err)
	items, _, err := f.repo.SearchItems(ctx, query)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Growth of 50% in yields", items[0].Title)
}

func TestAdvancedSearchFoldsRowsLeftToRight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	climate := f.item(t, "Climate models", domain.StatusPublished, domain.KeyAuthor, "Smith, John", domain.KeySubject, "Climate")
	ocean := f.item(t, "Ocean currents", domain.StatusPublished, domain.KeyAuthor, "Smith, John", domain.KeySubject, "Oceans")
	f.item(t, "Soil samples", domain.StatusPublished, domain.KeyAuthor, "Doe, Jane", domain.KeySubject, "Soil")

	search := func(rows ...domain.QueryRow) []uint {
		t.Helper()
		query, err := domain.SearchQuery{Rows: rows}.Normalize()
		require.NoError(t, err)
		items, _, err := f.repo.SearchItems(ctx, query)
		require.NoError(t, err)
		ids := make([]uint, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		return ids
	}

	smith := domain.QueryRow{Field: domain.FieldAuthor, Operator: domain.MatchContains, Value: "smith"}

	assert.ElementsMatch(t, []uint{climate.ID, ocean.ID}, search(smith))
	assert.ElementsMatch(t, []uint{ocean.ID}, search(smith,
		domain.QueryRow{Join: domain.OpNot, Field: domain.FieldSubject, Operator: domain.MatchEquals, Value: "climate"}))
	assert.ElementsMatch(t, []uint{climate.ID}, search(smith,
		domain.QueryRow{Join: domain.OpAnd, Field: domain.FieldTitle, Operator: domain.MatchStartsWith, Value: "clim"}))
	assert.Len(t, search(
		domain.QueryRow{Field: domain.FieldTitle, Operator: domain.MatchEquals, Value: "soil samples"},
		domain.QueryRow{Join: domain.OpOr, Field: domain.FieldAny, Operator: domain.MatchContains, Value: "oceans"},
	), 2)
}

func TestDateRangeSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	inRange := f.item(t, "Old", domain.StatusPublished, domain.KeyDateIssued, "2015-06-01")
	f.item(t, "New", domain.StatusPublished, domain.KeyDateIssued, "2021-01-01")

	query, err := domain.SearchQuery{StartYear: 2010, EndYear: 2015}.Normalize()
	require.NoError(t, err)
	items, total, err := f.repo.SearchItems(ctx, query)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, inRange.ID, items[0].ID)
}

func TestItemDeleteRemovesOnlyItsOwnRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	doomed := f.item(t, "Doomed", domain.StatusDraft, domain.KeyTitle, "Doomed", domain.KeySubject, "a")
	kept := f.item(t, "Kept", domain.StatusDraft, domain.KeyTitle, "Kept")
	f.bitstream(t, doomed.ID, "doomed-1", 0, time.Now().UTC())
	keptFile := f.bitstream(t, kept.ID, "kept-1", 0, time.Now().UTC())

	err := f.repo.InTx(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteItemBitstreams(ctx, doomed.ID); err != nil {
			return err
		}
		if err := tx.DeleteItemMetadata(ctx, doomed.ID); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, doomed.ID)
	})
	require.NoError(t, err)

	_, err = f.repo.GetItem(ctx, doomed.ID)
	require.True(t, domain.ErrNotFound.Has(err))
	fields, err := f.repo.ListMetadata(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, fields)

	fields, err = f.repo.ListMetadata(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, fields, 1)
	files, err := f.repo.ListBitstreams(ctx, kept.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, keptFile.ID, files[0].ID)
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	item := f.item(t, "Item", domain.StatusDraft, domain.KeyTitle, "Original", domain.KeySubject, "Original")
	fields, err := f.repo.ListMetadata(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, fields, 2)

	boom := errors.New("boom")
	err = f.repo.InTx(ctx, func(tx domain.Repository) error {
		if err := tx.UpdateMetadataValue(ctx, fields[0].ID, "Changed"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := f.repo.GetMetadata(ctx, fields[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Value)
}

func TestUpdateMissingRowsReportNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.repo.UpdateMetadataValue(ctx, 999, "x")
	require.True(t, domain.ErrNotFound.Has(err))

	_, err = f.repo.UpdateItem(ctx, domain.Item{ID: 999, Title: "x", Status: domain.StatusDraft, CollectionID: f.collection.ID})
	require.True(t, domain.ErrNotFound.Has(err))

	err = f.repo.RenameItem(ctx, 999, "x")
	require.True(t, domain.ErrNotFound.Has(err))

	_, err = f.repo.SetItemStatus(ctx, 999, domain.StatusDraft, domain.StatusInReview)
	require.True(t, domain.ErrNotFound.Has(err))

	err = f.repo.DeleteCommunity(ctx, 999)
	require.True(t, domain.ErrNotFound.Has(err))
}

func TestItemWritesDoNotClobberStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.item(t, "Draft", domain.StatusDraft)

	loaded, err := f.repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, loaded.Status)

	submitted, err := f.repo.SetItemStatus(ctx, item.ID, domain.StatusDraft, domain.StatusInReview)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, submitted.Status)

	require.NoError(t, f.repo.RenameItem(ctx, loaded.ID, "Renamed"))
	got, err := f.repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, domain.StatusInReview, got.Status)

	_, err = f.repo.SetItemStatus(ctx, item.ID, domain.StatusDraft, domain.StatusInReview)
	require.True(t, domain.ErrValidation.Has(err))
	_, err = f.repo.SetItemStatus(ctx, item.ID, domain.StatusInReview, domain.StatusPublished)
	require.NoError(t, err)
	_, err = f.repo.SetItemStatus(ctx, item.ID, domain.StatusInReview, domain.StatusRejected)
	require.True(t, domain.ErrValidation.Has(err))

	got, err = f.repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, got.Status)
}

func TestDuplicateUsernameIsValidationError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.repo.CreateUser(ctx, domain.User{Name: "Other", Email: "other@example.org", Username: "sam", PasswordHash: "x", Role: domain.RoleUser})
	require.Error(t, err)
	assert.True(t, domain.ErrValidation.Has(err))
	assert.Equal(t, "username already exists", domain.Message(err))

	user, err := f.repo.GetUserByLogin(ctx, "SAM@example.org")
	require.NoError(t, err)
	assert.Equal(t, f.submitter.ID, user.ID)
}

func TestIssuedYearQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.item(t, "a", domain.StatusPublished, domain.KeyDateIssued, "2019-05-01")
	f.item(t, "b", domain.StatusPublished, domain.KeyDateIssued, "2019-11-30")
	f.item(t, "c", domain.StatusPublished, domain.KeyDateIssued, "2004")
	f.item(t, "d", domain.StatusPublished, domain.KeyDateIssued, "2021-02-03")
	f.item(t, "e", domain.StatusPublished, domain.KeyDateIssued, "unknown")
	f.item(t, "f", domain.StatusDraft, domain.KeyDateIssued, "1990-01-01")

	minYear, maxYear, err := f.repo.IssuedYearBounds(ctx)
	require.NoError(t, err)
	require.NotNil(t, minYear)
	require.NotNil(t, maxYear)
	assert.Equal(t, 2004, *minYear)
	assert.Equal(t, 2021, *maxYear)

	histogram, err := f.repo.IssuedYearHistogram(ctx, domain.YearHistogramLimit)
	require.NoError(t, err)
	assert.Equal(t, []domain.YearCount{{Year: "2021", Count: 1}, {Year: "2019", Count: 2}}, histogram)
}

func TestIssuedYearBoundsEmpty(t *testing.T) {
	f := newFixture(t)

	minYear, maxYear, err := f.repo.IssuedYearBounds(context.Background())
	require.NoError(t, err)
	assert.Nil(t, minYear)
	assert.Nil(t, maxYear)
}

func TestDownloadAggregates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	popular := f.item(t, "Popular", domain.StatusPublished)
	quiet := f.item(t, "Quiet", domain.StatusPublished)
	hidden := f.item(t, "Hidden", domain.StatusDraft)
	f.bitstream(t, popular.ID, "p1", 5, now)
	f.bitstream(t, popular.ID, "p2", 3, now)
	quietFile := f.bitstream(t, quiet.ID, "q1", 1, now)
	f.bitstream(t, hidden.ID, "h1", 100, now)

	require.NoError(t, f.repo.IncrementDownloads(ctx, quietFile.ID))

	top, err := f.repo.TopDownloadedItems(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.ItemDownloads{
		{ItemID: popular.ID, Title: "Popular", Downloads: 8},
		{ItemID: quiet.ID, Title: "Quiet", Downloads: 2},
	}, top)

	summary, err := f.repo.CountSummary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.PublishedItems)
	assert.EqualValues(t, 1, summary.Collections)
	assert.EqualValues(t, 1, summary.Communities)
	assert.EqualValues(t, 10, summary.TotalDownloads)

	activity, err := f.repo.CollectionActivity(ctx)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.EqualValues(t, 2, activity[0].PublishedItems)
	assert.EqualValues(t, 10, activity[0].Downloads)

	files, err := f.repo.PublishedBitstreams(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestCommunityListingsAndCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	child, err := f.repo.CreateCommunity(ctx, domain.Community{Name: "Child", ParentID: &f.community.ID})
	require.NoError(t, err)
	_, err = f.repo.CreateCommunity(ctx, domain.Community{Name: "Archive"})
	require.NoError(t, err)
	f.item(t, "Published", domain.StatusPublished)
	f.item(t, "Draft", domain.StatusDraft)

	roots, err := f.repo.ListRootCommunities(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "Archive", roots[0].Name)
	assert.Equal(t, "Research", roots[1].Name)
	assert.EqualValues(t, 1, roots[1].SubCommunityCount)
	assert.EqualValues(t, 1, roots[1].CollectionCount)

	subs, collections, err := f.repo.CountCommunityChildren(ctx, f.community.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, subs)
	assert.EqualValues(t, 1, collections)

	children, err := f.repo.ListSubCommunities(ctx, f.community.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)

	summaries, err := f.repo.ListCollections(ctx, &f.community.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 1, summaries[0].ItemCount)

	all, err := f.repo.CountCollectionItems(ctx, f.collection.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, all)
}

func TestListItemsFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.item(t, "First", domain.StatusInReview)
	second := f.item(t, "Second", domain.StatusInReview)
	f.item(t, "Draft", domain.StatusDraft)

	items, total, err := f.repo.ListItems(ctx, domain.ItemFilter{Status: domain.StatusInReview, OldestFirst: true})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)

	items, total, err = f.repo.ListItems(ctx, domain.ItemFilter{SubmitterID: f.submitter.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 1)
}
