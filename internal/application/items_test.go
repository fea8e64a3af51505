package application_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/db/sqlite"
	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/storage/filestore"
	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReviewIsReviewerOnly(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	item := e.draft(t, "Water quality 2024")

	_, err := e.svc.SubmitItem(ctx, e.submitter, item.ID)
	require.NoError(t, err)

	_, err = e.svc.Review(ctx, e.admin, item.ID, "PUBLISHED")
	assert.True(t, domain.ErrForbidden.Has(err))
	_, err = e.svc.Review(ctx, e.submitter, item.ID, "PUBLISHED")
	assert.True(t, domain.ErrForbidden.Has(err))
	_, err = e.svc.Review(ctx, nil, item.ID, "PUBLISHED")
	assert.True(t, domain.ErrUnauthorized.Has(err))

	_, err = e.svc.Review(ctx, e.reviewer, item.ID, "DRAFT")
	require.True(t, domain.ErrValidation.Has(err))
	assert.Equal(t, "status must be PUBLISHED or REJECTED", domain.Message(err))

	got, err := e.repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, got.Status)

	published, err := e.svc.Review(ctx, e.reviewer, item.ID, "PUBLISHED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, published.Status)

	_, err = e.svc.Review(ctx, e.reviewer, item.ID, "REJECTED")
	require.True(t, domain.ErrValidation.Has(err))
	assert.Equal(t, "item is not awaiting review", domain.Message(err))

	assert.Equal(t, []string{"DRAFT>IN_REVIEW", "IN_REVIEW>PUBLISHED"}, e.recorder.transitions)
}

func TestRejectedItemCanBeResubmitted(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	item := e.draft(t, "Draft report")

	_, err := e.svc.SubmitItem(ctx, e.submitter, item.ID)
	require.NoError(t, err)
	_, err = e.svc.SubmitItem(ctx, e.submitter, item.ID)
	assert.True(t, domain.ErrValidation.Has(err))

	rejected, err := e.svc.Review(ctx, e.reviewer, item.ID, "REJECTED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)

	_, err = e.svc.UpdateItemTitle(ctx, e.submitter, item.ID, "Revised report")
	require.NoError(t, err)

	again, err := e.svc.SubmitItem(ctx, e.submitter, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, again.Status)
}

func TestSubmitterIsLockedOutDuringReview(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	item := e.draft(t, "Lock test")
	_, err := e.svc.SubmitItem(ctx, e.submitter, item.ID)
	require.NoError(t, err)

	_, err = e.svc.UpdateItemTitle(ctx, e.submitter, item.ID, "Changed")
	require.True(t, domain.ErrForbidden.Has(err))
	assert.Equal(t, "item is locked", domain.Message(err))

	_, err = e.svc.AddMetadata(ctx, e.submitter, item.ID, application.MetadataInput{Key: domain.KeySubject, Value: "x"})
	assert.True(t, domain.ErrForbidden.Has(err))

	_, err = e.svc.UpdateItemTitle(ctx, e.other, item.ID, "Changed")
	assert.True(t, domain.ErrForbidden.Has(err))

	detail, err := e.svc.UpdateItemTitle(ctx, e.admin, item.ID, "Changed by admin")
	require.NoError(t, err)
	assert.Equal(t, "Changed by admin", detail.Title)
	require.NotEmpty(t, detail.Metadata)
	assert.Equal(t, domain.KeyTitle, detail.Metadata[0].Key)
	assert.Equal(t, "Changed by admin", detail.Metadata[0].Value)
}

func TestCreateItemValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.svc.CreateItem(ctx, e.submitter, application.NewItemInput{CollectionID: e.collection.ID})
	assert.True(t, domain.ErrValidation.Has(err))

	_, err = e.svc.CreateItem(ctx, e.submitter, application.NewItemInput{CollectionID: 999, Title: "x"})
	assert.True(t, domain.ErrValidation.Has(err))

	_, err = e.svc.CreateItem(ctx, e.reviewer, application.NewItemInput{CollectionID: e.collection.ID, Title: "x"})
	assert.True(t, domain.ErrForbidden.Has(err))

	_, err = e.svc.CreateItem(ctx, e.submitter, application.NewItemInput{
		CollectionID: e.collection.ID,
		Title:        "x",
		Metadata:     []application.MetadataInput{{Key: domain.KeySubject, Value: " "}},
	})
	assert.True(t, domain.ErrValidation.Has(err))

	item := e.draft(t, "Ordered", "local.extra", "e", domain.KeyAuthor, "Doe, Jane")
	assert.Equal(t, domain.StatusDraft, item.Status)
	assert.Equal(t, "Sam", item.SubmitterName)
	assert.Equal(t, "Reports", item.CollectionName)
	keys := make([]string, 0, len(item.Metadata))
	for _, f := range item.Metadata {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{domain.KeyTitle, domain.KeyAuthor, "local.extra"}, keys)
}

func TestUnpublishedItemsStayHidden(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	draft := e.draft(t, "Hidden river study", domain.KeyAuthor, "Doe, Jane")
	published := e.publish(t, "Visible river study", domain.KeyAuthor, "Doe, Jane")

	_, err := e.svc.GetPublishedItem(ctx, draft.ID)
	assert.True(t, domain.ErrNotFound.Has(err))
	_, err = e.svc.GetPublishedItem(ctx, published.ID)
	require.NoError(t, err)

	page, err := e.svc.Search(ctx, domain.SearchQuery{Text: "river"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, published.ID, page.Items[0].ID)

	recent, err := e.svc.RecentItems(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	authors, err := e.svc.AuthorFacet(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.FacetEntry{{Name: "doe, jane", Count: 1}}, authors)

	collection, err := e.svc.GetCollection(ctx, e.collection.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, collection.Items.Total)

	_, err = e.svc.GetItem(ctx, e.other, draft.ID)
	assert.True(t, domain.ErrForbidden.Has(err))
	_, err = e.svc.GetItem(ctx, e.reviewer, draft.ID)
	require.NoError(t, err)

	mine, err := e.svc.ListMySubmissions(ctx, e.submitter, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.Total)
}

func TestBulkMetadataUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	item := e.draft(t, "Atomic", domain.KeySubject, "soil", domain.KeyType, "dataset")
	foreign := e.draft(t, "Foreign", domain.KeySubject, "air")

	byKey := func(d domain.ItemDetail, key string) domain.MetadataField {
		for _, f := range d.Metadata {
			if f.Key == key {
				return f
			}
		}
		t.Fatalf("no %s field", key)
		return domain.MetadataField{}
	}
	subject := byKey(item, domain.KeySubject)
	kind := byKey(item, domain.KeyType)
	foreignSubject := byKey(foreign, domain.KeySubject)

	_, err := e.svc.UpdateMetadata(ctx, e.submitter, item.ID, []domain.MetadataUpdate{
		{ID: subject.ID, Value: "water"},
		{ID: foreignSubject.ID, Value: "stolen"},
	})
	require.True(t, domain.ErrNotFound.Has(err))

	_, err = e.svc.UpdateMetadata(ctx, e.submitter, item.ID, []domain.MetadataUpdate{
		{ID: subject.ID, Value: "water"},
		{ID: 9999, Value: "missing"},
	})
	require.True(t, domain.ErrNotFound.Has(err))

	_, err = e.svc.UpdateMetadata(ctx, e.submitter, item.ID, []domain.MetadataUpdate{
		{ID: subject.ID, Value: "water"},
		{ID: foreignSubject.ID, Value: "stolen"},
		{ID: kind.ID, Value: "article"},
	})
	require.True(t, domain.ErrNotFound.Has(err))

	got, err := e.repo.GetMetadata(ctx, subject.ID)
	require.NoError(t, err)
	assert.Equal(t, "soil", got.Value)
	got, err = e.repo.GetMetadata(ctx, kind.ID)
	require.NoError(t, err)
	assert.Equal(t, "dataset", got.Value)
	got, err = e.repo.GetMetadata(ctx, foreignSubject.ID)
	require.NoError(t, err)
	assert.Equal(t, "air", got.Value)

	fields, err := e.svc.UpdateMetadata(ctx, e.submitter, item.ID, []domain.MetadataUpdate{
		{ID: subject.ID, Value: "water"},
		{ID: kind.ID, Value: "article"},
	})
	require.NoError(t, err)
	values := map[string]string{}
	for _, f := range fields {
		values[f.Key] = f.Value
	}
	assert.Equal(t, "water", values[domain.KeySubject])
	assert.Equal(t, "article", values[domain.KeyType])
}

func TestMetadataValuePolicy(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	item := e.draft(t, "Values")

	_, err := e.svc.AddMetadata(ctx, e.submitter, item.ID, application.MetadataInput{Key: domain.KeySubject})
	assert.True(t, domain.ErrValidation.Has(err))

	field, err := e.svc.AdminAddMetadata(ctx, e.admin, item.ID, application.MetadataInput{Key: domain.KeySubject})
	require.NoError(t, err)
	assert.Empty(t, field.Value)

	_, err = e.svc.AdminAddMetadata(ctx, e.admin, item.ID, application.MetadataInput{Value: "x"})
	assert.True(t, domain.ErrValidation.Has(err))

	_, err = e.svc.AdminAddMetadata(ctx, e.submitter, item.ID, application.MetadataInput{Key: "k", Value: "x"})
	assert.True(t, domain.ErrForbidden.Has(err))

	require.NoError(t, e.svc.DeleteMetadata(ctx, e.submitter, item.ID, field.ID))
	_, err = e.repo.GetMetadata(ctx, field.ID)
	assert.True(t, domain.ErrNotFound.Has(err))

	described, err := e.svc.ListItemMetadata(ctx, e.submitter, item.ID)
	require.NoError(t, err)
	require.Len(t, described, 1)
	assert.Equal(t, "Title", described[0].Descriptor.Label)
}

func TestDeleteItemRemovesOnlyItsOwnRowsAndFiles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	doomed := e.draft(t, "Doomed", domain.KeySubject, "a")
	kept := e.draft(t, "Kept", domain.KeySubject, "b")

	upload := func(itemID uint, name string) domain.Bitstream {
		b, err := e.svc.UploadBitstream(ctx, e.submitter, itemID, application.UploadInput{
			Name:    name,
			Content: bytes.NewReader([]byte("content of " + name)),
		})
		require.NoError(t, err)
		return b
	}
	gone := upload(doomed.ID, "data.csv")
	stays := upload(kept.ID, "keep.csv")

	err := e.svc.DeleteItem(ctx, e.submitter, doomed.ID)
	assert.True(t, domain.ErrForbidden.Has(err))

	require.NoError(t, e.svc.DeleteItem(ctx, e.admin, doomed.ID))

	_, err = e.repo.GetItem(ctx, doomed.ID)
	assert.True(t, domain.ErrNotFound.Has(err))
	fields, err := e.repo.ListMetadata(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, fields)
	_, err = e.repo.GetBitstream(ctx, gone.ID)
	assert.True(t, domain.ErrNotFound.Has(err))
	_, err = e.files.Open(ctx, gone.StorageKey)
	assert.True(t, domain.ErrNotFound.Has(err))

	rc, err := e.files.Open(ctx, stays.StorageKey)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	fields, err = e.repo.ListMetadata(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, fields, 2)

	assert.True(t, domain.ErrNotFound.Has(e.svc.DeleteItem(ctx, e.admin, doomed.ID)))
}

func TestDownloadVisibility(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	item := e.draft(t, "Downloads")
	b, err := e.svc.UploadBitstream(ctx, e.submitter, item.ID, application.UploadInput{
		Name:    "paper.pdf",
		Content: bytes.NewReader([]byte("%PDF")),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", b.MimeType)

	_, _, err = e.svc.Download(ctx, nil, b.ID)
	assert.True(t, domain.ErrNotFound.Has(err))
	_, _, err = e.svc.Download(ctx, e.other, b.ID)
	assert.True(t, domain.ErrNotFound.Has(err))

	got, rc, err := e.svc.Download(ctx, e.submitter, b.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF", string(content))
	assert.EqualValues(t, 1, got.DownloadCount)

	_, err = e.svc.SubmitItem(ctx, e.submitter, item.ID)
	require.NoError(t, err)
	_, err = e.svc.Review(ctx, e.reviewer, item.ID, "PUBLISHED")
	require.NoError(t, err)

	got, rc, err = e.svc.Download(ctx, nil, b.ID)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.EqualValues(t, 2, got.DownloadCount)
	assert.Equal(t, 2, e.recorder.downloads)

	_, err = e.svc.UploadBitstream(ctx, e.submitter, item.ID, application.UploadInput{Name: "late.pdf", Content: bytes.NewReader(nil)})
	assert.True(t, domain.ErrForbidden.Has(err))
}

func TestAdminUpdateItemBypassesReview(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	item := e.draft(t, "Fast track")
	status := domain.StatusPublished

	_, err := e.svc.AdminUpdateItem(ctx, e.reviewer, item.ID, application.AdminItemUpdate{Status: &status})
	assert.True(t, domain.ErrForbidden.Has(err))

	detail, err := e.svc.AdminUpdateItem(ctx, e.admin, item.ID, application.AdminItemUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, detail.Status)
	assert.Equal(t, []string{"DRAFT>PUBLISHED"}, e.recorder.transitions)

	bogus := domain.ItemStatus("ARCHIVED")
	_, err = e.svc.AdminUpdateItem(ctx, e.admin, item.ID, application.AdminItemUpdate{Status: &bogus})
	assert.True(t, domain.ErrValidation.Has(err))

	listed, err := e.svc.ListItems(ctx, e.admin, domain.StatusPublished, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, listed.Total)
}

func TestReviewQueueOldestFirst(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	first := e.draft(t, "First")
	second := e.draft(t, "Second")
	for _, id := range []uint{first.ID, second.ID} {
		_, err := e.svc.SubmitItem(ctx, e.submitter, id)
		require.NoError(t, err)
	}

	_, err := e.svc.ReviewQueue(ctx, e.submitter, 1)
	assert.True(t, domain.ErrForbidden.Has(err))

	queue, err := e.svc.ReviewQueue(ctx, e.reviewer, 1)
	require.NoError(t, err)
	require.Len(t, queue.Items, 2)
	assert.Equal(t, first.ID, queue.Items[0].ID)
}

// interleavedRepo runs next once, right after the following GetItem outside
// a transaction returns, so the caller acts on a row that has since changed.
type interleavedRepo struct {
	domain.Repository
	next func(id uint)
}

func (r *interleavedRepo) GetItem(ctx context.Context, id uint) (domain.Item, error) {
	item, err := r.Repository.GetItem(ctx, id)
	if next := r.next; next != nil && err == nil {
		r.next = nil
		next(id)
	}
	return item, err
}

func newInterleavedEnv(t *testing.T) (*env, *interleavedRepo) {
	t.Helper()
	var wrapped *interleavedRepo
	e := newEnvWith(t, envSetup{repo: func(r *sqlite.Repository) domain.Repository {
		wrapped = &interleavedRepo{Repository: r}
		return wrapped
	}})
	return e, wrapped
}

func TestConcurrentEditsKeepTheWorkflowStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("title edit during submit", func(t *testing.T) {
		e, repo := newInterleavedEnv(t)
		item := e.draft(t, "Draft title")

		repo.next = func(id uint) {
			_, err := e.svc.UpdateItemTitle(ctx, e.submitter, id, "Renamed")
			require.NoError(t, err)
		}
		submitted, err := e.svc.SubmitItem(ctx, e.submitter, item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInReview, submitted.Status)
		assert.Equal(t, "Renamed", submitted.Title)
	})

	t.Run("admin retitle during review", func(t *testing.T) {
		e, repo := newInterleavedEnv(t)
		item := e.draft(t, "Under review")
		_, err := e.svc.SubmitItem(ctx, e.submitter, item.ID)
		require.NoError(t, err)

		title := "Corrected"
		repo.next = func(id uint) {
			_, err := e.svc.AdminUpdateItem(ctx, e.admin, id, application.AdminItemUpdate{Title: &title})
			require.NoError(t, err)
		}
		published, err := e.svc.Review(ctx, e.reviewer, item.ID, string(domain.StatusPublished))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPublished, published.Status)
		assert.Equal(t, "Corrected", published.Title)
	})

	t.Run("second decision loses", func(t *testing.T) {
		e, repo := newInterleavedEnv(t)
		item := e.draft(t, "Contested")
		_, err := e.svc.SubmitItem(ctx, e.submitter, item.ID)
		require.NoError(t, err)

		repo.next = func(id uint) {
			_, err := e.svc.Review(ctx, e.reviewer, id, string(domain.StatusRejected))
			require.NoError(t, err)
		}
		_, err = e.svc.Review(ctx, e.reviewer, item.ID, string(domain.StatusPublished))
		require.True(t, domain.ErrValidation.Has(err))

		stored, err := e.repo.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, stored.Status)
		assert.Equal(t, []string{"DRAFT>IN_REVIEW", "IN_REVIEW>REJECTED"}, e.recorder.transitions)
	})
}

// stuckFiles stores and opens normally but never removes anything.
type stuckFiles struct {
	domain.FileStore
}

func (stuckFiles) Remove(context.Context, string) error {
	return errors.New("read-only file system")
}

func TestFailedFileRemovalKeepsRowsDeleted(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.ErrorLevel)
	e := newEnvWith(t, envSetup{
		log:   zap.New(core),
		files: func(s *filestore.Store) domain.FileStore { return stuckFiles{s} },
	})
	doomed := e.draft(t, "Doomed", domain.KeySubject, "a")
	kept := e.draft(t, "Kept", domain.KeySubject, "b")

	upload := func(itemID uint, name string) domain.Bitstream {
		b, err := e.svc.UploadBitstream(ctx, e.submitter, itemID, application.UploadInput{
			Name:    name,
			Content: bytes.NewReader([]byte("content of " + name)),
		})
		require.NoError(t, err)
		return b
	}
	gone := upload(doomed.ID, "data.csv")
	stays := upload(kept.ID, "keep.csv")
	single := upload(kept.ID, "extra.csv")

	require.NoError(t, e.svc.DeleteItem(ctx, e.admin, doomed.ID))

	_, err := e.repo.GetItem(ctx, doomed.ID)
	assert.True(t, domain.ErrNotFound.Has(err))
	fields, err := e.repo.ListMetadata(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, fields)
	_, err = e.repo.GetBitstream(ctx, gone.ID)
	assert.True(t, domain.ErrNotFound.Has(err))

	rc, err := e.files.Open(ctx, gone.StorageKey)
	require.NoError(t, err, "file is left behind")
	require.NoError(t, rc.Close())

	require.NoError(t, e.svc.DeleteBitstream(ctx, e.submitter, kept.ID, single.ID))
	_, err = e.repo.GetBitstream(ctx, single.ID)
	assert.True(t, domain.ErrNotFound.Has(err))

	fields, err = e.repo.ListMetadata(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, fields, 2)
	remaining, err := e.repo.ListBitstreams(ctx, kept.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, stays.ID, remaining[0].ID)

	left := logs.FilterMessage("bitstream file left behind").All()
	require.Len(t, left, 2)
	assert.Equal(t, gone.StorageKey, left[0].ContextMap()["storage_key"])
	assert.Equal(t, single.StorageKey, left[1].ContextMap()["storage_key"])
}
