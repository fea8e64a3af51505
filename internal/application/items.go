package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"go.uber.org/zap"
)

type MetadataInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type NewItemInput struct {
	CollectionID uint            `json:"collection_id"`
	Title        string          `json:"title"`
	Metadata     []MetadataInput `json:"metadata"`
}

// AdminItemUpdate changes any subset of an item. Setting Status bypasses
// the review workflow.
type AdminItemUpdate struct {
	Title        *string            `json:"title"`
	Status       *domain.ItemStatus `json:"status"`
	CollectionID *uint              `json:"collection_id"`
}

// CreateItem starts a submission in DRAFT. The title is also stored as the
// dc.title field.
func (s *Service) CreateItem(ctx context.Context, actor *domain.Identity, in NewItemInput) (domain.ItemDetail, error) {
	if err := domain.Authorize(actor, 0, domain.ActionCreateItem); err != nil {
		return domain.ItemDetail{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || in.CollectionID == 0 {
		return domain.ItemDetail{}, domain.ErrValidation.New("title and collection_id are required")
	}
	fields := make([]MetadataInput, 0, len(in.Metadata)+1)
	fields = append(fields, MetadataInput{Key: domain.KeyTitle, Value: title})
	for _, f := range in.Metadata {
		key, value, err := submittedField(f)
		if err != nil {
			return domain.ItemDetail{}, err
		}
		if key == domain.KeyTitle {
			continue
		}
		fields = append(fields, MetadataInput{Key: key, Value: value})
	}

	var created domain.Item
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		if _, err := tx.GetCollection(ctx, in.CollectionID); err != nil {
			if domain.ErrNotFound.Has(err) {
				return domain.ErrValidation.New("collection %d does not exist", in.CollectionID)
			}
			return err
		}
		item, err := tx.CreateItem(ctx, domain.Item{
			Title:        title,
			Status:       domain.StatusDraft,
			CollectionID: in.CollectionID,
			SubmitterID:  actor.UserID,
		})
		if err != nil {
			return err
		}
		for _, f := range fields {
			if _, err := tx.CreateMetadata(ctx, domain.MetadataField{ItemID: item.ID, Key: f.Key, Value: f.Value}); err != nil {
				return err
			}
		}
		created = item
		return nil
	})
	if err != nil {
		return domain.ItemDetail{}, err
	}
	s.audit(ctx, actor, "item.create", "item", created.ID, created.Title)
	return s.itemDetail(ctx, created)
}

// GetItem returns any item the actor may view: owners, reviewers and admins.
func (s *Service) GetItem(ctx context.Context, actor *domain.Identity, id uint) (domain.ItemDetail, error) {
	if err := requireLogin(actor); err != nil {
		return domain.ItemDetail{}, err
	}
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.ItemDetail{}, err
	}
	if err := domain.Authorize(actor, item.SubmitterID, domain.ActionViewItem); err != nil {
		return domain.ItemDetail{}, err
	}
	return s.itemDetail(ctx, item)
}

// GetPublishedItem is the anonymous item page. Unpublished items do not exist
// on this path.
func (s *Service) GetPublishedItem(ctx context.Context, id uint) (domain.ItemDetail, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.ItemDetail{}, err
	}
	if item.Status != domain.StatusPublished {
		return domain.ItemDetail{}, domain.ErrNotFound.New("item not found")
	}
	return s.itemDetail(ctx, item)
}

func (s *Service) RecentItems(ctx context.Context) ([]domain.ItemListing, error) {
	items, _, err := s.repo.ListItems(ctx, domain.ItemFilter{Status: domain.StatusPublished, Limit: domain.RecentItemsLimit})
	return items, err
}

// UpdateItemTitle is the submitter edit. It keeps dc.title in step.
func (s *Service) UpdateItemTitle(ctx context.Context, actor *domain.Identity, id uint, title string) (domain.ItemDetail, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.ItemDetail{}, domain.ErrValidation.New("title is required")
	}
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		if _, err := s.editableItemIn(ctx, tx, actor, id); err != nil {
			return err
		}
		if err := tx.RenameItem(ctx, id, title); err != nil {
			return err
		}
		return syncTitle(ctx, tx, id, title)
	})
	if err != nil {
		return domain.ItemDetail{}, err
	}
	s.audit(ctx, actor, "item.update", "item", id, title)
	return s.GetItem(ctx, actor, id)
}

// SubmitItem sends a draft or rejected item to review.
func (s *Service) SubmitItem(ctx context.Context, actor *domain.Identity, id uint) (domain.Item, error) {
	if err := requireLogin(actor); err != nil {
		return domain.Item{}, err
	}
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if err := domain.Authorize(actor, item.SubmitterID, domain.ActionSubmitItem); err != nil {
		return domain.Item{}, err
	}
	return s.transition(ctx, actor, item, domain.TriggerSubmit)
}

func (s *Service) transition(ctx context.Context, actor *domain.Identity, item domain.Item, trigger domain.Trigger) (domain.Item, error) {
	to, err := domain.Next(item.Status, trigger)
	if err != nil {
		return domain.Item{}, err
	}
	from := item.Status
	updated, err := s.repo.SetItemStatus(ctx, item.ID, from, to)
	if err != nil {
		return domain.Item{}, err
	}
	s.recorder.ObserveTransition(from, to)
	s.audit(ctx, actor, "item."+string(trigger), "item", item.ID, fmt.Sprintf("%s -> %s", from, to))
	return updated, nil
}

// ListMySubmissions lists the actor's own items in every status.
func (s *Service) ListMySubmissions(ctx context.Context, actor *domain.Identity, page int) (domain.Page[domain.ItemListing], error) {
	if err := requireLogin(actor); err != nil {
		return domain.Page[domain.ItemListing]{}, err
	}
	page = pageNumber(page)
	items, total, err := s.repo.ListItems(ctx, domain.ItemFilter{
		SubmitterID: actor.UserID,
		Offset:      domain.PageOffset(page, domain.SearchPageSize),
		Limit:       domain.SearchPageSize,
	})
	if err != nil {
		return domain.Page[domain.ItemListing]{}, err
	}
	return domain.NewPage(items, total, page, domain.SearchPageSize), nil
}

// ListItems is the back office listing, optionally narrowed to one status.
func (s *Service) ListItems(ctx context.Context, actor *domain.Identity, status domain.ItemStatus, page int) (domain.Page[domain.ItemListing], error) {
	if err := domain.Authorize(actor, 0, domain.ActionSetStatus); err != nil {
		return domain.Page[domain.ItemListing]{}, err
	}
	page = pageNumber(page)
	items, total, err := s.repo.ListItems(ctx, domain.ItemFilter{
		Status: status,
		Offset: domain.PageOffset(page, domain.BrowsePageSize),
		Limit:  domain.BrowsePageSize,
	})
	if err != nil {
		return domain.Page[domain.ItemListing]{}, err
	}
	return domain.NewPage(items, total, page, domain.BrowsePageSize), nil
}

// AdminUpdateItem lets an administrator change title, collection or status
// without going through review.
func (s *Service) AdminUpdateItem(ctx context.Context, actor *domain.Identity, id uint, in AdminItemUpdate) (domain.ItemDetail, error) {
	if err := domain.Authorize(actor, 0, domain.ActionSetStatus); err != nil {
		return domain.ItemDetail{}, err
	}
	var item domain.Item
	var from domain.ItemStatus
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		var err error
		if item, err = tx.GetItem(ctx, id); err != nil {
			return err
		}
		from = item.Status
		if err := applyAdminUpdate(ctx, tx, &item, in); err != nil {
			return err
		}
		if _, err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}
		return syncTitle(ctx, tx, item.ID, item.Title)
	})
	if err != nil {
		return domain.ItemDetail{}, err
	}
	if item.Status != from {
		s.recorder.ObserveTransition(from, item.Status)
	}
	s.audit(ctx, actor, "item.admin_update", "item", id, fmt.Sprintf("status %s -> %s", from, item.Status))
	return s.GetItem(ctx, actor, id)
}

func applyAdminUpdate(ctx context.Context, tx domain.Repository, item *domain.Item, in AdminItemUpdate) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return domain.ErrValidation.New("title must not be empty")
		}
		item.Title = title
	}
	if in.Status != nil {
		status, ok := domain.ParseItemStatus(string(*in.Status))
		if !ok {
			return domain.ErrValidation.New("unknown status %q", *in.Status)
		}
		item.Status = status
	}
	if in.CollectionID != nil {
		if _, err := tx.GetCollection(ctx, *in.CollectionID); err != nil {
			if domain.ErrNotFound.Has(err) {
				return domain.ErrValidation.New("collection %d does not exist", *in.CollectionID)
			}
			return err
		}
		item.CollectionID = *in.CollectionID
	}
	return nil
}

// syncTitle mirrors the item title into its dc.title fields.
func syncTitle(ctx context.Context, tx domain.Repository, itemID uint, title string) error {
	fields, err := tx.ListMetadata(ctx, itemID)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if f.Key == domain.KeyTitle && f.Value != title {
			if err := tx.UpdateMetadataValue(ctx, f.ID, title); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteItem removes the item with its metadata and bitstream rows in one
// transaction, then removes the stored files. A file that cannot be removed
// is logged and left behind.
func (s *Service) DeleteItem(ctx context.Context, actor *domain.Identity, id uint) error {
	if err := domain.Authorize(actor, 0, domain.ActionDeleteItem); err != nil {
		return err
	}
	var files []domain.Bitstream
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		if _, err := tx.GetItem(ctx, id); err != nil {
			return err
		}
		var err error
		if files, err = tx.ListBitstreams(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteItemBitstreams(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteItemMetadata(ctx, id); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, id)
	})
	if err != nil {
		return err
	}
	for _, b := range files {
		s.removeFile(ctx, b)
	}
	s.audit(ctx, actor, "item.delete", "item", id, fmt.Sprintf("%d files", len(files)))
	return nil
}

func (s *Service) removeFile(ctx context.Context, b domain.Bitstream) {
	if err := s.files.Remove(ctx, b.StorageKey); err != nil {
		s.log.Error("bitstream file left behind",
			zap.Uint("bitstream_id", b.ID),
			zap.String("storage_key", b.StorageKey),
			zap.Error(err))
	}
}

// editableItem loads an item the actor may change. Owners are locked out
// once the item is under review or published; admins never are.
func (s *Service) editableItem(ctx context.Context, actor *domain.Identity, id uint) (domain.Item, error) {
	return s.editableItemIn(ctx, s.repo, actor, id)
}

func (s *Service) editableItemIn(ctx context.Context, repo domain.Repository, actor *domain.Identity, id uint) (domain.Item, error) {
	if err := requireLogin(actor); err != nil {
		return domain.Item{}, err
	}
	item, err := repo.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if err := domain.Authorize(actor, item.SubmitterID, domain.ActionEditItem); err != nil {
		return domain.Item{}, err
	}
	if actor.Role != domain.RoleAdmin && !domain.EditableBySubmitter(item.Status) {
		return domain.Item{}, domain.ErrForbidden.New("item is locked")
	}
	return item, nil
}

func (s *Service) itemDetail(ctx context.Context, item domain.Item) (domain.ItemDetail, error) {
	detail := domain.ItemDetail{Item: item}
	collection, err := s.repo.GetCollection(ctx, item.CollectionID)
	if err != nil {
		return domain.ItemDetail{}, err
	}
	detail.CollectionName = collection.Name
	submitter, err := s.repo.GetUserByID(ctx, item.SubmitterID)
	switch {
	case err == nil:
		detail.SubmitterName = submitter.Name
	case !domain.ErrNotFound.Has(err):
		return domain.ItemDetail{}, err
	}
	fields, err := s.repo.ListMetadata(ctx, item.ID)
	if err != nil {
		return domain.ItemDetail{}, err
	}
	detail.Metadata = domain.OrderFields(fields)
	if detail.Bitstreams, err = s.repo.ListBitstreams(ctx, item.ID); err != nil {
		return domain.ItemDetail{}, err
	}
	return detail, nil
}

func submittedField(f MetadataInput) (string, string, error) {
	key := strings.TrimSpace(f.Key)
	value := strings.TrimSpace(f.Value)
	if key == "" || value == "" {
		return "", "", domain.ErrValidation.New("metadata key and value are required")
	}
	return key, value, nil
}
