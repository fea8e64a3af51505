package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

// ListItemMetadata returns the fields of an item the actor may view, in
// display order with their descriptors.
func (s *Service) ListItemMetadata(ctx context.Context, actor *domain.Identity, itemID uint) ([]domain.DescribedField, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, item.SubmitterID, domain.ActionViewItem); err != nil {
		return nil, err
	}
	fields, err := s.repo.ListMetadata(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return domain.DescribeFields(fields), nil
}

// AddMetadata is the submitter path: both key and value are required.
func (s *Service) AddMetadata(ctx context.Context, actor *domain.Identity, itemID uint, in MetadataInput) (domain.MetadataField, error) {
	key, value, err := submittedField(in)
	if err != nil {
		return domain.MetadataField{}, err
	}
	if _, err := s.editableItem(ctx, actor, itemID); err != nil {
		return domain.MetadataField{}, err
	}
	return s.addMetadata(ctx, actor, itemID, key, value)
}

// AdminAddMetadata accepts an empty value; the key is still required.
func (s *Service) AdminAddMetadata(ctx context.Context, actor *domain.Identity, itemID uint, in MetadataInput) (domain.MetadataField, error) {
	if err := domain.Authorize(actor, 0, domain.ActionSetStatus); err != nil {
		return domain.MetadataField{}, err
	}
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return domain.MetadataField{}, domain.ErrValidation.New("metadata key is required")
	}
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return domain.MetadataField{}, err
	}
	return s.addMetadata(ctx, actor, itemID, key, strings.TrimSpace(in.Value))
}

func (s *Service) addMetadata(ctx context.Context, actor *domain.Identity, itemID uint, key, value string) (domain.MetadataField, error) {
	field, err := s.repo.CreateMetadata(ctx, domain.MetadataField{ItemID: itemID, Key: key, Value: value})
	if err != nil {
		return domain.MetadataField{}, err
	}
	s.audit(ctx, actor, "metadata.create", "item", itemID, key)
	return field, nil
}

// UpdateMetadata applies every update or none. An id that is not a field of
// the item fails the whole batch with a not found error.
func (s *Service) UpdateMetadata(ctx context.Context, actor *domain.Identity, itemID uint, updates []domain.MetadataUpdate) ([]domain.MetadataField, error) {
	if _, err := s.editableItem(ctx, actor, itemID); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, domain.ErrValidation.New("no metadata updates given")
	}
	var fields []domain.MetadataField
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		for _, u := range updates {
			field, err := tx.GetMetadata(ctx, u.ID)
			if err != nil {
				return err
			}
			if field.ItemID != itemID {
				return domain.ErrNotFound.New("metadata field %d not found", u.ID)
			}
			if err := tx.UpdateMetadataValue(ctx, u.ID, strings.TrimSpace(u.Value)); err != nil {
				return err
			}
		}
		var err error
		fields, err = tx.ListMetadata(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "metadata.update", "item", itemID, fmt.Sprintf("%d fields", len(updates)))
	return domain.OrderFields(fields), nil
}

func (s *Service) DeleteMetadata(ctx context.Context, actor *domain.Identity, itemID, fieldID uint) error {
	if _, err := s.editableItem(ctx, actor, itemID); err != nil {
		return err
	}
	field, err := s.repo.GetMetadata(ctx, fieldID)
	if err != nil {
		return err
	}
	if field.ItemID != itemID {
		return domain.ErrNotFound.New("metadata field %d not found", fieldID)
	}
	if err := s.repo.DeleteMetadata(ctx, fieldID); err != nil {
		return err
	}
	s.audit(ctx, actor, "metadata.delete", "item", itemID, field.Key)
	return nil
}
