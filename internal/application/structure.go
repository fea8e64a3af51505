package application

import (
	"context"
	"strings"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

type CommunityInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
}

type CollectionInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CommunityID uint   `json:"community_id"`
}

// CollectionPage is a collection with one page of its published items.
type CollectionPage struct {
	domain.Collection
	CommunityName string                          `json:"community_name"`
	Items         domain.Page[domain.ItemListing] `json:"items"`
}

func (s *Service) ListRootCommunities(ctx context.Context) ([]domain.CommunitySummary, error) {
	return s.repo.ListRootCommunities(ctx)
}

func (s *Service) GetCommunity(ctx context.Context, id uint) (domain.CommunityDetail, error) {
	community, err := s.repo.GetCommunity(ctx, id)
	if err != nil {
		return domain.CommunityDetail{}, err
	}
	subs, err := s.repo.ListSubCommunities(ctx, id)
	if err != nil {
		return domain.CommunityDetail{}, err
	}
	collections, err := s.repo.ListCollections(ctx, &id)
	if err != nil {
		return domain.CommunityDetail{}, err
	}
	return domain.CommunityDetail{Community: community, SubCommunities: subs, Collections: collections}, nil
}

// ListCommunities is the flat list the back office picks parents from.
func (s *Service) ListCommunities(ctx context.Context, actor *domain.Identity) ([]domain.Community, error) {
	if err := domain.Authorize(actor, 0, domain.ActionManageStructure); err != nil {
		return nil, err
	}
	return s.repo.ListCommunities(ctx)
}

func (s *Service) CreateCommunity(ctx context.Context, actor *domain.Identity, in CommunityInput) (domain.Community, error) {
	if err := domain.Authorize(actor, 0, domain.ActionManageStructure); err != nil {
		return domain.Community{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Community{}, domain.ErrValidation.New("name is required")
	}
	if err := s.checkParent(ctx, 0, in.ParentID); err != nil {
		return domain.Community{}, err
	}
	c, err := s.repo.CreateCommunity(ctx, domain.Community{Name: name, Description: strings.TrimSpace(in.Description), ParentID: in.ParentID})
	if err != nil {
		return domain.Community{}, err
	}
	s.audit(ctx, actor, "community.create", "community", c.ID, c.Name)
	return c, nil
}

func (s *Service) UpdateCommunity(ctx context.Context, actor *domain.Identity, id uint, in CommunityInput) (domain.Community, error) {
	if err := domain.Authorize(actor, 0, domain.ActionManageStructure); err != nil {
		return domain.Community{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Community{}, domain.ErrValidation.New("name is required")
	}
	if _, err := s.repo.GetCommunity(ctx, id); err != nil {
		return domain.Community{}, err
	}
	if err := s.checkParent(ctx, id, in.ParentID); err != nil {
		return domain.Community{}, err
	}
	c, err := s.repo.UpdateCommunity(ctx, domain.Community{ID: id, Name: name, Description: strings.TrimSpace(in.Description), ParentID: in.ParentID})
	if err != nil {
		return domain.Community{}, err
	}
	s.audit(ctx, actor, "community.update", "community", c.ID, c.Name)
	return c, nil
}

// checkParent walks up from parentID and fails when it meets id, which
// would close a cycle. id is zero for a new community.
func (s *Service) checkParent(ctx context.Context, id uint, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	seen := make(map[uint]struct{})
	next := parentID
	for next != nil {
		if *next == id {
			return domain.ErrValidation.New("community hierarchy cycle")
		}
		if _, ok := seen[*next]; ok {
			return domain.ErrValidation.New("community hierarchy cycle")
		}
		seen[*next] = struct{}{}
		parent, err := s.repo.GetCommunity(ctx, *next)
		if err != nil {
			if domain.ErrNotFound.Has(err) {
				return domain.ErrValidation.New("parent community %d does not exist", *next)
			}
			return err
		}
		next = parent.ParentID
	}
	return nil
}

// DeleteCommunity refuses to delete a community that still has children.
func (s *Service) DeleteCommunity(ctx context.Context, actor *domain.Identity, id uint) error {
	if err := domain.Authorize(actor, 0, domain.ActionManageStructure); err != nil {
		return err
	}
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		if _, err := tx.GetCommunity(ctx, id); err != nil {
			return err
		}
		subs, collections, err := tx.CountCommunityChildren(ctx, id)
		if err != nil {
			return err
		}
		if subs > 0 || collections > 0 {
			return domain.ErrValidation.New("community still has %d sub-communities and %d collections", subs, collections)
		}
		return tx.DeleteCommunity(ctx, id)
	})
	if err != nil {
		return err
	}
	s.audit(ctx, actor, "community.delete", "community", id, "")
	return nil
}

func (s *Service) ListCollections(ctx context.Context, communityID *uint) ([]domain.CollectionSummary, error) {
	return s.repo.ListCollections(ctx, communityID)
}

func (s *Service) GetCollection(ctx context.Context, id uint, page int) (CollectionPage, error) {
	collection, err := s.repo.GetCollection(ctx, id)
	if err != nil {
		return CollectionPage{}, err
	}
	community, err := s.repo.GetCommunity(ctx, collection.CommunityID)
	if err != nil {
		return CollectionPage{}, err
	}
	page = pageNumber(page)
	items, total, err := s.repo.ListItems(ctx, domain.ItemFilter{
		Status:       domain.StatusPublished,
		CollectionID: id,
		Offset:       domain.PageOffset(page, domain.CollectionPageSize),
		Limit:        domain.CollectionPageSize,
	})
	if err != nil {
		return CollectionPage{}, err
	}
	return CollectionPage{
		Collection:    collection,
		CommunityName: community.Name,
		Items:         domain.NewPage(items, total, page, domain.CollectionPageSize),
	}, nil
}

func (s *Service) CreateCollection(ctx context.Context, actor *domain.Identity, in CollectionInput) (domain.Collection, error) {
	if err := domain.Authorize(actor, 0, domain.ActionManageStructure); err != nil {
		return domain.Collection{}, err
	}
	value, err := s.collectionValue(ctx, in)
	if err != nil {
		return domain.Collection{}, err
	}
	c, err := s.repo.CreateCollection(ctx, value)
	if err != nil {
		return domain.Collection{}, err
	}
	s.audit(ctx, actor, "collection.create", "collection", c.ID, c.Name)
	return c, nil
}

func (s *Service) UpdateCollection(ctx context.Context, actor *domain.Identity, id uint, in CollectionInput) (domain.Collection, error) {
	if err := domain.Authorize(actor, 0, domain.ActionManageStructure); err != nil {
		return domain.Collection{}, err
	}
	value, err := s.collectionValue(ctx, in)
	if err != nil {
		return domain.Collection{}, err
	}
	value.ID = id
	c, err := s.repo.UpdateCollection(ctx, value)
	if err != nil {
		return domain.Collection{}, err
	}
	s.audit(ctx, actor, "collection.update", "collection", c.ID, c.Name)
	return c, nil
}

func (s *Service) collectionValue(ctx context.Context, in CollectionInput) (domain.Collection, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.CommunityID == 0 {
		return domain.Collection{}, domain.ErrValidation.New("name and community_id are required")
	}
	if _, err := s.repo.GetCommunity(ctx, in.CommunityID); err != nil {
		if domain.ErrNotFound.Has(err) {
			return domain.Collection{}, domain.ErrValidation.New("community %d does not exist", in.CommunityID)
		}
		return domain.Collection{}, err
	}
	return domain.Collection{Name: name, Description: strings.TrimSpace(in.Description), CommunityID: in.CommunityID}, nil
}

// DeleteCollection refuses to delete a collection that still holds items.
func (s *Service) DeleteCollection(ctx context.Context, actor *domain.Identity, id uint) error {
	if err := domain.Authorize(actor, 0, domain.ActionManageStructure); err != nil {
		return err
	}
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		if _, err := tx.GetCollection(ctx, id); err != nil {
			return err
		}
		count, err := tx.CountCollectionItems(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrValidation.New("collection still has %d items", count)
		}
		return tx.DeleteCollection(ctx, id)
	})
	if err != nil {
		return err
	}
	s.audit(ctx, actor, "collection.delete", "collection", id, "")
	return nil
}
