package rpcjson

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

type idParams struct {
	ID uint `json:"id"`
}

type pageParams struct {
	Page int `json:"page"`
}

type idPageParams struct {
	ID   uint `json:"id"`
	Page int  `json:"page"`
}

type limitParams struct {
	Query string `json:"q"`
	Limit int    `json:"limit"`
}

type communityParams struct {
	ID uint `json:"id"`
	application.CommunityInput
}

type collectionParams struct {
	ID uint `json:"id"`
	application.CollectionInput
}

type userParams struct {
	ID uint `json:"id"`
	application.UserUpdate
}

type adminItemParams struct {
	ID uint `json:"id"`
	application.AdminItemUpdate
}

type metadataParams struct {
	ItemID  uint                    `json:"item_id"`
	FieldID uint                    `json:"metadata_id"`
	Admin   bool                    `json:"admin"`
	Key     string                  `json:"key"`
	Value   string                  `json:"value"`
	Updates []domain.MetadataUpdate `json:"updates"`
}

type bitstreamParams struct {
	ItemID      uint   `json:"item_id"`
	BitstreamID uint   `json:"bitstream_id"`
	Name        string `json:"name"`
	MimeType    string `json:"mime_type"`
	Content     []byte `json:"content"`
}

func (s *Server) routes() map[string]method {
	svc := s.service
	return map[string]method{
		"auth.login": bind(func(ctx context.Context, _ *domain.Identity, p struct {
			Login     string `json:"login"`
			Password  string `json:"password"`
			TokenName string `json:"token_name"`
			TTLHours  int    `json:"ttl_hours"`
		}) (any, error) {
			var ttl *time.Duration
			if p.TTLHours > 0 {
				d := time.Duration(p.TTLHours) * time.Hour
				ttl = &d
			}
			identity, token, err := svc.LoginWithAPIToken(ctx, p.Login, p.Password, p.TokenName, ttl)
			if err != nil {
				return nil, err
			}
			return map[string]any{"user": identity, "token": token}, nil
		}),
		"auth.whoami": bind(func(_ context.Context, actor *domain.Identity, _ struct{}) (any, error) {
			if actor == nil {
				return nil, domain.ErrUnauthorized.New("login required")
			}
			return actor, nil
		}),
		"auth.logout": bind(func(ctx context.Context, _ *domain.Identity, p struct {
			Token string `json:"token"`
		}) (any, error) {
			if strings.TrimSpace(p.Token) == "" {
				return nil, domain.ErrUnauthorized.New("login required")
			}
			return okResult(), svc.RevokeAPIToken(ctx, p.Token)
		}),
		"metadata.registry": bind(func(context.Context, *domain.Identity, struct{}) (any, error) {
			return svc.MetadataRegistry(), nil
		}),

		"communities.roots": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.ListRootCommunities(ctx)
		}),
		"communities.list": bind(func(ctx context.Context, actor *domain.Identity, _ struct{}) (any, error) {
			return svc.ListCommunities(ctx, actor)
		}),
		"communities.get": bind(func(ctx context.Context, _ *domain.Identity, p idParams) (any, error) {
			return svc.GetCommunity(ctx, p.ID)
		}),
		"communities.create": bind(func(ctx context.Context, actor *domain.Identity, p communityParams) (any, error) {
			return svc.CreateCommunity(ctx, actor, p.CommunityInput)
		}),
		"communities.update": bind(func(ctx context.Context, actor *domain.Identity, p communityParams) (any, error) {
			return svc.UpdateCommunity(ctx, actor, p.ID, p.CommunityInput)
		}),
		"communities.delete": bind(func(ctx context.Context, actor *domain.Identity, p idParams) (any, error) {
			return okResult(), svc.DeleteCommunity(ctx, actor, p.ID)
		}),

		"collections.list": bind(func(ctx context.Context, _ *domain.Identity, p struct {
			CommunityID *uint `json:"community_id"`
		}) (any, error) {
			return svc.ListCollections(ctx, p.CommunityID)
		}),
		"collections.get": bind(func(ctx context.Context, _ *domain.Identity, p idPageParams) (any, error) {
			return svc.GetCollection(ctx, p.ID, p.Page)
		}),
		"collections.create": bind(func(ctx context.Context, actor *domain.Identity, p collectionParams) (any, error) {
			return svc.CreateCollection(ctx, actor, p.CollectionInput)
		}),
		"collections.update": bind(func(ctx context.Context, actor *domain.Identity, p collectionParams) (any, error) {
			return svc.UpdateCollection(ctx, actor, p.ID, p.CollectionInput)
		}),
		"collections.delete": bind(func(ctx context.Context, actor *domain.Identity, p idParams) (any, error) {
			return okResult(), svc.DeleteCollection(ctx, actor, p.ID)
		}),

		"items.create": bind(func(ctx context.Context, actor *domain.Identity, p application.NewItemInput) (any, error) {
			return svc.CreateItem(ctx, actor, p)
		}),
		"items.get": bind(func(ctx context.Context, actor *domain.Identity, p idParams) (any, error) {
			return svc.GetItem(ctx, actor, p.ID)
		}),
		"items.update": bind(func(ctx context.Context, actor *domain.Identity, p struct {
			ID    uint   `json:"id"`
			Title string `json:"title"`
		}) (any, error) {
			return svc.UpdateItemTitle(ctx, actor, p.ID, p.Title)
		}),
		"items.submit": bind(func(ctx context.Context, actor *domain.Identity, p idParams) (any, error) {
			return svc.SubmitItem(ctx, actor, p.ID)
		}),
		"items.mine": bind(func(ctx context.Context, actor *domain.Identity, p pageParams) (any, error) {
			return svc.ListMySubmissions(ctx, actor, p.Page)
		}),
		"items.list": bind(func(ctx context.Context, actor *domain.Identity, p struct {
			Status string `json:"status"`
			Page   int    `json:"page"`
		}) (any, error) {
			var status domain.ItemStatus
			if p.Status != "" {
				parsed, ok := domain.ParseItemStatus(p.Status)
				if !ok {
					return nil, domain.ErrValidation.New("unknown status %q", p.Status)
				}
				status = parsed
			}
			return svc.ListItems(ctx, actor, status, p.Page)
		}),
		"items.admin_update": bind(func(ctx context.Context, actor *domain.Identity, p adminItemParams) (any, error) {
			return svc.AdminUpdateItem(ctx, actor, p.ID, p.AdminItemUpdate)
		}),
		"items.delete": bind(func(ctx context.Context, actor *domain.Identity, p idParams) (any, error) {
			return okResult(), svc.DeleteItem(ctx, actor, p.ID)
		}),
		"items.published": bind(func(ctx context.Context, _ *domain.Identity, p idParams) (any, error) {
			return svc.GetPublishedItem(ctx, p.ID)
		}),
		"items.recent": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.RecentItems(ctx)
		}),

		"metadata.list": bind(func(ctx context.Context, actor *domain.Identity, p metadataParams) (any, error) {
			return svc.ListItemMetadata(ctx, actor, p.ItemID)
		}),
		"metadata.add": bind(func(ctx context.Context, actor *domain.Identity, p metadataParams) (any, error) {
			in := application.MetadataInput{Key: p.Key, Value: p.Value}
			if p.Admin {
				return svc.AdminAddMetadata(ctx, actor, p.ItemID, in)
			}
			return svc.AddMetadata(ctx, actor, p.ItemID, in)
		}),
		"metadata.update": bind(func(ctx context.Context, actor *domain.Identity, p metadataParams) (any, error) {
			return svc.UpdateMetadata(ctx, actor, p.ItemID, p.Updates)
		}),
		"metadata.delete": bind(func(ctx context.Context, actor *domain.Identity, p metadataParams) (any, error) {
			return okResult(), svc.DeleteMetadata(ctx, actor, p.ItemID, p.FieldID)
		}),

		"bitstreams.list": bind(func(ctx context.Context, actor *domain.Identity, p bitstreamParams) (any, error) {
			return svc.ListItemBitstreams(ctx, actor, p.ItemID)
		}),
		"bitstreams.upload": bind(func(ctx context.Context, actor *domain.Identity, p bitstreamParams) (any, error) {
			in := application.UploadInput{Name: p.Name, MimeType: p.MimeType}
			if p.Content != nil {
				in.Content = bytes.NewReader(p.Content)
			}
			return svc.UploadBitstream(ctx, actor, p.ItemID, in)
		}),
		"bitstreams.delete": bind(func(ctx context.Context, actor *domain.Identity, p bitstreamParams) (any, error) {
			return okResult(), svc.DeleteBitstream(ctx, actor, p.ItemID, p.BitstreamID)
		}),
		"bitstreams.download": bind(func(ctx context.Context, actor *domain.Identity, p bitstreamParams) (any, error) {
			b, rc, err := svc.Download(ctx, actor, p.BitstreamID)
			if err != nil {
				return nil, err
			}
			defer func() { _ = rc.Close() }()
			var buf bytes.Buffer
			if _, err := buf.ReadFrom(rc); err != nil {
				return nil, err
			}
			return map[string]any{"bitstream": b, "content": buf.Bytes()}, nil
		}),

		"review.queue": bind(func(ctx context.Context, actor *domain.Identity, p pageParams) (any, error) {
			return svc.ReviewQueue(ctx, actor, p.Page)
		}),
		"review.decide": bind(func(ctx context.Context, actor *domain.Identity, p struct {
			ItemID uint   `json:"item_id"`
			Status string `json:"status"`
		}) (any, error) {
			return svc.Review(ctx, actor, p.ItemID, p.Status)
		}),

		"search": bind(func(ctx context.Context, _ *domain.Identity, q domain.SearchQuery) (any, error) {
			return svc.Search(ctx, q)
		}),
		"discover.authors": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.AuthorFacet(ctx)
		}),
		"discover.subjects": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.SubjectFacet(ctx)
		}),
		"discover.years": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.YearHistogram(ctx)
		}),
		"discover.date_range": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.DateRange(ctx)
		}),
		"browse.authors": bind(func(ctx context.Context, _ *domain.Identity, p pageParams) (any, error) {
			return svc.BrowseAuthors(ctx, p.Page)
		}),

		"stats.summary": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.Summary(ctx)
		}),
		"stats.top_authors": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.TopAuthors(ctx)
		}),
		"stats.top_downloads": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.TopDownloads(ctx)
		}),
		"stats.downloads_over_time": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.DownloadsOverTime(ctx)
		}),
		"stats.submissions_over_time": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.SubmissionsOverTime(ctx)
		}),
		"stats.submissions_by_type": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.SubmissionsByType(ctx)
		}),
		"stats.active_collections": bind(func(ctx context.Context, _ *domain.Identity, _ struct{}) (any, error) {
			return svc.MostActiveCollections(ctx)
		}),

		"users.list": bind(func(ctx context.Context, actor *domain.Identity, p limitParams) (any, error) {
			return svc.ListUsers(ctx, actor, p.Query, p.Limit)
		}),
		"users.get": bind(func(ctx context.Context, actor *domain.Identity, p idParams) (any, error) {
			return svc.GetUser(ctx, actor, p.ID)
		}),
		"users.create": bind(func(ctx context.Context, actor *domain.Identity, p application.UserInput) (any, error) {
			return svc.CreateUser(ctx, actor, p)
		}),
		"users.update": bind(func(ctx context.Context, actor *domain.Identity, p userParams) (any, error) {
			return svc.UpdateUser(ctx, actor, p.ID, p.UserUpdate)
		}),
		"users.delete": bind(func(ctx context.Context, actor *domain.Identity, p idParams) (any, error) {
			return okResult(), svc.DeleteUser(ctx, actor, p.ID)
		}),

		"audit.list": bind(func(ctx context.Context, actor *domain.Identity, p limitParams) (any, error) {
			return svc.ListAuditLogs(ctx, actor, p.Limit)
		}),
	}
}
