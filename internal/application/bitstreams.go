package application

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"go.uber.org/zap"
)

const octetStream = "application/octet-stream"

// UploadInput is one file to attach. A missing or generic MimeType is
// guessed from the file extension.
type UploadInput struct {
	Name     string
	MimeType string
	Content  io.Reader
}

// UploadBitstream stores the content and then records it. When the record
// cannot be written the stored file is removed again.
func (s *Service) UploadBitstream(ctx context.Context, actor *domain.Identity, itemID uint, in UploadInput) (domain.Bitstream, error) {
	name := filepath.Base(strings.TrimSpace(in.Name))
	if name == "" || name == "." || name == string(filepath.Separator) || in.Content == nil {
		return domain.Bitstream{}, domain.ErrValidation.New("file is required")
	}
	if _, err := s.editableItem(ctx, actor, itemID); err != nil {
		return domain.Bitstream{}, err
	}

	key, size, err := s.files.Store(ctx, name, in.Content)
	if err != nil {
		return domain.Bitstream{}, err
	}
	mimeType := in.MimeType
	if mimeType == "" || mimeType == octetStream {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}
	if mimeType == "" {
		mimeType = octetStream
	}

	b, err := s.repo.CreateBitstream(ctx, domain.Bitstream{
		ItemID:     itemID,
		Name:       name,
		MimeType:   mimeType,
		Size:       size,
		StorageKey: key,
	})
	if err != nil {
		if rmErr := s.files.Remove(ctx, key); rmErr != nil {
			s.log.Error("uploaded file left behind", zap.String("storage_key", key), zap.Error(rmErr))
		}
		return domain.Bitstream{}, err
	}
	s.audit(ctx, actor, "bitstream.create", "item", itemID, name)
	return b, nil
}

func (s *Service) ListItemBitstreams(ctx context.Context, actor *domain.Identity, itemID uint) ([]domain.Bitstream, error) {
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
	return s.repo.ListBitstreams(ctx, itemID)
}

// DeleteBitstream removes the row first and the file afterwards.
func (s *Service) DeleteBitstream(ctx context.Context, actor *domain.Identity, itemID, bitstreamID uint) error {
	if _, err := s.editableItem(ctx, actor, itemID); err != nil {
		return err
	}
	b, err := s.repo.GetBitstream(ctx, bitstreamID)
	if err != nil {
		return err
	}
	if b.ItemID != itemID {
		return domain.ErrNotFound.New("bitstream not found")
	}
	if err := s.repo.DeleteBitstream(ctx, bitstreamID); err != nil {
		return err
	}
	s.removeFile(ctx, b)
	s.audit(ctx, actor, "bitstream.delete", "item", itemID, b.Name)
	return nil
}

// Download opens a bitstream and counts the download. Bitstreams of
// unpublished items are reported missing to anyone not allowed to see them.
// The caller closes the reader.
func (s *Service) Download(ctx context.Context, actor *domain.Identity, bitstreamID uint) (domain.Bitstream, io.ReadCloser, error) {
	b, err := s.repo.GetBitstream(ctx, bitstreamID)
	if err != nil {
		return domain.Bitstream{}, nil, err
	}
	item, err := s.repo.GetItem(ctx, b.ItemID)
	if err != nil {
		return domain.Bitstream{}, nil, err
	}
	if item.Status != domain.StatusPublished &&
		!domain.Permissions(actor, item.SubmitterID).Has(domain.ActionDownloadUnpublished) {
		return domain.Bitstream{}, nil, domain.ErrNotFound.New("bitstream not found")
	}

	rc, err := s.files.Open(ctx, b.StorageKey)
	if err != nil {
		return domain.Bitstream{}, nil, err
	}
	if err := s.repo.IncrementDownloads(ctx, b.ID); err != nil {
		_ = rc.Close()
		return domain.Bitstream{}, nil, err
	}
	b.DownloadCount++
	s.recorder.ObserveDownload()
	return b, rc, nil
}
