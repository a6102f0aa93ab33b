// Package service implements the folder hierarchy operations on top of the
// document store and the byte storage.
package service

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/files-manager/internal/web/files/model"
	"github.com/Laisky/files-manager/internal/web/files/storage"
	"github.com/Laisky/files-manager/internal/web/files/store"
	"github.com/Laisky/files-manager/library/log"
)

// Clock returns the current time in UTC.
type Clock func() time.Time

// Service coordinates file record operations.
type Service struct {
	docs     store.DocumentStore
	bytes    storage.Storage
	logger   logSDK.Logger
	clock    Clock
	pageSize int
}

// NewService constructs the files service.
func NewService(docs store.DocumentStore, bytes storage.Storage, logger logSDK.Logger, clock Clock) (*Service, error) {
	if docs == nil {
		return nil, errors.New("document store is required")
	}
	if bytes == nil {
		return nil, errors.New("byte storage is required")
	}
	if logger == nil {
		logger = log.Logger.Named("files_service")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		docs:     docs,
		bytes:    bytes,
		logger:   logger,
		clock:    clock,
		pageSize: store.DefaultPageSize,
	}, nil
}

// LoggerFromContext returns the request-scoped logger when available.
func (s *Service) LoggerFromContext(ctx context.Context) logSDK.Logger {
	if ctx != nil {
		if ctxLogger := gmw.GetLogger(ctx); ctxLogger != nil {
			return ctxLogger
		}
	}

	return s.logger
}

// ready fails with STORE_UNAVAILABLE before any other check is made.
func (s *Service) ready() error {
	if !s.docs.IsAlive() {
		return errors.WithStack(model.ErrStoreUnavailable())
	}

	return nil
}

// Get returns a record owned by userID. Foreign and missing records
// are both NOT_FOUND.
func (s *Service) Get(ctx context.Context, userID model.ID, rawFileID string) (*model.FileRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	fileID, err := model.ParseID(rawFileID)
	if err != nil {
		return nil, errors.WithStack(model.ErrNotFound())
	}

	rec, err := s.docs.FindFile(ctx, store.FileFilter{ID: fileID, OwnerID: userID})
	if err != nil {
		return nil, errors.Wrapf(err, "find file %s", fileID.Hex())
	}

	return rec, nil
}

// ListChildren returns one page of the requester's records under rawParentID.
// An unparsable parent has no children.
func (s *Service) ListChildren(ctx context.Context, userID model.ID, rawParentID string, pageIndex int) ([]*model.FileRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	parentID, err := model.ParseParentID(rawParentID)
	if err != nil {
		return []*model.FileRecord{}, nil
	}

	records, err := s.docs.ListChildren(ctx, store.ChildrenFilter{
		ParentID: parentID,
		OwnerID:  userID,
	}, pageIndex, s.pageSize)
	if err != nil {
		return nil, errors.Wrap(err, "list children")
	}

	return records, nil
}

// SetVisibility sets is_public on a record owned by userID and returns
// the refreshed record. Setting the current value again is a no-op.
func (s *Service) SetVisibility(ctx context.Context, userID model.ID, rawFileID string, public bool) (*model.FileRecord, error) {
	rec, err := s.Get(ctx, userID, rawFileID)
	if err != nil {
		return nil, err
	}

	if rec.IsPublic != public {
		if err = s.docs.SetPublic(ctx, rec.ID, public); err != nil {
			return nil, errors.Wrapf(err, "set public of %s", rec.ID.Hex())
		}
	}

	fileID := rec.ID
	rec, err = s.docs.FindFile(ctx, store.FileFilter{ID: fileID, OwnerID: userID})
	if err != nil {
		return nil, errors.Wrapf(err, "reload file %s", fileID.Hex())
	}

	s.LoggerFromContext(ctx).Debug("file visibility changed",
		zap.String("file", rec.ID.Hex()),
		zap.Bool("public", rec.IsPublic),
	)
	return rec, nil
}

// Stats counts users and files.
func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	if err := s.ready(); err != nil {
		return model.Stats{}, err
	}

	stats, err := s.docs.Stats(ctx)
	if err != nil {
		return model.Stats{}, errors.Wrap(err, "load stats")
	}

	return stats, nil
}
