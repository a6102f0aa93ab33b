package service

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/files-manager/internal/web/files/model"
	"github.com/Laisky/files-manager/internal/web/files/store"
)

// CreateInput is the raw payload of a create request.
type CreateInput struct {
	Name     string
	Kind     string
	ParentID string
	IsPublic bool
	// Data base64 encoded content, required unless Kind is folder
	Data string
}

// Create validates in and persists a new record owned by userID.
//
// Checks run in order name, kind, data, parent, the first failure wins.
// Contents are written to storage before the metadata is inserted, and
// removed again if the insert fails.
func (s *Service) Create(ctx context.Context, userID model.ID, in CreateInput) (*model.FileRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, model.MsgMissingName))
	}

	kind, ok := model.ParseKind(strings.TrimSpace(in.Kind))
	if !ok {
		return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, model.MsgMissingType))
	}

	if kind.HasContent() && in.Data == "" {
		return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, model.MsgMissingData))
	}

	parentID, err := s.checkParent(ctx, userID, in.ParentID)
	if err != nil {
		return nil, err
	}

	rec := &model.FileRecord{
		OwnerID:   userID,
		Name:      name,
		Kind:      kind,
		ParentID:  parentID,
		IsPublic:  in.IsPublic,
		CreatedAt: s.clock(),
	}

	if !kind.HasContent() {
		rec, err = s.docs.InsertFile(ctx, rec)
		if err != nil {
			return nil, errors.Wrap(err, "insert folder")
		}

		return rec, nil
	}

	content, err := base64.StdEncoding.DecodeString(in.Data)
	if err != nil {
		return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, model.MsgInvalidData))
	}

	logger := s.LoggerFromContext(ctx)
	location, err := s.bytes.Write(ctx, content)
	if err != nil {
		logger.Error("write file content", zap.Error(err), zap.String("name", name))
		return nil, errors.WithStack(model.NewError(model.ErrCodeStorageWriteFailed, model.MsgStorageWriteFailed))
	}
	rec.StoragePath = location

	saved, err := s.docs.InsertFile(ctx, rec)
	if err != nil {
		// the caller may have gone away, cleanup must still run
		if rmErr := s.bytes.Remove(context.WithoutCancel(ctx), location); rmErr != nil {
			logger.Error("remove orphan content",
				zap.Error(rmErr),
				zap.String("location", location),
			)
		}

		return nil, errors.Wrap(err, "insert file")
	}

	logger.Info("file created",
		zap.String("file", saved.ID.Hex()),
		zap.String("type", string(saved.Kind)),
		zap.Int("size", len(content)),
	)
	return saved, nil
}

// checkParent resolves rawParentID to the root or to a folder owned by userID.
func (s *Service) checkParent(ctx context.Context, userID model.ID, rawParentID string) (model.ID, error) {
	parentID, err := model.ParseParentID(rawParentID)
	if err != nil {
		return model.RootID, errors.WithStack(model.NewError(model.ErrCodeInvalidParent, model.MsgParentNotFound))
	}
	if parentID.IsZero() {
		return model.RootID, nil
	}

	parent, err := s.docs.FindFile(ctx, store.FileFilter{ID: parentID, OwnerID: userID})
	switch {
	case model.IsCode(err, model.ErrCodeNotFound):
		return model.RootID, errors.WithStack(model.NewError(model.ErrCodeInvalidParent, model.MsgParentNotFound))
	case err != nil:
		return model.RootID, errors.Wrapf(err, "find parent %s", parentID.Hex())
	case parent.Kind != model.KindFolder:
		return model.RootID, errors.WithStack(model.NewError(model.ErrCodeInvalidParent, model.MsgParentNotFolder))
	}

	return parentID, nil
}
