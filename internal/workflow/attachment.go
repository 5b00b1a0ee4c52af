package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"office-hub/internal/models"
	"office-hub/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	attachmentPrefix      = "tasks/attachments"
	assetAttachmentPrefix = "assets/attachments"
)

var errNoFileStore = errors.New("file storage is not configured")

type AttachmentInput struct {
	Title    string
	FileName string
	Size     int64
	Body     io.Reader
}

func (e *Engine) checkUpload(in AttachmentInput) error {
	if e.files == nil {
		return errNoFileStore
	}
	if in.Body == nil || strings.TrimSpace(in.FileName) == "" {
		return fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	return nil
}

// withStoredFile сохраняет файл и вызывает persist с его ключом. Если
// persist вернул ошибку, файл удаляется.
func (e *Engine) withStoredFile(ctx context.Context, prefix string, in AttachmentInput, persist func(key string) error) error {
	key := storage.NewKey(prefix, in.FileName)
	if err := e.files.Save(ctx, key, in.Body, in.Size); err != nil {
		return fmt.Errorf("store attachment: %w", err)
	}

	if err := persist(key); err != nil {
		if derr := e.files.Delete(context.WithoutCancel(ctx), key); derr != nil {
			e.log.Error().Err(derr).Str("key", key).Msg("failed to remove orphaned attachment")
		}
		return err
	}
	return nil
}

func (e *Engine) fileURL(ctx context.Context, key string) (string, error) {
	if e.files == nil {
		return "", errNoFileStore
	}
	return e.files.URL(ctx, key)
}

// AddAssetAttachment прикладывает файл к оборудованию. В журнал
// оборудования не пишется.
func (e *Engine) AddAssetAttachment(ctx context.Context, assetID uint, uploader *models.User, in AttachmentInput) (*models.AssetAttachment, error) {
	if err := e.checkUpload(in); err != nil {
		return nil, err
	}

	var asset models.Asset
	if err := e.db.WithContext(ctx).First(&asset, assetID).Error; err != nil {
		return nil, translate(err, "load asset")
	}

	var att models.AssetAttachment
	err := e.withStoredFile(ctx, assetAttachmentPrefix, in, func(key string) error {
		att = models.AssetAttachment{
			AssetID:      asset.ID,
			UploadedByID: actorRef(uploader),
			Title:        strings.TrimSpace(in.Title),
			StorageKey:   key,
			FileName:     in.FileName,
			Size:         in.Size,
		}
		if err := e.db.WithContext(ctx).Omit(clause.Associations).Create(&att).Error; err != nil {
			return fmt.Errorf("create asset attachment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &att, nil
}

func (e *Engine) AssetAttachmentURL(ctx context.Context, att *models.AssetAttachment) (string, error) {
	return e.fileURL(ctx, att.StorageKey)
}

// AddTaskDependency отмечает, что blockedID ждёт завершения blockingID.
// Права — как на смену статуса зависимой задачи.
func (e *Engine) AddTaskDependency(ctx context.Context, blockedID, blockingID uint, actor *models.User) (*models.TaskDependency, error) {
	if blockedID == blockingID {
		return nil, fmt.Errorf("%w: task cannot block itself", ErrInvalidInput)
	}

	var dep models.TaskDependency
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blocked, err := loadTaskForGuard(tx, blockedID)
		if err != nil {
			return err
		}
		if !CanTransitionTask(blocked, actor) {
			return fmt.Errorf("task %d: %w", blockedID, ErrForbidden)
		}

		var blocking models.Task
		if err := tx.First(&blocking, blockingID).Error; err != nil {
			return translate(err, "load blocking task")
		}

		var reverse int64
		if err := tx.Model(&models.TaskDependency{}).
			Where("blocking_id = ? AND blocked_id = ?", blockedID, blockingID).
			Count(&reverse).Error; err != nil {
			return fmt.Errorf("check reverse dependency: %w", err)
		}
		if reverse > 0 {
			return fmt.Errorf("%w: tasks %d and %d would block each other", ErrInvalidInput, blockedID, blockingID)
		}

		dep = models.TaskDependency{BlockingID: blocking.ID, BlockedID: blocked.ID}
		return translate(tx.Omit(clause.Associations).Create(&dep).Error, "create dependency")
	})
	if err != nil {
		return nil, err
	}
	return &dep, nil
}

// RemoveTaskDependency снимает зависимость.
func (e *Engine) RemoveTaskDependency(ctx context.Context, dependencyID uint, actor *models.User) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dep models.TaskDependency
		if err := tx.First(&dep, dependencyID).Error; err != nil {
			return translate(err, "load dependency")
		}
		blocked, err := loadTaskForGuard(tx, dep.BlockedID)
		if err != nil {
			return err
		}
		if !CanTransitionTask(blocked, actor) {
			return fmt.Errorf("task %d: %w", dep.BlockedID, ErrForbidden)
		}
		return tx.Delete(&dep).Error
	})
}
