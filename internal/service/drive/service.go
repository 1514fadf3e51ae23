// Package drive implements folder resolution, folder and file mutations,
// live folder views and orphaned-blob reconciliation.
package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cloudfiles/internal/config"
	"cloudfiles/internal/domain"
	models "cloudfiles/internal/domain/models/drive"
	"cloudfiles/internal/domain/repositories"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
	"cloudfiles/internal/storage/blob"
)

type driveService struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   driveRepo.FileRepository
	blobs      driveSvc.BlobStore
	feed       driveSvc.ChangeFeed
	txManager  repositories.TransactionManager
	resolver   *Resolver
	logger     *slog.Logger
}

// NewDriveService creates the drive service
func NewDriveService(
	folderRepo driveRepo.FolderRepository,
	fileRepo driveRepo.FileRepository,
	blobs driveSvc.BlobStore,
	feed driveSvc.ChangeFeed,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) driveSvc.DriveService {
	return &driveService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		blobs:      blobs,
		feed:       feed,
		txManager:  txManager,
		resolver:   NewResolver(folderRepo, logger),
		logger:     logger,
	}
}

// GetFolder resolves a folder, returning domain.ErrNotFound when it is absent
func (s *driveService) GetFolder(ctx context.Context, userID string, ref models.FolderRef) (*models.Folder, error) {
	folder, err := s.resolver.Resolve(ctx, userID, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve folder: %w", err)
	}
	if folder == nil {
		return nil, fmt.Errorf("folder %s: %w", ref, domain.ErrNotFound)
	}
	return folder, nil
}

// ListChildren returns the folder with its child folders and files
func (s *driveService) ListChildren(ctx context.Context, userID string, ref models.FolderRef) (*driveSvc.FolderContents, error) {
	folder, err := s.GetFolder(ctx, userID, ref)
	if err != nil {
		return nil, err
	}

	folders, err := s.folderRepo.ListChildren(ctx, ref.ID(), userID)
	if err != nil {
		return nil, err
	}

	files, err := s.fileRepo.ListByFolder(ctx, ref.ID(), userID)
	if err != nil {
		return nil, err
	}

	return &driveSvc.FolderContents{
		Folder:  folder,
		Folders: folders,
		Files:   files,
	}, nil
}

// CreateFolder creates a folder under the requested parent. The stored path
// is the parent's current path followed by the parent itself.
func (s *driveService) CreateFolder(ctx context.Context, req *driveSvc.CreateFolderRequest) (*models.Folder, error) {
	if err := s.validateCreateFolder(req); err != nil {
		return nil, err
	}

	parentRef := models.FolderByID(req.ParentID)
	var folder *models.Folder

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		parent, err := s.resolver.Resolve(txCtx, req.UserID, parentRef)
		if err != nil {
			return fmt.Errorf("resolve parent folder: %w", err)
		}
		if parent == nil {
			return fmt.Errorf("parent folder %s: %w", parentRef, domain.ErrNotFound)
		}
		if len(parent.Path)+1 >= config.MaxFolderDepth {
			return fmt.Errorf("%w: folders cannot be nested deeper than %d levels", domain.ErrValidation, config.MaxFolderDepth)
		}

		if err := s.checkSiblingName(txCtx, req.UserID, parentRef.ID(), req.Name, ""); err != nil {
			return err
		}

		now := time.Now()
		folder = &models.Folder{
			UserID:    req.UserID,
			ParentID:  parentRef.ID(),
			Name:      req.Name,
			Path:      parent.ChildPath(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.folderRepo.Create(txCtx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"parent_id", folder.ParentID,
		"user_id", folder.UserID,
	)
	s.publish(ctx, models.CollectionFolders, models.OpCreated, folder.ID, folder.UserID, folder.ParentID)

	return folder, nil
}

// RenameFolder changes only the folder's name. Descendants pick the new name
// up through read-time path resolution.
func (s *driveService) RenameFolder(ctx context.Context, req *driveSvc.RenameFolderRequest) (*models.Folder, error) {
	if err := s.validateRenameFolder(req); err != nil {
		return nil, err
	}

	ref := models.FolderByID(req.FolderID)
	if ref.IsRoot() {
		return nil, fmt.Errorf("%w: the root folder cannot be renamed", domain.ErrValidation)
	}

	var parentID string
	var renamed bool

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		folder, err := s.folderRepo.GetByID(txCtx, ref.ID(), req.UserID)
		if err != nil {
			return err
		}
		parentID = folder.ParentID

		if folder.Name == req.Name {
			return nil
		}
		if err := s.checkSiblingName(txCtx, req.UserID, folder.ParentID, req.Name, folder.ID); err != nil {
			return err
		}

		renamed = true
		return s.folderRepo.Rename(txCtx, folder.ID, req.UserID, req.Name, time.Now())
	})
	if err != nil {
		return nil, err
	}

	if renamed {
		s.logger.Info("folder renamed",
			"id", ref.ID(),
			"name", req.Name,
			"user_id", req.UserID,
		)
		s.publish(ctx, models.CollectionFolders, models.OpUpdated, ref.ID(), req.UserID, parentID)
	}

	return s.GetFolder(ctx, req.UserID, ref)
}

// DeleteFolder deletes an empty folder. Folders with any child folder or file
// are refused with domain.ErrFolderNotEmpty before anything is mutated.
func (s *driveService) DeleteFolder(ctx context.Context, userID, folderID string) error {
	ref := models.FolderByID(folderID)
	if ref.IsRoot() {
		return fmt.Errorf("%w: the root folder cannot be deleted", domain.ErrValidation)
	}

	var parentID string
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		folder, err := s.folderRepo.GetByID(txCtx, ref.ID(), userID)
		if err != nil {
			return err
		}
		parentID = folder.ParentID

		hasFolders, err := s.folderRepo.HasChildren(txCtx, folder.ID, userID)
		if err != nil {
			return err
		}
		hasFiles, err := s.fileRepo.HasFiles(txCtx, folder.ID, userID)
		if err != nil {
			return err
		}
		if hasFolders || hasFiles {
			return domain.ErrFolderNotEmpty
		}

		return s.folderRepo.Delete(txCtx, folder.ID, userID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("folder deleted", "id", ref.ID(), "user_id", userID)
	s.publish(ctx, models.CollectionFolders, models.OpDeleted, ref.ID(), userID, parentID)

	return nil
}

// UploadFile stores the content under the folder's hierarchical key, then
// creates the file record or points the existing same-named record at it
func (s *driveService) UploadFile(ctx context.Context, req *driveSvc.UploadFileRequest) (*driveSvc.UploadResult, error) {
	if err := s.validateUpload(req); err != nil {
		return nil, err
	}

	ref := models.FolderByID(req.FolderID)
	folder, err := s.GetFolder(ctx, req.UserID, ref)
	if err != nil {
		return nil, err
	}

	previous, err := s.fileRepo.FindByName(ctx, ref.ID(), req.UserID, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing file: %w", err)
	}
	var previousID string
	if previous != nil {
		previousID = previous.ID
	}

	// A renamed folder's files keep their old keys, so the path-derived key
	// may already belong to another record
	key := blob.ObjectKey(req.UserID, folder.PathNames(), req.Name)
	shared, err := s.referencedElsewhere(ctx, s.blobs.URLFor(key), previousID)
	if err != nil {
		return nil, err
	}
	isolated := func() string {
		return blob.IsolatedObjectKey(req.UserID, uuid.NewString(), folder.PathNames(), req.Name)
	}
	if shared {
		key = isolated()
	}

	url, err := s.blobs.Put(ctx, key, req.Body, req.Size, req.ContentType)
	if errors.Is(err, blob.ErrKeyConflict) && !shared {
		key = isolated()
		url, err = s.blobs.Put(ctx, key, req.Body, req.Size, req.ContentType)
	}
	if err != nil {
		return nil, fmt.Errorf("store file content: %w", err)
	}

	now := time.Now()
	file := &models.File{
		UserID:      req.UserID,
		FolderID:    ref.ID(),
		Name:        req.Name,
		URL:         url,
		Size:        req.Size,
		ContentType: req.ContentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.fileRepo.Upsert(ctx, file)
	if err != nil {
		// The blob stays behind; the orphan sweep reclaims it
		s.logger.Warn("file record upsert failed after blob upload",
			"key", key,
			"user_id", req.UserID,
			"error", err,
		)
		return nil, err
	}

	if previous != nil && previous.URL != url {
		s.releaseBlob(ctx, previous.URL, file.ID)
	}

	op := models.OpUpdated
	if created {
		op = models.OpCreated
	}
	s.logger.Info("file uploaded",
		"id", file.ID,
		"name", file.Name,
		"folder_id", file.FolderID,
		"size", file.Size,
		"created", created,
	)
	s.publish(ctx, models.CollectionFiles, op, file.ID, file.UserID, file.FolderID)

	return &driveSvc.UploadResult{File: file, Created: created}, nil
}

// DeleteFile removes the blob first, then the record. Content another record
// still references is kept. A failed blob delete is logged and does not stop
// the record delete; a failed record delete after a successful blob delete is
// not rolled back.
func (s *driveService) DeleteFile(ctx context.Context, userID, fileID string) error {
	file, err := s.fileRepo.GetByID(ctx, fileID, userID)
	if err != nil {
		return err
	}

	s.releaseBlob(ctx, file.URL, file.ID)

	if err := s.fileRepo.Delete(ctx, file.ID, userID); err != nil {
		return err
	}

	s.logger.Info("file deleted", "id", file.ID, "user_id", userID)
	s.publish(ctx, models.CollectionFiles, models.OpDeleted, file.ID, userID, file.FolderID)

	return nil
}

// referencedElsewhere reports whether a record other than selfID points at url
func (s *driveService) referencedElsewhere(ctx context.Context, url, selfID string) (bool, error) {
	refs, err := s.fileRepo.ListByURL(ctx, url)
	if err != nil {
		return false, fmt.Errorf("failed to check blob references: %w", err)
	}
	for _, ref := range refs {
		if ref.ID != selfID {
			return true, nil
		}
	}
	return false, nil
}

// releaseBlob deletes the object at url unless another record still uses it.
// Failures are logged; whatever stays behind is left to the orphan sweep.
func (s *driveService) releaseBlob(ctx context.Context, url, selfID string) {
	shared, err := s.referencedElsewhere(ctx, url, selfID)
	if err != nil {
		s.logger.Error("failed to check file content references", "url", url, "error", err)
		return
	}
	if shared {
		s.logger.Debug("file content still referenced, keeping it", "url", url)
		return
	}

	if err := s.blobs.Delete(ctx, url); err != nil {
		s.logger.Error("failed to delete file content",
			"id", selfID,
			"url", url,
			"error", err,
		)
	}
}

// checkSiblingName rejects name when another folder under parentID has it
func (s *driveService) checkSiblingName(ctx context.Context, userID, parentID, name, selfID string) error {
	existing, err := s.folderRepo.FindByName(ctx, parentID, userID, name)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate names: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in this location", name),
			ResourceType: "folder",
			ResourceID:   existing.ID,
		}
	}
	return nil
}

// publish announces a committed change. Feed failures are logged only; the
// mutation itself has already succeeded.
func (s *driveService) publish(ctx context.Context, collection models.Collection, op models.ChangeOp, id, userID, parentID string) {
	event := models.ChangeEvent{
		Collection: collection,
		Op:         op,
		ID:         id,
		UserID:     userID,
		ParentID:   parentID,
		At:         time.Now(),
	}
	if err := s.feed.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish change event",
			"collection", collection,
			"op", op,
			"id", id,
			"error", err,
		)
	}
}
