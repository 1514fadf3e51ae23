package drive

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"cloudfiles/internal/config"
	"cloudfiles/internal/domain"
	driveSvc "cloudfiles/internal/domain/services/drive"
)

var noSlash = regexp.MustCompile(`^[^/]+$`)

func nameRules(maxLength int, kind string) []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(1, maxLength),
		validation.Match(noSlash).Error(kind + " name cannot contain slashes"),
		validation.NotIn(".", "..").Error(kind + " name cannot be '.' or '..'"),
	}
}

func validationError(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func (s *driveService) validateCreateFolder(req *driveSvc.CreateFolderRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Name, nameRules(config.MaxFolderNameLength, "folder")...),
	)
	if err != nil {
		return validationError(err)
	}
	return nil
}

func (s *driveService) validateRenameFolder(req *driveSvc.RenameFolderRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.FolderID, validation.Required),
		validation.Field(&req.Name, nameRules(config.MaxFolderNameLength, "folder")...),
	)
	if err != nil {
		return validationError(err)
	}
	return nil
}

func (s *driveService) validateUpload(req *driveSvc.UploadFileRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Name, nameRules(config.MaxFileNameLength, "file")...),
		validation.Field(&req.Body, validation.NotNil),
	)
	if err != nil {
		return validationError(err)
	}
	return nil
}
