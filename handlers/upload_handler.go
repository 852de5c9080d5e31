package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/utils"
)

type UploadHandler struct {
	images services.ImageStore
}

func NewUploadHandler(images services.ImageStore) *UploadHandler {
	return &UploadHandler{images: images}
}

var uploadFolders = map[string]string{
	"items":   services.FolderItems,
	"avatars": services.FolderAvatars,
}

// Signature returns signed parameters for a direct browser upload.
func (h *UploadHandler) Signature(c *fiber.Ctx) error {
	if h.images == nil {
		return utils.NewAppError(fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Image uploads are not configured")
	}
	folder, ok := uploadFolders[c.Query("folder", "items")]
	if !ok {
		return utils.ErrBadRequest("", "folder must be one of [items avatars]")
	}
	sig, err := h.images.Sign(folder)
	if err != nil {
		return err
	}
	return utils.OK(c, sig)
}
