package api

import (
	"mime/multipart"
	"net/http"

	"marketplace-service/internal/media"
	"marketplace-service/internal/models"

	"github.com/gin-gonic/gin"
)

// uploadImage stores a single image for the calling user
func (h *Handler) uploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}

	userID := currentUserID(c)
	upload, err := h.uploadOne(c, h.media.UserFolder(userID), fileHeader)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Image upload failed"})
		return
	}

	c.JSON(http.StatusOK, upload)
}

// uploadProductImages stores a batch of listing images for a seller
func (h *Handler) uploadProductImages(c *gin.Context) {
	sellerID := currentUserID(c)
	if err := h.accounts.VerifyRole(c.Request.Context(), sellerID, models.RoleSeller); err != nil {
		writeError(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image files provided"})
		return
	}
	if len(files) > h.maxProductImages {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many images"})
		return
	}

	folder := h.media.ProductFolder(sellerID)
	uploaded := make([]media.Upload, 0, len(files))
	failed := make([]string, 0)

	for _, fileHeader := range files {
		upload, err := h.uploadOne(c, folder, fileHeader)
		if err != nil {
			failed = append(failed, fileHeader.Filename)
			continue
		}
		uploaded = append(uploaded, *upload)
	}

	status := http.StatusOK
	if len(uploaded) == 0 {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"uploaded": uploaded,
		"failed":   failed,
	})
}

func (h *Handler) uploadOne(c *gin.Context, folder string, fileHeader *multipart.FileHeader) (*media.Upload, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return h.media.UploadImage(c.Request.Context(), folder, fileHeader.Filename, file)
}
