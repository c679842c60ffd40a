package server

import (
	"errors"
	"io"

	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// Upload handles POST /api/uploads
// @Summary Upload a file
// @Description Stores the file in object storage. referenceUrl is what posts and profiles persist; url is a signed link.
// @Tags uploads
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File"
// @Success 201 {object} models.Envelope{data=service.UploadResult}
// @Failure 400 {object} models.Envelope{data=models.ErrorData}
// @Router /uploads [post]
func (s *Server) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) {
			return models.RespondWithAppError(c, models.NewValidationError("No file uploaded").WithParam("file"))
		}
		return models.RespondWithAppError(c, models.NewValidationError("Invalid multipart body").WithParam("file"))
	}
	if header.Size > s.uploadService.MaxBytes() {
		return models.RespondWithAppError(c, models.NewFileTooLargeError(s.config.UploadMaxSizeMB))
	}

	f, err := header.Open()
	if err != nil {
		return models.RespondWithAppError(c, models.NewUploadFailedError(err))
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(io.LimitReader(f, s.uploadService.MaxBytes()+1))
	if err != nil {
		return models.RespondWithAppError(c, models.NewUploadFailedError(err))
	}

	result, err := s.uploadService.Upload(c.UserContext(), service.UploadInput{
		UserID:      currentUserID(c),
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Content:     content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondWithData(c, fiber.StatusCreated, "File uploaded", result)
}
