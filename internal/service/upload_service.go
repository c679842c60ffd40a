package service

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"forum/internal/middleware"
	"forum/internal/models"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

const DefaultUploadMaxSizeMB = 5

var allowedUploadTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

type UploadInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// UploadResult is returned to the client. ReferenceURL is the value to store
// in posts and profiles; URL is a signed link for immediate display.
type UploadResult struct {
	URL          string `json:"url"`
	ReferenceURL string `json:"referenceUrl"`
	Filename     string `json:"filename"`
	Mimetype     string `json:"mimetype"`
	Size         int64  `json:"size"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

type UploadService struct {
	files     FileStore
	maxSizeMB int
	expires   string
}

func NewUploadService(files FileStore, maxSizeMB int, expires string) *UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultUploadMaxSizeMB
	}
	return &UploadService{files: files, maxSizeMB: maxSizeMB, expires: expires}
}

// MaxBytes is the largest accepted upload.
func (s *UploadService) MaxBytes() int64 {
	return int64(s.maxSizeMB) * 1024 * 1024
}

func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded").WithParam("file")
	}

	contentType := normalizeContentType(in.ContentType)
	if !allowedUploadTypes[contentType] {
		return nil, models.NewInvalidFileTypeError(contentType)
	}
	if int64(len(in.Content)) > s.MaxBytes() {
		return nil, models.NewFileTooLargeError(s.maxSizeMB)
	}

	result := &UploadResult{
		Filename: filepath.Base(in.Filename),
		Mimetype: contentType,
		Size:     int64(len(in.Content)),
	}

	if strings.HasPrefix(contentType, "image/") {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
		if err != nil {
			return nil, models.NewValidationError("Invalid image file").WithParam("file")
		}
		if decodedFormatToMime(format) != contentType {
			return nil, models.NewValidationError("Image content type mismatch").WithParam("file")
		}
		result.Width, result.Height = cfg.Width, cfg.Height
	}

	ref, err := s.files.Upload(ctx, bytes.NewReader(in.Content), result.Size, in.Filename, contentType)
	if err != nil {
		return nil, err
	}
	result.ReferenceURL = ref

	signed, err := s.files.Resolve(ctx, ref, s.expires)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Signing uploaded file failed",
			slog.String("reference", ref),
			slog.String("error", err.Error()))
		signed = ref
	}
	result.URL = signed

	middleware.Logger.InfoContext(ctx, "File uploaded",
		slog.Uint64("user_id", uint64(in.UserID)),
		slog.String("reference", ref),
		slog.String("mimetype", contentType),
		slog.Int64("size", result.Size))
	return result, nil
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
