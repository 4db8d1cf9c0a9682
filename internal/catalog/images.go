package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/obs"
	"github.com/noah-isme/backend-electronic/internal/queue"
	"github.com/noah-isme/backend-electronic/internal/static"
)

// DefaultMaxImageBytes caps product image uploads.
const DefaultMaxImageBytes = 5 << 20

// ImageField is the multipart field carrying the upload.
const ImageField = "image"

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var errUnsupportedImage = common.NewAppError("UNSUPPORTED_MEDIA_TYPE", "image must be jpeg, png, gif or webp", http.StatusUnsupportedMediaType, nil)

func (c *Controller) maxImageBytes() int64 {
	if c.MaxImageBytes > 0 {
		return c.MaxImageBytes
	}
	return DefaultMaxImageBytes
}

func tooLarge(err error) *common.AppError {
	return common.NewAppError("PAYLOAD_TOO_LARGE", "image too large", http.StatusRequestEntityTooLarge, err)
}

// UploadImage handles POST /api/products/{id}/image. The file is sniffed,
// stored under a random name and linked to the product; the previous image
// is scheduled for deletion.
func (c *Controller) UploadImage(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	product, err := s.Products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.Fail(w, err, "product")
		return
	}

	limit := c.maxImageBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		obs.RecordImageUpload(r.Context(), "rejected")
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.WriteError(w, tooLarge(err))
			return
		}
		common.WriteError(w, common.BadRequest("multipart form data is required"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(ImageField)
	if err != nil {
		obs.RecordImageUpload(r.Context(), "rejected")
		common.WriteError(w, common.ValidationError([]common.FieldError{{Field: ImageField, Rule: "required"}}))
		return
	}
	defer file.Close()
	if header.Size > limit {
		obs.RecordImageUpload(r.Context(), "rejected")
		common.WriteError(w, tooLarge(nil))
		return
	}

	name, err := c.store(file)
	if err != nil {
		if common.IsAppError(err) {
			obs.RecordImageUpload(r.Context(), "rejected")
		} else {
			obs.RecordImageUpload(r.Context(), "error")
		}
		s.Fail(w, err, "image")
		return
	}

	updated, err := s.Products.SetImage(r.Context(), product.ID, static.URL(name))
	if err != nil {
		obs.RecordImageUpload(r.Context(), "error")
		_ = os.Remove(filepath.Join(c.ImagesDir, name))
		s.Fail(w, err, "product")
		return
	}
	obs.RecordImageUpload(r.Context(), "ok")
	s.Logger.Info().Str("product_id", product.ID).Str("file", name).Int64("size", header.Size).Msg("product image stored")
	c.discardImage(r.Context(), s, product.ImageURL)
	common.Data(w, http.StatusOK, updated)
}

// store writes src to a new file in the image directory and returns its name.
func (c *Controller) store(src io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	ext, ok := imageExtensions[http.DetectContentType(head)]
	if !ok {
		return "", errUnsupportedImage
	}

	name := uuid.NewString() + ext
	path := filepath.Join(c.ImagesDir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, io.MultiReader(bytes.NewReader(head), src)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close image file: %w", err)
	}
	return name, nil
}

// discardImage removes the file behind a product image URL.
func (c *Controller) discardImage(ctx context.Context, s *app.Scope, url string) {
	name := static.FileName(url)
	if name == "" {
		return
	}
	if c.Tasks == nil {
		if err := os.Remove(filepath.Join(c.ImagesDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.Logger.Warn().Err(err).Str("file", name).Msg("remove product image failed")
		}
		return
	}
	task, err := queue.NewImageDeleteTask(name)
	if err == nil {
		err = c.Tasks.Enqueue(ctx, task)
	}
	if err != nil {
		s.Logger.Warn().Err(err).Str("file", name).Msg("schedule image cleanup failed")
	}
}
