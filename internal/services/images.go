package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
)

// Vision input constraints: the model's optimal max dimension, with the
// payload kept under the 5MB API limit with some margin.
const (
	imageMaxDimension = 1568
	imageMaxBytes     = 4_500_000
	jpegQuality       = 85
	jpegMinQuality    = 30
)

// ImageService normalizes uploaded photos for vision input and persists
// them per user. All stored images are re-encoded as JPEG.
type ImageService interface {
	Process(data []byte) ([]byte, error)
	Upload(ctx context.Context, userID string, data []byte) (string, error)
	Load(ctx context.Context, userID, name string) ([]byte, error)
	DeleteAll(ctx context.Context, userID string, names []string)
}

type imageService struct {
	log  *logger.Logger
	blob BlobStore
}

func NewImageService(log *logger.Logger, blob BlobStore) ImageService {
	return &imageService{
		log:  log.With("service", "ImageService"),
		blob: blob,
	}
}

func decodeImage(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("unsupported image format")
}

// Process decodes a JPEG, PNG, GIF, or WebP upload, scales it down to the
// max dimension when needed, and re-encodes as JPEG, stepping quality down
// until the result fits the size limit.
func (s *imageService) Process(data []byte) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > imageMaxDimension || h > imageMaxDimension {
		scale := float64(imageMaxDimension) / float64(max(w, h))
		nw, nh := int(float64(w)*scale), int(float64(h)*scale)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	for quality := jpegQuality; quality >= jpegMinQuality; quality -= 10 {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
		if buf.Len() <= imageMaxBytes {
			return buf.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("image too large after compression")
}

func (s *imageService) Upload(ctx context.Context, userID string, data []byte) (string, error) {
	processed, err := s.Process(data)
	if err != nil {
		return "", err
	}
	name := strings.ReplaceAll(uuid.New().String(), "-", "")[:12] + ".jpg"
	if err := s.blob.Put(ctx, imageKey(userID, name), processed, "image/jpeg"); err != nil {
		return "", err
	}
	return name, nil
}

func (s *imageService) Load(ctx context.Context, userID, name string) ([]byte, error) {
	return s.blob.Get(ctx, imageKey(userID, name))
}

// DeleteAll removes a conversation's images best effort; failures are
// logged and skipped.
func (s *imageService) DeleteAll(ctx context.Context, userID string, names []string) {
	for _, name := range names {
		if err := s.blob.Delete(ctx, imageKey(userID, name)); err != nil {
			s.log.Warn("image delete failed", "name", name, "error", err.Error())
		}
	}
}
