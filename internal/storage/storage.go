package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"neweyes-online/internal/config"
)

const MaxImageBytes = 8 << 20

var (
	ErrUnsupportedImage = errors.New("image must be png, jpeg, webp or gif")
	ErrImageTooLarge    = errors.New("image is larger than 8 MB")
)

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Images stores uploaded artwork and builds its public URLs.
type Images struct {
	provider Provider
	baseURL  string
}

func NewImages(provider Provider, publicBaseURL string) *Images {
	return &Images{provider: provider, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// New picks the provider named by STORAGE_PROVIDER.
func New(cfg config.Config) (*Images, error) {
	switch cfg.StorageProvider {
	case "", "local":
		return NewImages(NewLocalProvider(cfg.StorageLocalRoot), cfg.StoragePublicBaseURL), nil
	case "s3":
		provider, err := NewS3Provider(S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return NewImages(provider, cfg.StoragePublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}
}

// Key is {entityID}/{rendition}.{ext}.
func Key(entityID, rendition, ext string) string {
	return entityID + "/" + rendition + "." + ext
}

// Upload sniffs the content type, stores the image and returns its key.
func (i *Images) Upload(ctx context.Context, entityID, rendition string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxImageBytes {
		return "", ErrImageTooLarge
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedImage
	}
	key := Key(entityID, rendition, ext)
	if err := i.provider.Put(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("store image %s: %w", key, err)
	}
	return key, nil
}

func (i *Images) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return i.provider.Delete(ctx, key)
}

// URL returns the public address of a stored key, or "" for no image.
func (i *Images) URL(key string) string {
	if key == "" {
		return ""
	}
	return i.baseURL + "/" + key
}
