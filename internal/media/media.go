// Package media stores vehicle photos and returns their public URLs.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrUnsupportedType = errors.New("unsupported image type")

// ImageHost uploads an image and returns the URL it is served from.
type ImageHost interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Sniff reads the head of r to detect its content type and returns a reader
// that still yields the whole stream.
func Sniff(r io.Reader) (contentType, ext string, full io.Reader, err error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", nil, fmt.Errorf("read image: %w", err)
	}
	head = head[:n]
	contentType = http.DetectContentType(head)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return contentType, "", nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return contentType, ext, io.MultiReader(bytes.NewReader(head), r), nil
}

// CloudinaryHost uploads to a Cloudinary folder.
type CloudinaryHost struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

func NewCloudinaryHost(cloudName, apiKey, apiSecret, folder string, logger *zerolog.Logger) (*CloudinaryHost, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryHost{
		cld:    cld,
		folder: folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

func (h *CloudinaryHost) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	_, _, body, err := Sniff(r)
	if err != nil {
		return "", err
	}
	params := uploader.UploadParams{
		Folder:         h.folder,
		PublicID:       publicID(filename),
		ResourceType:   "image",
		UniqueFilename: api.Bool(false),
		Overwrite:      api.Bool(false),
	}
	result, err := h.cld.Upload.Upload(ctx, body, params)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("upload %s: %s", filename, result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("upload %s: no URL returned", filename)
	}
	h.logger.Info().Str("public_id", result.PublicID).Msg("image uploaded")
	return result.SecureURL, nil
}

// publicID derives a unique, URL-safe id from the original file name.
func publicID(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	id := uuid.NewString()[:8]
	if slug == "" {
		return id
	}
	if len(slug) > 40 {
		slug = slug[:40]
	}
	return slug + "-" + id
}

// LocalHost writes images under Dir and serves them below BaseURL. Used when
// no Cloudinary account is configured.
type LocalHost struct {
	Dir     string
	BaseURL string
}

func (h *LocalHost) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, ext, body, err := Sniff(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}
	name := publicID(filename) + ext
	f, err := os.Create(filepath.Join(h.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(h.BaseURL, "/") + "/" + name, nil
}
