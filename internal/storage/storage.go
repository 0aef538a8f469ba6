package storage

import (
	"NYCU-SDC/survey-backend/internal/config"
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage puts a blob somewhere publicly reachable and hands back its URL
type Storage interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// New picks the backend named by cfg.Type
func New(ctx context.Context, logger *zap.Logger, cfg config.StorageConfig, baseURL string, fileService FileStore) (Storage, error) {
	switch cfg.Type {
	case "", config.StorageTypeDatabase:
		logger.Info("Using database blob storage")
		return NewDatabaseStorage(logger, fileService, baseURL), nil
	case config.StorageTypeLocal:
		logger.Info("Using local disk blob storage", zap.String("dir", cfg.LocalDir))
		return NewLocalStorage(logger, cfg.LocalDir, baseURL)
	case config.StorageTypeMinIO:
		logger.Info("Using MinIO blob storage", zap.String("endpoint", cfg.MinIO.Endpoint), zap.String("bucket", cfg.MinIO.Bucket))
		return NewMinIOStorage(ctx, logger, cfg.MinIO)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageType, cfg.Type)
	}
}

// ObjectName builds the stored name for an upload: <userId>_<unixMillis>_<random id>_<sanitized name>.
// The random id keeps uploads with the same original name apart within one millisecond.
func ObjectName(userID uuid.UUID, now time.Time, originalName string) string {
	return userID.String() + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + uuid.NewString() + "_" + sanitizeName(originalName)
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	sanitized := strings.TrimLeft(b.String(), ".")
	if sanitized == "" {
		return "upload"
	}
	return sanitized
}

// lastSegment returns the final path segment of a blob URL, which every backend uses as the object key
func lastSegment(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	segment := path.Base(parsed.Path)
	if segment == "." || segment == "/" || segment == "" {
		return "", fmt.Errorf("url %q has no object name", rawURL)
	}

	return segment, nil
}
