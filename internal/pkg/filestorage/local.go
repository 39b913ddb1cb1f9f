package filestorage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/machus/backend/internal/pkg/logger"
)

const avatarDir = "avatars"

// Upload errors
var (
	ErrNotImage     = errors.New("only image files are allowed")
	ErrFileTooLarge = errors.New("file exceeds the size limit")
)

// LocalStorage saves uploads under basePath and serves them under publicPrefix.
type LocalStorage struct {
	basePath     string
	publicPrefix string
	maxSize      int64
	now          func() time.Time
}

// NewLocalStorage creates the avatar directory under basePath.
func NewLocalStorage(basePath, publicPrefix string, maxSize int64) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(basePath, avatarDir), 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}

	return &LocalStorage{
		basePath:     basePath,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		maxSize:      maxSize,
		now:          time.Now,
	}, nil
}

// BasePath is the directory served under PublicPrefix.
func (ls *LocalStorage) BasePath() string { return ls.basePath }

// PublicPrefix is the URL prefix of stored files.
func (ls *LocalStorage) PublicPrefix() string { return ls.publicPrefix }

// SaveAvatar stores an image upload for userID and returns its public path.
func (ls *LocalStorage) SaveAvatar(userID int64, fh *multipart.FileHeader) (string, error) {
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return "", ErrNotImage
	}
	if fh.Size > ls.maxSize {
		return "", ErrFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := fmt.Sprintf("%d-%d-%s%s", userID, ls.now().UnixMilli(), uuid.New().String()[:8], ext)
	dstPath := filepath.Join(ls.basePath, avatarDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	// the header size can lie; cap the copy as well
	written, err := io.Copy(dst, io.LimitReader(src, ls.maxSize+1))
	if err == nil && written > ls.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(dstPath)
		if errors.Is(err, ErrFileTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Info().Int64("userID", userID).Str("file", name).Msg("Avatar saved")
	return path.Join(ls.publicPrefix, avatarDir, name), nil
}

// DeleteAvatar removes a previously stored avatar. Paths outside the avatar
// directory, such as external URLs, are ignored.
func (ls *LocalStorage) DeleteAvatar(publicPath string) error {
	prefix := path.Join(ls.publicPrefix, avatarDir) + "/"
	if !strings.HasPrefix(publicPath, prefix) {
		return nil
	}

	name := path.Base(publicPath)
	if name == "." || name == "/" || strings.Contains(name, "..") {
		return fmt.Errorf("invalid file path: %s", publicPath)
	}

	if err := os.Remove(filepath.Join(ls.basePath, avatarDir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
