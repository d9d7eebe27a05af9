// Package storage 将消息附件保存在本地文件系统中。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImageDir 图片附件在 MEDIA_ROOT 下的子目录
const ImageDir = "room_images"

// LocalStore 是 AttachmentStore 的本地文件系统实现。
type LocalStore struct {
	root      string // MEDIA_ROOT
	urlPrefix string // MEDIA_URL，以 "/" 结尾
}

// NewLocalStore 创建 LocalStore，并确保附件目录存在
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("storage: media root cannot be empty")
	}
	if err := os.MkdirAll(filepath.Join(root, ImageDir), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create media dir: %w", err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &LocalStore{root: root, urlPrefix: urlPrefix}, nil
}

// Root 返回附件根目录
func (s *LocalStore) Root() string { return s.root }

// Save 写入附件。写入失败时删除半成品文件。
func (s *LocalStore) Save(ctx context.Context, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := path.Join(ImageDir, uuid.NewString()+strings.ToLower(ext))
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", rel, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("storage: write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("storage: close %s: %w", rel, err)
	}
	return rel, nil
}

// Delete 删除附件，文件不存在视为成功
func (s *LocalStore) Delete(_ context.Context, rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", rel, err)
	}
	return nil
}

// URL 返回 MEDIA_URL + 相对路径
func (s *LocalStore) URL(rel string) string {
	return s.urlPrefix + rel
}

// resolve 把相对路径映射到 root 之下，拒绝越界路径
func (s *LocalStore) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" || strings.Contains(rel, "..") {
		return "", fmt.Errorf("storage: invalid attachment path %q", rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
