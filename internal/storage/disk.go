// Package storage keeps uploaded stop photos on local disk.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"route_planner/internal/stopflow"
)

// MaxUploadSize caps a single asset.
const MaxUploadSize = 20 << 20

// DiskUploader writes assets to Dir and serves them under BaseURL.
type DiskUploader struct {
	Dir     string
	BaseURL string
}

func NewDiskUploader(dir, baseURL string) (*DiskUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskUploader{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload stores the asset under a random name and returns its public URL.
func (u *DiskUploader) Upload(ctx context.Context, a stopflow.Asset) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := uuid.NewString() + extension(a)

	f, err := os.CreateTemp(u.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	n, err := io.Copy(f, io.LimitReader(a.Body, MaxUploadSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxUploadSize {
		err = fmt.Errorf("asset exceeds %d bytes", MaxUploadSize)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(u.Dir, name)); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("store upload: %w", err)
	}
	return u.BaseURL + "/" + name, nil
}

func extension(a stopflow.Asset) string {
	if m := mimetype.Lookup(a.MimeType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return strings.ToLower(filepath.Ext(a.Filename))
}

// Describe detects the MIME type and, for images, the pixel size of data.
func Describe(data []byte) (mimeType string, width, height int) {
	mimeType = mimetype.Detect(data).String()
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return mimeType, 0, 0
	}
	return mimeType, cfg.Width, cfg.Height
}

// BytesAsset builds an Asset from an in-memory file.
func BytesAsset(filename string, data []byte) stopflow.Asset {
	mt, w, h := Describe(data)
	return stopflow.Asset{
		Filename: filename,
		MimeType: mt,
		Size:     int64(len(data)),
		Width:    w,
		Height:   h,
		Body:     bytes.NewReader(data),
	}
}
