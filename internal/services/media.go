package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const BucketFormVideos = "form-videos"

func EnsureStoragePath(base string, bucket string) (string, error) {
	path := filepath.Join(base, bucket)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

type MediaUpload struct {
	Bucket      string
	Filename    string
	ContentType string
	OwnerID     string
	MaxBytes    int64
}

// SaveMediaAsset streams body to disk while hashing it and records the asset.
// Empty and oversized uploads are rejected and leave nothing behind.
func SaveMediaAsset(ctx context.Context, q sqlx.ExtContext, basePath string, up MediaUpload, body io.Reader) (models.MediaAsset, error) {
	asset := models.MediaAsset{
		ID:          uuid.NewString(),
		OwnerUserID: up.OwnerID,
		Bucket:      up.Bucket,
		Filename:    filepath.Base(up.Filename),
		ContentType: up.ContentType,
		CreatedAt:   time.Now().UTC(),
	}
	asset.StorageKey = asset.ID
	bucketPath, err := EnsureStoragePath(basePath, up.Bucket)
	if err != nil {
		return models.MediaAsset{}, err
	}
	targetPath := filepath.Join(bucketPath, asset.StorageKey)

	file, err := os.Create(targetPath)
	if err != nil {
		return models.MediaAsset{}, err
	}
	reader := body
	if up.MaxBytes > 0 {
		reader = io.LimitReader(body, up.MaxBytes+1)
	}
	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(file, hasher), reader)
	_ = file.Close()
	if err != nil {
		_ = os.Remove(targetPath)
		return models.MediaAsset{}, err
	}
	if size == 0 {
		_ = os.Remove(targetPath)
		return models.MediaAsset{}, ErrBadRequest("File is empty")
	}
	if up.MaxBytes > 0 && size > up.MaxBytes {
		_ = os.Remove(targetPath)
		return models.MediaAsset{}, ErrBadRequest(fmt.Sprintf("File exceeds the %d byte limit", up.MaxBytes))
	}
	asset.SizeBytes = size
	asset.SHA256 = hex.EncodeToString(hasher.Sum(nil))

	_, err = db.Exec(ctx, q, `
INSERT INTO media_assets (id, owner_user_id, bucket, storage_key, filename, content_type, size_bytes, sha256, created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		asset.ID, asset.OwnerUserID, asset.Bucket, asset.StorageKey, asset.Filename, asset.ContentType, asset.SizeBytes,
		asset.SHA256, asset.CreatedAt)
	if err != nil {
		_ = os.Remove(targetPath)
		return models.MediaAsset{}, err
	}
	return asset, nil
}

func MediaAssetPath(basePath string, asset models.MediaAsset) string {
	return filepath.Join(basePath, asset.Bucket, asset.StorageKey)
}

func DeleteMediaAsset(ctx context.Context, q sqlx.ExtContext, basePath string, assetID string) error {
	var asset models.MediaAsset
	err := db.Get(ctx, q, &asset, `SELECT id, owner_user_id, bucket, storage_key, filename, content_type, size_bytes, sha256, created_at
FROM media_assets WHERE id = ?`, assetID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return err
	}
	if _, err := db.Exec(ctx, q, `DELETE FROM media_assets WHERE id = ?`, assetID); err != nil {
		return err
	}
	_ = os.Remove(MediaAssetPath(basePath, asset))
	return nil
}
