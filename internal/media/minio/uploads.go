package minio

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"account-service/internal/media"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
)

// Upload кладёт файл в бакет под ключом "uploads/<uuid>.<ext>" и возвращает
// публичный URL объекта. Расширение выбирается по content-type, чтобы не
// доверять имени файла от клиента.
func (s *MediaStorage) Upload(ctx context.Context, file media.File) (string, error) {
	const op = "media/minio/Upload"

	if len(file.Content) == 0 {
		return "", fmt.Errorf("%s: empty file", op)
	}

	key := path.Join("uploads", uuid.NewString()+extByContentType(file.ContentType))

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(file.Content), int64(len(file.Content)),
		mclient.PutObjectOptions{ContentType: file.ContentType},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.publicURL(key), nil
}

// publicURL собирает внешнюю ссылку на объект: от PublicBaseURL, если он
// задан, иначе от endpoint клиента и бакета.
func (s *MediaStorage) publicURL(key string) string {
	if base := strings.TrimRight(s.cfg.PublicBaseURL, "/"); base != "" {
		return base + "/" + key
	}

	u := s.client.EndpointURL()
	return u.String() + "/" + s.cfg.Bucket + "/" + key
}

func extByContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
