package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
)

type minioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// InitStorage 初始化 MinIO 客户端并设置全局 Storage
func InitStorage() {
	endpoint := viper.GetString("storage.endpoint")
	accessKey := viper.GetString("storage.access_key")
	secretKey := viper.GetString("storage.secret_key")
	bucket := viper.GetString("storage.bucket")
	useSSL := viper.GetBool("storage.use_ssl")
	publicURL := viper.GetString("storage.public_url")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		logging.Logger.Fatal("Failed to init object storage",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
	}

	// bucket 不存在时创建（幂等）
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		logging.Logger.Fatal("Failed to check storage bucket",
			zap.String("bucket", bucket),
			zap.Error(err),
		)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			logging.Logger.Fatal("Failed to create storage bucket",
				zap.String("bucket", bucket),
				zap.Error(err),
			)
		}
	}

	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}

	Storage = &minioStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *minioStorage) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return s.publicURL + "/" + key, nil
}

func (s *minioStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
