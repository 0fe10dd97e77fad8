// Package store accesses the S3-compatible object storage that holds dump
// archives and scraped payloads.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/satelit-project/satelit-import/internal/config"
	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/scrape"
)

// IndexStore downloads dump archives from the index bucket
type IndexStore struct {
	client *s3.Client
	bucket string
}

// AnimeStore uploads scraped payloads to the same bucket
type AnimeStore struct {
	client *s3.Client
	bucket string
}

// NewIndexStore creates a store with the given storage configuration
func NewIndexStore(ctx context.Context, cfg config.Storage) (*IndexStore, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &IndexStore{client: client, bucket: cfg.Bucket}, nil
}

// NewAnimeStore creates a store with the given storage configuration
func NewAnimeStore(ctx context.Context, cfg config.Storage) (*AnimeStore, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &AnimeStore{client: client, bucket: cfg.Bucket}, nil
}

// Get downloads the object at key and saves it at outPath
func (s *IndexStore) Get(ctx context.Context, key, outPath string) error {
	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create download target: %w", err)
	}
	defer file.Close()

	downloader := manager.NewDownloader(s.client)
	_, err = downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download %q: %w", key, err)
	}

	return nil
}

// Upload stores the scraped payload and returns the object key
func (s *AnimeStore) Upload(ctx context.Context, anime *scrape.Anime, source entity.ExternalSource) (string, error) {
	body, err := json.Marshal(anime)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	key := storagePath(anime, source)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %q: %w", key, err)
	}

	return key, nil
}

// newClient builds an S3 client against the configured endpoint. Local
// endpoints are addressed over plain http, the way minio test setups expect.
func newClient(ctx context.Context, cfg config.Storage) (*s3.Client, error) {
	host := cfg.Host
	if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
		host = "http://" + host
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if host != "" {
			o.BaseEndpoint = aws.String(host)
			o.UsePathStyle = true
		}
	})

	return client, nil
}

// storagePath derives the object key for a scraped payload
func storagePath(anime *scrape.Anime, source entity.ExternalSource) string {
	prefix := "unknown"
	var id int32

	switch source {
	case entity.SourceAniDB:
		prefix = "anidb"
		if anime.Source != nil && len(anime.Source.AniDBIDs) > 0 {
			id = anime.Source.AniDBIDs[0]
		}
	case entity.SourceMAL:
		prefix = "mal"
		if anime.Source != nil && len(anime.Source.MALIDs) > 0 {
			id = anime.Source.MALIDs[0]
		}
	case entity.SourceANN:
		prefix = "ann"
		if anime.Source != nil && len(anime.Source.ANNIDs) > 0 {
			id = anime.Source.ANNIDs[0]
		}
	}

	return fmt.Sprintf("%s/scraped/%d.json", prefix, id)
}
