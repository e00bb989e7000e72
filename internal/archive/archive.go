// Package archive keeps the original uploaded documents in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jonathan/resume-enhancer/internal/ingestion"
)

// Archive stores original documents by resume id
type Archive interface {
	Put(ctx context.Context, resumeID string, doc ingestion.Document) (objectKey string, err error)
	Get(ctx context.Context, objectKey string) ([]byte, error)
}

// ObjectKey returns the object key for a document: resumes/<id>/<filename>.
// The filename is reduced to its base name and sanitised.
func ObjectKey(resumeID, filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)
	return path.Join("resumes", resumeID, name)
}

// Config holds MinIO connection settings
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Location        string
	UseSSL          bool
}

// MinIOArchive stores documents in a MinIO or S3 bucket
type MinIOArchive struct {
	client *minio.Client
	bucket string

	mu           sync.Mutex
	bucketExists bool
	location     string
}

// NewMinIOArchive connects to MinIO and makes sure the bucket exists
func NewMinIOArchive(ctx context.Context, cfg Config) (*MinIOArchive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket name cannot be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	a := &MinIOArchive{client: client, bucket: cfg.Bucket, location: cfg.Location}
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *MinIOArchive) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bucketExists {
		return nil
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.location}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}
	a.bucketExists = true
	return nil
}

// Put implements Archive
func (a *MinIOArchive) Put(ctx context.Context, resumeID string, doc ingestion.Document) (string, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := ObjectKey(resumeID, doc.Name)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(doc.Data), doc.Size(),
		minio.PutObjectOptions{ContentType: ContentType(doc)})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// Get implements Archive
func (a *MinIOArchive) Get(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", objectKey, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectKey, err)
	}
	return data, nil
}

// ContentType returns the declared MIME type, or one guessed from the format
func ContentType(doc ingestion.Document) string {
	if doc.MIMEType != "" {
		return doc.MIMEType
	}
	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".pdf":
		return ingestion.MIMEPDF
	case ".docx":
		return ingestion.MIMEDocx
	case ".doc":
		return ingestion.MIMEDoc
	case ".txt":
		return ingestion.MIMEText
	case ".html", ".htm":
		return ingestion.MIMEHTML
	}
	return ingestion.MIMEUnknown
}

// MemoryArchive is an in-process Archive
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryArchive creates an empty MemoryArchive
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string][]byte)}
}

// Put implements Archive
func (m *MemoryArchive) Put(_ context.Context, resumeID string, doc ingestion.Document) (string, error) {
	key := ObjectKey(resumeID, doc.Name)
	data := make([]byte, len(doc.Data))
	copy(data, doc.Data)

	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return key, nil
}

// Get implements Archive
func (m *MemoryArchive) Get(_ context.Context, objectKey string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectKey)
	}
	return data, nil
}
