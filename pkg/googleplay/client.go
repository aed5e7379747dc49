package googleplay

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"storepulse/pkg/retry"
)

// objectInfo describes one report file in the export bucket.
type objectInfo struct {
	Name    string
	Updated time.Time
}

// objectStore is the bucket access the client needs. The production
// implementation is Cloud Storage; tests supply an in-memory store.
type objectStore interface {
	List(ctx context.Context, prefix string) ([]objectInfo, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// gcsStore reads report files from the Play Console export bucket.
type gcsStore struct {
	client *storage.Client
	bucket string
}

func (s *gcsStore) List(ctx context.Context, prefix string) ([]objectInfo, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var objects []objectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket objects: %w", err)
		}
		objects = append(objects, objectInfo{Name: attrs.Name, Updated: attrs.Updated})
	}
	return objects, nil
}

func (s *gcsStore) Read(ctx context.Context, name string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", name, err)
	}
	return data, nil
}

// Client fetches Google Play install statistics from the Play Console
// report bucket. Reports are bulk monthly CSV exports, so daily data for a
// date arrives inside that month's file.
type Client struct {
	store    objectStore
	retryCfg retry.Config
}

// Option customizes the client.
type Option func(*Client)

// WithRetryConfig overrides the retry behavior for bucket operations.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// NewClient creates a client authenticated with a service account key file.
// bucket is the Play Console report bucket (pubsite_prod_rev_...).
// Parsing the key file up front surfaces a malformed key as a configuration
// error at startup instead of a failed fetch later; the resulting token
// source refreshes OAuth2 access tokens automatically.
func NewClient(ctx context.Context, serviceAccountPath, bucket string, opts ...Option) (*Client, error) {
	keyJSON, err := os.ReadFile(serviceAccountPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, keyJSON, storage.ScopeReadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	storageClient, err := storage.NewClient(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	c := &Client{
		store:    &gcsStore{client: storageClient, bucket: bucket},
		retryCfg: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}
