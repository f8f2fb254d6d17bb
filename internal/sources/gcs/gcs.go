// Package gcs reads resources stored in Google Cloud Storage buckets,
// addressed as gs://bucket/path/to/object.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type Client struct {
	client *storage.Client
}

// New creates a storage client. With an empty credentialsFile the client
// is anonymous, which is enough for publicly readable buckets.
func New(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Client, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	} else {
		opts = append(opts, option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Fetch downloads the whole object named by a gs:// URL.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, object, err := SplitURL(rawURL)
	if err != nil {
		return nil, err
	}

	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// SplitURL returns the bucket and object name of a gs:// URL.
func SplitURL(rawURL string) (bucket, object string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "gs" {
		return "", "", fmt.Errorf("not a gs:// url: %q", rawURL)
	}
	object = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || object == "" {
		return "", "", errors.New("gs url needs a bucket and an object")
	}
	return u.Host, object, nil
}
