package storage

import (
	"context"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type gcsStore struct {
	client *gcs.Client
	bucket string
}

func newGCSStore(ctx context.Context, bucket, credentialsFile string) (*gcsStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &gcsStore{client: client, bucket: bucket}, nil
}

func (g *gcsStore) Provider() string { return "gcs" }

// PresignUpload ignores the acl parameter; GCS object visibility is governed
// by bucket IAM, not canned ACLs.
func (g *gcsStore) PresignUpload(ctx context.Context, key, contentType, _ string, validity time.Duration) (string, error) {
	return g.client.Bucket(g.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      http.MethodPut,
		Expires:     time.Now().Add(validity),
		ContentType: contentType,
	})
}

func (g *gcsStore) Get(ctx context.Context, key string) (*Object, error) {
	handle := g.client.Bucket(g.bucket).Object(key)

	attrs, err := handle.Attrs(ctx)
	if err != nil {
		return nil, err
	}

	reader, err := handle.NewReader(ctx)
	if err != nil {
		return nil, err
	}

	return &Object{
		Body:          reader,
		ContentType:   attrs.ContentType,
		ContentLength: attrs.Size,
		LastModified:  attrs.Updated,
		ETag:          attrs.Etag,
	}, nil
}
