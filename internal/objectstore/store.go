// File: internal/objectstore/store.go
// Brief: The object store capability the deploy pipeline consumes.

// Package objectstore provisions the deployment bucket and publishes artifact
// files into it.
package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrBucketNotFound is returned by Store.List when the bucket does not exist.
var ErrBucketNotFound = errors.New("bucket does not exist")

// Store is the object store surface used by the provisioner and publisher.
// Implementations are bound to one bucket.
type Store interface {
	Bucket() string
	Region() string
	// List returns object keys under prefix, excluding folder placeholders.
	List(ctx context.Context, prefix string) ([]string, error)
	CreateBucket(ctx context.Context) error
	EnableVersioning(ctx context.Context) error
	Put(ctx context.Context, obj Object) error
	Delete(ctx context.Context, keys []string) error
}

// Object is a single upload.
type Object struct {
	Key         string
	Body        io.ReadSeeker
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectURL is the virtual-hosted URL of key; us-east-1 has no region segment.
func ObjectURL(bucket, region, key string) string {
	host := bucket + ".s3.amazonaws.com"
	if region != "" && region != "us-east-1" {
		host = bucket + ".s3." + region + ".amazonaws.com"
	}
	return "https://" + host + "/" + key
}

// ProjectKey joins the project prefix and a manifest name.
func ProjectKey(project, name string) string {
	return project + "/" + name
}
