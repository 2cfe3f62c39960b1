// File: internal/objectstore/provision.go
// Brief: Makes sure the deployment bucket exists with versioning enabled.

package objectstore

import (
	"context"
	"errors"

	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/go-logr/logr"
)

// Existing describes the bucket state found before publishing.
type Existing struct {
	// Keys are objects already published under the project prefix.
	Keys    []string
	Created bool
}

// Provisioner ensures the bucket is ready for uploads.
type Provisioner struct {
	Store Store
	Log   logr.Logger
}

// Ensure lists the project prefix and creates the bucket (then enables
// versioning) only when the listing reports it missing. An existing bucket is
// left untouched; its versioning state is not re-checked.
func (p *Provisioner) Ensure(ctx context.Context, project string) (Existing, error) {
	keys, err := p.Store.List(ctx, ProjectKey(project, ""))
	switch {
	case err == nil:
		p.Log.V(1).Info("bucket exists", "bucket", p.Store.Bucket(), "publishedObjects", len(keys))
		return Existing{Keys: keys}, nil
	case !errors.Is(err, ErrBucketNotFound):
		return Existing{}, deployerr.New(deployerr.RemoteState, "list bucket", err)
	}
	p.Log.Info("no bucket, creating one", "bucket", p.Store.Bucket(), "region", p.Store.Region())
	if err := p.Store.CreateBucket(ctx); err != nil {
		return Existing{}, deployerr.New(deployerr.RemoteState, "create bucket", err)
	}
	if err := p.Store.EnableVersioning(ctx); err != nil {
		return Existing{}, deployerr.New(deployerr.RemoteState, "enable bucket versioning", err)
	}
	return Existing{Created: true}, nil
}
