// File: internal/objectstore/publish.go
// Brief: Uploads extracted artifact files and locates the stack template.

package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/example/cfdeploy/internal/artifact"
	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/example/cfdeploy/internal/template"
	"github.com/go-logr/logr"
	"github.com/opencontainers/go-digest"
)

// DigestMetadataKey holds the sha256 of each uploaded object.
const DigestMetadataKey = "sha256"

// Publication is what a publish run produced.
type Publication struct {
	Keys        []string
	Template    []byte
	TemplateKey string
	TemplateURL string
}

// Publisher uploads a manifest into the bucket under the project prefix.
type Publisher struct {
	Store              Store
	TemplateExtensions []string
	Log                logr.Logger
	Out                io.Writer
}

// TemplateEntry returns the one manifest entry carrying a template extension.
// None, or more than one, is a SchemaError.
func TemplateEntry(manifest artifact.Manifest, exts []string) (artifact.Entry, error) {
	var candidates []artifact.Entry
	for _, entry := range manifest {
		if template.IsTemplate(entry.Name, exts) {
			candidates = append(candidates, entry)
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return artifact.Entry{}, deployerr.Errorf(deployerr.Schema, "artifact contains no template (extensions %v)", exts)
	default:
		names := make([]string, 0, len(candidates))
		for _, c := range candidates {
			names = append(names, c.Name)
		}
		return artifact.Entry{}, deployerr.Errorf(deployerr.Schema,
			"artifact contains %d template candidates (%s); narrow --template-ext, e.g. .template.json",
			len(candidates), strings.Join(names, ", "))
	}
}

// Publish uploads every manifest file, one at a time and in order, to
// <project>/<name>. The template is identified before anything is uploaded;
// the first upload failure aborts the rest.
func (p *Publisher) Publish(ctx context.Context, project string, manifest artifact.Manifest) (Publication, error) {
	var pub Publication
	tmpl, err := TemplateEntry(manifest, p.TemplateExtensions)
	if err != nil {
		return pub, err
	}
	for _, entry := range manifest {
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return pub, deployerr.New(deployerr.Extraction, "read extracted file", err)
		}
		key := ProjectKey(project, entry.Name)
		if entry.Name == tmpl.Name {
			pub.Template = data
			pub.TemplateKey = key
			pub.TemplateURL = ObjectURL(p.Store.Bucket(), p.Store.Region(), key)
		}
		obj := Object{
			Key:         key,
			Body:        bytes.NewReader(data),
			Size:        int64(len(data)),
			ContentType: mime.TypeByExtension(path.Ext(entry.Name)),
			Metadata:    map[string]string{DigestMetadataKey: digest.FromBytes(data).Encoded()},
		}
		if err := p.Store.Put(ctx, obj); err != nil {
			return pub, deployerr.New(deployerr.RemoteState, "upload "+entry.Name, err)
		}
		pub.Keys = append(pub.Keys, key)
		if p.Out != nil {
			fmt.Fprintf(p.Out, "Uploaded file: %s\n", entry.Name)
		}
	}
	return pub, nil
}

// Prune deletes previously published keys that the publication did not
// rewrite. The bucket is versioned, so pruned objects stay recoverable.
func (p *Publisher) Prune(ctx context.Context, previous []string, pub Publication) ([]string, error) {
	current := make(map[string]struct{}, len(pub.Keys))
	for _, k := range pub.Keys {
		current[k] = struct{}{}
	}
	var stale []string
	for _, k := range previous {
		if _, ok := current[k]; !ok {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}
	if err := p.Store.Delete(ctx, stale); err != nil {
		return nil, deployerr.New(deployerr.RemoteState, "prune stale objects", err)
	}
	p.Log.Info("pruned stale objects", "count", len(stale))
	return stale, nil
}
