// File: internal/objectstore/objectstore_test.go
// Brief: Tests for bucket provisioning, publishing, and the S3 adapter.

package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/example/cfdeploy/internal/artifact"
	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/go-logr/logr"
	"github.com/opencontainers/go-digest"
)

type memStore struct {
	bucket  string
	region  string
	exists  bool
	objects map[string][]byte
	meta    map[string]map[string]string

	listErr   error
	putErrKey string
	calls     []string
	puts      []string
	deleted   []string
}

func newMemStore(exists bool) *memStore {
	return &memStore{bucket: "deploy-bucket", region: "ap-southeast-1", exists: exists, objects: map[string][]byte{}, meta: map[string]map[string]string{}}
}

func (m *memStore) Bucket() string { return m.bucket }
func (m *memStore) Region() string { return m.region }

func (m *memStore) List(_ context.Context, prefix string) ([]string, error) {
	m.calls = append(m.calls, "list")
	if m.listErr != nil {
		return nil, m.listErr
	}
	if !m.exists {
		return nil, ErrBucketNotFound
	}
	var keys []string
	for k := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) CreateBucket(context.Context) error {
	m.calls = append(m.calls, "create")
	m.exists = true
	return nil
}

func (m *memStore) EnableVersioning(context.Context) error {
	m.calls = append(m.calls, "versioning")
	return nil
}

func (m *memStore) Put(_ context.Context, obj Object) error {
	m.calls = append(m.calls, "put")
	if obj.Key == m.putErrKey {
		return errors.New("access denied")
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}
	m.objects[obj.Key] = data
	m.meta[obj.Key] = obj.Metadata
	m.puts = append(m.puts, obj.Key)
	return nil
}

func (m *memStore) Delete(_ context.Context, keys []string) error {
	m.calls = append(m.calls, "delete")
	for _, k := range keys {
		delete(m.objects, k)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}

func countCalls(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}

func TestEnsureCreatesMissingBucketOnce(t *testing.T) {
	store := newMemStore(false)
	p := &Provisioner{Store: store, Log: logr.Discard()}
	got, err := p.Ensure(context.Background(), "myapp")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !got.Created {
		t.Fatalf("expected bucket to be created")
	}
	if countCalls(store.calls, "create") != 1 || countCalls(store.calls, "versioning") != 1 {
		t.Fatalf("unexpected calls %v", store.calls)
	}

	store.calls = nil
	got, err = p.Ensure(context.Background(), "myapp")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if got.Created || countCalls(store.calls, "create") != 0 || countCalls(store.calls, "versioning") != 0 {
		t.Fatalf("second ensure must not create or version: %v", store.calls)
	}
}

func TestEnsureReturnsExistingProjectKeys(t *testing.T) {
	store := newMemStore(true)
	store.objects["myapp/a.txt"] = []byte("a")
	store.objects["myapp2/b.txt"] = []byte("b")
	p := &Provisioner{Store: store, Log: logr.Discard()}
	got, err := p.Ensure(context.Background(), "myapp")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(got.Keys) != 1 || got.Keys[0] != "myapp/a.txt" {
		t.Fatalf("expected only this project's keys, got %v", got.Keys)
	}
}

func TestEnsureOtherListErrorIsFatal(t *testing.T) {
	store := newMemStore(true)
	store.listErr = errors.New("access denied")
	p := &Provisioner{Store: store, Log: logr.Discard()}
	_, err := p.Ensure(context.Background(), "myapp")
	if !deployerr.Is(err, deployerr.RemoteState) {
		t.Fatalf("expected RemoteStateError, got %v", err)
	}
	if countCalls(store.calls, "create") != 0 {
		t.Fatalf("must not create after unexpected list failure")
	}
}

func writeManifest(t *testing.T, files map[string]string, order []string) artifact.Manifest {
	t.Helper()
	dir := t.TempDir()
	var m artifact.Manifest
	for _, name := range order {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(files[name]), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		m = append(m, artifact.Entry{Path: p, Name: name})
	}
	return m
}

func TestPublishUploadsEveryEntryOnce(t *testing.T) {
	files := map[string]string{
		"myapp-20240101/template.json":      `{"Parameters":{}}`,
		"myapp-20240101/lambda/handler.zip": "PK",
		"myapp-20240101/README.md":          "# hi",
	}
	order := []string{"myapp-20240101/lambda/handler.zip", "myapp-20240101/template.json", "myapp-20240101/README.md"}
	manifest := writeManifest(t, files, order)
	store := newMemStore(true)
	out := &bytes.Buffer{}
	p := &Publisher{Store: store, TemplateExtensions: []string{".json"}, Log: logr.Discard(), Out: out}

	pub, err := p.Publish(context.Background(), "myapp", manifest)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(store.puts) != len(manifest) {
		t.Fatalf("expected %d uploads, got %d", len(manifest), len(store.puts))
	}
	seen := map[string]bool{}
	for _, k := range store.puts {
		if seen[k] {
			t.Fatalf("duplicate upload %s", k)
		}
		seen[k] = true
	}
	for _, name := range order {
		key := "myapp/" + name
		if !seen[key] {
			t.Fatalf("missing upload %s", key)
		}
		if store.meta[key][DigestMetadataKey] != digest.FromString(files[name]).Encoded() {
			t.Fatalf("unexpected digest metadata for %s", key)
		}
	}
	if string(pub.Template) != files["myapp-20240101/template.json"] {
		t.Fatalf("unexpected template content %q", pub.Template)
	}
	wantURL := "https://deploy-bucket.s3.ap-southeast-1.amazonaws.com/myapp/myapp-20240101/template.json"
	if pub.TemplateURL != wantURL {
		t.Fatalf("expected %s, got %s", wantURL, pub.TemplateURL)
	}
	if !bytes.Contains(out.Bytes(), []byte("Uploaded file: myapp-20240101/README.md\n")) {
		t.Fatalf("expected per-file upload line, got %q", out.String())
	}
}

func TestPublishStopsAtFirstFailure(t *testing.T) {
	files := map[string]string{"a.txt": "a", "b.json": "{}", "c.txt": "c"}
	manifest := writeManifest(t, files, []string{"a.txt", "b.json", "c.txt"})
	store := newMemStore(true)
	store.putErrKey = "p/b.json"
	p := &Publisher{Store: store, TemplateExtensions: []string{".json"}, Log: logr.Discard()}
	_, err := p.Publish(context.Background(), "p", manifest)
	if !deployerr.Is(err, deployerr.RemoteState) {
		t.Fatalf("expected RemoteStateError, got %v", err)
	}
	if countCalls(store.calls, "put") != 2 {
		t.Fatalf("expected upload to stop after failure, calls %v", store.calls)
	}
}

func TestPublishWithoutTemplate(t *testing.T) {
	manifest := writeManifest(t, map[string]string{"a.txt": "a"}, []string{"a.txt"})
	p := &Publisher{Store: newMemStore(true), TemplateExtensions: []string{".json"}, Log: logr.Discard()}
	_, err := p.Publish(context.Background(), "p", manifest)
	if !deployerr.Is(err, deployerr.Schema) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestPublishRejectsSeveralTemplatesBeforeUploading(t *testing.T) {
	files := map[string]string{
		"app/template.json": `{"Parameters":{}}`,
		"app/package.json":  `{"name":"handler"}`,
	}
	manifest := writeManifest(t, files, []string{"app/template.json", "app/package.json"})
	store := newMemStore(true)
	p := &Publisher{Store: store, TemplateExtensions: []string{".json"}, Log: logr.Discard()}
	_, err := p.Publish(context.Background(), "p", manifest)
	if !deployerr.Is(err, deployerr.Schema) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if !strings.Contains(err.Error(), "app/template.json, app/package.json") {
		t.Fatalf("expected candidates in error, got %v", err)
	}
	if countCalls(store.calls, "put") != 0 {
		t.Fatalf("expected no uploads, calls %v", store.calls)
	}
}

func TestTemplateEntryNarrowedExtension(t *testing.T) {
	manifest := artifact.Manifest{
		{Path: "/x/stack.template.json", Name: "stack.template.json"},
		{Path: "/x/package.json", Name: "package.json"},
	}
	entry, err := TemplateEntry(manifest, []string{".template.json"})
	if err != nil {
		t.Fatalf("template entry: %v", err)
	}
	if entry.Name != "stack.template.json" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if _, err := TemplateEntry(manifest, []string{".yaml"}); !deployerr.Is(err, deployerr.Schema) {
		t.Fatalf("expected SchemaError for no candidates, got %v", err)
	}
}

func TestPruneDeletesOnlyStaleKeys(t *testing.T) {
	store := newMemStore(true)
	p := &Publisher{Store: store, Log: logr.Discard()}
	pub := Publication{Keys: []string{"p/a.txt", "p/t.json"}}
	deleted, err := p.Prune(context.Background(), []string{"p/a.txt", "p/old.txt", "p/t.json"}, pub)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "p/old.txt" {
		t.Fatalf("expected only p/old.txt pruned, got %v", deleted)
	}
	store.calls = nil
	if _, err := p.Prune(context.Background(), []string{"p/a.txt"}, pub); err != nil || len(store.calls) != 0 {
		t.Fatalf("nothing stale must mean no delete call: %v %v", err, store.calls)
	}
}

func TestObjectURL(t *testing.T) {
	if got := ObjectURL("b", "us-east-1", "p/t.json"); got != "https://b.s3.amazonaws.com/p/t.json" {
		t.Fatalf("unexpected us-east-1 url %s", got)
	}
	if got := ObjectURL("b", "eu-west-1", "p/t.json"); got != "https://b.s3.eu-west-1.amazonaws.com/p/t.json" {
		t.Fatalf("unexpected regional url %s", got)
	}
}

type fakeS3 struct {
	pages      []*s3.ListObjectsV2Output
	listErr    error
	listInputs []*s3.ListObjectsV2Input
	create     *s3.CreateBucketInput
	versioning *s3.PutBucketVersioningInput
	put        *s3.PutObjectInput
	deletes    []*s3.DeleteObjectsInput
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listInputs = append(f.listInputs, in)
	if f.listErr != nil {
		return nil, f.listErr
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.create = in
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutBucketVersioning(_ context.Context, in *s3.PutBucketVersioningInput, _ ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error) {
	f.versioning = in
	return &s3.PutBucketVersioningOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectsOutput{}, nil
}

func TestS3StoreListPaginatesAndSkipsFolders(t *testing.T) {
	api := &fakeS3{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{{Key: aws.String("p/")}, {Key: aws.String("p/a.txt")}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next"),
		},
		{Contents: []types.Object{{Key: aws.String("p/b.txt")}}, IsTruncated: aws.Bool(false)},
	}}
	store := NewS3StoreWithClient(api, "bucket", "ap-southeast-1", logr.Discard())
	keys, err := store.List(context.Background(), "p/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || keys[0] != "p/a.txt" || keys[1] != "p/b.txt" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if aws.ToString(api.listInputs[1].ContinuationToken) != "next" {
		t.Fatalf("expected continuation token on second page")
	}
}

func TestS3StoreListMapsNoSuchBucket(t *testing.T) {
	for _, listErr := range []error{
		&types.NoSuchBucket{Message: aws.String("missing")},
		&smithy.GenericAPIError{Code: "NoSuchBucket", Message: "missing"},
	} {
		store := NewS3StoreWithClient(&fakeS3{listErr: listErr}, "bucket", "ap-southeast-1", logr.Discard())
		if _, err := store.List(context.Background(), "p/"); !errors.Is(err, ErrBucketNotFound) {
			t.Fatalf("expected ErrBucketNotFound for %T, got %v", listErr, err)
		}
	}
	store := NewS3StoreWithClient(&fakeS3{listErr: &smithy.GenericAPIError{Code: "AccessDenied"}}, "bucket", "ap-southeast-1", logr.Discard())
	if _, err := store.List(context.Background(), "p/"); err == nil || errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("expected a plain error for AccessDenied, got %v", err)
	}
}

func TestS3StoreCreateBucketConstraint(t *testing.T) {
	api := &fakeS3{}
	store := NewS3StoreWithClient(api, "bucket", "ap-southeast-1", logr.Discard())
	if err := store.CreateBucket(context.Background()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if api.create.CreateBucketConfiguration == nil || api.create.CreateBucketConfiguration.LocationConstraint != types.BucketLocationConstraint("ap-southeast-1") {
		t.Fatalf("expected region constraint, got %+v", api.create.CreateBucketConfiguration)
	}
	api = &fakeS3{}
	store = NewS3StoreWithClient(api, "bucket", "us-east-1", logr.Discard())
	if err := store.CreateBucket(context.Background()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if api.create.CreateBucketConfiguration != nil {
		t.Fatalf("us-east-1 must not send a location constraint")
	}
	if err := store.EnableVersioning(context.Background()); err != nil {
		t.Fatalf("versioning: %v", err)
	}
	if api.versioning.VersioningConfiguration.Status != types.BucketVersioningStatusEnabled {
		t.Fatalf("expected versioning to be enabled")
	}
}

func TestS3StoreDeleteBatches(t *testing.T) {
	api := &fakeS3{}
	store := NewS3StoreWithClient(api, "bucket", "ap-southeast-1", logr.Discard())
	keys := make([]string, 1500)
	for i := range keys {
		keys[i] = "p/k"
	}
	if err := store.Delete(context.Background(), keys); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(api.deletes) != 2 || len(api.deletes[0].Delete.Objects) != 1000 || len(api.deletes[1].Delete.Objects) != 500 {
		t.Fatalf("unexpected delete batching")
	}
}
