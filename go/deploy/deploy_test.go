package deploy

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func testDirs(t *testing.T) (build, static string) {
	root := t.TempDir()
	build, static = filepath.Join(root, "build"), filepath.Join(root, "static")
	writeTree(t, build, map[string]string{
		"index.html":          "<html></html>",
		"team.html":           "<html></html>",
		"app-1a2b3c4d.js":     "console.log(1)",
		"app-1a2b3c4d.js.map": "{}",
		"app-5e6f7a8b.css":    "body{}",
	})
	writeTree(t, static, map[string]string{
		"img/logo.png": "png",
		"index.html":   "<p>static</p>",
	})
	return build, static
}

func byKey(objs []Object) map[string]Object {
	m := make(map[string]Object, len(objs))
	for _, o := range objs {
		m[o.Key] = o
	}
	return m
}

func TestPlan(t *testing.T) {
	build, static := testDirs(t)

	objs, err := Plan(build, static, "preview")
	require.NoError(t, err)
	got := byKey(objs)

	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		keys = append(keys, o.Key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"preview/app-1a2b3c4d.js",
		"preview/app-5e6f7a8b.css",
		"preview/img/logo.png",
		"preview/index.html",
		"preview/team.html",
	}, keys)

	assert.Equal(t, CacheForever, got["preview/app-1a2b3c4d.js"].CacheControl)
	assert.Equal(t, CacheForever, got["preview/team.html"].CacheControl)
	assert.Equal(t, "image/png", got["preview/img/logo.png"].ContentType)

	index := got["preview/index.html"]
	assert.Equal(t, filepath.Join(static, "index.html"), index.Path, "static files shadow built ones")
	assert.Equal(t, CacheForever, index.CacheControl)
}

func TestPlan_EntryPageNotCached(t *testing.T) {
	build, _ := testDirs(t)
	objs, err := Plan(build, filepath.Join(t.TempDir(), "nope"), "preview")
	require.NoError(t, err)
	got := byKey(objs)
	assert.Equal(t, CacheNever, got["preview/index.html"].CacheControl)
	assert.Equal(t, CacheForever, got["preview/team.html"].CacheControl)
}

func TestPlan_MissingStatic(t *testing.T) {
	build, _ := testDirs(t)
	objs, err := Plan(build, filepath.Join(t.TempDir(), "nope"), "preview")
	require.NoError(t, err)
	assert.Len(t, objs, 4)
}

func TestContentType(t *testing.T) {
	assert.Contains(t, ContentType("app.js"), "javascript")
	assert.Contains(t, ContentType("app.css"), "text/css")
	assert.Contains(t, ContentType("index.html"), "text/html")
	assert.Equal(t, "application/octet-stream", ContentType("LICENSE"))
}

type fakePutter struct {
	mu   sync.Mutex
	puts map[string]*s3.PutObjectInput
	body map[string]string
	fail string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if aws.ToString(in.Key) == f.fail {
		return nil, errors.New("access denied")
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[aws.ToString(in.Key)] = in
	f.body[aws.ToString(in.Key)] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func newFake() *fakePutter {
	return &fakePutter{puts: map[string]*s3.PutObjectInput{}, body: map[string]string{}}
}

func TestPublish(t *testing.T) {
	build, static := testDirs(t)
	objs, err := Plan(build, filepath.Join(static, "img"), "preview")
	require.NoError(t, err)

	fake := newFake()
	p := &Publisher{Client: fake, Bucket: "public.example.com", Concurrency: 2, Log: zerolog.Nop()}
	n, err := p.Publish(context.Background(), objs)
	require.NoError(t, err)
	assert.Equal(t, len(objs), n)

	in := fake.puts["preview/index.html"]
	require.NotNil(t, in)
	assert.Equal(t, "public.example.com", aws.ToString(in.Bucket))
	assert.Equal(t, CacheNever, aws.ToString(in.CacheControl))
	assert.Equal(t, int64(len("<html></html>")), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "console.log(1)", fake.body["preview/app-1a2b3c4d.js"])
	assert.NotContains(t, fake.puts, "preview/app-1a2b3c4d.js.map")
}

func TestPublish_Failure(t *testing.T) {
	build, static := testDirs(t)
	objs, err := Plan(build, static, "preview")
	require.NoError(t, err)

	fake := newFake()
	fake.fail = "preview/team.html"
	p := &Publisher{Client: fake, Bucket: "b", Concurrency: 1, Log: zerolog.Nop()}
	_, err = p.Publish(context.Background(), objs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preview/team.html")
}

func TestPublish_FakeS3(t *testing.T) {
	backend := s3mem.New()
	require.NoError(t, backend.CreateBucket("public.example.com"))
	srv := httptest.NewServer(gofakes3.New(backend).Server())
	defer srv.Close()

	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("key", "secret", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})

	build, static := testDirs(t)
	objs, err := Plan(build, static, "preview")
	require.NoError(t, err)

	p := &Publisher{Client: client, Bucket: "public.example.com", Concurrency: 4, Log: zerolog.Nop()}
	_, err = p.Publish(context.Background(), objs)
	require.NoError(t, err)

	out, err := client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String("public.example.com"),
		Key:    aws.String("preview/app-5e6f7a8b.css"),
	})
	require.NoError(t, err)
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(b))
	assert.Contains(t, aws.ToString(out.ContentType), "text/css")

	list, err := client.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
		Bucket: aws.String("public.example.com"),
		Prefix: aws.String("preview/"),
	})
	require.NoError(t, err)
	assert.Len(t, list.Contents, 5)
}
