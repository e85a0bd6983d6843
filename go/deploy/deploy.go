// Package deploy publishes the built site and its static files to S3.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	CacheForever = "public, max-age=31536000"
	CacheNever   = "no-cache, no-store, must-revalidate"
)

// EntryPage is served from the bucket root and must never be cached.
const EntryPage = "index.html"

// ObjectPutter is the subset of the S3 client API used by this package.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client loads credentials and region the standard AWS way.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

// Object is one file scheduled for upload.
type Object struct {
	Key          string
	Path         string
	ContentType  string
	CacheControl string
}

// Plan lists every file under buildDir and staticDir as objects under
// prefix. Source maps are never published. A static file shadows a built file
// with the same key.
func Plan(buildDir, staticDir, prefix string) ([]Object, error) {
	built, err := walk(buildDir, prefix, func(rel string) string {
		if rel == EntryPage {
			return CacheNever
		}
		return CacheForever
	})
	if err != nil {
		return nil, err
	}
	static, err := walk(staticDir, prefix, func(string) string { return CacheForever })
	if err != nil {
		return nil, err
	}
	out := built
	index := make(map[string]int, len(built))
	for i, o := range built {
		index[o.Key] = i
	}
	for _, o := range static {
		if i, ok := index[o.Key]; ok {
			out[i] = o
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func walk(root, prefix string, cache func(rel string) string) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".map") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		out = append(out, Object{
			Key:          path.Join(prefix, rel),
			Path:         p,
			ContentType:  ContentType(rel),
			CacheControl: cache(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return out, nil
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Publisher uploads objects with bounded concurrency.
type Publisher struct {
	Client      ObjectPutter
	Bucket      string
	Concurrency int
	Log         zerolog.Logger
}

// Publish uploads every object. The first failure cancels the remaining
// uploads and is returned.
func (p *Publisher) Publish(ctx context.Context, objs []Object) (int, error) {
	p.Log.Info().Str("bucket", p.Bucket).Int("files", len(objs)).Msg("[deploy]")

	var uploaded atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	if p.Concurrency > 0 {
		g.SetLimit(p.Concurrency)
	}
	for _, o := range objs {
		g.Go(func() error {
			if err := p.put(ctx, o); err != nil {
				return err
			}
			uploaded.Add(1)
			return nil
		})
	}
	err := g.Wait()
	n := int(uploaded.Load())
	if err != nil {
		return n, err
	}
	p.Log.Info().Int("files", n).Msg("[deploy] done")
	return n, nil
}

func (p *Publisher) put(ctx context.Context, o Object) error {
	body, err := os.ReadFile(o.Path)
	if err != nil {
		return err
	}
	_, err = p.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.Bucket),
		Key:           aws.String(o.Key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(o.ContentType),
		CacheControl:  aws.String(o.CacheControl),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", o.Key, err)
	}
	p.Log.Debug().Str("key", o.Key).Str("cache", o.CacheControl).Msg("[deploy] uploaded")
	return nil
}
