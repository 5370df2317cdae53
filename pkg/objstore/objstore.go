// Package objstore reads calibration tables kept in S3-compatible object
// storage.
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	pkgerrors "github.com/pkg/errors"

	"github.com/pcdshub/rixcalc/pkg/calib"
)

// Scheme is the location prefix handled by Opener.
const Scheme = "s3://"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

// objectGetter is the subset of *minio.Client used by Opener.
type objectGetter interface {
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
}

var _ calib.Opener = &Opener{}

// Opener opens s3://bucket/key locations from object storage and everything
// else as a local file.
type Opener struct {
	client objectGetter
	files  calib.FileOpener
}

// NewOpener returns an Opener. With an empty endpoint it only opens local
// files.
func NewOpener(cfg Config) (*Opener, error) {
	if cfg.Endpoint == "" {
		return &Opener{}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create s3 client for %s", cfg.Endpoint)
	}

	return &Opener{client: client}, nil
}

// ParseLocation splits an s3://bucket/key location.
func ParseLocation(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", err
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object location %q, want s3://bucket/key", location)
	}
	return bucket, key, nil
}

func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, Scheme) {
		return o.files.Open(ctx, location)
	}
	if o.client == nil {
		return nil, fmt.Errorf("cannot open %s: no s3 endpoint configured", location)
	}

	bucket, key, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	obj, err := o.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get object %s", location)
	}
	// GetObject is lazy; Stat surfaces a missing object before parsing.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, pkgerrors.Wrapf(err, "failed to stat object %s", location)
	}

	return obj, nil
}
