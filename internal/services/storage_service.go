package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iamcredentials/v1"
	"google.golang.org/api/option"
)

const (
	defaultPublicBaseURL = "https://storage.googleapis.com"
	defaultSignedURLTTL  = 15 * time.Minute
	maxSignedURLTTL      = time.Hour
)

// publicPrefixes are world-readable. Everything else, uploads/ in
// particular, is only reachable through signed URLs.
var publicPrefixes = []string{"models/", "textures/", "payment-methods/"}

// ObjectStore stores binary assets under keys and hands out URLs for them
type ObjectStore interface {
	// Put writes the object, replacing any existing one, and returns its public URL
	Put(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// Sign returns a time-limited GET URL for the object
	Sign(ctx context.Context, key string, ttl time.Duration) (string, error)
	PublicURL(key string) string
	// KeyFromURL recovers the key from a URL returned by Put
	KeyFromURL(rawURL string) string
}

// IsPublicKey reports whether the key lives in a world-readable folder
func IsPublicKey(key string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// BestEffortDelete removes the object behind rawURL and only logs failures.
// It is used when replacing or deleting an entity must not fail on cleanup.
func BestEffortDelete(ctx context.Context, store ObjectStore, rawURL string, logger logrus.FieldLogger) {
	if store == nil || strings.TrimSpace(rawURL) == "" {
		return
	}
	key := store.KeyFromURL(rawURL)
	if key == "" {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		logger.WithError(err).WithField("key", key).Warn("failed to delete stored asset")
	}
}

// objectPublicURL builds <base>/<bucket>/<escaped key>
func objectPublicURL(base, bucket, key string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultPublicBaseURL
	}
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, strings.Join(parts, "/"))
}

// objectKeyFromURL strips everything up to the first /<bucket>/ segment of
// a public URL. Other absolute URLs yield their path; anything that is not a URL is
// assumed to already be a key and is returned unchanged.
func objectKeyFromURL(bucket, rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rawURL
	}

	p := parsed.EscapedPath()
	if bucket != "" {
		// The base URL may carry its own path in front of the bucket
		if i := strings.Index(p, "/"+bucket+"/"); i >= 0 {
			p = p[i+len(bucket)+2:]
		}
	}
	p = strings.TrimLeft(p, "/")
	key, err := url.PathUnescape(p)
	if err != nil {
		return rawURL
	}
	return key
}

func clampSignedURLTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultSignedURLTTL
	}
	if ttl > maxSignedURLTTL {
		return maxSignedURLTTL
	}
	return ttl
}

// GCSConfig configures the Google Cloud Storage object store
type GCSConfig struct {
	Bucket          string
	PublicBaseURL   string
	CredentialsFile string
	// SignerEmail is the service account used for IAM SignBlob when the
	// credentials file carries no private key
	SignerEmail string
}

// GCSStore is an ObjectStore backed by a Google Cloud Storage bucket
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
	accessID      string
	privateKey    []byte
	signBytes     func([]byte) ([]byte, error)
	logger        logrus.FieldLogger
}

// NewGCSStore creates a GCS backed object store
func NewGCSStore(ctx context.Context, cfg GCSConfig, logger logrus.FieldLogger) (*GCSStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var clientOpts []option.ClientOption
	s := &GCSStore{
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
		accessID:      strings.TrimSpace(cfg.SignerEmail),
		logger:        logger,
	}

	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))

		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read gcs credentials file")
		}
		// Service account keys can sign URLs locally
		if jwtCfg, err := google.JWTConfigFromJSON(data, storage.ScopeReadWrite); err == nil {
			s.privateKey = jwtCfg.PrivateKey
			if s.accessID == "" {
				s.accessID = jwtCfg.Email
			}
		}
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gcs client")
	}
	s.client = client

	if s.privateKey == nil && s.accessID != "" {
		iamSvc, err := iamcredentials.NewService(ctx, clientOpts...)
		if err != nil {
			client.Close()
			return nil, errors.Wrap(err, "failed to create iamcredentials service")
		}
		name := "projects/-/serviceAccounts/" + s.accessID
		s.signBytes = func(b []byte) ([]byte, error) {
			req := &iamcredentials.SignBlobRequest{
				Payload: base64.StdEncoding.EncodeToString(b),
			}
			resp, err := iamSvc.Projects.ServiceAccounts.SignBlob(name, req).Do()
			if err != nil {
				return nil, err
			}
			return base64.StdEncoding.DecodeString(resp.SignedBlob)
		}
	}

	return s, nil
}

// Put implements ObjectStore
func (s *GCSStore) Put(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if IsPublicKey(key) {
		w.CacheControl = "public, max-age=3600"
	} else {
		w.CacheControl = "private, max-age=0"
	}

	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "failed to write gs://%s/%s", s.bucket, key)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to finalize gs://%s/%s", s.bucket, key)
	}

	s.logger.WithField("key", key).Debug("stored object")
	return s.PublicURL(key), nil
}

// Delete implements ObjectStore
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrapf(err, "failed to delete gs://%s/%s", s.bucket, key)
	}
	return nil
}

// Sign implements ObjectStore. The TTL is clamped to one hour.
func (s *GCSStore) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.accessID == "" {
		return "", errors.New("no signer configured (set GCS_SIGNER_EMAIL or GCS_CREDENTIALS_FILE)")
	}

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		GoogleAccessID: s.accessID,
		Expires:        time.Now().UTC().Add(clampSignedURLTTL(ttl)),
	}
	if s.privateKey != nil {
		opts.PrivateKey = s.privateKey
	} else {
		opts.SignBytes = s.signBytes
	}

	signed, err := storage.SignedURL(s.bucket, key, opts)
	if err != nil {
		return "", errors.Wrapf(err, "failed to sign gs://%s/%s", s.bucket, key)
	}
	return signed, nil
}

// PublicURL implements ObjectStore
func (s *GCSStore) PublicURL(key string) string {
	return objectPublicURL(s.publicBaseURL, s.bucket, key)
}

// KeyFromURL implements ObjectStore
func (s *GCSStore) KeyFromURL(rawURL string) string {
	return objectKeyFromURL(s.bucket, rawURL)
}

// Close releases the underlying client
func (s *GCSStore) Close() error {
	return s.client.Close()
}
