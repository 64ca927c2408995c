package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"furnishop-backend/internal/models"
)

// MaxMultipleModels caps a single multi-model upload
const MaxMultipleModels = 10

// Upload is a file received from a client
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// NewUpload wraps in-memory content as an Upload
func NewUpload(filename, contentType string, data []byte) Upload {
	return Upload{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// StoredAsset is an object written to the asset bucket
type StoredAsset struct {
	URL          string `json:"url"`
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	OriginalName string `json:"originalName,omitempty"`
}

// AssetService derives keys for uploads and writes them to object storage
type AssetService struct {
	store  ObjectStore
	logger logrus.FieldLogger
}

// NewAssetService creates a new asset service
func NewAssetService(store ObjectStore, logger logrus.FieldLogger) *AssetService {
	return &AssetService{store: store, logger: logger}
}

// UploadProductImage writes a product's primary image under its deterministic key
func (s *AssetService) UploadProductImage(ctx context.Context, productName, index string, file Upload) (*StoredAsset, error) {
	if err := ProductImageUpload.Validate(file.Filename, file.ContentType, file.Size); err != nil {
		return nil, err
	}
	key, err := ProductImageKey(productName, index, file.Filename)
	if err != nil {
		return nil, err
	}
	return s.put(ctx, key, file)
}

// UploadProductModel writes a product's .glb model under its deterministic key
func (s *AssetService) UploadProductModel(ctx context.Context, productName, index string, file Upload) (*StoredAsset, error) {
	if err := ModelUpload.Validate(file.Filename, file.ContentType, file.Size); err != nil {
		return nil, err
	}
	key, err := ProductModelKey(productName, index)
	if err != nil {
		return nil, err
	}
	file.ContentType = "model/gltf-binary"
	return s.put(ctx, key, file)
}

// UploadModel stores a model that no product owns yet
func (s *AssetService) UploadModel(ctx context.Context, file Upload) (*StoredAsset, error) {
	return s.uploadEphemeral(ctx, FolderModels, ModelUpload, file)
}

// UploadTexture stores a texture image
func (s *AssetService) UploadTexture(ctx context.Context, file Upload) (*StoredAsset, error) {
	return s.uploadEphemeral(ctx, FolderTextures, GenericImageUpload, file)
}

// UploadModels stores several models in parallel. Either every file is
// stored or none is left behind.
func (s *AssetService) UploadModels(ctx context.Context, files []Upload) ([]*StoredAsset, error) {
	if len(files) > MaxMultipleModels {
		return nil, invalidInput("At most %d models can be uploaded at once", MaxMultipleModels)
	}
	return s.uploadAll(ctx, FolderModels, ModelUpload, files)
}

// UploadPaymentScreenshot stores a customer's proof of payment
func (s *AssetService) UploadPaymentScreenshot(ctx context.Context, file Upload) (*StoredAsset, error) {
	return s.uploadEphemeral(ctx, FolderPaymentScreenshots, GenericImageUpload, file)
}

// UploadQRImage stores a payment method QR code
func (s *AssetService) UploadQRImage(ctx context.Context, file Upload) (*StoredAsset, error) {
	return s.uploadEphemeral(ctx, FolderPaymentMethods, GenericImageUpload, file)
}

// UploadRepairMedia stores photos attached to a repair request
func (s *AssetService) UploadRepairMedia(ctx context.Context, files []Upload) ([]*StoredAsset, error) {
	if len(files) == 0 {
		return nil, invalidInput("No files uploaded")
	}
	if len(files) > models.MaxRepairMediaFiles {
		return nil, invalidInput("At most %d media files can be attached", models.MaxRepairMediaFiles)
	}
	return s.uploadAll(ctx, FolderRepairRequests, GenericImageUpload, files)
}

// UploadCustomOrderImages stores custom order reference photos
func (s *AssetService) UploadCustomOrderImages(ctx context.Context, files []Upload) ([]*StoredAsset, error) {
	return s.uploadAll(ctx, FolderCustomOrders, GenericImageUpload, files)
}

// DeleteByURL removes the object a public URL points at
func (s *AssetService) DeleteByURL(ctx context.Context, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return invalidInput("File URL is required")
	}
	key := s.store.KeyFromURL(rawURL)
	if key == "" {
		return invalidInput("File URL does not name an object")
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return storageError(err, "failed to delete file")
	}
	s.logger.WithField("key", key).Info("asset deleted")
	return nil
}

// SignedURL returns a time-limited GET URL for a stored object, given its key or URL
func (s *AssetService) SignedURL(ctx context.Context, keyOrURL string, ttl time.Duration) (string, error) {
	keyOrURL = strings.TrimSpace(keyOrURL)
	if keyOrURL == "" {
		return "", invalidInput("Key or URL is required")
	}
	key := s.store.KeyFromURL(keyOrURL)
	signed, err := s.store.Sign(ctx, key, ttl)
	if err != nil {
		return "", storageError(err, "failed to sign url")
	}
	return signed, nil
}

// InFolder reports whether a stored asset URL names an object under folder
func (s *AssetService) InFolder(folder AssetFolder, rawURL string) bool {
	key := s.store.KeyFromURL(strings.TrimSpace(rawURL))
	if strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, string(folder)+"/")
}

// RemoveUnder deletes stored assets under folder, logging failures.
// URLs that point anywhere else are left alone.
func (s *AssetService) RemoveUnder(ctx context.Context, folder AssetFolder, urls []string) {
	for _, u := range urls {
		if !s.InFolder(folder, u) {
			s.logger.WithFields(logrus.Fields{"url": u, "folder": folder}).Warn("refusing to delete asset outside its folder")
			continue
		}
		BestEffortDelete(ctx, s.store, u, s.logger)
	}
}

func (s *AssetService) uploadEphemeral(ctx context.Context, folder AssetFolder, class UploadClass, file Upload) (*StoredAsset, error) {
	if err := class.Validate(file.Filename, file.ContentType, file.Size); err != nil {
		return nil, err
	}
	key, err := EphemeralKey(folder, file.Filename)
	if err != nil {
		return nil, err
	}
	return s.put(ctx, key, file)
}

// uploadAll validates every file before storing any, then stores them in
// parallel. On failure the files that made it are deleted again.
func (s *AssetService) uploadAll(ctx context.Context, folder AssetFolder, class UploadClass, files []Upload) ([]*StoredAsset, error) {
	if len(files) == 0 {
		return []*StoredAsset{}, nil
	}

	keys := make([]string, len(files))
	for i, f := range files {
		if err := class.Validate(f.Filename, f.ContentType, f.Size); err != nil {
			return nil, err
		}
		key, err := EphemeralKey(folder, f.Filename)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}

	assets := make([]*StoredAsset, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i := range files {
		i := i
		g.Go(func() error {
			asset, err := s.put(gctx, keys[i], files[i])
			if err != nil {
				return err
			}
			assets[i] = asset
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, asset := range assets {
			if asset != nil {
				BestEffortDelete(context.WithoutCancel(ctx), s.store, asset.URL, s.logger)
			}
		}
		return nil, err
	}
	return assets, nil
}

func (s *AssetService) put(ctx context.Context, key string, file Upload) (*StoredAsset, error) {
	if file.Open == nil {
		return nil, invalidInput("%s has no content", file.Filename)
	}
	r, err := file.Open()
	if err != nil {
		return nil, invalidInput("failed to read %s", file.Filename)
	}
	defer r.Close()

	url, err := s.store.Put(ctx, key, r, file.ContentType)
	if err != nil {
		return nil, storageError(err, "failed to upload %s", file.Filename)
	}

	s.logger.WithFields(logrus.Fields{"key": key, "size": file.Size}).Debug("asset stored")
	return &StoredAsset{URL: url, Key: key, Size: file.Size, OriginalName: file.Filename}, nil
}
