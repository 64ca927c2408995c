package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnishop-backend/internal/services"
	"furnishop-backend/test/helpers"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func newAssetService(t *testing.T) (*services.AssetService, *services.MemoryStore) {
	t.Helper()
	store := services.NewMemoryStore("furnishop-assets")
	return services.NewAssetService(store, helpers.Logger()), store
}

func TestUploadProductImage(t *testing.T) {
	ctx := context.Background()
	assets, store := newAssetService(t)

	asset, err := assets.UploadProductImage(ctx, "Corner Wardrobe 2", "1", services.NewUpload("front.PNG", "image/png", pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "models/Corner-Wardrobe-2/images/image-1.PNG", asset.Key)
	assert.Equal(t, store.PublicURL(asset.Key), asset.URL)

	// Same name and index overwrites
	_, err = assets.UploadProductImage(ctx, "Corner Wardrobe 2", "1", services.NewUpload("front.PNG", "image/png", []byte("second")))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	obj, ok := store.Get(asset.Key)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), obj.Data)

	_, err = assets.UploadProductImage(ctx, "Corner Wardrobe 2", "1", services.NewUpload("front.gif", "image/gif", pngBytes))
	assert.True(t, errors.Is(err, services.ErrInvalidInput))
	assert.Equal(t, 1, store.Len())
}

func TestUploadProductModelForcesContentType(t *testing.T) {
	assets, store := newAssetService(t)

	asset, err := assets.UploadProductModel(context.Background(), "Oak Table", "2", services.NewUpload("table.glb", "application/octet-stream", []byte("glTF")))
	require.NoError(t, err)
	assert.Equal(t, "models/Oak-Table/oak-table-2.glb", asset.Key)

	obj, ok := store.Get(asset.Key)
	require.True(t, ok)
	assert.Equal(t, "model/gltf-binary", obj.ContentType)
}

func TestUploadModelsAllOrNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("one invalid file stores nothing", func(t *testing.T) {
		assets, store := newAssetService(t)
		_, err := assets.UploadModels(ctx, []services.Upload{
			services.NewUpload("a.glb", "model/gltf-binary", []byte("a")),
			services.NewUpload("b.obj", "text/plain", []byte("b")),
		})
		assert.True(t, errors.Is(err, services.ErrInvalidInput))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("storage failure stores nothing", func(t *testing.T) {
		assets, store := newAssetService(t)
		store.FailPuts = true
		_, err := assets.UploadModels(ctx, []services.Upload{
			services.NewUpload("a.glb", "model/gltf-binary", []byte("a")),
		})
		assert.True(t, errors.Is(err, services.ErrStorage))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("too many files", func(t *testing.T) {
		assets, _ := newAssetService(t)
		files := make([]services.Upload, services.MaxMultipleModels+1)
		for i := range files {
			files[i] = services.NewUpload(fmt.Sprintf("m%d.glb", i), "model/gltf-binary", []byte("m"))
		}
		_, err := assets.UploadModels(ctx, files)
		assert.True(t, errors.Is(err, services.ErrInvalidInput))
	})

	t.Run("stores every file under its own key", func(t *testing.T) {
		assets, store := newAssetService(t)
		stored, err := assets.UploadModels(ctx, []services.Upload{
			services.NewUpload("a.glb", "model/gltf-binary", []byte("a")),
			services.NewUpload("b.glb", "model/gltf-binary", []byte("b")),
		})
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.NotEqual(t, stored[0].Key, stored[1].Key)
		assert.True(t, strings.HasPrefix(stored[0].Key, "models/custom-"))
		assert.Equal(t, "a.glb", stored[0].OriginalName)
		assert.Equal(t, 2, store.Len())
	})
}

func TestUploadRepairMediaLimits(t *testing.T) {
	ctx := context.Background()
	assets, _ := newAssetService(t)

	_, err := assets.UploadRepairMedia(ctx, nil)
	assert.True(t, errors.Is(err, services.ErrInvalidInput))

	files := make([]services.Upload, 6)
	for i := range files {
		files[i] = services.NewUpload("p.jpg", "image/jpeg", []byte("x"))
	}
	_, err = assets.UploadRepairMedia(ctx, files)
	assert.True(t, errors.Is(err, services.ErrInvalidInput))

	stored, err := assets.UploadRepairMedia(ctx, files[:2])
	require.NoError(t, err)
	for _, asset := range stored {
		assert.True(t, strings.HasPrefix(asset.Key, "uploads/repair-requests/custom-"))
	}
}

func TestDeleteAndSign(t *testing.T) {
	ctx := context.Background()
	assets, store := newAssetService(t)

	asset, err := assets.UploadTexture(ctx, services.NewUpload("wood.jpg", "image/jpeg", []byte("x")))
	require.NoError(t, err)

	signed, err := assets.SignedURL(ctx, asset.URL, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, asset.URL+"?expires="))

	_, err = assets.SignedURL(ctx, " ", time.Minute)
	assert.True(t, errors.Is(err, services.ErrInvalidInput))

	require.NoError(t, assets.DeleteByURL(ctx, asset.URL))
	assert.Equal(t, 0, store.Len())

	assert.True(t, errors.Is(assets.DeleteByURL(ctx, ""), services.ErrInvalidInput))

	store.FailDeletes = true
	assert.True(t, errors.Is(assets.DeleteByURL(ctx, asset.URL), services.ErrStorage))
}

func TestBestEffortDeleteSwallowsFailures(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore("furnishop-assets")
	url, err := store.Put(ctx, "payment-methods/qr.png", bytes.NewReader(pngBytes), "image/png")
	require.NoError(t, err)

	store.FailDeletes = true
	services.BestEffortDelete(ctx, store, url, helpers.Logger())
	assert.Equal(t, 1, store.Len())

	store.FailDeletes = false
	services.BestEffortDelete(ctx, store, url, helpers.Logger())
	assert.Equal(t, 0, store.Len())

	services.BestEffortDelete(ctx, store, "", helpers.Logger())
}
