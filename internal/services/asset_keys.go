package services

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"furnishop-backend/internal/utils"
)

// AssetFolder is a top-level prefix in the asset bucket
type AssetFolder string

const (
	FolderModels             AssetFolder = "models"
	FolderTextures           AssetFolder = "textures"
	FolderPaymentMethods     AssetFolder = "payment-methods"
	FolderCustomOrders       AssetFolder = "uploads/custom-orders"
	FolderRepairRequests     AssetFolder = "uploads/repair-requests"
	FolderPaymentScreenshots AssetFolder = "uploads/payment-screenshots"
)

// Valid reports whether uploads may be written under the folder
func (f AssetFolder) Valid() bool {
	switch f {
	case FolderModels, FolderTextures, FolderPaymentMethods,
		FolderCustomOrders, FolderRepairRequests, FolderPaymentScreenshots:
		return true
	}
	return false
}

const (
	defaultProductName = "Product"
	defaultAssetIndex  = "1"
	ephemeralDigits    = 9
)

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	hyphenRuns      = regexp.MustCompile(`-+`)
	assetIndex      = regexp.MustCompile(`^[0-9]{1,6}$`)
)

// keyClock is swapped in tests
var keyClock = time.Now

// EphemeralKey derives a unique key for an upload that no entity owns yet:
// <folder>/custom-<unix millis>-<9 random digits><original extension>
func EphemeralKey(folder AssetFolder, originalName string) (string, error) {
	if !folder.Valid() {
		return "", invalidInput("unknown upload folder %q", folder)
	}

	digits, err := utils.GenerateDigits(ephemeralDigits)
	if err != nil {
		return "", fmt.Errorf("failed to derive upload key: %w", err)
	}

	return fmt.Sprintf("%s/custom-%d-%s%s", folder, keyClock().UnixMilli(), digits, filepath.Ext(originalName)), nil
}

// SanitizeName turns a display name into a URL safe slug.
// "My Table #1!" becomes "My-Table-1".
func SanitizeName(name string) string {
	slug := unsafeNameChars.ReplaceAllString(name, "")
	slug = whitespaceRuns.ReplaceAllString(slug, "-")
	slug = hyphenRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// ProductImageKey derives models/<slug>/images/image-<index><ext>.
// The same name and index always give the same key, so a re-upload overwrites.
func ProductImageKey(name, index, originalName string) (string, error) {
	idx, err := normalizeIndex(index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("models/%s/images/image-%s%s", productSlug(name), idx, filepath.Ext(originalName)), nil
}

// ProductModelKey derives models/<slug>/<lowercase slug>-<index>.glb
func ProductModelKey(name, index string) (string, error) {
	idx, err := normalizeIndex(index)
	if err != nil {
		return "", err
	}
	slug := productSlug(name)
	return fmt.Sprintf("models/%s/%s-%s.glb", slug, strings.ToLower(slug), idx), nil
}

func productSlug(name string) string {
	slug := SanitizeName(name)
	if slug == "" {
		return defaultProductName
	}
	return slug
}

func normalizeIndex(index string) (string, error) {
	index = strings.TrimSpace(index)
	if index == "" {
		return defaultAssetIndex, nil
	}
	if !assetIndex.MatchString(index) {
		return "", invalidInput("asset index must be a number, got %q", index)
	}
	return index, nil
}

// UploadClass is an allow-list and size ceiling for one kind of upload
type UploadClass struct {
	Name         string
	MaxBytes     int64
	ContentTypes []string
	Extensions   []string
	// ExtensionSuffices accepts a file by extension whatever its declared type
	ExtensionSuffices bool
}

var (
	GenericImageUpload = UploadClass{
		Name:         "image",
		MaxBytes:     5 << 20,
		ContentTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/webp"},
		Extensions:   []string{".jpeg", ".jpg", ".png", ".webp"},
	}
	ProductImageUpload = UploadClass{
		Name:         "product image",
		MaxBytes:     10 << 20,
		ContentTypes: []string{"image/jpeg", "image/jpg", "image/png"},
		Extensions:   []string{".jpeg", ".jpg", ".png"},
	}
	ModelUpload = UploadClass{
		Name:              "3D model",
		MaxBytes:          50 << 20,
		ContentTypes:      []string{"model/gltf-binary"},
		Extensions:        []string{".glb"},
		ExtensionSuffices: true,
	}
)

// Validate checks a file before anything is sent to object storage
func (c UploadClass) Validate(filename, contentType string, size int64) error {
	if size <= 0 {
		return invalidInput("%s is empty", filename)
	}
	if size > c.MaxBytes {
		return invalidInput("%s exceeds the %dMB limit for %s files", filename, c.MaxBytes>>20, c.Name)
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	ext := strings.ToLower(filepath.Ext(filename))

	if utils.Contains(c.ContentTypes, contentType) {
		return nil
	}
	// Clients that cannot name a type fall back to the extension
	undeclared := contentType == "" || contentType == "application/octet-stream"
	if (c.ExtensionSuffices || undeclared) && utils.Contains(c.Extensions, ext) {
		return nil
	}

	return invalidInput("%s is not an allowed %s type (allowed: %s)", filename, c.Name, strings.Join(c.Extensions, ", "))
}
