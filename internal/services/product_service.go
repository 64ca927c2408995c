package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/models"
)

const productColumns = "id, name, description, price, category, stock, image, created_at, updated_at"

// productModelRow is a model variant row with its owning product
type productModelRow struct {
	ProductID string `db:"product_id"`
	models.ModelVariant
}

// ProductService handles catalog products
type ProductService struct {
	db     *sqlx.DB
	cache  CatalogCache
	logger logrus.FieldLogger
}

// NewProductService creates a new product service
func NewProductService(db *sqlx.DB, cache CatalogCache, logger logrus.FieldLogger) *ProductService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &ProductService{db: db, cache: cache, logger: logger}
}

// CreateProduct creates a product with its model variants
func (s *ProductService) CreateProduct(ctx context.Context, creation *models.ProductCreation) (*models.Product, error) {
	if err := validate(creation); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &models.Product{
		ID:          uuid.New().String(),
		Name:        creation.Name,
		Description: creation.Description,
		Price:       creation.Price,
		Category:    creation.Category,
		Stock:       creation.Stock,
		Image:       creation.Image,
		Models:      creation.Models,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.Models == nil {
		product.Models = models.ModelVariants{}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (:id, :name, :description, :price, :category, :stock, :image, :created_at, :updated_at)
	`, product)
	if err != nil {
		return nil, persistenceError(err, "failed to create product")
	}

	if err := insertProductModels(ctx, tx, product.ID, product.Models); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceError(err, "failed to commit product")
	}

	invalidateProducts(ctx, s.cache)
	s.logger.WithFields(logrus.Fields{"product_id": product.ID, "name": product.Name}).Info("product created")
	return product, nil
}

// GetProducts returns the whole catalog, newest first
func (s *ProductService) GetProducts(ctx context.Context) ([]*models.Product, error) {
	var cached []*models.Product
	if cachedJSON(ctx, s.cache, productListCacheKey, &cached) {
		return cached, nil
	}

	products := []*models.Product{}
	err := s.db.SelectContext(ctx, &products, "SELECT "+productColumns+" FROM products ORDER BY created_at DESC")
	if err != nil {
		return nil, persistenceError(err, "failed to list products")
	}

	if err := s.attachModels(ctx, products); err != nil {
		return nil, err
	}

	cacheJSON(ctx, s.cache, productListCacheKey, products)
	return products, nil
}

// GetProductByID returns one product
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var cached models.Product
	if cachedJSON(ctx, s.cache, productCacheKey(id), &cached) {
		return &cached, nil
	}

	product, err := getProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if err := s.attachModels(ctx, []*models.Product{product}); err != nil {
		return nil, err
	}

	cacheJSON(ctx, s.cache, productCacheKey(id), product)
	return product, nil
}

// UpdateProduct applies a partial update. Replacing models replaces the whole list.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, update *models.ProductUpdate) (*models.Product, error) {
	if err := validate(update); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	product, err := getProduct(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		product.Name = *update.Name
	}
	if update.Description != nil {
		product.Description = *update.Description
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.Category != nil && *update.Category != "" {
		product.Category = *update.Category
	}
	if update.Stock != nil {
		product.Stock = *update.Stock
	}
	if update.Image != nil {
		product.Image = *update.Image
	}
	product.UpdatedAt = time.Now().UTC()

	_, err = tx.NamedExecContext(ctx, `
		UPDATE products
		SET name = :name, description = :description, price = :price, category = :category,
			stock = :stock, image = :image, updated_at = :updated_at
		WHERE id = :id
	`, product)
	if err != nil {
		return nil, persistenceError(err, "failed to update product")
	}

	if update.Models != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM product_models WHERE product_id = ?", id); err != nil {
			return nil, persistenceError(err, "failed to replace product models")
		}
		if err := insertProductModels(ctx, tx, id, *update.Models); err != nil {
			return nil, err
		}
		product.Models = *update.Models
	} else {
		variants, err := loadProductModels(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		product.Models = variants
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceError(err, "failed to commit product update")
	}

	invalidateProducts(ctx, s.cache, id)
	return product, nil
}

// DeleteProduct removes a product and its model variants.
// Orders that reference the product keep their line items.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return persistenceError(err, "failed to delete product")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return persistenceError(err, "failed to delete product")
	}
	if rows == 0 {
		return notFound("Product not found")
	}

	invalidateProducts(ctx, s.cache, id)
	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

func (s *ProductService) attachModels(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, 0, len(products))
	byID := make(map[string]*models.Product, len(products))
	for _, p := range products {
		p.Models = models.ModelVariants{}
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	query, args, err := sqlx.In(`
		SELECT product_id, model_url, price, description, variant_name
		FROM product_models WHERE product_id IN (?)
		ORDER BY product_id, position
	`, ids)
	if err != nil {
		return persistenceError(err, "failed to build model query")
	}

	var rows []productModelRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return persistenceError(err, "failed to load product models")
	}

	for _, row := range rows {
		if p, ok := byID[row.ProductID]; ok {
			p.Models = append(p.Models, row.ModelVariant)
		}
	}
	return nil
}

// getProduct loads a product row without its variants
func getProduct(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, q, &product, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Product not found")
	}
	if err != nil {
		return nil, persistenceError(err, "failed to get product")
	}
	return &product, nil
}

func loadProductModels(ctx context.Context, q sqlx.QueryerContext, productID string) (models.ModelVariants, error) {
	variants := models.ModelVariants{}
	err := sqlx.SelectContext(ctx, q, &variants, `
		SELECT model_url, price, description, variant_name
		FROM product_models WHERE product_id = ? ORDER BY position
	`, productID)
	if err != nil {
		return nil, persistenceError(err, "failed to load product models")
	}
	return variants, nil
}

func insertProductModels(ctx context.Context, tx *sqlx.Tx, productID string, variants models.ModelVariants) error {
	for i, v := range variants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_models (product_id, position, model_url, price, description, variant_name)
			VALUES (?, ?, ?, ?, ?, ?)
		`, productID, i, v.ModelURL, v.Price, v.Description, v.VariantName)
		if err != nil {
			return persistenceError(err, "failed to save product model")
		}
	}
	return nil
}
