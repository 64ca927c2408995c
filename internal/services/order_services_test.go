package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
	"furnishop-backend/test/helpers"
)

func customOrderCreation() *models.CustomOrderCreation {
	return &models.CustomOrderCreation{
		FurnitureType: models.FurnitureTable,
		Width:         120,
		Height:        75,
		WoodType:      models.WoodMahogany,
		VarnishType:   models.VarnishDarkWood,
		TotalPrice:    18500,
		Notes:         "  round corners  ",
	}
}

func TestCustomOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	db := helpers.SetupTestDatabase(t)
	store := services.NewMemoryStore("furnishop-assets")
	events := &helpers.RecordingPublisher{}
	service := services.NewCustomOrderService(db, services.NewAssetService(store, helpers.Logger()), events, helpers.Logger())

	owner := helpers.CreateTestUser(t, db, models.UserRoleUser)
	other := helpers.CreateTestUser(t, db, models.UserRoleUser)
	admin := helpers.CreateTestUser(t, db, models.UserRoleAdmin)

	order, err := service.CreateCustomOrder(ctx, owner.ID, customOrderCreation(), []services.Upload{
		services.NewUpload("ref.jpg", "image/jpeg", []byte("img")),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CustomOrderStatusPending, order.Status)
	assert.Equal(t, "round corners", order.Notes)
	require.Len(t, order.Images, 1)
	assert.Equal(t, 1, store.Len())

	got, err := service.GetCustomOrderByID(ctx, order.ID, owner.Identity())
	require.NoError(t, err)
	assert.Equal(t, 120.0, got.Dimensions.Width)
	assert.Equal(t, order.Images, got.Images)

	_, err = service.GetCustomOrderByID(ctx, order.ID, other.Identity())
	assert.True(t, errors.Is(err, services.ErrForbidden))

	mine, err := service.GetCustomOrders(ctx, other.Identity())
	require.NoError(t, err)
	assert.Empty(t, mine)
	all, err := service.GetCustomOrders(ctx, admin.Identity())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	status := models.CustomOrderStatusApproved
	notes := "Ready in two weeks"
	updated, err := service.UpdateCustomOrder(ctx, order.ID, &models.CustomOrderUpdate{Status: &status, AdminNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, status, updated.Status)
	assert.Equal(t, notes, updated.AdminNotes)

	bad := models.CustomOrderStatus("shipped")
	_, err = service.UpdateCustomOrder(ctx, order.ID, &models.CustomOrderUpdate{Status: &bad})
	assert.True(t, errors.Is(err, services.ErrInvalidInput))

	require.NoError(t, service.DeleteCustomOrder(ctx, order.ID))
	assert.Equal(t, 0, store.Len(), "images are removed with the order")
	_, err = service.GetCustomOrderByID(ctx, order.ID, admin.Identity())
	assert.True(t, errors.Is(err, services.ErrNotFound))

	assert.Len(t, events.Events(), 2)
}

func TestCustomOrderValidation(t *testing.T) {
	ctx := context.Background()
	db := helpers.SetupTestDatabase(t)
	store := services.NewMemoryStore("furnishop-assets")
	service := services.NewCustomOrderService(db, services.NewAssetService(store, helpers.Logger()), nil, helpers.Logger())

	creation := customOrderCreation()
	creation.Width = 0
	_, err := service.CreateCustomOrder(ctx, "u1", creation, nil)
	assert.True(t, errors.Is(err, services.ErrInvalidInput))

	creation = customOrderCreation()
	creation.WoodType = "Pine"
	_, err = service.CreateCustomOrder(ctx, "u1", creation, nil)
	assert.True(t, errors.Is(err, services.ErrInvalidInput))

	images := make([]services.Upload, models.MaxCustomOrderImages+1)
	for i := range images {
		images[i] = services.NewUpload("ref.jpg", "image/jpeg", []byte("img"))
	}
	_, err = service.CreateCustomOrder(ctx, "u1", customOrderCreation(), images)
	assert.True(t, errors.Is(err, services.ErrInvalidInput))
	assert.Equal(t, 0, store.Len())
}

func TestRepairRequestOwnership(t *testing.T) {
	ctx := context.Background()
	db := helpers.SetupTestDatabase(t)
	store := services.NewMemoryStore("furnishop-assets")
	assets := services.NewAssetService(store, helpers.Logger())
	transactions := services.NewTransactionService(db, nil, nil, helpers.Logger())
	customOrders := services.NewCustomOrderService(db, assets, nil, helpers.Logger())
	repairs := services.NewRepairRequestService(db, assets, helpers.Logger())

	owner := helpers.CreateTestUser(t, db, models.UserRoleUser)
	other := helpers.CreateTestUser(t, db, models.UserRoleUser)
	admin := helpers.CreateTestUser(t, db, models.UserRoleAdmin)
	table := helpers.CreateTestProduct(t, db, "Oak Table", 12000, 5)

	tx, err := transactions.CreateTransaction(ctx, owner.ID, helpers.TestCheckout(
		models.TransactionItem{ProductID: table.ID, Quantity: 1, Price: 12000},
	))
	require.NoError(t, err)
	custom, err := customOrders.CreateCustomOrder(ctx, owner.ID, customOrderCreation(), nil)
	require.NoError(t, err)

	media, err := assets.UploadRepairMedia(ctx, []services.Upload{services.NewUpload("crack.jpg", "image/jpeg", []byte("x"))})
	require.NoError(t, err)

	creation := &models.RepairRequestCreation{
		OrderID:       tx.ID,
		OrderType:     models.OrderTypeTransaction,
		Description:   "Leg is cracked",
		Media:         []string{media[0].URL},
		TermsAccepted: true,
	}

	t.Run("terms must be accepted", func(t *testing.T) {
		c := *creation
		c.TermsAccepted = false
		_, err := repairs.CreateRepairRequest(ctx, owner.ID, &c)
		assert.True(t, errors.Is(err, services.ErrInvalidInput))
	})

	t.Run("only the owner may file", func(t *testing.T) {
		c := *creation
		_, err := repairs.CreateRepairRequest(ctx, other.ID, &c)
		assert.True(t, errors.Is(err, services.ErrForbidden))
	})

	t.Run("order type must match", func(t *testing.T) {
		c := *creation
		c.OrderType = models.OrderTypeCustomOrder
		_, err := repairs.CreateRepairRequest(ctx, owner.ID, &c)
		assert.True(t, errors.Is(err, services.ErrNotFound))
	})

	t.Run("unknown order type", func(t *testing.T) {
		_, _, err := repairs.ResolveOrder(ctx, models.OrderRef{ID: tx.ID, Type: "Invoice"})
		assert.True(t, errors.Is(err, services.ErrInvalidInput))
	})

	t.Run("missing type resolves either kind", func(t *testing.T) {
		_, resolved, err := repairs.ResolveOrder(ctx, models.OrderRef{ID: custom.ID})
		require.NoError(t, err)
		assert.Equal(t, models.OrderTypeCustomOrder, resolved)

		_, resolved, err = repairs.ResolveOrder(ctx, models.OrderRef{ID: tx.ID})
		require.NoError(t, err)
		assert.Equal(t, models.OrderTypeTransaction, resolved)

		_, _, err = repairs.ResolveOrder(ctx, models.OrderRef{ID: "missing"})
		assert.True(t, errors.Is(err, services.ErrNotFound))
	})

	request, err := repairs.CreateRepairRequest(ctx, owner.ID, creation)
	require.NoError(t, err)
	assert.Equal(t, models.RepairStatusPending, request.Status)
	require.NotNil(t, request.TermsAcceptedAt)

	forOrder, err := repairs.GetOrderRepairRequests(ctx, models.OrderRef{ID: tx.ID, Type: models.OrderTypeTransaction}, owner.Identity())
	require.NoError(t, err)
	assert.Len(t, forOrder, 1)

	_, err = repairs.GetOrderRepairRequests(ctx, models.OrderRef{ID: tx.ID, Type: models.OrderTypeTransaction}, other.Identity())
	assert.True(t, errors.Is(err, services.ErrForbidden))

	forAdmin, err := repairs.GetOrderRepairRequests(ctx, models.OrderRef{ID: tx.ID, Type: models.OrderTypeTransaction}, admin.Identity())
	require.NoError(t, err)
	assert.Len(t, forAdmin, 1)

	status := models.RepairStatusInRepair
	updated, err := repairs.UpdateRepairRequest(ctx, request.ID, &models.RepairRequestUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, status, updated.Status)

	require.NoError(t, repairs.DeleteRepairRequest(ctx, request.ID))
	assert.Equal(t, 0, store.Len(), "media is removed with the request")
	_, err = repairs.GetRepairRequestByID(ctx, request.ID)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestRepairMediaStaysInItsFolder(t *testing.T) {
	ctx := context.Background()
	db := helpers.SetupTestDatabase(t)
	store := services.NewMemoryStore("furnishop-assets")
	assets := services.NewAssetService(store, helpers.Logger())
	transactions := services.NewTransactionService(db, nil, nil, helpers.Logger())
	repairs := services.NewRepairRequestService(db, assets, helpers.Logger())

	owner := helpers.CreateTestUser(t, db, models.UserRoleUser)
	table := helpers.CreateTestProduct(t, db, "Oak Table", 12000, 5)
	tx, err := transactions.CreateTransaction(ctx, owner.ID, helpers.TestCheckout(
		models.TransactionItem{ProductID: table.ID, Quantity: 1, Price: 12000},
	))
	require.NoError(t, err)

	catalog, err := assets.UploadProductImage(ctx, "Oak Table", "1", services.NewUpload("oak.png", "image/png", pngBytes))
	require.NoError(t, err)
	media, err := assets.UploadRepairMedia(ctx, []services.Upload{services.NewUpload("crack.jpg", "image/jpeg", []byte("x"))})
	require.NoError(t, err)

	creation := func(urls ...string) *models.RepairRequestCreation {
		return &models.RepairRequestCreation{
			OrderID:       tx.ID,
			OrderType:     models.OrderTypeTransaction,
			Description:   "Top is scratched",
			Media:         urls,
			TermsAccepted: true,
		}
	}

	for _, foreign := range []string{
		catalog.URL,
		catalog.Key,
		store.PublicURL("uploads/repair-requests/../../" + catalog.Key),
		"https://cdn.example.com/uploads/payment-screenshots/a.png",
	} {
		_, err := repairs.CreateRepairRequest(ctx, owner.ID, creation(media[0].URL, foreign))
		assert.True(t, errors.Is(err, services.ErrInvalidInput), foreign)
	}

	request, err := repairs.CreateRepairRequest(ctx, owner.ID, creation(media[0].URL))
	require.NoError(t, err)

	// A row that already references a catalog object must not take it down on delete
	stored, err := json.Marshal([]string{media[0].URL, catalog.URL})
	require.NoError(t, err)
	_, err = db.Exec("UPDATE repair_requests SET media = ? WHERE id = ?", string(stored), request.ID)
	require.NoError(t, err)

	require.NoError(t, repairs.DeleteRepairRequest(ctx, request.ID))
	_, present := store.Get(catalog.Key)
	assert.True(t, present, "catalog image survives repair request deletion")
	_, present = store.Get(media[0].Key)
	assert.False(t, present, "repair media is removed")
}

func TestPaymentMethodQRReplacement(t *testing.T) {
	ctx := context.Background()
	db := helpers.SetupTestDatabase(t)
	store := services.NewMemoryStore("furnishop-assets")
	assets := services.NewAssetService(store, helpers.Logger())
	service := services.NewPaymentMethodService(db, store, helpers.Logger())

	firstQR, err := assets.UploadQRImage(ctx, services.NewUpload("qr.png", "image/png", pngBytes))
	require.NoError(t, err)

	method, err := service.CreatePaymentMethod(ctx, &models.PaymentMethodCreation{
		ServiceProvider: models.ServiceProviderGCash,
		AccountNumber:   "+639171234567",
		AccountName:     "FurniShop",
		QRImage:         firstQR.URL,
	})
	require.NoError(t, err)
	assert.True(t, method.IsActive)
	assert.Equal(t, models.PaymentMethodTypeEWallet, method.Type)

	secondQR, err := assets.UploadQRImage(ctx, services.NewUpload("qr2.png", "image/png", pngBytes))
	require.NoError(t, err)

	inactive := false
	updated, err := service.UpdatePaymentMethod(ctx, method.ID, &models.PaymentMethodUpdate{QRImage: &secondQR.URL, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, secondQR.URL, updated.QRImage)

	_, stillThere := store.Get(firstQR.Key)
	assert.False(t, stillThere, "replaced QR image is deleted")
	_, present := store.Get(secondQR.Key)
	assert.True(t, present)

	active, err := service.GetActivePaymentMethods(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := service.GetPaymentMethods(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, service.DeletePaymentMethod(ctx, method.ID))
	assert.Equal(t, 0, store.Len())

	_, err = service.CreatePaymentMethod(ctx, &models.PaymentMethodCreation{
		ServiceProvider: models.ServiceProviderPayMaya,
		Type:            "bank",
		AccountNumber:   "+639171234567",
		AccountName:     "FurniShop",
		QRImage:         "qr",
	})
	assert.True(t, errors.Is(err, services.ErrInvalidInput))
}
