package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type size string

func (s size) Valid() bool { return s == "small" || s == "large" }

type line struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

type order struct {
	Email   string   `json:"email" validate:"required,email"`
	Phone   string   `json:"phone" validate:"phone"`
	Name    string   `json:"name" validate:"required,min=2,max=10,no_xss"`
	Size    size     `json:"size" validate:"enum"`
	Width   float64  `json:"width" validate:"gt=0"`
	Lines   []line   `json:"lines" validate:"required,dive"`
	Images  []string `json:"images" validate:"max=2"`
	Comment *string  `json:"comment" validate:"required,max=5"`
}

func validOrder() order {
	return order{
		Email: "buyer@example.com",
		Phone: "+639171234567",
		Name:  "Ana",
		Size:  "small",
		Width: 10,
		Lines: []line{{SKU: "oak-1", Quantity: 1}},
	}
}

func fields(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	var names []string
	for _, e := range verrs {
		names = append(names, e.Field)
	}
	return names
}

func TestValidateStruct(t *testing.T) {
	o := validOrder()
	assert.NoError(t, ValidateStruct(&o))

	tests := []struct {
		name   string
		mutate func(*order)
		field  string
	}{
		{"missing email", func(o *order) { o.Email = " " }, "email"},
		{"bad email", func(o *order) { o.Email = "buyer" }, "email"},
		{"local phone format", func(o *order) { o.Phone = "09171234567" }, "phone"},
		{"short name", func(o *order) { o.Name = "A" }, "name"},
		{"long name", func(o *order) { o.Name = "Abcdefghijk" }, "name"},
		{"script in name", func(o *order) { o.Name = "<script>" }, "name"},
		{"unknown enum", func(o *order) { o.Size = "huge" }, "size"},
		{"zero width", func(o *order) { o.Width = 0 }, "width"},
		{"no lines", func(o *order) { o.Lines = nil }, "lines"},
		{"nested sku", func(o *order) { o.Lines = []line{{Quantity: 1}} }, "lines[0].sku"},
		{"nested quantity", func(o *order) { o.Lines = []line{{SKU: "x", Quantity: 0}} }, "lines[0].quantity"},
		{"too many images", func(o *order) { o.Images = []string{"a", "b", "c"} }, "images"},
		{"long pointer value", func(o *order) { s := "too long"; o.Comment = &s }, "comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			tt.mutate(&o)
			err := ValidateStruct(&o)
			require.Error(t, err)
			assert.Contains(t, fields(t, err), tt.field)
		})
	}

	t.Run("empty optional values pass", func(t *testing.T) {
		o := validOrder()
		o.Phone = ""
		o.Size = ""
		assert.NoError(t, ValidateStruct(&o))
	})

	assert.Error(t, ValidateStruct("not a struct"))
}

func TestPasswordAndHelpers(t *testing.T) {
	assert.Empty(t, ValidatePassword("narra2024"))
	assert.Len(t, ValidatePassword("short1"), 1)
	assert.Len(t, ValidatePassword("onlyletters"), 1)
	assert.Len(t, ValidatePassword(""), 3)

	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
	assert.Equal(t, "₱1500.50", FormatCurrency(1500.5))
	assert.Equal(t, 12.35, RoundToDecimalPlaces(12.345678, 2))
	assert.Equal(t, "Leg is...", TruncateString("Leg is cracked", 9))
	assert.Equal(t, "Leg", TruncateString("Leg", 9))
	assert.True(t, Contains([]string{"a", "b"}, "b"))

	digits, err := GenerateDigits(6)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, digits)
	_, err = GenerateDigits(0)
	assert.Error(t, err)
}
