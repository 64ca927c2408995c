package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelVariantsDecoding(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"array", `[{"modelUrl":"a.glb","price":1,"description":"d","variantName":"v"}]`, 1, false},
		{"string holding array", `"[{\"modelUrl\":\"a.glb\",\"price\":1,\"description\":\"d\",\"variantName\":\"v\"},{\"modelUrl\":\"b.glb\",\"price\":2,\"description\":\"d\",\"variantName\":\"w\"}]"`, 2, false},
		{"null", `null`, 0, false},
		{"blank string", `"  "`, 0, false},
		{"garbage string", `"not json"`, 0, true},
		{"object", `{"modelUrl":"a.glb"}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var variants ModelVariants
			err := json.Unmarshal([]byte(tt.input), &variants)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, variants)
			assert.Len(t, variants, tt.want)
		})
	}

	var creation ProductCreation
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Oak Table","models":"[{\"modelUrl\":\"m.glb\",\"price\":5,\"description\":\"x\",\"variantName\":\"Classic\"}]"}`), &creation))
	require.Len(t, creation.Models, 1)
	assert.Equal(t, "Classic", creation.Models[0].VariantName)

	out, err := json.Marshal(Product{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"models":[]`)
}

func TestTransactionStatusTransitions(t *testing.T) {
	assert.True(t, TransactionStatusPending.CanTransitionTo(TransactionStatusProcessing))
	assert.True(t, TransactionStatusShipped.CanTransitionTo(TransactionStatusCancelled))
	assert.False(t, TransactionStatusPending.CanTransitionTo(TransactionStatusDelivered))
	assert.False(t, TransactionStatusDelivered.CanTransitionTo(TransactionStatusCancelled))
	assert.False(t, TransactionStatusCancelled.CanTransitionTo(TransactionStatusPending))

	assert.True(t, TransactionStatusDelivered.IsTerminal())
	assert.True(t, TransactionStatusCancelled.IsTerminal())
	assert.False(t, TransactionStatusShipped.IsTerminal())

	assert.False(t, TransactionStatus("lost").Valid())
	assert.Equal(t, 3000.0, TransactionItem{Quantity: 2, Price: 1500}.Subtotal())
}

func TestStringList(t *testing.T) {
	var list StringList
	require.NoError(t, list.Scan(`["a.jpg","b.jpg"]`))
	assert.Equal(t, StringList{"a.jpg", "b.jpg"}, list)

	require.NoError(t, list.Scan([]byte(`null`)))
	assert.Equal(t, StringList{}, list)

	require.NoError(t, list.Scan(nil))
	assert.Equal(t, StringList{}, list)

	assert.Error(t, list.Scan(42))
	assert.Error(t, list.Scan(`{"a":1}`))

	value, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	out, err := json.Marshal(StringList(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestIdentityAccess(t *testing.T) {
	owner := Identity{UserID: "u1", Role: UserRoleUser}
	assert.True(t, owner.CanAccess("u1"))
	assert.False(t, owner.CanAccess("u2"))
	assert.False(t, Identity{}.CanAccess(""))
	assert.True(t, Identity{UserID: "a1", Role: UserRoleAdmin}.CanAccess("u2"))

	assert.True(t, OrderTypeTransaction.Valid())
	assert.False(t, OrderType("Invoice").Valid())
	assert.False(t, CustomOrderStatus("shipped").Valid())
	assert.True(t, RepairStatusInRepair.Valid())
}
