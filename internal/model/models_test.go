package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBalance_FarmingState checks that the farming classification is a pure
// function of the farming record and the snapshot's server timestamp.
func TestBalance_FarmingState(t *testing.T) {
	tests := []struct {
		name    string
		balance Balance
		want    FarmingState
	}{
		{
			name:    "no farming record",
			balance: Balance{Timestamp: 1000},
			want:    FarmingAbsent,
		},
		{
			name:    "window elapsed",
			balance: Balance{Timestamp: 1000, Farming: &Farming{Start: 0, End: 500}},
			want:    FarmingReady,
		},
		{
			name:    "window active",
			balance: Balance{Timestamp: 1000, Farming: &Farming{Start: 500, End: 2000}},
			want:    FarmingActive,
		},
		{
			name:    "window ends exactly now counts as active",
			balance: Balance{Timestamp: 1000, Farming: &Farming{Start: 0, End: 1000}},
			want:    FarmingActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.balance.FarmingState())
		})
	}
}

// TestAuthResult_UnmarshalShapes checks both response shapes the gateway
// produces.
func TestAuthResult_UnmarshalShapes(t *testing.T) {
	t.Run("nested provider response", func(t *testing.T) {
		raw := `{"token": {"access": "a", "refresh": "r", "user": {"id": {"id": "u1"}, "username": "fox"}}}`
		var res AuthResult
		require.NoError(t, json.Unmarshal([]byte(raw), &res))
		assert.Equal(t, "a", res.AccessToken)
		assert.Equal(t, "r", res.RefreshToken)
		assert.Equal(t, "u1", res.UserID)
		assert.Equal(t, "fox", res.Username)
	})

	t.Run("flat refresh response", func(t *testing.T) {
		var res AuthResult
		require.NoError(t, json.Unmarshal([]byte(`{"access": "a2", "refresh": "r2"}`), &res))
		assert.Equal(t, "a2", res.AccessToken)
		assert.Equal(t, "r2", res.RefreshToken)
	})

	t.Run("account does not exist", func(t *testing.T) {
		var res AuthResult
		require.NoError(t, json.Unmarshal([]byte(`{}`), &res))
		assert.Empty(t, res.AccessToken)
	})
}

func TestAmount_AcceptsStringsAndNumbers(t *testing.T) {
	var v struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "12.5", "b": 7}`), &v))
	assert.Equal(t, Amount(12.5), v.A)
	assert.Equal(t, Amount(7), v.B)

	err := json.Unmarshal([]byte(`{"a": "not a number"}`), &v)
	assert.Error(t, err)
}
