package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{in: "250.50", want: 25050},
		{in: "100", want: 10000},
		{in: "0.01", want: 1},
		{in: "-3.5", want: -350},
		{in: "1.999", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "250.50", Money(25050).String())
	assert.Equal(t, "0.07", Money(7).String())
	assert.Equal(t, "100.00", Money(10000).String())
}

func TestMoney_JSON(t *testing.T) {
	var body struct {
		Amount Money `json:"amount"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"amount":250.5}`), &body))
	assert.Equal(t, Money(25050), body.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.34"}`), &body))
	assert.Equal(t, Money(1234), body.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":1.005}`), &body))

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":12.34}`, string(out))
}
