package oto_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/oto/pkg/oto"
)

func TestShipmentData_MarshalFlattensExtra(t *testing.T) {
	data := oto.ShipmentData{
		RecipientName:  "Ayşe Yılmaz",
		Address:        "Bağdat Cd. 12",
		Phone:          "05551234567",
		CourierCompany: "aras",
		Extra: map[string]any{
			"desi":      2,
			"alici_adi": "ignored",
		},
	}

	raw, err := json.Marshal(data)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"alici_adi": "Ayşe Yılmaz",
		"adres": "Bağdat Cd. 12",
		"telefon": "05551234567",
		"kargo_firmasi": "aras",
		"desi": 2
	}`, string(raw))
}

func TestShipmentData_UnmarshalCollectsExtra(t *testing.T) {
	var data oto.ShipmentData
	err := json.Unmarshal([]byte(`{"alici_adi":"A","adres":"B","telefon":"C","kargo_firmasi":"D","not":"fragile"}`), &data)
	require.NoError(t, err)

	assert.Equal(t, "A", data.RecipientName)
	assert.Equal(t, "D", data.CourierCompany)
	assert.Equal(t, map[string]any{"not": "fragile"}, data.Extra)
}

func TestShipmentData_UnmarshalWithoutExtra(t *testing.T) {
	var data oto.ShipmentData
	err := json.Unmarshal([]byte(`{"alici_adi":"A"}`), &data)
	require.NoError(t, err)

	assert.Equal(t, "A", data.RecipientName)
	assert.Nil(t, data.Extra)
}

func TestPriceRequest_MarshalOmitsEmptyCourier(t *testing.T) {
	raw, err := json.Marshal(oto.PriceRequest{OriginCity: "İstanbul", DestinationCity: "Ankara", Desi: 3})
	require.NoError(t, err)

	assert.JSONEq(t, `{"gonderici_sehir":"İstanbul","alici_sehir":"Ankara","desi":3}`, string(raw))
}

func TestResponse_String(t *testing.T) {
	resp := oto.Response{"tracking_number": "TRK1", "count": 2.0}

	assert.Equal(t, "TRK1", resp.String("tracking_number"))
	assert.Equal(t, "", resp.String("count"))
	assert.Equal(t, "", resp.String("missing"))
}
