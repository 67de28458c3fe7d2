package oto

import (
	"encoding/json"
)

// Response is a parsed TryOto API response. The API is the authority on its
// shape; the SDK only guarantees it decoded from a JSON object.
type Response map[string]any

// String returns the string stored under key, or "" when absent or not a
// string.
func (r Response) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Payload is an opaque request body passed through to the API unvalidated.
type Payload map[string]any

// ShipmentData is the body of a shipment creation request. The four typed
// fields are required; everything in Extra is forwarded as-is.
type ShipmentData struct {
	RecipientName  string         `json:"alici_adi" validate:"required"`
	Address        string         `json:"adres" validate:"required"`
	Phone          string         `json:"telefon" validate:"required"`
	CourierCompany string         `json:"kargo_firmasi" validate:"required"`
	Extra          map[string]any `json:"-" validate:"-"`
}

var shipmentKeys = []string{"alici_adi", "adres", "telefon", "kargo_firmasi"}

// MarshalJSON flattens Extra into the object. Typed fields win on collision.
func (d ShipmentData) MarshalJSON() ([]byte, error) {
	type plain ShipmentData
	return marshalWithExtra(plain(d), d.Extra)
}

// UnmarshalJSON fills the typed fields and collects every other key in Extra.
func (d *ShipmentData) UnmarshalJSON(data []byte) error {
	type plain ShipmentData
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := collectExtra(data, shipmentKeys)
	if err != nil {
		return err
	}
	*d = ShipmentData(p)
	d.Extra = extra
	return nil
}

// PriceRequest is the body of a price calculation request.
type PriceRequest struct {
	OriginCity      string         `json:"gonderici_sehir" validate:"required"`
	DestinationCity string         `json:"alici_sehir" validate:"required"`
	Desi            float64        `json:"desi" validate:"gt=0"`
	CourierCompany  string         `json:"kargo_firmasi,omitempty"`
	Extra           map[string]any `json:"-" validate:"-"`
}

var priceKeys = []string{"gonderici_sehir", "alici_sehir", "desi", "kargo_firmasi"}

// MarshalJSON flattens Extra into the object. Typed fields win on collision.
func (p PriceRequest) MarshalJSON() ([]byte, error) {
	type plain PriceRequest
	return marshalWithExtra(plain(p), p.Extra)
}

// UnmarshalJSON fills the typed fields and collects every other key in Extra.
func (p *PriceRequest) UnmarshalJSON(data []byte) error {
	type plain PriceRequest
	var pl plain
	if err := json.Unmarshal(data, &pl); err != nil {
		return err
	}
	extra, err := collectExtra(data, priceKeys)
	if err != nil {
		return err
	}
	*p = PriceRequest(pl)
	p.Extra = extra
	return nil
}

func marshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return raw, err
	}

	merged := make(map[string]any, len(extra)+4)
	for k, val := range extra {
		merged[k] = val
	}
	var typed map[string]any
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, err
	}
	for k, val := range typed {
		merged[k] = val
	}
	return json.Marshal(merged)
}

func collectExtra(data []byte, known []string) (map[string]any, error) {
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}
