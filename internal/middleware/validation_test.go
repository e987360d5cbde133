package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Request shape mirroring the track-product payload.
type trackTestRequest struct {
	URL        string  `json:"url" validate:"required,url"`
	Price      float64 `json:"price" validate:"gte=0"`
	AlertPrice float64 `json:"alert_price" validate:"gte=0"`
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "valid request",
			body: `{"url":"http://shop.test/item","price":19.99,"alert_price":15}`,
		},
		{
			name:    "missing url",
			body:    `{"price":19.99}`,
			wantErr: true,
		},
		{
			name:    "malformed url",
			body:    `{"url":"not a url"}`,
			wantErr: true,
		},
		{
			name:    "negative alert price",
			body:    `{"url":"http://shop.test/item","alert_price":-1}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			body:    `{"url":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")

			var payload trackTestRequest
			err := DecodeAndValidate(req, &payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeAndValidate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProperty_NonNegativePricesValidate(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("price sign decides validity", prop.ForAll(
		func(price float64) bool {
			body, _ := json.Marshal(map[string]interface{}{
				"url":   "http://shop.test/item",
				"price": price,
			})
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			var payload trackTestRequest
			err := DecodeAndValidate(req, &payload)

			if price >= 0 {
				return err == nil
			}
			return err != nil
		},
		gen.Float64Range(-10000, 10000),
	))

	properties.TestingRun(t)
}

func TestFormatValidationErrors(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte(`{"price":-1}`)))
	req.Header.Set("Content-Type", "application/json")

	var payload trackTestRequest
	err := DecodeAndValidate(req, &payload)
	if err == nil {
		t.Fatal("expected validation errors")
	}

	formatted := FormatValidationErrors(err)
	if len(formatted) != 2 {
		t.Fatalf("got %d validation errors, want 2 (url, price)", len(formatted))
	}

	fields := map[string]string{}
	for _, fe := range formatted {
		fields[fe.Field] = fe.Message
	}
	if fields["URL"] != "This field is required" {
		t.Errorf("unexpected url message: %q", fields["URL"])
	}
	if fields["Price"] != "Value must be greater than or equal to 0" {
		t.Errorf("unexpected price message: %q", fields["Price"])
	}
}
