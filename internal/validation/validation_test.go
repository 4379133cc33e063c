package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(p float64) *float64 { return &p }

func TestCreateOrderRequest_Valid(t *testing.T) {
	v := New()

	req := CreateOrderRequest{
		TableNumber: 3,
		Items: []Item{
			{MenuItemID: 1, Name: "Pizza Margherita", Price: price(12.5), Quantity: 1, Category: "pizzeria"},
			{MenuItemID: 3, Name: "Bier 0.5L", Price: price(0), Quantity: 2, Category: "pub-trinken"},
		},
	}
	require.NoError(t, v.Struct(req))
}

func TestCreateOrderRequest_Invalid(t *testing.T) {
	v := New()
	ok := Item{MenuItemID: 1, Name: "x", Price: price(1), Quantity: 1, Category: "pub"}

	tests := []struct {
		name   string
		mutate func(r *CreateOrderRequest)
	}{
		{name: "missing table", mutate: func(r *CreateOrderRequest) { r.TableNumber = 0 }},
		{name: "no items", mutate: func(r *CreateOrderRequest) { r.Items = nil }},
		{name: "missing category", mutate: func(r *CreateOrderRequest) { r.Items[0].Category = "" }},
		{name: "unknown category", mutate: func(r *CreateOrderRequest) { r.Items[0].Category = "kitchen" }},
		{name: "missing price", mutate: func(r *CreateOrderRequest) { r.Items[0].Price = nil }},
		{name: "negative price", mutate: func(r *CreateOrderRequest) { r.Items[0].Price = price(-1) }},
		{name: "zero quantity", mutate: func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateOrderRequest{TableNumber: 1, Items: []Item{ok}}
			tt.mutate(&req)
			assert.Error(t, v.Struct(req))
		})
	}
}

func TestSectionStatusRequest(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(SectionStatusRequest{Section: "pub", Status: "ready"}))
	require.NoError(t, v.Struct(SectionStatusRequest{Section: "pizzeria", Status: "delivered"}))
	assert.Error(t, v.Struct(SectionStatusRequest{Section: "bar", Status: "ready"}))
	assert.Error(t, v.Struct(SectionStatusRequest{Section: "pub", Status: "pending"}))
}

func TestBindAndValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "valid",
			body:     `{"tableNumber":2,"items":[{"menuItemId":3,"name":"Bier","price":4.5,"quantity":1,"category":"pub"}]}`,
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown field",
			body:     `{"tableNumber":2,"vip":true,"items":[{"menuItemId":3,"name":"Bier","price":4.5,"quantity":1,"category":"pub"}]}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request_body",
		},
		{
			name:     "missing category",
			body:     `{"tableNumber":2,"items":[{"menuItemId":3,"name":"Bier","price":4.5,"quantity":1}]}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "validation_failed",
		},
		{
			name:     "malformed",
			body:     `{"tableNumber":`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request_body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req CreateOrderRequest
			err := BindAndValidate(c, &req, v)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 2, req.TableNumber)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantErr)
		})
	}
}
