package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test_jwt_secret"

// setupApp builds the full application over a private in-memory SQLite
// database seeded with the demo admin and catalog.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	deps := app.Deps{
		Store:     repositories.NewGORMStore(db, database.DefaultTxOptions()),
		JWTSecret: testJWTSecret,
		TokenTTL:  time.Hour,
		EventMode: "none",
		Quiet:     true,
	}
	svc := app.NewServices(deps)
	require.NoError(t, app.SeedDemo(context.Background(), svc))
	return app.New(deps, svc)
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func doJSON(t *testing.T, a *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func login(t *testing.T, a *fiber.App, email, password string) string {
	t.Helper()
	status, body := doJSON(t, a, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func registerCustomer(t *testing.T, a *fiber.App, email string) string {
	t.Helper()
	status, body := doJSON(t, a, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Test Customer", "email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	return login(t, a, email, "password123")
}

func productIDByName(t *testing.T, a *fiber.App, name string) string {
	t.Helper()
	status, body := doJSON(t, a, http.MethodGet, "/api/v1/products?search="+name, "", nil)
	require.Equal(t, http.StatusOK, status)
	items, _ := body["data"].([]any)
	require.NotEmpty(t, items)
	return items[0].(map[string]any)["id"].(string)
}

func address() map[string]string {
	return map[string]string{"fullName": "Ada Buyer", "line1": "1 Main St", "city": "Springfield", "country": "US"}
}

func decimalField(t *testing.T, m map[string]any, key string) decimal.Decimal {
	t.Helper()
	raw, ok := m[key].(string)
	require.True(t, ok, "%s is not a string: %v", key, m[key])
	return decimal.RequireFromString(raw)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	a := setupApp(t)

	body := map[string]string{"name": "Test", "email": "test@example.com", "password": "password123"}
	status, resp := doJSON(t, a, http.MethodPost, "/api/v1/auth/register", "", body)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "User registered successfully", resp["message"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, "CUSTOMER", data["role"])
	assert.NotContains(t, data, "password")

	// Duplicate email
	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE", resp["error"])
	assert.Contains(t, resp["errorMessage"], "already registered")

	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", resp["errorMessage"])

	assert.NotEmpty(t, login(t, a, "TEST@example.com", "password123"))

	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "test@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", resp["errorMessage"])
}

func TestProductEndpoints(t *testing.T) {
	a := setupApp(t)
	adminToken := login(t, a, app.DemoAdminEmail, app.DemoAdminPassword)
	customerToken := registerCustomer(t, a, "shopper@example.com")

	status, resp := doJSON(t, a, http.MethodGet, "/api/v1/products?limit=2", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["data"], 2)
	pagination := resp["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pagination["totalItems"])
	assert.Equal(t, true, pagination["hasNextPage"])

	status, _ = doJSON(t, a, http.MethodGet, "/api/v1/products?limit=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	newProduct := map[string]any{
		"name":          "Smartphone",
		"productType":   "SIMPLE",
		"status":        "ACTIVE",
		"productSimple": map[string]any{"regularPrice": "799.99", "stock": 50},
	}
	status, _ = doJSON(t, a, http.MethodPost, "/api/v1/products", "", newProduct)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/products", customerToken, newProduct)
	assert.Equal(t, http.StatusForbidden, status)

	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/products", adminToken, newProduct)
	require.Equal(t, http.StatusCreated, status, resp)
	created := resp["data"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "smartphone", created["slug"])

	status, resp = doJSON(t, a, http.MethodPatch, "/api/v1/products/"+id, adminToken, map[string]any{"name": "Smartphone Pro"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Smartphone Pro", resp["data"].(map[string]any)["name"])

	status, resp = doJSON(t, a, http.MethodDelete, "/api/v1/products/"+id, adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, resp["message"], "deleted successfully")

	status, resp = doJSON(t, a, http.MethodGet, "/api/v1/products/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Product not found", resp["errorMessage"])
}

func TestDraftProductsAreHiddenFromShoppers(t *testing.T) {
	a := setupApp(t)
	adminToken := login(t, a, app.DemoAdminEmail, app.DemoAdminPassword)
	customerToken := registerCustomer(t, a, "browser@example.com")

	status, resp := doJSON(t, a, http.MethodPost, "/api/v1/products", adminToken, map[string]any{
		"name":          "Prototype",
		"productType":   "SIMPLE",
		"status":        "DRAFT",
		"productSimple": map[string]any{"regularPrice": "10", "stock": 1},
	})
	require.Equal(t, http.StatusCreated, status, resp)
	id := resp["data"].(map[string]any)["id"].(string)

	totalItems := func(path, token string) any {
		status, resp := doJSON(t, a, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, status, resp)
		return resp["pagination"].(map[string]any)["totalItems"]
	}
	assert.EqualValues(t, 3, totalItems("/api/v1/products", ""))
	assert.EqualValues(t, 3, totalItems("/api/v1/products?status=DRAFT", ""))
	assert.EqualValues(t, 3, totalItems("/api/v1/products?status=ALL", customerToken))
	assert.EqualValues(t, 3, totalItems("/api/v1/products", adminToken))
	assert.EqualValues(t, 1, totalItems("/api/v1/products?status=DRAFT", adminToken))
	assert.EqualValues(t, 4, totalItems("/api/v1/products?status=ALL", adminToken))

	status, _ = doJSON(t, a, http.MethodGet, "/api/v1/products/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = doJSON(t, a, http.MethodGet, "/api/v1/products/"+id, customerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = doJSON(t, a, http.MethodGet, "/api/v1/products/"+id, "not-a-bearer-token", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, resp = doJSON(t, a, http.MethodGet, "/api/v1/products/"+id, adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DRAFT", resp["data"].(map[string]any)["status"])
}

func TestCartAndOrderFlow(t *testing.T) {
	a := setupApp(t)
	adminToken := login(t, a, app.DemoAdminEmail, app.DemoAdminPassword)
	token := registerCustomer(t, a, "buyer@example.com")
	laptop := productIDByName(t, a, "Laptop")

	status, _ := doJSON(t, a, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, resp := doJSON(t, a, http.MethodPost, "/api/v1/cart", token, map[string]any{"productId": laptop, "quantity": 11})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp["error"])
	assert.Equal(t, "Only 10 items available in stock", resp["errorMessage"])

	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/cart", token, map[string]any{"productId": laptop, "quantity": 2})
	require.Equal(t, http.StatusCreated, status, resp)
	cart := resp["data"].(map[string]any)
	assert.True(t, decimalField(t, cart, "subtotal").Equal(decimal.NewFromInt(2400)))

	status, resp = doJSON(t, a, http.MethodGet, "/api/v1/cart/count", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, resp["data"].(map[string]any)["count"])

	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/cart/sync", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cart is up to date", resp["message"])

	status, _ = doJSON(t, a, http.MethodPost, "/api/v1/orders", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/orders", token, map[string]any{"shippingAddress": address()})
	require.Equal(t, http.StatusCreated, status, resp)
	order := resp["data"].(map[string]any)
	orderID := order["id"].(string)
	assert.True(t, decimalField(t, order, "totalAmount").Equal(decimal.NewFromInt(2400)))
	assert.Equal(t, "PENDING", order["orderStatus"])

	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/orders", token, map[string]any{"shippingAddress": address()})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMPTY_CART", resp["error"])
	assert.Equal(t, "Your cart is empty", resp["errorMessage"])

	status, resp = doJSON(t, a, http.MethodGet, "/api/v1/orders/my-orders", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["data"], 1)

	status, _ = doJSON(t, a, http.MethodGet, "/api/v1/orders", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, resp = doJSON(t, a, http.MethodGet, "/api/v1/orders?status=PENDING&sort=totalAmount&order=asc", adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["data"], 1)

	status, resp = doJSON(t, a, http.MethodGet, "/api/v1/orders/stats?period=week", adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, resp["data"].(map[string]any)["totalOrders"])

	other := registerCustomer(t, a, "other@example.com")
	status, _ = doJSON(t, a, http.MethodGet, "/api/v1/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, resp = doJSON(t, a, http.MethodPatch, "/api/v1/orders/"+orderID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, "CANCELLED", resp["data"].(map[string]any)["orderStatus"])
	assert.Equal(t, "CANCELLED", resp["data"].(map[string]any)["paymentStatus"])

	status, resp = doJSON(t, a, http.MethodPatch, "/api/v1/orders/"+orderID+"/cancel", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ORDER_NOT_CANCELLABLE", resp["error"])
}

func TestCartAddItemDefaultsToOneUnit(t *testing.T) {
	a := setupApp(t)
	token := registerCustomer(t, a, "single@example.com")
	laptop := productIDByName(t, a, "Laptop")

	status, resp := doJSON(t, a, http.MethodPost, "/api/v1/cart", token, map[string]any{"productId": laptop})
	require.Equal(t, http.StatusCreated, status, resp)
	items := resp["data"].(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, 1, items[0].(map[string]any)["quantity"])

	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/cart", token, map[string]any{"productId": laptop, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", resp["errorMessage"])
}

func TestOrderRejectsUnavailableItems(t *testing.T) {
	a := setupApp(t)
	adminToken := login(t, a, app.DemoAdminEmail, app.DemoAdminPassword)
	token := registerCustomer(t, a, "late@example.com")
	giftCard := productIDByName(t, a, "Gift")

	status, _ := doJSON(t, a, http.MethodPost, "/api/v1/cart", token, map[string]any{"productId": giftCard, "quantity": 1})
	require.Equal(t, http.StatusCreated, status)
	status, _ = doJSON(t, a, http.MethodDelete, "/api/v1/products/"+giftCard, adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, resp := doJSON(t, a, http.MethodPost, "/api/v1/orders", token, map[string]any{"shippingAddress": address()})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "UNAVAILABLE_ITEMS", resp["error"])
	items := resp["unavailableItems"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Product is no longer available", items[0].(map[string]any)["reason"])

	status, resp = doJSON(t, a, http.MethodPost, "/api/v1/cart/sync", token, nil)
	assert.Equal(t, http.StatusOK, status)
	changes := resp["data"].(map[string]any)["changes"].(map[string]any)
	assert.Len(t, changes["removed"], 1)
}

func TestAdminOrderUpdates(t *testing.T) {
	a := setupApp(t)
	adminToken := login(t, a, app.DemoAdminEmail, app.DemoAdminPassword)
	token := registerCustomer(t, a, "ship@example.com")
	laptop := productIDByName(t, a, "Laptop")

	_, _ = doJSON(t, a, http.MethodPost, "/api/v1/cart", token, map[string]any{"productId": laptop, "quantity": 1})
	_, resp := doJSON(t, a, http.MethodPost, "/api/v1/orders", token, map[string]any{"shippingAddress": address(), "paymentMethod": "CARD"})
	orderID := resp["data"].(map[string]any)["id"].(string)
	base := "/api/v1/orders/" + orderID

	status, _ := doJSON(t, a, http.MethodPatch, base+"/status", token, map[string]string{"orderStatus": "SHIPPED"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, a, http.MethodPatch, base+"/status", adminToken, map[string]string{"orderStatus": "LOST"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = doJSON(t, a, http.MethodPatch, base+"/status", adminToken, map[string]string{"orderStatus": "SHIPPED"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "SHIPPED", resp["data"].(map[string]any)["orderStatus"])

	status, _ = doJSON(t, a, http.MethodPatch, base+"/payment", adminToken, map[string]string{"paymentStatus": "COMPLETED"})
	assert.Equal(t, http.StatusOK, status)

	status, resp = doJSON(t, a, http.MethodPatch, base+"/tracking", adminToken, map[string]string{"trackingNumber": "TRK-42"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "TRK-42", resp["data"].(map[string]any)["trackingNumber"])

	// Shipped orders are no longer the customer's to cancel.
	status, _ = doJSON(t, a, http.MethodPatch, base+"/cancel", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, resp = doJSON(t, a, http.MethodPatch, base+"/cancel", adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "REFUNDED", resp["data"].(map[string]any)["paymentStatus"])

	status, _ = doJSON(t, a, http.MethodDelete, base, adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, a, http.MethodGet, base, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, a, http.MethodGet, "/api/v1/orders?startDate=yesterday", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealth(t *testing.T) {
	a := setupApp(t)
	status, resp := doJSON(t, a, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", resp["status"])

	status, resp = doJSON(t, a, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, resp["errorMessage"])
}
