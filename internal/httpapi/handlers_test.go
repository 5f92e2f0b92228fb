package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/cartstore"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/service/settlement"
	"github.com/vladislavdragonenkov/storefront/internal/service/stockguard"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	router  http.Handler
	catalog domain.ProductCatalog
	ledger  domain.OrderLedger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog := memory.NewCatalog()
	ledger := memory.NewOrderLedger()

	carts := cartstore.New(
		memory.NewCartRepository(),
		memory.NewCartRepository(),
		catalog,
		stockguard.New(catalog, nil),
		memory.NewMergeLedger(),
		nil,
	)
	engine := settlement.NewWithoutMetrics(
		carts,
		catalog,
		ledger,
		payment.NewMockGateway(),
		memory.NewOutboxRepository(),
		nil,
	)
	handler := httpapi.NewHandler(carts, engine, ledger, catalog, nil)

	return &testEnv{
		router:  httpapi.NewRouter(handler, testSecret),
		catalog: catalog,
		ledger:  ledger,
	}
}

func (e *testEnv) seedProduct(t *testing.T, id string, priceMinor int64, stock int32) {
	t.Helper()
	err := e.catalog.PutProduct(context.Background(), domain.Product{
		ID:             id,
		Title:          "Product " + id,
		UnitPriceMinor: priceMinor,
		AvailableStock: stock,
	})
	require.NoError(t, err, "seed product %s", id)
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reqBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func guestHeaders(sessionID string) map[string]string {
	return map[string]string{"X-Session-ID": sessionID}
}

func accountHeaders(t *testing.T, accountID, role string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + signToken(t, accountID, role)}
}

func signToken(t *testing.T, accountID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  accountID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst), "body: %s", rec.Body.String())
}

func testCustomerBody() map[string]interface{} {
	return map[string]interface{}{
		"customer": map[string]interface{}{
			"name":    "Ivan Petrov",
			"email":   "ivan@example.com",
			"address": "Lenina 1",
			"city":    "Moscow",
		},
	}
}

type cartResponse struct {
	Owner string `json:"owner"`
	Lines []struct {
		ProductID      string `json:"product_id"`
		Quantity       int32  `json:"quantity"`
		LineTotalMinor int64  `json:"line_total_minor"`
	} `json:"lines"`
	TotalMinor int64 `json:"total_minor"`
}

func TestCartRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cart", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuestCartAddAndGet(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p1", 1500, 10)
	headers := guestHeaders("sess-1")

	rec := env.do(t, http.MethodPost, "/api/cart/lines",
		map[string]interface{}{"product_id": "p1", "quantity": 2}, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cart cartResponse
	decodeBody(t, rec, &cart)

	require.Equal(t, "guest:sess-1", cart.Owner)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, int32(2), cart.Lines[0].Quantity)
	require.Equal(t, int64(3000), cart.Lines[0].LineTotalMinor)
	require.Equal(t, int64(3000), cart.TotalMinor)

	rec = env.do(t, http.MethodGet, "/api/cart", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAddLineBeyondStockConflict(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p1", 1000, 3)

	rec := env.do(t, http.MethodPost, "/api/cart/lines",
		map[string]interface{}{"product_id": "p1", "quantity": 5}, guestHeaders("sess-1"))
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var errResp httpapi.ErrorResponse
	decodeBody(t, rec, &errResp)
	require.Equal(t, "stock_exceeded", errResp.Code)
}

func TestAddLineUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/lines",
		map[string]interface{}{"product_id": "nope"}, guestHeaders("sess-1"))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecreaseAndRemoveLine(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p1", 1000, 10)
	env.seedProduct(t, "p2", 500, 10)
	headers := guestHeaders("sess-1")

	env.do(t, http.MethodPost, "/api/cart/lines", map[string]interface{}{"product_id": "p1", "quantity": 3}, headers)
	env.do(t, http.MethodPost, "/api/cart/lines", map[string]interface{}{"product_id": "p2", "quantity": 1}, headers)

	rec := env.do(t, http.MethodPost, "/api/cart/lines/p1/decrease",
		map[string]interface{}{"quantity": 2}, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/cart/lines/p2", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	var cart cartResponse
	decodeBody(t, rec, &cart)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, "p1", cart.Lines[0].ProductID)
	require.Equal(t, int32(1), cart.Lines[0].Quantity)
}

func TestCheckoutCreatesOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p1", 2000, 5)
	headers := guestHeaders("sess-1")

	env.do(t, http.MethodPost, "/api/cart/lines", map[string]interface{}{"product_id": "p1", "quantity": 2}, headers)

	rec := env.do(t, http.MethodPost, "/api/checkout", testCustomerBody(), headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Order struct {
			ID          string `json:"id"`
			Status      string `json:"status"`
			AmountMinor int64  `json:"amount_minor"`
		} `json:"order"`
	}
	decodeBody(t, rec, &resp)

	require.Equal(t, string(domain.OrderStatusCompleted), resp.Order.Status)
	require.Equal(t, int64(4000), resp.Order.AmountMinor)

	product, err := env.catalog.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, int32(3), product.AvailableStock)

	// Корзина очищена после успешного settlement.
	rec = env.do(t, http.MethodGet, "/api/cart", nil, headers)
	var cart cartResponse
	decodeBody(t, rec, &cart)
	require.Empty(t, cart.Lines)

	// Заказ доступен владельцу.
	rec = env.do(t, http.MethodGet, "/api/orders/"+resp.Order.ID, nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/checkout", testCustomerBody(), guestHeaders("sess-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestCheckoutRejectedWithDiagnostics(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p1", 1000, 5)
	headers := guestHeaders("sess-1")

	env.do(t, http.MethodPost, "/api/cart/lines", map[string]interface{}{"product_id": "p1", "quantity": 4}, headers)

	// Сток уходит под чужим заказом между добавлением в корзину и checkout.
	env.seedProduct(t, "p1", 1000, 1)

	rec := env.do(t, http.MethodPost, "/api/checkout", testCustomerBody(), headers)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var errResp struct {
		Code    string `json:"code"`
		Details []struct {
			ProductID string `json:"product_id"`
			Requested int32  `json:"requested"`
			Available int32  `json:"available"`
		} `json:"details"`
	}
	decodeBody(t, rec, &errResp)
	require.Equal(t, "checkout_rejected", errResp.Code)
	require.Len(t, errResp.Details, 1)
	require.Equal(t, int32(4), errResp.Details[0].Requested)
	require.Equal(t, int32(1), errResp.Details[0].Available)
}

func TestMergeGuestCartIntoAccount(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p1", 1000, 10)

	env.do(t, http.MethodPost, "/api/cart/lines",
		map[string]interface{}{"product_id": "p1", "quantity": 2}, guestHeaders("sess-1"))

	headers := accountHeaders(t, "acc-1", "")
	headers["X-Session-ID"] = "sess-1"

	rec := env.do(t, http.MethodPost, "/api/cart/merge", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cart cartResponse
	decodeBody(t, rec, &cart)
	require.Equal(t, "account:acc-1", cart.Owner)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, int32(2), cart.Lines[0].Quantity)
}

func TestMergeRequiresAccountToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/merge", nil, guestHeaders("sess-1"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMergeRequiresSessionHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/merge", nil, accountHeaders(t, "acc-1", ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderHiddenFromOtherOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p1", 1000, 5)
	headers := guestHeaders("sess-1")

	env.do(t, http.MethodPost, "/api/cart/lines", map[string]interface{}{"product_id": "p1", "quantity": 1}, headers)
	rec := env.do(t, http.MethodPost, "/api/checkout", testCustomerBody(), headers)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	decodeBody(t, rec, &resp)

	rec = env.do(t, http.MethodGet, "/api/orders/"+resp.Order.ID, nil, guestHeaders("sess-other"))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p1", 1000, 20)
	headers := guestHeaders("sess-1")

	for i := 0; i < 2; i++ {
		env.do(t, http.MethodPost, "/api/cart/lines", map[string]interface{}{"product_id": "p1", "quantity": 1}, headers)
		rec := env.do(t, http.MethodPost, "/api/checkout", testCustomerBody(), headers)
		require.Equal(t, http.StatusCreated, rec.Code, "checkout %d", i)
	}

	rec := env.do(t, http.MethodGet, "/api/orders", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Orders []json.RawMessage `json:"orders"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Orders, 2)
}

func TestGetProductIsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p1", 990, 7)

	rec := env.do(t, http.MethodGet, "/api/products/p1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var product struct {
		ID             string `json:"id"`
		AvailableStock int32  `json:"available_stock"`
	}
	decodeBody(t, rec, &product)
	require.Equal(t, "p1", product.ID)
	require.Equal(t, int32(7), product.AvailableStock)
}

func TestListProductsIsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "p2", 500, 3)
	env.seedProduct(t, "p1", 990, 7)

	rec := env.do(t, http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Products []struct {
			ID             string `json:"id"`
			AvailableStock int32  `json:"available_stock"`
		} `json:"products"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Products, 2)
	require.Equal(t, "p1", resp.Products[0].ID)
	require.Equal(t, "p2", resp.Products[1].ID)
	require.Equal(t, int32(3), resp.Products[1].AvailableStock)
}

func TestAdminUpsertProduct(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]interface{}{
		"id":               "p-new",
		"title":            "New Product",
		"unit_price_minor": 2500,
		"available_stock":  12,
	}

	rec := env.do(t, http.MethodPut, "/api/admin/products", body, accountHeaders(t, "acc-1", "customer"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/admin/products", body, accountHeaders(t, "admin-1", "admin"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	product, err := env.catalog.GetProduct(context.Background(), "p-new")
	require.NoError(t, err)
	require.Equal(t, int32(12), product.AvailableStock)
	require.Equal(t, int64(2500), product.UnitPriceMinor)
}

func TestInvalidBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, header := range []string{"Bearer not-a-token", "Basic abc", "Bearer"} {
		rec := env.do(t, http.MethodGet, "/api/cart", nil, map[string]string{"Authorization": header})
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}
