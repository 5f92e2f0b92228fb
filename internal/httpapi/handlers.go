package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cartstore"
	"github.com/vladislavdragonenkov/storefront/internal/service/settlement"
)

const requestTimeout = 10 * time.Second

// Handler связывает HTTP-слой с сервисами корзины и settlement.
type Handler struct {
	carts      *cartstore.Store
	settlement *settlement.Engine
	ledger     domain.OrderLedger
	catalog    domain.ProductCatalog
	logger     *log.Entry
}

// NewHandler создаёт HTTP-обработчик поверх сервисного слоя.
func NewHandler(
	carts *cartstore.Store,
	settlementEngine *settlement.Engine,
	ledger domain.OrderLedger,
	catalog domain.ProductCatalog,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.NewEntry(log.New())
	}
	return &Handler{
		carts:      carts,
		settlement: settlementEngine,
		ledger:     ledger,
		catalog:    catalog,
		logger:     logger,
	}
}

// GetCart возвращает текущую корзину вызывающего.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "identity required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cart, err := h.carts.Get(ctx, identity.Owner)
	if err != nil {
		h.logger.WithError(err).Error("failed to get cart")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

type addLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

// AddCartLine добавляет товар в корзину или увеличивает его количество.
func (h *Handler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "identity required")
		return
	}

	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cart, err := h.carts.AddLine(ctx, identity.Owner, req.ProductID, req.Quantity)
	if err != nil {
		h.respondCartMutation(w, cart, err, "add line")
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

type changeQtyRequest struct {
	Quantity int32 `json:"quantity"`
}

// DecreaseCartLine уменьшает количество товара; позиция удаляется на нуле.
func (h *Handler) DecreaseCartLine(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "identity required")
		return
	}

	productID := chi.URLParam(r, "productID")

	req := changeQtyRequest{Quantity: 1}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cart, err := h.carts.DecreaseLine(ctx, identity.Owner, productID, req.Quantity)
	if err != nil {
		h.respondCartMutation(w, cart, err, "decrease line")
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

// RemoveCartLine удаляет позицию из корзины целиком.
func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "identity required")
		return
	}

	productID := chi.URLParam(r, "productID")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cart, err := h.carts.RemoveLine(ctx, identity.Owner, productID)
	if err != nil {
		h.respondCartMutation(w, cart, err, "remove line")
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

// MergeCart сливает гостевую корзину сессии в корзину аккаунта.
// Требует аккаунтной аутентификации и заголовка X-Session-ID.
func (h *Handler) MergeCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok || !identity.IsAccount() {
		respondError(w, http.StatusUnauthorized, "unauthorized", "account authentication required")
		return
	}
	if identity.SessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", headerSessionID+" header is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cart, err := h.carts.MergeGuestIntoAccount(ctx, identity.SessionID, identity.Owner.ID)
	if err != nil {
		h.respondCartMutation(w, cart, err, "merge cart")
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

type checkoutRequest struct {
	Customer customerDTO `json:"customer"`
}

type checkoutResponse struct {
	Order orderDTO `json:"order"`
}

// Checkout прогоняет корзину вызывающего через settlement и возвращает заказ.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "identity required")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := h.settlement.Checkout(ctx, identity.Owner, req.Customer.toDomain())
	if err != nil {
		h.logger.WithError(err).WithField("owner", identity.Owner.Key()).Warn("checkout failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, checkoutResponse{Order: toOrderDTO(order)})
}

// ListOrders возвращает заказы вызывающего, новые первыми.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "identity required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	orders, err := h.ledger.ListByOwner(ctx, identity.Owner.Key(), 50)
	if err != nil {
		h.logger.WithError(err).Error("failed to list orders")
		respondDomainError(w, err)
		return
	}

	dtos := make([]orderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, toOrderDTO(order))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"orders": dtos})
}

// GetOrder возвращает заказ по идентификатору; чужие заказы не раскрываются.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "identity required")
		return
	}

	orderID := chi.URLParam(r, "orderID")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := h.ledger.Get(ctx, orderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if order.OwnerID != identity.Owner.Key() {
		respondError(w, http.StatusNotFound, "not_found", domain.ErrOrderNotFound.Error())
		return
	}

	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// ListProducts возвращает витрину: весь каталог, отсортированный по ID.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	dtos := make([]productDTO, 0, len(products))
	for _, product := range products {
		dtos = append(dtos, toProductDTO(product))
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": dtos})
}

// GetProduct возвращает карточку товара из каталога.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProductDTO(product))
}

type upsertProductRequest struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	AvailableStock int32  `json:"available_stock"`
}

// UpsertProduct создаёт или обновляет товар каталога. Только для admin.
func (h *Handler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req upsertProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product := domain.Product{
		ID:             req.ID,
		Title:          req.Title,
		UnitPriceMinor: req.UnitPriceMinor,
		AvailableStock: req.AvailableStock,
	}
	if errs := product.Validate(); len(errs) > 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", errors.Join(errs...).Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.catalog.PutProduct(ctx, product); err != nil {
		h.logger.WithError(err).WithField("product_id", product.ID).Error("failed to upsert product")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProductDTO(product))
}

// respondCartMutation обрабатывает исход мутации корзины. Отказ персистентности
// не откатывает мутацию: корзина возвращается с флагом unsynced, чтобы клиент
// показал предупреждение, не теряя содержимого.
func (h *Handler) respondCartMutation(w http.ResponseWriter, cart domain.Cart, err error, op string) {
	if errors.Is(err, domain.ErrPersistenceFailure) && cart.Unsynced {
		h.logger.WithError(err).Warn("cart mutation kept in memory only")
		respondJSON(w, http.StatusOK, toCartDTO(cart))
		return
	}

	h.logger.WithError(err).WithField("op", op).Warn("cart mutation failed")
	respondDomainError(w, err)
}
