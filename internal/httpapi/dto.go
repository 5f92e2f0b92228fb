package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartLineDTO struct {
	ProductID      string `json:"product_id"`
	Title          string `json:"title"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Quantity       int32  `json:"quantity"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

type cartDTO struct {
	Owner      string        `json:"owner"`
	Lines      []cartLineDTO `json:"lines"`
	TotalMinor int64         `json:"total_minor"`
	Unsynced   bool          `json:"unsynced,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at,omitempty"`
}

func toCartDTO(cart domain.Cart) cartDTO {
	lines := make([]cartLineDTO, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, cartLineDTO{
			ProductID:      line.ProductID,
			Title:          line.Title,
			UnitPriceMinor: line.UnitPriceMinor,
			Quantity:       line.Quantity,
			LineTotalMinor: int64(line.Quantity) * line.UnitPriceMinor,
		})
	}
	return cartDTO{
		Owner:      cart.Owner.Key(),
		Lines:      lines,
		TotalMinor: cart.TotalMinor(),
		Unsynced:   cart.Unsynced,
		UpdatedAt:  cart.UpdatedAt,
	}
}

type customerDTO struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

func (d customerDTO) toDomain() domain.Customer {
	return domain.Customer{
		Name:       d.Name,
		Email:      d.Email,
		Phone:      d.Phone,
		Address:    d.Address,
		City:       d.City,
		PostalCode: d.PostalCode,
		Country:    d.Country,
	}
}

type orderDTO struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	Status      string        `json:"status"`
	AmountMinor int64         `json:"amount_minor"`
	Lines       []cartLineDTO `json:"lines"`
	Customer    customerDTO   `json:"customer"`
	CreatedAt   time.Time     `json:"created_at"`
}

func toOrderDTO(order domain.Order) orderDTO {
	lines := make([]cartLineDTO, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, cartLineDTO{
			ProductID:      line.ProductID,
			Title:          line.Title,
			UnitPriceMinor: line.UnitPriceMinor,
			Quantity:       line.Quantity,
			LineTotalMinor: int64(line.Quantity) * line.UnitPriceMinor,
		})
	}
	return orderDTO{
		ID:          order.ID,
		OwnerID:     order.OwnerID,
		Status:      string(order.Status),
		AmountMinor: order.AmountMinor,
		Lines:       lines,
		Customer: customerDTO{
			Name:       order.Customer.Name,
			Email:      order.Customer.Email,
			Phone:      order.Customer.Phone,
			Address:    order.Customer.Address,
			City:       order.Customer.City,
			PostalCode: order.Customer.PostalCode,
			Country:    order.Customer.Country,
		},
		CreatedAt: order.CreatedAt,
	}
}

type productDTO struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	AvailableStock int32  `json:"available_stock"`
}

func toProductDTO(product domain.Product) productDTO {
	return productDTO{
		ID:             product.ID,
		Title:          product.Title,
		UnitPriceMinor: product.UnitPriceMinor,
		AvailableStock: product.AvailableStock,
	}
}
