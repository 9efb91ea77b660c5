package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

var ErrUnknownMenuItem = errors.New("unknown menu item")

type MenuItemDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type LineItemDTO struct {
	MenuItemDTO
	Quantity int `json:"quantity"`
}

type StaffDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrderDTO is shared by the HTTP and gRPC transports. Timestamps are Unix
// milliseconds, the same as the stored record.
type OrderDTO struct {
	ID            string        `json:"id"`
	Items         []LineItemDTO `json:"items"`
	TotalAmount   int64         `json:"totalAmount"`
	Status        string        `json:"status"`
	CustomerName  string        `json:"customerName"`
	StaffAssigned string        `json:"staffAssigned,omitempty"`
	CreatedAt     int64         `json:"createdAt"`
	UpdatedAt     int64         `json:"updatedAt"`
}

func toMenuItemDTO(m domain.MenuItem) MenuItemDTO {
	return MenuItemDTO{
		ID:          m.ID,
		Name:        m.Name,
		Price:       m.Price,
		Category:    string(m.Category),
		Description: m.Description,
	}
}

func toOrderDTO(o domain.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, LineItemDTO{MenuItemDTO: toMenuItemDTO(it.MenuItem), Quantity: it.Quantity})
	}
	return OrderDTO{
		ID:            o.ID,
		Items:         items,
		TotalAmount:   o.TotalAmount,
		Status:        string(o.Status),
		CustomerName:  o.CustomerName,
		StaffAssigned: o.StaffAssigned,
		CreatedAt:     o.CreatedAt.UnixMilli(),
		UpdatedAt:     o.UpdatedAt.UnixMilli(),
	}
}

func toOrderDTOs(orders []domain.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return out
}

func fromOrderDTO(d OrderDTO) domain.Order {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, domain.CartItem{
			MenuItem: domain.MenuItem{
				ID:          it.ID,
				Name:        it.Name,
				Price:       it.Price,
				Category:    domain.Category(it.Category),
				Description: it.Description,
			},
			Quantity: it.Quantity,
		})
	}
	return domain.Order{
		ID:            d.ID,
		Items:         items,
		TotalAmount:   d.TotalAmount,
		Status:        domain.OrderStatus(d.Status),
		CustomerName:  d.CustomerName,
		StaffAssigned: d.StaffAssigned,
		CreatedAt:     time.UnixMilli(d.CreatedAt),
		UpdatedAt:     time.UnixMilli(d.UpdatedAt),
	}
}

func fromOrderDTOs(ds []OrderDTO) []domain.Order {
	out := make([]domain.Order, 0, len(ds))
	for _, d := range ds {
		out = append(out, fromOrderDTO(d))
	}
	return out
}

// resolveItems maps menu ids to items and sums their prices.
func resolveItems(ids []string) ([]domain.MenuItem, int64, error) {
	items := make([]domain.MenuItem, 0, len(ids))
	var total int64
	for _, id := range ids {
		item, ok := domain.MenuItemByID(id)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownMenuItem, id)
		}
		items = append(items, item)
		total += item.Price
	}
	return items, total, nil
}
