package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

// OrdersKey names the record that holds the order collection in every backend.
const OrdersKey = "dinepilot_orders"

var ErrCorruptRecord = errors.New("corrupt order record")

type itemRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

type orderRecord struct {
	ID            string       `json:"id"`
	Items         []itemRecord `json:"items"`
	TotalAmount   int64        `json:"totalAmount"`
	Status        string       `json:"status"`
	CustomerName  string       `json:"customerName"`
	StaffAssigned string       `json:"staffAssigned,omitempty"`
	CreatedAt     int64        `json:"createdAt"` // unix millis
	UpdatedAt     int64        `json:"updatedAt"`
}

func EncodeOrders(orders []domain.Order) ([]byte, error) {
	records := make([]orderRecord, 0, len(orders))
	for _, o := range orders {
		items := make([]itemRecord, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, itemRecord{
				ID:          it.ID,
				Name:        it.Name,
				Price:       it.Price,
				Category:    string(it.Category),
				Description: it.Description,
				Quantity:    it.Quantity,
			})
		}
		records = append(records, orderRecord{
			ID:            o.ID,
			Items:         items,
			TotalAmount:   o.TotalAmount,
			Status:        string(o.Status),
			CustomerName:  o.CustomerName,
			StaffAssigned: o.StaffAssigned,
			CreatedAt:     o.CreatedAt.UnixMilli(),
			UpdatedAt:     o.UpdatedAt.UnixMilli(),
		})
	}
	return json.Marshal(records)
}

func DecodeOrders(data []byte) ([]domain.Order, error) {
	var records []orderRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}

	orders := make([]domain.Order, 0, len(records))
	for _, r := range records {
		status := domain.OrderStatus(r.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: order %s has status %q", ErrCorruptRecord, r.ID, r.Status)
		}

		items := make([]domain.CartItem, 0, len(r.Items))
		for _, it := range r.Items {
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
		orders = append(orders, domain.Order{
			ID:            r.ID,
			Items:         items,
			TotalAmount:   r.TotalAmount,
			Status:        status,
			CustomerName:  r.CustomerName,
			StaffAssigned: r.StaffAssigned,
			CreatedAt:     time.UnixMilli(r.CreatedAt),
			UpdatedAt:     time.UnixMilli(r.UpdatedAt),
		})
	}
	return orders, nil
}
