// Package document кодирует коллекцию заказов в JSON-документ формата orders.json.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/psalsa30/unithrift/internal/domain"
)

const indent = "  "

// Encode сериализует коллекцию с отступом в два пробела; пустая коллекция даёт "[]".
func Encode(orders []domain.Order) ([]byte, error) {
	if orders == nil {
		orders = []domain.Order{}
	}
	data, err := json.MarshalIndent(orders, "", indent)
	if err != nil {
		return nil, fmt.Errorf("encode orders document: %w", err)
	}
	return data, nil
}

// Decode разбирает документ. Пустой ввод даёт пустую коллекцию без ошибки.
func Decode(data []byte) ([]domain.Order, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Order{}, nil
	}

	var orders []domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("decode orders document: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}
