package queue

import (
	"encoding/json"
	"fmt"
)

// Task kinds processed by cmd/worker.
const (
	KindOrderConfirmation = "email:order_confirmation"
	KindImageDelete       = "image:delete"
)

// OrderConfirmation is the payload of KindOrderConfirmation.
type OrderConfirmation struct {
	OrderID   string `json:"orderId"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Total     int64  `json:"total"`
	ItemCount int    `json:"itemCount"`
}

// ImageDelete is the payload of KindImageDelete.
type ImageDelete struct {
	FileName string `json:"fileName"`
}

// NewOrderConfirmationTask builds the confirmation e-mail task for an order.
func NewOrderConfirmationTask(p OrderConfirmation) (Task, error) {
	if p.OrderID == "" || p.Email == "" {
		return Task{}, fmt.Errorf("queue: order confirmation needs order id and email")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return Task{}, err
	}
	return Task{
		Kind:           KindOrderConfirmation,
		Payload:        payload,
		IdempotencyKey: p.OrderID,
		MaxAttempts:    5,
	}, nil
}

// NewImageDeleteTask builds the cleanup task for a replaced product image.
func NewImageDeleteTask(fileName string) (Task, error) {
	if fileName == "" {
		return Task{}, fmt.Errorf("queue: image file name is required")
	}
	payload, err := json.Marshal(ImageDelete{FileName: fileName})
	if err != nil {
		return Task{}, err
	}
	return Task{Kind: KindImageDelete, Payload: payload, MaxAttempts: 3}, nil
}
