package order

// PlaceOrderItem is one requested line.
// swagger:model PlaceOrderItem
type PlaceOrderItem struct {
	ProductID  string `json:"product_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	VariantKey string `json:"variant_key,omitempty" example:"500g"`
	Quantity   int    `json:"quantity" example:"2"`
}

// PlaceOrderRequest is the checkout payload.
// swagger:model PlaceOrderRequest
type PlaceOrderRequest struct {
	Items           []PlaceOrderItem `json:"items"`
	PaymentMethod   string           `json:"payment_method" example:"Cash on Delivery"`
	DeliveryAddress Address          `json:"delivery_address"`
}

// ConfirmOrderRequest carries the admin's delivery estimate.
// swagger:model ConfirmOrderRequest
type ConfirmOrderRequest struct {
	EstimatedDeliveryDate string `json:"estimatedDeliveryDate" example:"2026-09-05"`
}

// UpdateStatusRequest is the admin status change payload.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status string `json:"status" example:"Shipped"`
}

// FeedbackRequest records whether delivery feedback arrived.
// swagger:model FeedbackRequest
type FeedbackRequest struct {
	Status string `json:"status" example:"Received"`
}

// NotifyMessageRequest is an ad-hoc admin message to the buyer.
// swagger:model NotifyMessageRequest
type NotifyMessageRequest struct {
	Message string `json:"message" example:"Your order will arrive a day early."`
}
