package request

type PlaceOrderRequest struct {
	UseLoyalty bool `json:"use_loyalty"`
}

type AdvanceOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=confirmed ready_for_pickup completed"`
}
