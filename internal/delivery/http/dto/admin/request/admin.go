package request

type LoginRequest struct {
	Password string `json:"password"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type DeliverItemRequest struct {
	Code string `json:"code"`
}

type ImportCodesRequest struct {
	Codes []string `json:"codes"`
}
