package notification

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform,omitempty"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}
