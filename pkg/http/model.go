package http

// Envelope wraps every JSON body except the plot payload.
type Envelope struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Code    string `json:"code" example:"ERR_REQUIRED"`
	Field   string `json:"field,omitempty" example:"symbol"`
	Message string `json:"message" example:"symbol is required"`
	Param   string `json:"param,omitempty" example:"8"`
}
