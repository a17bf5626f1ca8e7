package dto

// Response is the envelope of every API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithRequestID creates an error response carrying the request id
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	resp := NewErrorResponse(code, message)
	resp.Error.RequestID = requestID
	return resp
}

// NewValidationErrorResponse creates a validation error response with field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// PeriodQuery selects the reporting period. An empty period means 7d.
type PeriodQuery struct {
	Period string `form:"period" binding:"omitempty,oneof=7d 30d this_month last_month"`
}

// OrdersQuery selects one page of the order listing
type OrdersQuery struct {
	PeriodQuery
	PageInfo string `form:"page_info" binding:"omitempty,max=512"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=250"`
}

// SaveCommerceRequest connects a storefront
type SaveCommerceRequest struct {
	ShopDomain  string `json:"shop_domain" binding:"required,shop_domain"`
	AccessToken string `json:"access_token" binding:"required,max=512"`
}

// TrafficCallbackRequest completes the analytics consent round trip
type TrafficCallbackRequest struct {
	Code  string `json:"code" binding:"required,max=2048"`
	State string `json:"state" binding:"required,max=4096"`
}

// SetPropertyRequest selects the analytics property
type SetPropertyRequest struct {
	PropertyID string `json:"property_id" binding:"required,ga_property"`
}

// AuthorizationURLResponse carries the consent URL the client redirects to
type AuthorizationURLResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}
