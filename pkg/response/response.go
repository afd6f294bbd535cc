package response

// Response represents the standard API response envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// Created returns a success response with a human-readable message alongside
// the created resource
func Created(message string, data interface{}) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(err string) Response {
	return Response{
		Success: false,
		Error:   err,
	}
}
