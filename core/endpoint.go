package core

// Access is the session requirement an endpoint declares.
type Access int

const (
	AccessPublic Access = iota
	AccessSession
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessSession:
		return "session"
	case AccessAdmin:
		return "admin"
	}
	return "unknown"
}

// Endpoint is a framework-agnostic route description. Adapters bind a
// handler to it by OperationID.
type Endpoint struct {
	Path     string
	Method   string
	Access   Access
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Error string `json:"error"`
}
