package api

// CredentialsRequest is the body of the record endpoints.
type CredentialsRequest struct {
	UserID string `json:"user_id"`
	UserPW string `json:"user_pw"`
}

// LoginRequest asks for a login against one portal. An empty Service means
// msi.
type LoginRequest struct {
	UserID  string `json:"user_id"`
	UserPW  string `json:"user_pw"`
	Service string `json:"service"`
}

// LoginData is returned on a successful login.
type LoginData struct {
	Service string `json:"service"`
	Name    string `json:"name"`
}

type StatusResponse struct {
	Name        string `json:"name"`
	Message     string `json:"message"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

type ServiceInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type ServicesResponse struct {
	Services []ServiceInfo `json:"services"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
