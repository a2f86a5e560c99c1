package dto

// APIErrorResponse is the body rendered for failures the resolver
// chain claims. Unresolved failures get the fallback renderer's
// payload instead.
type APIErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
