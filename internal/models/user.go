package models

// Operator is a back-office user allowed to call the API
type Operator struct {
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Not serialized
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
