package identity

// NewUserInput contains the input for creating a user
type NewUserInput struct {
	Username  string `json:"username" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,max=72"`
	IsManager bool   `json:"is_manager"`
}

// LoginInput contains the input for user login
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
