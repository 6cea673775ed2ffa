package model

type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type VerifyOtpRequest struct {
	Otp   string `json:"otp"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ResendOtpRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ResendVerificationLinkRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}
