package authsdk

// ============================================================================
// Requests
// ============================================================================

// RegisterRequest creates a local account. Role is DEVELOPER or TESTER.
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=100,personname"`
	LastName  string `json:"lastName"  validate:"required,min=2,max=100,personname"`
	Email     string `json:"email"     validate:"required,email,max=254"`
	Password  string `json:"password"  validate:"required,password"`
	Role      string `json:"role"      validate:"required,oneof=DEVELOPER TESTER"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	OTP   string `json:"otp"   validate:"required,otp"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
}

// RefreshRequest is the body of both /auth/refresh-token and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ============================================================================
// Responses
// ============================================================================

// MessageResponse is the body of endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every error. Fields is set for validation
// failures and maps JSON field names to a message.
type ErrorResponse struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// UserProfile is the public view of an account.
type UserProfile struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Role           string `json:"role"`
	Verified       bool   `json:"verified"`
	AuthProvider   string `json:"authProvider"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type LoginResponse struct {
	Message      string      `json:"message"`
	User         UserProfile `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type RefreshResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

type MeResponse struct {
	User UserProfile `json:"user"`
}

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}
