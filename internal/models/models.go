package models

type SummarizeRequest struct {
	URL string `json:"url" validate:"required"`
}

type SummarizeResponse struct {
	Summary    string   `json:"summary"`
	Paragraphs []string `json:"paragraphs"`
	VideoID    string   `json:"videoId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type DeleteAccountRequest struct {
	UserID string `json:"userId"`
}

type DeleteAccountResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RegisterRequest is the sign-up form. Password strength and the three
// agreement flags are checked by the service.
type RegisterRequest struct {
	Name                    string `json:"name" validate:"required"`
	Email                   string `json:"email" validate:"required,email"`
	Password                string `json:"password" validate:"required,strongpassword"`
	AgreeOfferTerms         bool   `json:"agreeOfferTerms" validate:"required"`
	AgreePrivacyPolicy      bool   `json:"agreePrivacyPolicy" validate:"required"`
	AgreePersonalDataPolicy bool   `json:"agreePersonalDataPolicy" validate:"required"`
}

type RegisterResponse struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// QuotaResponse reports the generation quota; Remaining is -1 when the
// account is exempt.
type QuotaResponse struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Exempt    bool `json:"exempt"`
}

type InternalStatsResponse struct {
	Users       int64 `json:"users"`
	Generations int64 `json:"generations"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
