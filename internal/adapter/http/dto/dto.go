package dto

// SetPinRequest is the payload for the set-pin action.
type SetPinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// VerifyPinRequest is the payload for the verify-pin action.
type VerifyPinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// ChangePinRequest is the payload for the change-pin action.
type ChangePinRequest struct {
	Pin    string `json:"pin" binding:"required"`
	NewPin string `json:"new_pin" binding:"required"`
}

// SendOTPRequest is the payload for the send-otp action. The amount is
// an optional hint echoed into the notification, never trusted.
type SendOTPRequest struct {
	WithdrawalAmount *int64 `json:"withdrawal_amount,omitempty"`
}

// VerifyOTPRequest is the payload for the verify-otp action.
type VerifyOTPRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// SetPinAfterOTPRequest is the payload for the set-pin-after-otp action.
type SetPinAfterOTPRequest struct {
	NewPin string `json:"new_pin" binding:"required"`
}

// SuccessResult is the generic {success:true} action result.
type SuccessResult struct {
	Success bool `json:"success"`
}

// VerifiedResult is the result of a successful verification action.
type VerifiedResult struct {
	Verified bool `json:"verified"`
}

// SendOTPResult reports a successful issuance; the code itself only
// travels out-of-band.
type SendOTPResult struct {
	Success          bool `json:"success"`
	ExpiresInSeconds int  `json:"expires_in_seconds"`
}

// VerifyOTPResult carries the step-up proof consumed by withdrawal
// submission.
type VerifyOTPResult struct {
	Verified        bool   `json:"verified"`
	WithdrawalToken string `json:"withdrawal_token"`
	TokenExpiresAt  string `json:"token_expires_at"`
}

// SubmitWithdrawalRequest is the request body for withdrawal submission.
type SubmitWithdrawalRequest struct {
	Amount          int64             `json:"amount" binding:"required,gt=0"`
	PayoutMethod    string            `json:"payout_method" binding:"required,max=50,payout_method"`
	PayoutDetails   map[string]string `json:"payout_details" binding:"required"`
	WithdrawalToken string            `json:"withdrawal_token" binding:"required"`
}

// AdminActionRequest is the request body for approve/reject/complete.
type AdminActionRequest struct {
	Note string `json:"note,omitempty" binding:"max=500"`
}

// WithdrawalResponse is the response body for a withdrawal request.
type WithdrawalResponse struct {
	ID            string            `json:"id"`
	AccountID     string            `json:"account_id"`
	Amount        int64             `json:"amount"`
	PayoutMethod  string            `json:"payout_method"`
	PayoutDetails map[string]string `json:"payout_details,omitempty"`
	Status        string            `json:"status"`
	Notes         *string           `json:"notes,omitempty"`
	CreatedAt     string            `json:"created_at"`
	ProcessedAt   *string           `json:"processed_at,omitempty"`
}

// BalanceResponse is the ledger breakdown for the creator dashboard.
type BalanceResponse struct {
	TotalReceived int64 `json:"total_received"`
	Fee           int64 `json:"fee"`
	OpenHold      int64 `json:"open_hold"`
	Available     int64 `json:"available"`
}

// WithdrawalListResponse wraps a paginated withdrawal list.
type WithdrawalListResponse struct {
	Items      []WithdrawalResponse `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}
