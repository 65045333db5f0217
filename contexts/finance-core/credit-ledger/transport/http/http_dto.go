package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"balance"`
}

type TransactionItem struct {
	TransactionID string `json:"transaction_id"`
	Amount        int    `json:"amount"`
	Type          string `json:"type"`
	Description   string `json:"description,omitempty"`
	SubmissionID  string `json:"submission_id,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type HistoryResponse struct {
	UserID string            `json:"user_id"`
	Items  []TransactionItem `json:"items"`
}

type GrantRequest struct {
	UserID string `json:"user_id"`
	Tier   int    `json:"tier"`
	Month  string `json:"month,omitempty"`
}

type GrantResponse struct {
	UserID        string `json:"user_id"`
	Month         string `json:"month"`
	Amount        int    `json:"amount"`
	Balance       int    `json:"balance"`
	TransactionID string `json:"transaction_id,omitempty"`
}
