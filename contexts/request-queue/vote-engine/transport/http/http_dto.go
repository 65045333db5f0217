package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type VoteResponse struct {
	VoteID       string `json:"vote_id"`
	UserID       string `json:"user_id"`
	SubmissionID string `json:"submission_id"`
	Month        string `json:"month"`
	CreatedAt    string `json:"created_at"`
}

type VoteListResponse struct {
	UserID string         `json:"user_id"`
	Items  []VoteResponse `json:"items"`
}

type AllowanceResponse struct {
	UserID    string `json:"user_id"`
	Month     string `json:"month"`
	Quota     int    `json:"quota"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
}

type HasVotedResponse struct {
	SubmissionID string `json:"submission_id"`
	Voted        bool   `json:"voted"`
}
