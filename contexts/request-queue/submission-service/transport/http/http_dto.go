package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateRequest struct {
	CharacterName     string `json:"character_name"`
	Series            string `json:"series"`
	Description       string `json:"description,omitempty"`
	IsPublic          bool   `json:"is_public"`
	IsLargeImageSet   bool   `json:"is_large_image_set"`
	IsDoubleCharacter bool   `json:"is_double_character"`
}

type UpdateRequest struct {
	CharacterName     *string `json:"character_name,omitempty"`
	Series            *string `json:"series,omitempty"`
	Description       *string `json:"description,omitempty"`
	IsPublic          *bool   `json:"is_public,omitempty"`
	IsLargeImageSet   *bool   `json:"is_large_image_set,omitempty"`
	IsDoubleCharacter *bool   `json:"is_double_character,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type CompleteRequest struct {
	CompletionLink string `json:"completion_link,omitempty"`
	CreatorNotes   string `json:"creator_notes,omitempty"`
}

type SubmissionResponse struct {
	SubmissionID      string `json:"submission_id"`
	UserID            string `json:"user_id"`
	CharacterName     string `json:"character_name"`
	Series            string `json:"series"`
	Description       string `json:"description,omitempty"`
	IsPublic          bool   `json:"is_public"`
	IsLargeImageSet   bool   `json:"is_large_image_set"`
	IsDoubleCharacter bool   `json:"is_double_character"`
	CreditCost        int    `json:"credit_cost"`
	Status            string `json:"status"`
	QueueType         string `json:"queue_type"`
	QueuePosition     *int   `json:"queue_position,omitempty"`
	VoteCount         int    `json:"vote_count"`
	SubmittedAt       string `json:"submitted_at"`
	StartedAt         string `json:"started_at,omitempty"`
	CompletedAt       string `json:"completed_at,omitempty"`
	EstimatedAt       string `json:"estimated_at,omitempty"`
	CompletionLink    string `json:"completion_link,omitempty"`
	CreatorNotes      string `json:"creator_notes,omitempty"`
	CancelReason      string `json:"cancel_reason,omitempty"`
}

type ListResponse struct {
	UserID string               `json:"user_id"`
	Items  []SubmissionResponse `json:"items"`
}

// QueueEntry is one row of the public lane view. Private entries keep their
// slot and vote count but drop the identifying fields for outside viewers.
type QueueEntry struct {
	Position      int    `json:"position"`
	SubmissionID  string `json:"submission_id"`
	CharacterName string `json:"character_name,omitempty"`
	Series        string `json:"series,omitempty"`
	IsPublic      bool   `json:"is_public"`
	VoteCount     int    `json:"vote_count,omitempty"`
	EstimatedAt   string `json:"estimated_at,omitempty"`
}

type QueueResponse struct {
	QueueType string       `json:"queue_type"`
	Items     []QueueEntry `json:"items"`
}

type SearchResponse struct {
	Query string               `json:"query"`
	Items []SubmissionResponse `json:"items"`
}
