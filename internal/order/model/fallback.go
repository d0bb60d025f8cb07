package model

import "context"

type FallbackRequest struct {
	ConversationID string
	Message        string
	Menu           Menu
	Draft          *OrderDraft
	Tier           CustomerTier
}

type FallbackItem struct {
	ItemID     string  `json:"item_id"`
	Quantity   int     `json:"quantity"`
	Confidence float64 `json:"confidence"`
}

type FallbackResult struct {
	Intent Intent `json:"intent,omitempty"`
	// Action tells how Items merge into the draft. Empty means LineAdd.
	Action     LineAction     `json:"action,omitempty"`
	Items      []FallbackItem `json:"items,omitempty"`
	Confidence float64        `json:"confidence"`
	// ParsingErrors lists rejected records; they are data, not failures.
	ParsingErrors []string `json:"parsing_errors,omitempty"`
}

// FallbackClassifier is the best-effort extractor used when the deterministic pipeline
// yields nothing. Callers bound it with a timeout.
type FallbackClassifier interface {
	Classify(ctx context.Context, req FallbackRequest) (*FallbackResult, error)
}
