package model

// Intent names both classifier outcomes and the kind of reply the engine produced.
type Intent string

const (
	IntentGreeting       Intent = "GREETING"
	IntentOffTopic       Intent = "OFF_TOPIC"
	IntentHandoff        Intent = "HANDOFF"
	IntentConfirm        Intent = "CONFIRM"
	IntentCancel         Intent = "CANCEL"
	IntentNoActiveOrder  Intent = "NO_ACTIVE_ORDER"
	IntentStatus         Intent = "STATUS"
	IntentShowMenu       Intent = "SHOW_MENU"
	IntentHours          Intent = "HOURS"
	IntentDelivery       Intent = "DELIVERY"
	IntentRemove         Intent = "REMOVE"
	IntentOrder          Intent = "ORDER"
	IntentPendingAccept  Intent = "PENDING_ACCEPT"
	IntentPendingReject  Intent = "PENDING_REJECT"
	IntentClarification  Intent = "CLARIFICATION"
	IntentPendingConfirm Intent = "PENDING_CONFIRMATION"
	IntentItemRemoved    Intent = "ITEM_REMOVED"
	IntentQuantityNeeded Intent = "QUANTITY_REQUIRED"
	IntentNoMatch        Intent = "NO_MATCH"
	IntentNoMenu         Intent = "NO_MENU"
	IntentNotConfirmable Intent = "NOT_CONFIRMABLE"
	IntentClosed         Intent = "CLOSED"
	IntentRateLimited    Intent = "RATE_LIMITED"
	IntentTechnicalError Intent = "TECHNICAL_ERROR"
	IntentEmptyMessage   Intent = "EMPTY_MESSAGE"
)

// Response is what a turn hands back to the transport; the transport does the sending.
type Response struct {
	Intent           Intent          `json:"intent"`
	Text             string          `json:"response_text"`
	Lines            []OrderLineItem `json:"lines,omitempty"`
	Total            float64         `json:"total,omitempty"`
	ConfirmedOrderID string          `json:"confirmed_order_id,omitempty"`
	Options          []string        `json:"options,omitempty"`
	PendingAction    PendingAction   `json:"pending_action,omitempty"`
	SessionRestarted bool            `json:"session_restarted,omitempty"`
}
