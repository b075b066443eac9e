package models

import "time"

type ResponseType string

const (
	ResponseText            ResponseType = "text"
	ResponseProduct         ResponseType = "product"
	ResponseOrder           ResponseType = "order"
	ResponseCustomerProfile ResponseType = "customer_profile"
	ResponseCategory        ResponseType = "category"
	ResponseSuggestion      ResponseType = "suggestion"
	ResponseError           ResponseType = "error"
)

// AgentResponse is the reply handed back to the API layer. It is always well
// formed, including on failure.
type AgentResponse struct {
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Type    ResponseType `json:"type"`
}

// Turn is one exchange in a conversation. Either side may be empty.
type Turn struct {
	UserMessage  string       `json:"user_message,omitempty"`
	AgentMessage string       `json:"agent_message,omitempty"`
	Type         ResponseType `json:"type,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}
