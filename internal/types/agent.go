package types

import "time"

// ActivityStatus is the lifecycle state recorded on an AgentActivity
type ActivityStatus string

// Activity statuses
const (
	ActivityStarted    ActivityStatus = "started"
	ActivityProcessing ActivityStatus = "processing"
	ActivityCompleted  ActivityStatus = "completed"
	ActivityError      ActivityStatus = "error"
)

// ResultSource identifies which structuring path produced a ParsedResume
type ResultSource string

// Result sources
const (
	SourceLLM      ResultSource = "llm"
	SourceFallback ResultSource = "fallback"
	SourceCache    ResultSource = "cache"
)

// AgentConfig describes an agent and the model settings it runs with
type AgentConfig struct {
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int32   `json:"maxTokens"`
}

// AgentResponse is the uniform envelope returned by every agent invocation.
// Data is set iff Success; Error is set iff !Success.
type AgentResponse struct {
	AgentID        string        `json:"agentId"`
	Success        bool          `json:"success"`
	Data           *ParsedResume `json:"data,omitempty"`
	Error          string        `json:"error,omitempty"`
	ProcessingTime int64         `json:"processingTime"`
	Confidence     *float64      `json:"confidence,omitempty"`
	Source         ResultSource  `json:"source,omitempty"`
}

// AgentActivity is an append-only log entry written by an agent
type AgentActivity struct {
	ID        string         `json:"id"`
	AgentName string         `json:"agentName"`
	Action    string         `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
	Status    ActivityStatus `json:"status"`
	Details   string         `json:"details,omitempty"`
}
