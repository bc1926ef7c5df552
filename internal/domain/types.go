// Package domain holds the small, shared value types multiple packages
// need (extractor output, board/user directory entries) without importing
// each other — the intent handlers, preview engine, and renderer all pass
// these around.
package domain

// Priority is the closed set of task priorities (spec §3).
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// TaskStatus is the closed set of task statuses (spec §3).
type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "ToDo"
	TaskStatusWorking    TaskStatus = "Working"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusDone       TaskStatus = "Done"
)

// ExtractedTask is produced by the task-extractor LLM call, carried through
// the preview engine, and consumed by the downstream product-owner prompt
// (spec §3).
type ExtractedTask struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
}

// ActionItem is one entry of a MeetingAnalysis's action-items list.
type ActionItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
}

// MeetingAnalysis is produced by the meeting-notes LLM call (spec §3).
type MeetingAnalysis struct {
	Summary          string       `json:"summary"`
	ActionItems      []ActionItem `json:"actionItems"`
	Decisions        []string     `json:"decisions"`
	SuggestedBoardID string       `json:"suggestedBoardId,omitempty"`
}

// BoardRef and UserRef are the cached-lookup shapes the create-task preview
// serializes into message metadata so the edit modal can populate its
// selectors without refetching (spec §4.8).
type BoardRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JobStatus is the runtime state snapshot getStatus() returns per job
// (spec §4.9).
type JobStatus struct {
	ID                  string
	Name                string
	CronExpression      string
	Enabled             bool
	Running             bool
	LastRunUnixMs       int64
	LastResultSuccess   bool
	LastResultPosted    bool
	LastResultError     string
	ConsecutiveFailures int
}
