package model

// MemoryPrompt is an "inspiration" question shown to users who don't know
// what to write about.
type MemoryPrompt struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Prompt   string `json:"prompt"`
	IsActive bool   `json:"isActive"`
}
