package models

import "time"

// KeywordCursor is the durable pointer into the keyword corpus for one
// worker group. Created on first run, mutated exactly once per completed
// invocation, never destroyed. A corpus version mismatch resets LastIndex.
type KeywordCursor struct {
	CorpusVersion   string    `json:"corpus_version"`
	LastIndex       int       `json:"last_index"`
	TotalKeywords   int       `json:"total_keywords"`
	CompletedCycles int       `json:"completed_cycles"`
	LastRun         time.Time `json:"last_run"`
	GroupID         int       `json:"group_id"`
	BatchSize       int       `json:"batch_size"`
}
