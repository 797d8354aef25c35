package dto

import "fmt"

// FetchResult accumulates the statistics of one ingestion run. Failures are
// carried here as data; nothing escapes the orchestrator as a panic.
type FetchResult struct {
	Fetched  int      `json:"fetched"`
	Created  int      `json:"created"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages"`
}

// AddMessage appends a human-readable status line to the run summary.
func (r *FetchResult) AddMessage(format string, args ...interface{}) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// AddError records one failure with its diagnostic string.
func (r *FetchResult) AddError(format string, args ...interface{}) {
	r.Errors++
	r.AddMessage(format, args...)
}

// ConnectionTestResult is the outcome of probing a mailbox configuration.
type ConnectionTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FolderListResult carries the folders visible on the remote server.
// Folders is empty on failure.
type FolderListResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Folders []string `json:"folders"`
}
