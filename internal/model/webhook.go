package model

// PushEvent is the subset of a GitHub push webhook payload the pipeline
// consumes: the target ref and each commit's added-file list.
type PushEvent struct {
	Ref     string   `json:"ref"`
	Commits []Commit `json:"commits"`
}

// Commit carries the file lists of one pushed commit.
type Commit struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}
