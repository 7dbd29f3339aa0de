package domain

import "time"

// RejectReason explains why a candidate was not added
type RejectReason string

const (
	// RejectType means no accept rule matched
	RejectType RejectReason = "type"

	// RejectSize means the candidate is larger than the ceiling
	RejectSize RejectReason = "size"

	// RejectNoMultiple means a file was already added in single selection mode
	RejectNoMultiple RejectReason = "no_multiple"
)

// IsValid checks if the reason is a known value
func (r RejectReason) IsValid() bool {
	switch r {
	case RejectType, RejectSize, RejectNoMultiple:
		return true
	}
	return false
}

// RejectedFile is a candidate together with the reason it was rejected
type RejectedFile struct {
	File   FileCandidate `json:"file" yaml:"file"`
	Reason RejectReason  `json:"reason" yaml:"reason"`
}

// SelectResult is the partition of one interaction's candidates.
// len(AddedFiles)+len(RejectedFiles) equals the number of candidates seen,
// and each list keeps the order candidates were produced in.
type SelectResult struct {
	AddedFiles    []FileCandidate `json:"added_files" yaml:"added_files"`
	RejectedFiles []RejectedFile  `json:"rejected_files" yaml:"rejected_files"`
}

// Total returns the number of candidates in the partition
func (r SelectResult) Total() int {
	return len(r.AddedFiles) + len(r.RejectedFiles)
}

// ChangeEvent is emitted once per interaction
type ChangeEvent struct {
	// Source is the name of the emitting dropzone
	Source string `json:"source" yaml:"source"`

	// InteractionID identifies the drop or selection that produced the event
	InteractionID string `json:"interaction_id" yaml:"interaction_id"`

	// Kind is "drop" or "select"
	Kind InteractionKind `json:"kind" yaml:"kind"`

	// EmittedAt is the emission time
	EmittedAt time.Time `json:"emitted_at" yaml:"emitted_at"`

	SelectResult `yaml:",inline"`
}

// InteractionKind distinguishes drops from native selections
type InteractionKind string

const (
	InteractionDrop   InteractionKind = "drop"
	InteractionSelect InteractionKind = "select"
)
