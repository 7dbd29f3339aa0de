// Package classify decides, per candidate, whether it is added or rejected
// and why.
package classify

import (
	"strings"

	"github.com/Ning0612/Dropzone/internal/core/accept"
	"github.com/Ning0612/Dropzone/internal/core/sanitize"
	"github.com/Ning0612/Dropzone/internal/domain"
)

// Outcome is the decision for a single candidate
type Outcome struct {
	Added  bool
	Reason domain.RejectReason // empty when Added
}

// Added is the outcome of an accepted candidate
var Added = Outcome{Added: true}

// Rejected builds a rejected outcome
func Rejected(reason domain.RejectReason) Outcome {
	return Outcome{Reason: reason}
}

// Classify decides one candidate. Checks run in a fixed order and the first
// failing one wins: type, size, multiplicity. maxSize <= 0 disables the size
// check; the ceiling itself is accepted.
func Classify(c domain.FileCandidate, spec accept.Spec, maxSize int64, allowMultiple bool, priorAdded int) Outcome {
	if !matchesType(c, spec) {
		return Rejected(domain.RejectType)
	}

	if maxSize > 0 && c.Size > maxSize {
		return Rejected(domain.RejectSize)
	}

	if !allowMultiple && priorAdded >= 1 {
		return Rejected(domain.RejectNoMultiple)
	}

	return Added
}

func matchesType(c domain.FileCandidate, spec accept.Spec) bool {
	if spec.IsUniversal() {
		return true
	}
	name := strings.ToLower(sanitize.Filename(c.Name))
	mimeType := strings.ToLower(c.MimeType)
	return spec.Matches(name, mimeType)
}

// Classifier partitions candidate sequences
type Classifier interface {
	ClassifyAll(candidates []domain.FileCandidate) domain.SelectResult
}

// DefaultClassifier applies a Policy with a pre-parsed accept spec
type DefaultClassifier struct {
	Spec          accept.Spec
	MaxFileSize   int64
	AllowMultiple bool
}

// NewDefaultClassifier parses the policy's accept string once
func NewDefaultClassifier(policy domain.Policy) *DefaultClassifier {
	return &DefaultClassifier{
		Spec:          accept.Parse(policy.Accept),
		MaxFileSize:   policy.MaxFileSize,
		AllowMultiple: policy.Multiple,
	}
}

// ClassifyAll classifies candidates in order, threading the running added
// count into the multiplicity check
func (c *DefaultClassifier) ClassifyAll(candidates []domain.FileCandidate) domain.SelectResult {
	return ClassifyAll(candidates, c.Spec, c.MaxFileSize, c.AllowMultiple)
}

// ClassifyAll is the batch form of Classify. Every candidate lands in exactly
// one list, and both lists keep the input order.
func ClassifyAll(candidates []domain.FileCandidate, spec accept.Spec, maxSize int64, allowMultiple bool) domain.SelectResult {
	result := domain.SelectResult{
		AddedFiles:    make([]domain.FileCandidate, 0, len(candidates)),
		RejectedFiles: make([]domain.RejectedFile, 0),
	}

	for _, candidate := range candidates {
		outcome := Classify(candidate, spec, maxSize, allowMultiple, len(result.AddedFiles))
		if outcome.Added {
			result.AddedFiles = append(result.AddedFiles, candidate)
			continue
		}
		result.RejectedFiles = append(result.RejectedFiles, domain.RejectedFile{
			File:   candidate,
			Reason: outcome.Reason,
		})
	}

	return result
}
