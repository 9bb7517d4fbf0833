package handlers

import (
	"strings"

	"visittrack/internal/models"
)

// visitKeyFieldsComplete reports whether the fields that drive automatic
// status management are all populated: presented product, details text, and
// at least one photo.
func visitKeyFieldsComplete(productPresented, details string, photoCount int) bool {
	return strings.TrimSpace(productPresented) != "" &&
		strings.TrimSpace(details) != "" &&
		photoCount > 0
}

// deriveCreateStatus resolves the stored status for a new visit. Incomplete
// key fields force pending no matter what the caller sent; complete fields
// keep the caller's status, defaulting to completed.
func deriveCreateStatus(requested string, complete bool) string {
	if !complete {
		return models.VisitStatusPending
	}
	if requested == "" {
		return models.VisitStatusCompleted
	}
	return requested
}

// deriveUpdateStatus resolves the stored status after an update, evaluated
// over the merged document. statusProvided distinguishes an omitted status
// key from one explicitly set to its current value; the transport layer must
// preserve that difference.
func deriveUpdateStatus(storedStatus, requested string, statusProvided, complete bool) string {
	if !complete {
		return models.VisitStatusPending
	}
	if !statusProvided || storedStatus == models.VisitStatusPending {
		return models.VisitStatusCompleted
	}
	return requested
}
