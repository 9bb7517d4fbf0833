package handlers

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visittrack/internal/models"
)

// isPrivilegedRole reports whether the role bypasses ownership checks.
func isPrivilegedRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// canAccessVisit is the single-record authorization predicate: privileged
// roles see everything, everyone else only their own records. Callers must
// resolve existence first so unknown ids stay 404 for every role.
func canAccessVisit(requester models.User, createdBy primitive.ObjectID) bool {
	if isPrivilegedRole(requester.Role) {
		return true
	}
	return createdBy == requester.ID
}

// visitListQuery carries the raw query-string filters for list and export.
type visitListQuery struct {
	StartDate    string
	EndDate      string
	Status       string
	CustomerID   string
	CustomerName string
}

// buildVisitFilter assembles the Mongo filter for listing visits, narrowing
// to the requester's own records for non-privileged roles. customerIDs is the
// pre-resolved id set for a customerName search; it is applied whenever the
// name filter was requested, even when it matched nothing.
func buildVisitFilter(requester models.User, q visitListQuery, customerIDs []primitive.ObjectID) bson.M {
	filter := bson.M{}

	if !isPrivilegedRole(requester.Role) {
		filter["createdBy"] = requester.ID
	}

	visitAt := bson.M{}
	if start, ok := parseDateParam(q.StartDate); ok {
		visitAt["$gte"] = start
	}
	if end, ok := parseDateParam(q.EndDate); ok {
		// Inclusive on both ends: stretch endDate to the last instant of
		// that day.
		visitAt["$lte"] = endOfDay(end)
	}
	if len(visitAt) > 0 {
		filter["visitAt"] = visitAt
	}

	if q.Status != "" {
		filter["status"] = q.Status
	}

	if q.CustomerName != "" {
		if customerIDs == nil {
			customerIDs = []primitive.ObjectID{}
		}
		filter["customer"] = bson.M{"$in": customerIDs}
	} else if q.CustomerID != "" {
		if id, err := primitive.ObjectIDFromHex(q.CustomerID); err == nil {
			filter["customer"] = id
		}
	}

	return filter
}

// parseDateParam accepts a bare date or a full RFC 3339 timestamp; anything
// else is ignored, matching the lenient date handling of the list API.
func parseDateParam(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
