package handlers

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visittrack/internal/models"
)

func TestCanAccessVisitPrivilegedRoles(t *testing.T) {
	owner := primitive.NewObjectID()
	for _, role := range []string{models.RoleAdmin, models.RoleManager} {
		requester := models.User{ID: primitive.NewObjectID(), Role: role}
		if !canAccessVisit(requester, owner) {
			t.Fatalf("role %q should access any visit", role)
		}
	}
}

func TestCanAccessVisitSalesOwnRecordsOnly(t *testing.T) {
	requester := models.User{ID: primitive.NewObjectID(), Role: models.RoleSales}
	if !canAccessVisit(requester, requester.ID) {
		t.Fatal("sales user should access own visit")
	}
	if canAccessVisit(requester, primitive.NewObjectID()) {
		t.Fatal("sales user should not access another user's visit")
	}
}

func TestBuildVisitFilterNarrowsForSales(t *testing.T) {
	requester := models.User{ID: primitive.NewObjectID(), Role: models.RoleSales}
	filter := buildVisitFilter(requester, visitListQuery{}, nil)
	if filter["createdBy"] != requester.ID {
		t.Fatalf("expected createdBy narrowing, got %v", filter)
	}
}

func TestBuildVisitFilterNoNarrowingForAdmin(t *testing.T) {
	requester := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	filter := buildVisitFilter(requester, visitListQuery{}, nil)
	if _, ok := filter["createdBy"]; ok {
		t.Fatalf("admin filter should not narrow by createdBy, got %v", filter)
	}
}

func TestBuildVisitFilterDateRangeInclusive(t *testing.T) {
	requester := models.User{Role: models.RoleAdmin}
	filter := buildVisitFilter(requester, visitListQuery{StartDate: "2025-03-01", EndDate: "2025-03-31"}, nil)

	visitAt, ok := filter["visitAt"].(bson.M)
	if !ok {
		t.Fatalf("expected visitAt range, got %v", filter)
	}
	start := visitAt["$gte"].(time.Time)
	end := visitAt["$lte"].(time.Time)
	if start.Day() != 1 || start.Hour() != 0 {
		t.Fatalf("unexpected start bound %v", start)
	}
	if end.Day() != 31 || end.Hour() != 23 || end.Minute() != 59 {
		t.Fatalf("endDate should stretch to end of day, got %v", end)
	}
}

func TestBuildVisitFilterStatusAndCustomerID(t *testing.T) {
	requester := models.User{Role: models.RoleAdmin}
	customerID := primitive.NewObjectID()
	filter := buildVisitFilter(requester, visitListQuery{
		Status:     models.VisitStatusPlanned,
		CustomerID: customerID.Hex(),
	}, nil)

	if filter["status"] != models.VisitStatusPlanned {
		t.Fatalf("expected status filter, got %v", filter)
	}
	if filter["customer"] != customerID {
		t.Fatalf("expected customer id filter, got %v", filter)
	}
}

func TestBuildVisitFilterCustomerNameEmptyMatchStillFilters(t *testing.T) {
	// A name search that matched no customers must yield an empty result
	// set, not fall back to an unfiltered list.
	requester := models.User{Role: models.RoleAdmin}
	filter := buildVisitFilter(requester, visitListQuery{CustomerName: "nobody"}, nil)

	customer, ok := filter["customer"].(bson.M)
	if !ok {
		t.Fatalf("expected customer $in filter, got %v", filter)
	}
	in, ok := customer["$in"].([]primitive.ObjectID)
	if !ok || len(in) != 0 {
		t.Fatalf("expected empty $in set, got %v", customer)
	}
}

func TestBuildVisitFilterCustomerNameWinsOverID(t *testing.T) {
	requester := models.User{Role: models.RoleAdmin}
	resolved := []primitive.ObjectID{primitive.NewObjectID()}
	filter := buildVisitFilter(requester, visitListQuery{
		CustomerName: "acme",
		CustomerID:   primitive.NewObjectID().Hex(),
	}, resolved)

	customer, ok := filter["customer"].(bson.M)
	if !ok {
		t.Fatalf("expected $in filter when customerName present, got %v", filter)
	}
	in := customer["$in"].([]primitive.ObjectID)
	if len(in) != 1 || in[0] != resolved[0] {
		t.Fatalf("expected resolved ids, got %v", in)
	}
}

func TestParseDateParamFormats(t *testing.T) {
	if _, ok := parseDateParam("2025-03-15"); !ok {
		t.Fatal("bare date should parse")
	}
	if _, ok := parseDateParam("2025-03-15T10:30:00Z"); !ok {
		t.Fatal("RFC 3339 timestamp should parse")
	}
	if _, ok := parseDateParam("15/03/2025"); ok {
		t.Fatal("unknown format should be ignored")
	}
	if _, ok := parseDateParam(""); ok {
		t.Fatal("empty value should be ignored")
	}
}
