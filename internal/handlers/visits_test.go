package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"visittrack/internal/models"
)

func strPtr(s string) *string { return &s }

func TestApplyVisitUpdateMergesProvidedFieldsOnly(t *testing.T) {
	visit := models.VisitRecord{
		Brand:            "PCKem",
		JobType:          "Project",
		ProductPresented: "RO-200",
		Details:          "initial walk-through",
	}

	applyVisitUpdate(&visit, visitUpdateRequest{
		Details:  strPtr("updated details"),
		NeedHelp: strPtr("pricing support"),
	})

	if visit.Details != "updated details" || visit.NeedHelp != "pricing support" {
		t.Fatalf("provided fields not applied: %+v", visit)
	}
	if visit.Brand != "PCKem" || visit.JobType != "Project" || visit.ProductPresented != "RO-200" {
		t.Fatalf("omitted fields must stay untouched: %+v", visit)
	}
}

func TestApplyVisitUpdateExplicitEmptyClearsField(t *testing.T) {
	visit := models.VisitRecord{Details: "something"}
	applyVisitUpdate(&visit, visitUpdateRequest{Details: strPtr("")})
	if visit.Details != "" {
		t.Fatalf("explicit empty string should clear the field, got %q", visit.Details)
	}
}

func TestApplyVisitUpdateClearsSalesUser(t *testing.T) {
	id := primitive.NewObjectID()
	visit := models.VisitRecord{SalesUser: &id}
	applyVisitUpdate(&visit, visitUpdateRequest{
		SalesUser:       strPtr(""),
		SalesNameManual: strPtr("Outside Rep"),
	})
	if visit.SalesUser != nil {
		t.Fatal("empty salesUser should unlink the user")
	}
	if visit.SalesNameManual != "Outside Rep" {
		t.Fatalf("unexpected manual name %q", visit.SalesNameManual)
	}
}

// Filling the missing key fields on a pending record, without sending status,
// must land the record on completed.
func TestUpdateScenarioPendingVisitCompletesWhenFieldsFilled(t *testing.T) {
	visit := models.VisitRecord{
		Status:           models.VisitStatusPending,
		ProductPresented: "RO-200",
	}
	req := visitUpdateRequest{
		Details: strPtr("presented full line, customer interested"),
		Photos:  &[]models.FileRef{{URL: "https://cdn.example.com/p.jpg"}},
	}

	stored := visit.Status
	applyVisitUpdate(&visit, req)
	complete := visitKeyFieldsComplete(visit.ProductPresented, visit.Details, len(visit.Photos))
	if !complete {
		t.Fatal("merged record should be complete")
	}
	status := deriveUpdateStatus(stored, "", req.Status != nil, complete)
	if status != models.VisitStatusCompleted {
		t.Fatalf("expected completed, got %q", status)
	}
}

// Clearing a key field on a completed record drops it back to pending even if
// the caller re-sends completed.
func TestUpdateScenarioClearingKeyFieldForcesPending(t *testing.T) {
	visit := models.VisitRecord{
		Status:           models.VisitStatusCompleted,
		ProductPresented: "RO-200",
		Details:          "done",
		Photos:           []models.FileRef{{URL: "https://cdn.example.com/p.jpg"}},
	}
	req := visitUpdateRequest{
		Details: strPtr(""),
		Status:  strPtr(models.VisitStatusCompleted),
	}

	stored := visit.Status
	applyVisitUpdate(&visit, req)
	complete := visitKeyFieldsComplete(visit.ProductPresented, visit.Details, len(visit.Photos))
	status := deriveUpdateStatus(stored, *req.Status, true, complete)
	if status != models.VisitStatusPending {
		t.Fatalf("expected pending, got %q", status)
	}
}

// An explicit "" slips past the oneof binding; it must behave exactly like
// an omitted status key, never be stored.
func TestResolveUpdatedStatusExplicitEmptyCountsAsOmitted(t *testing.T) {
	req := visitUpdateRequest{Status: strPtr("")}

	got := resolveUpdatedStatus(models.VisitStatusCompleted, req, true)
	if got != models.VisitStatusCompleted {
		t.Fatalf("expected completed, got %q", got)
	}
	for _, status := range models.VisitStatuses {
		if got := resolveUpdatedStatus(status, req, true); got == "" {
			t.Fatalf("stored %q: empty status must never be derived", status)
		}
	}
}

func TestResolveUpdatedStatusExplicitValueKept(t *testing.T) {
	req := visitUpdateRequest{Status: strPtr(models.VisitStatusCancelled)}
	got := resolveUpdatedStatus(models.VisitStatusCompleted, req, true)
	if got != models.VisitStatusCancelled {
		t.Fatalf("expected cancelled, got %q", got)
	}
}

func TestResolveUpdatedStatusOmittedKeyCompletes(t *testing.T) {
	got := resolveUpdatedStatus(models.VisitStatusCancelled, visitUpdateRequest{}, true)
	if got != models.VisitStatusCompleted {
		t.Fatalf("expected completed, got %q", got)
	}
}

func TestUpdateCustomerHexStoredLinkWinsOverNewCustomer(t *testing.T) {
	stored := primitive.NewObjectID()
	req := visitUpdateRequest{NewCustomer: &customerCreateRequest{Name: "Acme Water"}}

	if got := updateCustomerHex(req, &stored); got != stored.Hex() {
		t.Fatalf("linked visit must keep its customer, got %q", got)
	}
}

func TestUpdateCustomerHexNewCustomerAllowedWhenUnlinked(t *testing.T) {
	req := visitUpdateRequest{NewCustomer: &customerCreateRequest{Name: "Acme Water"}}
	if got := updateCustomerHex(req, nil); got != "" {
		t.Fatalf("unlinked visit should leave room for a new customer, got %q", got)
	}
}

func TestUpdateCustomerHexPayloadIDWins(t *testing.T) {
	stored := primitive.NewObjectID()
	payload := primitive.NewObjectID()
	hex := payload.Hex()
	req := visitUpdateRequest{Customer: &hex}

	if got := updateCustomerHex(req, &stored); got != hex {
		t.Fatalf("payload id should win, got %q", got)
	}
}

func TestValidVisitPurpose(t *testing.T) {
	if !validVisitPurpose("") {
		t.Fatal("empty purpose is allowed")
	}
	for _, p := range models.VisitPurposes {
		if !validVisitPurpose(p) {
			t.Fatalf("catalogue purpose rejected: %q", p)
		}
	}
	if validVisitPurpose("made-up purpose") {
		t.Fatal("unknown purpose should be rejected")
	}
}

func TestVisitResponseReplacesReferenceIDs(t *testing.T) {
	customerID := primitive.NewObjectID()
	salesID := primitive.NewObjectID()
	resp := visitResponse{
		VisitRecord: models.VisitRecord{
			ID:        primitive.NewObjectID(),
			Brand:     "Watreat",
			VisitAt:   time.Now(),
			Customer:  &customerID,
			SalesUser: &salesID,
			Status:    models.VisitStatusPlanned,
		},
		Customer:  &visitCustomerRef{ID: customerID, Name: "Acme Water", Province: "ชลบุรี"},
		SalesUser: &visitSalesRef{ID: salesID, DisplayName: "Somchai J.", Email: "somchai@example.com"},
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	customer, ok := decoded["customer"].(map[string]interface{})
	if !ok {
		t.Fatalf("customer should serialize as an object, got %v", decoded["customer"])
	}
	if customer["name"] != "Acme Water" {
		t.Fatalf("unexpected customer payload %v", customer)
	}

	sales, ok := decoded["salesUser"].(map[string]interface{})
	if !ok {
		t.Fatalf("salesUser should serialize as an object, got %v", decoded["salesUser"])
	}
	if sales["displayName"] != "Somchai J." {
		t.Fatalf("unexpected salesUser payload %v", sales)
	}
}
