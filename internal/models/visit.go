package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	VisitStatusPlanned    = "planned"
	VisitStatusInProgress = "in-progress"
	VisitStatusCompleted  = "completed"
	VisitStatusCancelled  = "cancelled"
	VisitStatusPending    = "pending"
)

const MaxVisitPhotos = 3

var VisitBrands = []string{"PCKem", "Watreat"}

var VisitJobTypes = []string{"Chemical Service", "Project", "Maintenance", "Trading"}

var VisitPurposes = []string{
	"แนะนำบริษัท/สินค้า/เก็บข้อมูล",
	"เสนอสินค้า/บริการ",
	"สำรวจ/เก็บข้อมูลเพิ่มเติม",
	"สรุปปิดการขาย/ต่อรองราคา",
	"ติดตามใบเสนอราคา/ข้อเสนอ",
	"เข้าพบเพื่อสร้างความสัมพันธ์",
	"พูดคุยปัญหา สินค้า/บริการ",
}

var VisitStatuses = []string{
	VisitStatusPlanned,
	VisitStatusInProgress,
	VisitStatusCompleted,
	VisitStatusCancelled,
	VisitStatusPending,
}

// VisitRecord is one logged sales visit. Status is derived from the key
// fields (productPresented, details, photos), never stored freely.
type VisitRecord struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SalesUser       *primitive.ObjectID `bson:"salesUser,omitempty" json:"salesUser,omitempty"`
	SalesNameManual string              `bson:"salesNameManual,omitempty" json:"salesNameManual,omitempty"`
	Brand           string              `bson:"brand" json:"brand"`
	VisitAt         time.Time           `bson:"visitAt" json:"visitAt"`

	Customer *primitive.ObjectID `bson:"customer,omitempty" json:"customer,omitempty"`

	JobType   string   `bson:"jobType,omitempty" json:"jobType,omitempty"`
	BudgetTHB *float64 `bson:"budgetTHB,omitempty" json:"budgetTHB,omitempty"`
	Purpose   string   `bson:"purpose,omitempty" json:"purpose,omitempty"`

	ProductPresented string     `bson:"productPresented,omitempty" json:"productPresented,omitempty"`
	Details          string     `bson:"details,omitempty" json:"details,omitempty"`
	NeedHelp         string     `bson:"needHelp,omitempty" json:"needHelp,omitempty"`
	WinReason        string     `bson:"winReason,omitempty" json:"winReason,omitempty"`
	EvaluationScore  *int       `bson:"evaluationScore,omitempty" json:"evaluationScore,omitempty"`
	NextActionPlan   string     `bson:"nextActionPlan,omitempty" json:"nextActionPlan,omitempty"`
	NextVisitAt      *time.Time `bson:"nextVisitAt,omitempty" json:"nextVisitAt,omitempty"`
	Photos           []FileRef  `bson:"photos" json:"photos"`

	Status string `bson:"status" json:"status"`

	CreatedBy primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy"`
	UpdatedBy primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
