package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contact is one person on the customer side.
type Contact struct {
	Name            string `bson:"name" json:"name"`
	Phone           string `bson:"phone,omitempty" json:"phone,omitempty"`
	Position        string `bson:"position,omitempty" json:"position,omitempty"`
	IsDecisionMaker bool   `bson:"isDecisionMaker" json:"isDecisionMaker"`
}

// Customer is shared across all users; name uniqueness is enforced by a
// unique index, not per-request checks.
type Customer struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name                 string              `bson:"name" json:"name"`
	Province             string              `bson:"province,omitempty" json:"province,omitempty"`
	Contacts             []Contact           `bson:"contacts" json:"contacts"`
	BusinessCard         *FileRef            `bson:"businessCard,omitempty" json:"businessCard,omitempty"`
	CurrentProviderBrand string              `bson:"currentProviderBrand,omitempty" json:"currentProviderBrand,omitempty"`
	Notes                string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy            *primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy            *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt            time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time           `bson:"updatedAt" json:"updatedAt"`
}
