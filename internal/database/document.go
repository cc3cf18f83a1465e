package database

import "go.mongodb.org/mongo-driver/bson/primitive"

// Document is the capability every persisted shape must have: a unique,
// store-assigned identifier.
type Document interface {
	GetID() primitive.ObjectID
}

// AbstractDocument is embedded by entity models to satisfy Document. Embed it
// with `bson:",inline"` so _id lands at the top level of the stored document.
type AbstractDocument struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
}

func (d AbstractDocument) GetID() primitive.ObjectID { return d.ID }
