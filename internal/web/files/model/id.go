package model

import (
	"strings"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ID is the identifier type of every user and file record.
type ID = primitive.ObjectID

// RootID is the parent id of records that live at the top level.
var RootID = primitive.NilObjectID

// rootWire is how RootID is written and read on the wire.
const rootWire = "0"

// ParseID parses a hex object id. The zero id is rejected,
// it only ever means "root" and never names a record.
func ParseID(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(err, "parse id %q", raw)
	}
	if id.IsZero() {
		return primitive.NilObjectID, errors.Errorf("id %q is reserved", raw)
	}

	return id, nil
}

// ParseParentID parses a parent id where "" and "0" denote the root.
func ParseParentID(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == rootWire {
		return RootID, nil
	}

	return ParseID(raw)
}

// FormatParentID renders a parent id, the root becomes "0".
func FormatParentID(id ID) string {
	if id.IsZero() {
		return rootWire
	}

	return id.Hex()
}

// NewID returns a fresh id, ids sort in creation order.
func NewID() ID {
	return primitive.NewObjectID()
}
