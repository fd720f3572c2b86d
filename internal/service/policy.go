package service

import "github.com/iliyamo/vaccination-booking/internal/model"

// Relation is how a caller stands towards a resource.
type Relation uint8

const (
	RelationOther Relation = iota
	RelationOwner
	RelationAdmin
)

// Capability is something a caller may do to a resource.
type Capability uint8

const (
	CapModify   Capability = iota // update or delete a booking
	CapListAll                    // list bookings of other users
	CapNoQuota                    // create bookings beyond the per-user quota
)

var capabilities = map[Relation]map[Capability]bool{
	RelationAdmin: {CapModify: true, CapListAll: true, CapNoQuota: true},
	RelationOwner: {CapModify: true},
	RelationOther: {},
}

// RelationOf resolves the relation of id to a resource owned by ownerID.
// Admin wins over ownership. Pass ownerID 0 for resources without an owner.
func RelationOf(id model.Identity, ownerID uint64) Relation {
	switch {
	case id.IsAdmin():
		return RelationAdmin
	case ownerID != 0 && id.ID == ownerID:
		return RelationOwner
	}
	return RelationOther
}

// Can reports whether rel grants c.
func Can(rel Relation, c Capability) bool {
	return capabilities[rel][c]
}
