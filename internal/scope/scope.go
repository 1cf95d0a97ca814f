package scope

import (
	"errors"

	"gorm.io/gorm"

	"equipment-monitor-backend/internal/model"
)

// ErrDenied is returned when a mutation would cross the actor's scope
// boundary. No partial state change occurs when it is returned.
var ErrDenied = errors.New("authorization denied")

// Identity is the role plus tenant attributes resolved from an authenticated
// request. It is derived once per request and never cached across requests.
type Identity struct {
	UserID     string
	Email      string
	Role       model.Role
	Institute  string
	Department string
	LabID      string
}

// Predicate is a declarative access filter derived purely from an Identity.
// Callers conjoin it with their own filters through the Apply* methods without
// branching on the role themselves. The zero value matches nothing.
type Predicate struct {
	matchAll   bool
	institute  string
	department string
	labID      string
}

// MatchNone is the fail-closed predicate.
var MatchNone = Predicate{}

// For derives the access predicate for an identity. Deterministic and free of
// I/O. When a scope attribute the role requires is missing, the result matches
// nothing rather than everything: a misconfigured identity must never be
// promoted to global access.
func For(id Identity) Predicate {
	switch id.Role {
	case model.RolePolicyMaker:
		return Predicate{matchAll: true}
	case model.RoleLabManager:
		if id.Institute == "" || id.Department == "" {
			return MatchNone
		}
		return Predicate{institute: id.Institute, department: id.Department}
	case model.RoleTrainer:
		if id.LabID == "" {
			return MatchNone
		}
		return Predicate{labID: id.LabID}
	}
	return MatchNone
}

// MatchesAll reports whether the predicate is unrestricted.
func (p Predicate) MatchesAll() bool { return p.matchAll }

// MatchesNone reports whether the predicate can never match.
func (p Predicate) MatchesNone() bool {
	return !p.matchAll && p.institute == "" && p.labID == ""
}

// MatchesLab reports whether a lab falls inside the scope. This is the pure
// form of the predicate, used by mutation guards and tests.
func (p Predicate) MatchesLab(lab model.Lab) bool {
	switch {
	case p.matchAll:
		return true
	case p.labID != "":
		return lab.ID == p.labID
	case p.institute != "":
		return lab.Institute == p.institute && lab.Department == p.department
	}
	return false
}

// Equipment conjoins the predicate into a query whose model is Equipment.
// Lab-manager scopes join the labs table; callers must not add a conflicting
// labs join themselves.
func (p Predicate) Equipment(db *gorm.DB) *gorm.DB {
	switch {
	case p.matchAll:
		return db
	case p.labID != "":
		return db.Where("equipment.lab_id = ?", p.labID)
	case p.institute != "":
		return db.Joins("JOIN labs ON labs.id = equipment.lab_id").
			Where("labs.institute = ? AND labs.department = ?", p.institute, p.department)
	}
	return db.Where("1 = 0")
}

// Alerts conjoins the predicate into a query whose model is Alert, scoping
// through the owning equipment.
func (p Predicate) Alerts(db *gorm.DB) *gorm.DB {
	switch {
	case p.matchAll:
		return db
	case p.labID != "":
		return db.Joins("JOIN equipment ON equipment.id = alerts.equipment_id").
			Where("equipment.lab_id = ?", p.labID)
	case p.institute != "":
		return db.Joins("JOIN equipment ON equipment.id = alerts.equipment_id").
			Joins("JOIN labs ON labs.id = equipment.lab_id").
			Where("labs.institute = ? AND labs.department = ?", p.institute, p.department)
	}
	return db.Where("1 = 0")
}

// Statuses conjoins the predicate into a query whose model is EquipmentStatus.
func (p Predicate) Statuses(db *gorm.DB) *gorm.DB {
	switch {
	case p.matchAll:
		return db
	case p.labID != "":
		return db.Joins("JOIN equipment ON equipment.id = equipment_statuses.equipment_id").
			Where("equipment.lab_id = ?", p.labID)
	case p.institute != "":
		return db.Joins("JOIN equipment ON equipment.id = equipment_statuses.equipment_id").
			Joins("JOIN labs ON labs.id = equipment.lab_id").
			Where("labs.institute = ? AND labs.department = ?", p.institute, p.department)
	}
	return db.Where("1 = 0")
}

// Users conjoins the predicate into a query whose model is User. Trainer
// scopes see only themselves-shaped slices of their lab; manager scopes see
// their institute and department.
func (p Predicate) Users(db *gorm.DB) *gorm.DB {
	switch {
	case p.matchAll:
		return db
	case p.labID != "":
		return db.Where("users.lab_id = ?", p.labID)
	case p.institute != "":
		return db.Where("users.institute = ? AND users.department = ?", p.institute, p.department)
	}
	return db.Where("1 = 0")
}

// AuthorizeMove permits a lab-to-lab equipment move only when both the source
// and the destination lab satisfy the actor's scope. Either failing yields
// ErrDenied.
func AuthorizeMove(id Identity, src, dst model.Lab) error {
	p := For(id)
	if !p.MatchesLab(src) || !p.MatchesLab(dst) {
		return ErrDenied
	}
	return nil
}
