package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"equipment-monitor-backend/internal/model"
)

var (
	labPusaFitter = model.Lab{ID: "lab-1", Code: "ITI_PUSA_FITTER_01", Institute: "ITI Pusa", Department: "FITTER_MANUFACTURING"}
	labPusaElec   = model.Lab{ID: "lab-2", Code: "ITI_PUSA_ELEC_01", Institute: "ITI Pusa", Department: "ELECTRICAL_ENGINEERING"}
	labMumbaiCnc  = model.Lab{ID: "lab-3", Code: "ATI_MUMBAI_CNC_01", Institute: "ATI Mumbai", Department: "ADVANCED_MANUFACTURING_CNC"}
)

func TestForPolicyMaker(t *testing.T) {
	p := For(Identity{Role: model.RolePolicyMaker})

	assert.True(t, p.MatchesAll())
	assert.True(t, p.MatchesLab(labPusaFitter))
	assert.True(t, p.MatchesLab(labPusaElec))
	assert.True(t, p.MatchesLab(labMumbaiCnc))
}

func TestForTrainer(t *testing.T) {
	p := For(Identity{Role: model.RoleTrainer, LabID: "lab-1"})

	assert.True(t, p.MatchesLab(labPusaFitter))
	// Another lab in the same institute is still out of scope.
	assert.False(t, p.MatchesLab(labPusaElec))
	assert.False(t, p.MatchesLab(labMumbaiCnc))
}

func TestForLabManager(t *testing.T) {
	p := For(Identity{
		Role:       model.RoleLabManager,
		Institute:  "ITI Pusa",
		Department: "FITTER_MANUFACTURING",
	})

	assert.True(t, p.MatchesLab(labPusaFitter))
	// Same institute, different department.
	assert.False(t, p.MatchesLab(labPusaElec))
	// Different institute, different department.
	assert.False(t, p.MatchesLab(labMumbaiCnc))
	// Same department, different institute.
	assert.False(t, p.MatchesLab(model.Lab{ID: "lab-4", Institute: "ATI Mumbai", Department: "FITTER_MANUFACTURING"}))
}

func TestForFailsClosed(t *testing.T) {
	testCases := []struct {
		name string
		id   Identity
	}{
		{"trainer without lab", Identity{Role: model.RoleTrainer}},
		{"manager without institute", Identity{Role: model.RoleLabManager, Department: "FITTER_MANUFACTURING"}},
		{"manager without department", Identity{Role: model.RoleLabManager, Institute: "ITI Pusa"}},
		{"unknown role", Identity{Role: model.Role("SUPERUSER")}},
		{"empty identity", Identity{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := For(tc.id)
			assert.True(t, p.MatchesNone())
			assert.False(t, p.MatchesLab(labPusaFitter))
			assert.False(t, p.MatchesLab(labMumbaiCnc))
		})
	}
}

func TestAuthorizeMove(t *testing.T) {
	manager := Identity{
		Role:       model.RoleLabManager,
		Institute:  "ITI Pusa",
		Department: "FITTER_MANUFACTURING",
	}
	labPusaFitter2 := model.Lab{ID: "lab-5", Institute: "ITI Pusa", Department: "FITTER_MANUFACTURING"}

	// Both labs in scope: allowed.
	assert.NoError(t, AuthorizeMove(manager, labPusaFitter, labPusaFitter2))

	// Destination outside the institute: denied.
	assert.ErrorIs(t, AuthorizeMove(manager, labPusaFitter, labMumbaiCnc), ErrDenied)

	// Source outside the scope: denied even if the destination is in scope.
	assert.ErrorIs(t, AuthorizeMove(manager, labMumbaiCnc, labPusaFitter), ErrDenied)

	// Policy makers move anything.
	assert.NoError(t, AuthorizeMove(Identity{Role: model.RolePolicyMaker}, labPusaFitter, labMumbaiCnc))

	// A trainer never moves equipment across labs: the destination can't match.
	trainer := Identity{Role: model.RoleTrainer, LabID: "lab-1"}
	assert.ErrorIs(t, AuthorizeMove(trainer, labPusaFitter, labPusaElec), ErrDenied)
}

func TestForIsDeterministic(t *testing.T) {
	id := Identity{Role: model.RoleLabManager, Institute: "ITI Pusa", Department: "FITTER_MANUFACTURING"}
	assert.Equal(t, For(id), For(id))
}
