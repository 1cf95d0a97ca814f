package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-monitor-backend/internal/model"
)

func f(v float64) *float64 { return &v }

func TestEvaluateTemperature(t *testing.T) {
	testCases := []struct {
		name         string
		temperature  *float64
		wantSeverity model.Severity
		wantNone     bool
	}{
		{"below threshold", f(79), "", true},
		{"at threshold is not a breach", f(80), "", true},
		{"above threshold", f(81), model.SeverityHigh, false},
		{"at critical boundary stays high", f(100), model.SeverityHigh, false},
		{"above critical", f(101), model.SeverityCritical, false},
		{"absent field is skipped", nil, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate("Lathe", Reading{Temperature: tc.temperature})
			if tc.wantNone {
				assert.Empty(t, got)
				return
			}
			// One rule, one candidate: never two alerts for one reading of
			// the same rule.
			require.Len(t, got, 1)
			assert.Equal(t, model.AlertHighTemperature, got[0].Type)
			assert.Equal(t, tc.wantSeverity, got[0].Severity)
			assert.Equal(t, "High Temperature: Lathe", got[0].Title)
		})
	}
}

func TestEvaluateVibration(t *testing.T) {
	got := Evaluate("Lathe", Reading{Vibration: f(12)})
	require.Len(t, got, 1)
	assert.Equal(t, model.AlertAbnormalVibration, got[0].Type)
	assert.Equal(t, model.SeverityHigh, got[0].Severity)

	got = Evaluate("Lathe", Reading{Vibration: f(16)})
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityCritical, got[0].Severity)
}

func TestEvaluateEnergyConsumption(t *testing.T) {
	got := Evaluate("Lathe", Reading{EnergyConsumption: f(51)})
	require.Len(t, got, 1)
	assert.Equal(t, model.AlertHighEnergyConsumption, got[0].Type)
	assert.Equal(t, model.SeverityMedium, got[0].Severity)

	assert.Empty(t, Evaluate("Lathe", Reading{EnergyConsumption: f(50)}))
}

func TestEvaluateAllQuiet(t *testing.T) {
	got := Evaluate("Lathe", Reading{
		Temperature:       f(79),
		Vibration:         f(5),
		EnergyConsumption: f(10),
	})
	assert.Nil(t, got)
}

func TestEvaluateIndependentRules(t *testing.T) {
	got := Evaluate("Lathe", Reading{
		Temperature: f(105),
		Vibration:   f(16),
	})
	require.Len(t, got, 2)
	assert.Equal(t, model.AlertHighTemperature, got[0].Type)
	assert.Equal(t, model.SeverityCritical, got[0].Severity)
	assert.Equal(t, model.AlertAbnormalVibration, got[1].Type)
	assert.Equal(t, model.SeverityCritical, got[1].Severity)
}
