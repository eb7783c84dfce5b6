package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func riskyShoulder(angle float64) Biomechanics {
	return Biomechanics{
		Shoulder: &ShoulderVerdict{Angle: angle, Risk: RiskHigh},
	}
}

func safeFrame() Biomechanics {
	return Biomechanics{
		Shoulder: &ShoulderVerdict{Angle: 90, Risk: RiskSafe, WithinSafeRange: true},
		Elbow:    &ElbowVerdict{Angle: 110, WithinOptimal: true},
		Knee:     &KneeVerdict{Angle: 30, StressLevel: "normal"},
		Hip:      &HipVerdict{Angle: 50, PowerGeneration: "good"},
	}
}

func TestShoulderOveruseAlert(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	// 15 of 100 frames at 150 degrees abduction on groundstrokes: past the
	// 10% breach threshold.
	for i := 0; i < 100; i++ {
		if i < 15 {
			risks := agg.AnalyzeFrame(riskyShoulder(150), StrokeGroundstroke)
			require.Len(t, risks, 1)
			assert.Equal(t, RiskShoulderOveruse, risks[0].Type)
		} else {
			agg.AnalyzeFrame(safeFrame(), StrokeGroundstroke)
		}
	}

	summary := agg.Summary()

	assert.Equal(t, 100, summary.TotalFrames)
	assert.InDelta(t, 15.0, summary.Percentages[RiskShoulderOveruse], 1e-9)
	require.Len(t, summary.Alerts, 1)
	assert.Equal(t, RiskShoulderOveruse, summary.Alerts[0].Type)
	assert.Equal(t, "medium", summary.OverallRisk)
}

func TestShoulderOveruseSkippedOnOverhead(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	risks := agg.AnalyzeFrame(riskyShoulder(150), StrokeOverhead)

	assert.Empty(t, risks)
	assert.Equal(t, 0, agg.Counters()[RiskShoulderOveruse])
}

func TestPoorKineticChainAlsoCountsElbow(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	bio := Biomechanics{
		Hip: &HipVerdict{Angle: 2, PowerGeneration: "poor"},
	}

	risks := agg.AnalyzeFrame(bio, StrokeServe)

	require.Len(t, risks, 1)
	assert.Equal(t, RiskPoorKineticChain, risks[0].Type)
	assert.Equal(t, 1, agg.Counters()[RiskPoorKineticChain])
	assert.Equal(t, 1, agg.Counters()[RiskElbowStrain])
}

func TestPoorKineticChainIgnoredOnSoftStrokes(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	bio := Biomechanics{
		Hip: &HipVerdict{Angle: 2, PowerGeneration: "poor"},
	}

	risks := agg.AnalyzeFrame(bio, StrokeDink)

	assert.Empty(t, risks)
	assert.Equal(t, 0, agg.Counters()[RiskPoorKineticChain])
}

func TestElbowStrainRaisesRecommendationOnly(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	bad := Biomechanics{Elbow: &ElbowVerdict{Angle: 40, WithinOptimal: false}}
	for i := 0; i < 20; i++ {
		agg.AnalyzeFrame(bad, StrokeVolley)
	}
	for i := 0; i < 80; i++ {
		agg.AnalyzeFrame(safeFrame(), StrokeVolley)
	}

	summary := agg.Summary()

	assert.InDelta(t, 20.0, summary.Percentages[RiskElbowStrain], 1e-9)
	assert.Empty(t, summary.Alerts, "elbow strain must not raise an alert")
	assert.Equal(t, "low", summary.OverallRisk)

	var titles []string
	for _, r := range summary.Recommendations {
		titles = append(titles, r.Title)
	}
	assert.Contains(t, titles, "Elbow Positioning")
}

func TestOverallRiskGrading(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	// Breach both shoulder and knee thresholds to reach two alerts.
	bio := Biomechanics{
		Shoulder: &ShoulderVerdict{Angle: 150, Risk: RiskHigh},
		Knee:     &KneeVerdict{Angle: 120, StressLevel: "high"},
	}
	for i := 0; i < 50; i++ {
		agg.AnalyzeFrame(bio, StrokeGroundstroke)
	}
	for i := 0; i < 50; i++ {
		agg.AnalyzeFrame(safeFrame(), StrokeGroundstroke)
	}

	summary := agg.Summary()

	require.Len(t, summary.Alerts, 2)
	assert.Equal(t, "high", summary.OverallRisk)
}

func TestLowRiskGetsPositiveRecommendation(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	for i := 0; i < 50; i++ {
		agg.AnalyzeFrame(safeFrame(), StrokeDink)
	}

	summary := agg.Summary()

	assert.Equal(t, "low", summary.OverallRisk)
	assert.Empty(t, summary.Alerts)
	require.Len(t, summary.Recommendations, 1)
	assert.Equal(t, "info", summary.Recommendations[0].Priority)
}

func TestSummaryEmptySession(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	summary := agg.Summary()

	assert.Equal(t, "unknown", summary.OverallRisk)
	assert.Equal(t, 0, summary.TotalFrames)
	assert.Empty(t, summary.Alerts)
}

func TestPercentagesBounded(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	// Every frame trips shoulder, kinetic chain, knee, and elbow at once:
	// every percentage must stay within [0,100].
	bio := Biomechanics{
		Shoulder: &ShoulderVerdict{Angle: 170, Risk: RiskCritical},
		Elbow:    &ElbowVerdict{Angle: 30, WithinOptimal: false},
		Knee:     &KneeVerdict{Angle: 120, StressLevel: "high"},
		Hip:      &HipVerdict{Angle: 1, PowerGeneration: "poor"},
	}
	for i := 0; i < 40; i++ {
		agg.AnalyzeFrame(bio, StrokeServe)
	}

	summary := agg.Summary()

	for key, pct := range summary.Percentages {
		assert.GreaterOrEqual(t, pct, 0.0, key)
		assert.LessOrEqual(t, pct, 100.0, key)
	}
	assert.Equal(t, "high", summary.OverallRisk)
}

func TestResetClearsState(t *testing.T) {
	agg := NewInjuryRiskAggregator(DefaultRiskThresholds())

	agg.AnalyzeFrame(riskyShoulder(150), StrokeGroundstroke)
	require.Equal(t, 1, agg.Frames())

	agg.Reset()

	assert.Equal(t, 0, agg.Frames())
	assert.Equal(t, 0, agg.Counters()[RiskShoulderOveruse])
}
