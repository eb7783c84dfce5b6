package analysis

import "fmt"

// Risk counter keys.
const (
	RiskShoulderOveruse  = "shoulder_overuse"
	RiskElbowStrain      = "elbow_strain"
	RiskKneeStress       = "knee_stress"
	RiskPoorKineticChain = "poor_kinetic_chain"
)

// FrameRisk is a single injury risk flagged on one frame.
type FrameRisk struct {
	Type           string  `json:"type"`
	Severity       string  `json:"severity"`
	Angle          float64 `json:"angle,omitempty"`
	HipRotation    float64 `json:"hip_rotation,omitempty"`
	Stroke         string  `json:"stroke,omitempty"`
	Message        string  `json:"message"`
	Recommendation string  `json:"recommendation"`
}

// RiskAlert is a session-level alert raised when a counter breaches its
// percentage threshold.
type RiskAlert struct {
	Type       string  `json:"type"`
	Severity   string  `json:"severity"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message"`
	Icon       string  `json:"icon"`
}

// Recommendation is an actionable coaching recommendation attached to the
// session summary.
type Recommendation struct {
	Priority    string   `json:"priority"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// RiskSummary is the whole-session injury risk report.
type RiskSummary struct {
	TotalFrames     int                `json:"total_frames"`
	RiskCounters    map[string]int     `json:"risk_counters,omitempty"`
	Percentages     map[string]float64 `json:"percentages,omitempty"`
	Alerts          []RiskAlert        `json:"alerts"`
	Recommendations []Recommendation   `json:"recommendations"`
	OverallRisk     string             `json:"overall_risk"`
}

// RiskThresholds holds the session-level percentage breach thresholds and
// carries the hip rotation minimum used by the frame pass.
type RiskThresholds struct {
	ShoulderOverusePct  float64 `yaml:"shoulder_overuse_percentage"`
	PoorKineticChainPct float64 `yaml:"poor_kinetic_chain_percentage"`
	KneeStressPct       float64 `yaml:"knee_stress_percentage"`
	ElbowStrainPct      float64 `yaml:"elbow_strain_percentage"`
}

// DefaultRiskThresholds returns the research-derived breach thresholds.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{
		ShoulderOverusePct:  10,
		PoorKineticChainPct: 20,
		KneeStressPct:       15,
		ElbowStrainPct:      15,
	}
}

// InjuryRiskAggregator accumulates per-frame biomechanical risk events and
// produces the session summary. Not safe for concurrent use; one instance
// per analysis run.
type InjuryRiskAggregator struct {
	thresholds RiskThresholds
	counters   map[string]int
	frames     int
}

// NewInjuryRiskAggregator returns an empty aggregator.
func NewInjuryRiskAggregator(thresholds RiskThresholds) *InjuryRiskAggregator {
	a := &InjuryRiskAggregator{thresholds: thresholds}
	a.Reset()
	return a
}

// Reset clears all counters for a new session.
func (a *InjuryRiskAggregator) Reset() {
	a.frames = 0
	a.counters = map[string]int{
		RiskShoulderOveruse:  0,
		RiskElbowStrain:      0,
		RiskKneeStress:       0,
		RiskPoorKineticChain: 0,
	}
}

// Frames returns how many frames have been analyzed.
func (a *InjuryRiskAggregator) Frames() int { return a.frames }

// Counters returns a copy of the current risk counters.
func (a *InjuryRiskAggregator) Counters() map[string]int {
	out := make(map[string]int, len(a.counters))
	for k, v := range a.counters {
		out[k] = v
	}
	return out
}

// AnalyzeFrame inspects one frame's validated biomechanics, bumps the
// session counters, and returns the risks flagged on this frame.
func (a *InjuryRiskAggregator) AnalyzeFrame(bio Biomechanics, stroke StrokeType) []FrameRisk {
	a.frames++
	var risks []FrameRisk

	// High shoulder abduction outside of the overhead smash, where it is
	// biomechanically expected.
	if s := bio.Shoulder; s != nil {
		if (s.Risk == RiskHigh || s.Risk == RiskCritical) && stroke != StrokeOverhead {
			severity := "high"
			if s.Risk == RiskCritical {
				severity = "critical"
			}
			risks = append(risks, FrameRisk{
				Type:           RiskShoulderOveruse,
				Severity:       severity,
				Angle:          s.Angle,
				Stroke:         string(stroke),
				Message:        fmt.Sprintf("Shoulder abduction %.1f° exceeds safe range", s.Angle),
				Recommendation: "Reduce shoulder abduction to <140°. Focus on hip rotation for power.",
			})
			a.counters[RiskShoulderOveruse]++
		}
	}

	// Power strokes without hip rotation mean an arm-only swing. The elbow
	// counter advances too: strain is the downstream consequence.
	if h := bio.Hip; h != nil {
		if h.PowerGeneration == "poor" && isPowerStroke(stroke) {
			risks = append(risks, FrameRisk{
				Type:           RiskPoorKineticChain,
				Severity:       "medium",
				HipRotation:    h.Angle,
				Stroke:         string(stroke),
				Message:        fmt.Sprintf("Insufficient hip rotation (%.1f°)", h.Angle),
				Recommendation: "Engage hips and core for power. Reduce arm strain.",
			})
			a.counters[RiskPoorKineticChain]++
			a.counters[RiskElbowStrain]++
		}
	}

	if k := bio.Knee; k != nil && k.StressLevel == "high" {
		risks = append(risks, FrameRisk{
			Type:           RiskKneeStress,
			Severity:       "medium",
			Angle:          k.Angle,
			Message:        fmt.Sprintf("Deep knee flexion (%.1f°) detected", k.Angle),
			Recommendation: "Avoid excessive squatting. Maintain athletic stance (20-45°).",
		})
		a.counters[RiskKneeStress]++
	}

	if e := bio.Elbow; e != nil && !e.WithinOptimal {
		a.counters[RiskElbowStrain]++
	}

	return risks
}

func isPowerStroke(stroke StrokeType) bool {
	switch stroke {
	case StrokeGroundstroke, StrokeServe, StrokeOverhead:
		return true
	}
	return false
}

// Summary builds the session-level report: per-counter percentages, breach
// alerts, recommendations, and the overall grade. Elbow strain past its
// threshold raises a recommendation only, never an alert, so it cannot tip
// the overall grade on its own.
func (a *InjuryRiskAggregator) Summary() RiskSummary {
	if a.frames == 0 {
		return RiskSummary{
			OverallRisk:     "unknown",
			Alerts:          []RiskAlert{},
			Recommendations: []Recommendation{},
		}
	}

	// The elbow counter can advance twice on one frame (kinetic-chain
	// consequence plus a direct breach), so percentages are capped at 100.
	pct := func(key string) float64 {
		p := float64(a.counters[key]) / float64(a.frames) * 100
		if p > 100 {
			p = 100
		}
		return round1(p)
	}
	shoulderPct := pct(RiskShoulderOveruse)
	kineticPct := pct(RiskPoorKineticChain)
	kneePct := pct(RiskKneeStress)
	elbowPct := pct(RiskElbowStrain)

	alerts := []RiskAlert{}
	recommendations := []Recommendation{}

	if shoulderPct > a.thresholds.ShoulderOverusePct {
		alerts = append(alerts, RiskAlert{
			Type:       RiskShoulderOveruse,
			Severity:   "high",
			Percentage: shoulderPct,
			Message:    fmt.Sprintf("%.1f%% of frames show high shoulder risk", shoulderPct),
			Icon:       "⚠️",
		})
		recommendations = append(recommendations, Recommendation{
			Priority:    "high",
			Category:    "Injury Prevention",
			Title:       "Reduce Shoulder Strain",
			Description: "Excessive shoulder abduction detected. Focus on proper technique.",
			Actions: []string{
				"Practice shoulder rotation drills",
				"Reduce overhead smash frequency",
				"Strengthen rotator cuff muscles",
				"Consider professional coaching for form correction",
			},
		})
	}

	if kineticPct > a.thresholds.PoorKineticChainPct {
		alerts = append(alerts, RiskAlert{
			Type:       "technique",
			Severity:   "medium",
			Percentage: kineticPct,
			Message:    fmt.Sprintf("Insufficient hip rotation in %.1f%% of strokes", kineticPct),
			Icon:       "⚠️",
		})
		recommendations = append(recommendations, Recommendation{
			Priority:    "medium",
			Category:    "Technique",
			Title:       "Improve Power Generation",
			Description: "Using arm-only swings increases injury risk and reduces power.",
			Actions: []string{
				"Practice weight transfer drills",
				"Focus on hip rotation before arm swing",
				"Strengthen core muscles",
				"Watch tutorial videos on kinetic chain",
			},
		})
	}

	if kneePct > a.thresholds.KneeStressPct {
		alerts = append(alerts, RiskAlert{
			Type:       RiskKneeStress,
			Severity:   "medium",
			Percentage: kneePct,
			Message:    fmt.Sprintf("Excessive knee flexion in %.1f%% of frames", kneePct),
			Icon:       "⚠️",
		})
		recommendations = append(recommendations, Recommendation{
			Priority:    "medium",
			Category:    "Form",
			Title:       "Protect Your Knees",
			Description: "Deep squatting increases patellar tendinitis risk.",
			Actions: []string{
				"Maintain athletic stance (knees bent 20-45°)",
				"Avoid excessive squatting during dinks",
				"Strengthen quadriceps and hamstrings",
				"Consider knee support if pain persists",
			},
		})
	}

	if elbowPct > a.thresholds.ElbowStrainPct {
		recommendations = append(recommendations, Recommendation{
			Priority:    "low",
			Category:    "Technique",
			Title:       "Elbow Positioning",
			Description: "Elbow angles outside optimal range detected.",
			Actions: []string{
				"Focus on proper elbow extension for each stroke",
				"Avoid tight grip (causes elbow strain)",
				"Practice with lighter paddle if experiencing pain",
			},
		})
	}

	var overall string
	switch {
	case len(alerts) >= 2:
		overall = "high"
	case len(alerts) == 1:
		overall = "medium"
	default:
		overall = "low"
	}

	if overall == "low" {
		recommendations = append(recommendations, Recommendation{
			Priority:    "info",
			Category:    "Great Job!",
			Title:       "Excellent Biomechanics",
			Description: "Your form shows low injury risk. Keep it up!",
			Actions: []string{
				"Continue current training routine",
				"Maintain proper warm-up and cool-down",
				"Stay consistent with technique",
			},
		})
	}

	return RiskSummary{
		TotalFrames:  a.frames,
		RiskCounters: a.Counters(),
		Percentages: map[string]float64{
			RiskShoulderOveruse:  shoulderPct,
			RiskPoorKineticChain: kineticPct,
			RiskKneeStress:       kneePct,
			RiskElbowStrain:      elbowPct,
		},
		Alerts:          alerts,
		Recommendations: recommendations,
		OverallRisk:     overall,
	}
}
