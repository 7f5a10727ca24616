package fusion

import "ghoststation/internal/config"

// Kind names which channels agreed on an event.
type Kind string

const (
	KindMulti    Kind = "multi"
	KindVisual   Kind = "visual"
	KindAudio    Kind = "audio"
	KindMagnetic Kind = "magnetic"
)

// RejectReason is reported when neither the visual nor the audio channel voted.
const RejectReason = "no visual or audio validation"

// Reading is one set of channel measurements taken together.
type Reading struct {
	Regions       int
	AudioLevel    float64
	MagneticDelta float64
}

// Verdict is the scorer's decision on a reading.
type Verdict struct {
	Score       int
	Kind        Kind
	Accepted    bool
	HasVisual   bool
	HasAudio    bool
	HasMagnetic bool
}

// Thresholds are the strict lower bounds a channel reading must exceed to vote.
type Thresholds struct {
	Audio    float64
	Magnetic float64
}

// DefaultThresholds returns the station defaults: audio above 1.5, magnetic above 5.
func DefaultThresholds() Thresholds {
	d := config.Default()
	return ThresholdsFromConfig(&d)
}

// ThresholdsFromConfig reads the fusion section.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{Audio: cfg.Fusion.AudioThreshold, Magnetic: cfg.Fusion.MagneticThreshold}
}

// Scorer applies coincidence scoring. The zero value is not useful; build one
// with NewScorer.
type Scorer struct {
	thresholds Thresholds
}

// NewScorer builds a scorer with the supplied thresholds.
func NewScorer(thresholds Thresholds) *Scorer {
	return &Scorer{thresholds: thresholds}
}

// Score is pure: it starts at 1 and adds one per voting channel. Magnetic
// alone never validates an event.
func (s *Scorer) Score(r Reading) Verdict {
	v := Verdict{
		HasVisual:   r.Regions > 0,
		HasAudio:    r.AudioLevel > s.thresholds.Audio,
		HasMagnetic: r.MagneticDelta > s.thresholds.Magnetic,
	}
	v.Accepted = v.HasVisual || v.HasAudio
	v.Score = 1 + vote(v.HasVisual) + vote(v.HasAudio) + vote(v.HasMagnetic)

	switch {
	case v.HasVisual && v.HasAudio:
		v.Kind = KindMulti
	case v.HasVisual:
		v.Kind = KindVisual
	case v.HasAudio:
		v.Kind = KindAudio
	default:
		v.Kind = KindMagnetic
	}
	return v
}

func vote(b bool) int {
	if b {
		return 1
	}
	return 0
}
