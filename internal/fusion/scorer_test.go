package fusion_test

import (
	"testing"

	"ghoststation/internal/fusion"
)

func TestScoreTruthTable(t *testing.T) {
	scorer := fusion.NewScorer(fusion.DefaultThresholds())
	tests := []struct {
		name     string
		reading  fusion.Reading
		score    int
		kind     fusion.Kind
		accepted bool
	}{
		{"nothing", fusion.Reading{}, 1, fusion.KindMagnetic, false},
		{"magnetic only", fusion.Reading{MagneticDelta: 6}, 2, fusion.KindMagnetic, false},
		{"visual only", fusion.Reading{Regions: 1}, 2, fusion.KindVisual, true},
		{"audio only", fusion.Reading{AudioLevel: 2}, 2, fusion.KindAudio, true},
		{"visual and magnetic", fusion.Reading{Regions: 3, MagneticDelta: 9}, 3, fusion.KindVisual, true},
		{"audio and magnetic", fusion.Reading{AudioLevel: 1.6, MagneticDelta: 5.1}, 3, fusion.KindAudio, true},
		{"visual and audio", fusion.Reading{Regions: 1, AudioLevel: 3}, 3, fusion.KindMulti, true},
		{"all three", fusion.Reading{Regions: 2, AudioLevel: 3, MagneticDelta: 10}, 4, fusion.KindMulti, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := scorer.Score(tt.reading)
			if v.Score != tt.score || v.Kind != tt.kind || v.Accepted != tt.accepted {
				t.Fatalf("got score=%d kind=%s accepted=%v, want %d %s %v",
					v.Score, v.Kind, v.Accepted, tt.score, tt.kind, tt.accepted)
			}
		})
	}
}

func TestThresholdsAreStrict(t *testing.T) {
	scorer := fusion.NewScorer(fusion.DefaultThresholds())
	v := scorer.Score(fusion.Reading{AudioLevel: 1.5, MagneticDelta: 5})
	if v.HasAudio || v.HasMagnetic {
		t.Fatalf("readings equal to the threshold must not vote: %+v", v)
	}
	if v.Accepted {
		t.Fatal("expected rejection at exact thresholds")
	}
}

func TestCustomThresholds(t *testing.T) {
	scorer := fusion.NewScorer(fusion.Thresholds{Audio: 0.5, Magnetic: 1})
	v := scorer.Score(fusion.Reading{AudioLevel: 0.6, MagneticDelta: 1.2})
	if !v.HasAudio || !v.HasMagnetic || v.Score != 3 {
		t.Fatalf("unexpected verdict %+v", v)
	}
}
