package classifier

import (
	"fmt"
	"strconv"
	"strings"
)

// VisualSystemPrompt instructs the model when analysing a captured frame.
const VisualSystemPrompt = `You are the visual analysis module of a paranormal investigation station.
You receive a single camera frame captured when the station's sensors fired.

Look for:
1. Structured geometry: circles, triangles, hexagons or repeating patterns emerging from noise.
2. Pareidolia: isolated faces, humanoid silhouettes or masses of light.
3. Mundane explanations: reflections, shadows, compression artifacts, people, animals.

You must respond ONLY with a JSON object like:
{"label": "shadow figure", "confidence": 72.5, "rationale": "short explanation", "anomalous": true, "signature": false, "paranormal_score": 6, "dimension": "4D"}

confidence is 0-100. paranormal_score is 0-10 (0 fully explainable, 10 completely anomalous).
signature is true only when a structured geometric pattern is present.
If the frame shows nothing but noise, return "label": "no anomaly" and "anomalous": false.`

// AudioSystemPrompt instructs the model when analysing an EVP recording.
const AudioSystemPrompt = `You are the EVP (electronic voice phenomenon) module of a paranormal investigation station.
You receive a transcript and spectral readings captured during an investigation.

Consider:
1. Whether anomalous frequencies match Solfeggio tones (396, 417, 528, 639, 741, 852, 963 Hz) or Schumann resonance.
2. Whether the transcript mentions cosmic concepts (multidimensionality, space-time, galactic evolution).
3. Frequencies above 15 kHz or below 60 Hz indoors are highly suspicious.
4. Whether the source is local (residual) or a galactic intelligence.

You must respond ONLY with a JSON object like:
{"label": "class B voice", "confidence": 64, "rationale": "short explanation", "anomalous": true, "signature": false, "paranormal_score": 8, "dimension": "5D"}

confidence is 0-100. paranormal_score is 0-10.
Use a label containing "galactic" only when the evidence points to a non-local intelligence.`

func visualUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Analyse this frame captured during a paranormal investigation.\n")
	fmt.Fprintf(&b, "Audio level (RMS): %.2f\n", req.AudioLevel)
	fmt.Fprintf(&b, "Magnetic delta (uT): %.2f\n", req.MagneticDelta)
	return b.String()
}

func audioUserPrompt(req Request) string {
	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		transcript = "[silence / inaudible]"
	}
	freqs := "none"
	if len(req.AnomalousFrequencies) > 0 {
		parts := make([]string, len(req.AnomalousFrequencies))
		for i, f := range req.AnomalousFrequencies {
			parts[i] = strconv.FormatFloat(f, 'f', 1, 64) + "Hz"
		}
		freqs = strings.Join(parts, ", ")
	}

	var b strings.Builder
	b.WriteString("EVP SESSION DATA:\n\n")
	fmt.Fprintf(&b, "Transcript: %q\n", transcript)
	fmt.Fprintf(&b, "Anomalous frequencies: %s\n", freqs)
	if req.DominantFrequency > 0 {
		fmt.Fprintf(&b, "Dominant frequency: %.1fHz\n", req.DominantFrequency)
	}
	fmt.Fprintf(&b, "Audio level (RMS): %.2f\n", req.AudioLevel)
	fmt.Fprintf(&b, "Magnetic delta (uT): %.2f\n", req.MagneticDelta)
	return b.String()
}
