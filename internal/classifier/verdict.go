package classifier

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ghoststation/internal/services/llm"
)

const maxLabelRunes = 48

// rawVerdict accepts the English keys the prompts ask for as well as the
// Portuguese keys some models fall back to.
type rawVerdict struct {
	Label           string    `json:"label"`
	Classification  string    `json:"classificacao"`
	Confidence      flexFloat `json:"confidence"`
	Confianca       flexFloat `json:"confianca"`
	Rationale       string    `json:"rationale"`
	Analysis        string    `json:"analise_detalhada"`
	Anomalous       *bool     `json:"anomalous"`
	EAnomalia       *bool     `json:"e_anomalia"`
	Pareidolia      *bool     `json:"pareidolia_detectada"`
	Signature       bool      `json:"signature"`
	Assinatura      bool      `json:"assinatura_inteligente"`
	ParanormalScore flexFloat `json:"paranormal_score"`
	NotaParanormal  flexFloat `json:"nota_paranormal"`
	Dimension       string    `json:"dimension"`
	Dimensao        string    `json:"dimensao_estimada"`
}

// flexFloat decodes numbers that models sometimes quote.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	text = strings.TrimSuffix(text, "%")
	if text == "" || text == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return err
	}
	f.value, f.set = v, true
	return nil
}

func parseVerdict(content string) (Verdict, error) {
	var raw rawVerdict
	if err := llm.DecodeLLMJSON(content, &raw); err != nil {
		return Verdict{}, err
	}
	label := NormalizeLabel(firstNonEmpty(raw.Label, raw.Classification))
	if label == "" {
		return Verdict{}, errors.New("verdict missing label")
	}

	confidence := raw.Confidence
	if !confidence.set {
		confidence = raw.Confianca
	}
	score := raw.ParanormalScore
	if !score.set {
		score = raw.NotaParanormal
	}

	anomalous := false
	for _, flag := range []*bool{raw.Anomalous, raw.EAnomalia, raw.Pareidolia} {
		if flag != nil {
			anomalous = *flag
			break
		}
	}

	return Verdict{
		Label:           label,
		Confidence:      clamp(confidence.value, 0, 100),
		Rationale:       strings.TrimSpace(firstNonEmpty(raw.Rationale, raw.Analysis)),
		Anomalous:       anomalous,
		Signature:       raw.Signature || raw.Assinatura,
		ParanormalScore: int(math.Round(clamp(score.value, 0, 10))),
		Dimension:       strings.TrimSpace(firstNonEmpty(raw.Dimension, raw.Dimensao)),
	}, nil
}

var labelCaser = cases.Lower(language.Und)

// NormalizeLabel lowercases, collapses whitespace and bounds label length so
// labels from different models compare cleanly.
func NormalizeLabel(label string) string {
	label = strings.Join(strings.Fields(labelCaser.String(label)), " ")
	runes := []rune(label)
	if len(runes) > maxLabelRunes {
		label = strings.TrimSpace(string(runes[:maxLabelRunes]))
	}
	return label
}

func clamp(value, lo, hi float64) float64 {
	if math.IsNaN(value) {
		return lo
	}
	return math.Min(math.Max(value, lo), hi)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
