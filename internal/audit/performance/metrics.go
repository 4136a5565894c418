package performance

import (
	"math"
	"strconv"
)

// Definition describes one field-experience metric reported by PageSpeed Insights.
type Definition struct {
	Key         string
	Label       string
	Short       string
	Multiplier  float64
	Unit        string
	Description string
	LearnMore   string
}

// Definitions is the fixed metric set in report order.
var Definitions = []Definition{
	{
		Key:         "CUMULATIVE_LAYOUT_SHIFT_SCORE",
		Label:       "Cumulative Layout Shift",
		Short:       "CLS",
		Multiplier:  1.0 / 100,
		Unit:        "",
		Description: "Cumulative Layout Shift measures the movement of visible elements within the viewport.",
		LearnMore:   "https://web.dev/articles/cls",
	},
	{
		Key:         "FIRST_CONTENTFUL_PAINT_MS",
		Label:       "First Contentful Paint",
		Short:       "FCP",
		Multiplier:  1.0 / 1000,
		Unit:        "s",
		Description: "First Contentful Paint marks the time at which the first text or image is painted.",
		LearnMore:   "https://developer.chrome.com/docs/lighthouse/performance/first-contentful-paint/",
	},
	{
		Key:         "LARGEST_CONTENTFUL_PAINT_MS",
		Label:       "Largest Contentful Paint",
		Short:       "LCP",
		Multiplier:  1.0 / 1000,
		Unit:        "s",
		Description: "Largest Contentful Paint marks the time at which the largest text or image is painted.",
		LearnMore:   "https://developer.chrome.com/docs/lighthouse/performance/lighthouse-largest-contentful-paint/",
	},
	{
		Key:         "EXPERIMENTAL_TIME_TO_FIRST_BYTE",
		Label:       "Time To First Byte",
		Short:       "TTFB",
		Multiplier:  1.0 / 1000,
		Unit:        "s",
		Description: "Time to First Byte is the time between the browser requesting a page and when it receives the first byte of information from the server.",
		LearnMore:   "https://developer.mozilla.org/en-US/docs/Glossary/Time_to_first_byte",
	},
	{
		Key:         "INTERACTION_TO_NEXT_PAINT",
		Label:       "Interaction to Next Paint",
		Short:       "INP",
		Multiplier:  1,
		Unit:        "ms",
		Description: "INP assesses a page's overall responsiveness to user interactions by observing the latency of all click, tap, and keyboard interactions.",
		LearnMore:   "https://web.dev/articles/inp",
	},
}

// Response is the part of the runPagespeed payload we read. Pointer fields are
// nil when PageSpeed has no field data for the page.
type Response struct {
	LoadingExperience *LoadingExperience `json:"loadingExperience"`
}

type LoadingExperience struct {
	OverallCategory string                  `json:"overall_category"`
	Metrics         map[string]*FieldMetric `json:"metrics"`
}

type FieldMetric struct {
	Percentile    *float64       `json:"percentile"`
	Distributions []Distribution `json:"distributions"`
	Category      string         `json:"category"`
}

type Distribution struct {
	Min        float64  `json:"min"`
	Max        *float64 `json:"max,omitempty"`
	Proportion float64  `json:"proportion"`
}

// Metric is one extracted measurement. Available is false when the upstream omitted it.
type Metric struct {
	ID            string         `json:"id"`
	Short         string         `json:"short"`
	Available     bool           `json:"available"`
	Value         float64        `json:"value,omitempty"`
	DisplayValue  string         `json:"displayValue,omitempty"`
	Category      string         `json:"category,omitempty"`
	Distributions []Distribution `json:"distributions,omitempty"`
	Multiplier    float64        `json:"multiplier"`
	Unit          string         `json:"unit"`
	Description   string         `json:"description"`
	LearnMore     string         `json:"learnMore"`
}

func Extract(resp Response) []Metric {
	var fields map[string]*FieldMetric
	if resp.LoadingExperience != nil {
		fields = resp.LoadingExperience.Metrics
	}

	out := make([]Metric, 0, len(Definitions))
	for _, def := range Definitions {
		m := Metric{
			ID:          def.Label,
			Short:       def.Short,
			Multiplier:  def.Multiplier,
			Unit:        def.Unit,
			Description: def.Description,
			LearnMore:   def.LearnMore,
		}
		if fm := fields[def.Key]; fm != nil && fm.Percentile != nil {
			m.Available = true
			m.Value = *fm.Percentile
			m.DisplayValue = displayValue(*fm.Percentile, def)
			m.Category = fm.Category
			m.Distributions = fm.Distributions
		}
		out = append(out, m)
	}
	return out
}

func displayValue(percentile float64, def Definition) string {
	// Divide rather than multiply so 5 * (1/100) prints as 0.05.
	v := strconv.FormatFloat(percentile/math.Round(1/def.Multiplier), 'f', -1, 64)
	if def.Unit == "" {
		return v
	}
	return v + " " + def.Unit
}
