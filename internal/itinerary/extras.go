package itinerary

// Derived classifications attached by the enricher.

type Reliability string

const (
	ReliabilityVeryHigh Reliability = "very_high"
	ReliabilityHigh     Reliability = "high"
	ReliabilityMedium   Reliability = "medium"
	ReliabilityLow      Reliability = "low"
)

type Frequency string

const (
	FrequencyHigh   Frequency = "high"
	FrequencyMedium Frequency = "medium"
	FrequencyLow    Frequency = "low"
	// FrequencyNone applies to itineraries without any transit leg.
	FrequencyNone Frequency = "not_applicable"
)

// Label is the headway band shown to riders.
func (f Frequency) Label() string {
	switch f {
	case FrequencyHigh:
		return "High (5-10min)"
	case FrequencyMedium:
		return "Medium (10-15min)"
	case FrequencyLow:
		return "Low (15-30min)"
	}
	return "Not applicable"
}

type Crowd string

const (
	CrowdHigh   Crowd = "high"
	CrowdMedium Crowd = "medium"
	CrowdLow    Crowd = "low"
)

type Impact string

const (
	ImpactVeryLow Impact = "very_low"
	ImpactLow     Impact = "low"
	ImpactMedium  Impact = "medium"
	ImpactHigh    Impact = "high"
)

type Fare struct {
	Label    string  `json:"label"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Free     bool    `json:"free"`
}

type StepExtras struct {
	WaitMinutes  int       `json:"waitMinutes"`
	Frequency    Frequency `json:"frequency,omitempty"`
	Crowd        Crowd     `json:"crowd,omitempty"`
	Fare         *Fare     `json:"fare,omitempty"`
	Accessible   bool      `json:"accessible"`
	Alternatives []string  `json:"alternatives,omitempty"`
}

type Extras struct {
	Reliability      Reliability `json:"reliability"`
	Frequency        Frequency   `json:"frequency"`
	Crowd            Crowd       `json:"crowd"`
	ExpectedCrowding string      `json:"expectedCrowding"`
	Fare             Fare        `json:"fare"`
	Accessible       bool        `json:"accessible"`
	Impact           Impact      `json:"impact"`
}
