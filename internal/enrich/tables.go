package enrich

import "transit-planner/internal/textnorm"

// Tables holds the rule sets the enricher consults. Keys are line codes
// folded with textnorm.Code, so "e-14" and "E14" are the same entry.
type Tables struct {
	HighFrequency   map[string]bool
	Alternatives    map[string][]string
	AccessibleKinds map[string]bool
}

func lineSet(codes ...string) map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[textnorm.Code(c)] = true
	}
	return m
}

// DefaultTables returns the Athens rule set: the metro lines plus the tram,
// express bus and trolley routes that run at metro-like headways.
func DefaultTables() Tables {
	alt := map[string][]string{
		"M1":  {"M2", "M3"},
		"M2":  {"M1", "M3"},
		"M3":  {"M2", "X95"},
		"T6":  {"T7"},
		"T7":  {"T6"},
		"E14": {"040"},
		"X95": {"M3"},
		"040": {"E14"},
		"A1":  {"B1"},
		"B1":  {"A1"},
		"550": {"A2"},
		"A2":  {"550"},
		"608": {"A1"},
		"X96": {"M1"},
	}
	t := Tables{
		HighFrequency: lineSet("M1", "M2", "M3", "T6", "T7", "E14", "X95", "040", "A1", "B1", "550", "A2", "608", "X96"),
		Alternatives:  make(map[string][]string, len(alt)),
		AccessibleKinds: map[string]bool{
			"metro": true,
			"tram":  true,
			"rail":  true,
		},
	}
	for k, v := range alt {
		t.Alternatives[textnorm.Code(k)] = v
	}
	return t
}

// IsHighFrequency reports whether line runs at metro-like headways.
func (t Tables) IsHighFrequency(line string) bool {
	return line != "" && t.HighFrequency[textnorm.Code(line)]
}

func (t Tables) alternatives(line string) []string {
	if line == "" {
		return nil
	}
	alts := t.Alternatives[textnorm.Code(line)]
	if len(alts) == 0 {
		return nil
	}
	return append([]string(nil), alts...)
}
