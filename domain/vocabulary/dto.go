package vocabulary

// VocabularyStats is the engine-level summary exposed to operators
type VocabularyStats struct {
	Size          int     `json:"size"`
	Pressure      float64 `json:"pressure"`
	Zone          string  `json:"zone"`
	Min           int     `json:"vocabMin"`
	Max           int     `json:"vocabMax"`
	HardLimit     int     `json:"hardLimit"`
	CategoryCount int     `json:"categoryCount"`
	PruningMode   string  `json:"pruningMode"`
	Blocked       bool    `json:"blocked"`
}

// ZoneName maps a pressure value to its zone label
func ZoneName(pressure float64, blocked bool) string {
	switch {
	case blocked:
		return "block"
	case pressure >= zoneEmergency:
		return "emergency"
	case pressure >= zoneMixed:
		return "mixed"
	case pressure >= zoneMerge:
		return "merge"
	case pressure >= zoneWatch:
		return "watch"
	default:
		return "monitor"
	}
}

// AdmitRequest is the payload for a manual admission through the API
type AdmitRequest struct {
	Label      string  `json:"label"`
	SrcID      string  `json:"srcId"`
	DstID      string  `json:"dstId"`
	Confidence float32 `json:"confidence"`
}

// RejectRequest carries the operator's reason for rejecting
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RestoreRequest names the pruned type to bring back
type RestoreRequest struct {
	Type string `json:"type"`
}

// UnmergeRequest names the merged-away source type to split out again
type UnmergeRequest struct {
	Source string `json:"source"`
}

// PreferenceRequest adds a learned decision rule
type PreferenceRequest struct {
	Rule string `json:"rule"`
}
