package licensing

// FeatureSet describes the feature entitlements granted by a Pro license.
// Field names are contractual with the browser extension client.
type FeatureSet struct {
	MultiStream     bool `json:"multiStream"`
	DetailedStats   bool `json:"detailedStats"`
	CustomThemes    bool `json:"customThemes"`
	PriorityUpdates bool `json:"priorityUpdates"`
}

// ProFeatures returns the entitlement set for the Pro tier. Every valid
// license currently grants the full set; per-feature gating would happen here.
func ProFeatures() FeatureSet {
	return FeatureSet{
		MultiStream:     true,
		DetailedStats:   true,
		CustomThemes:    true,
		PriorityUpdates: true,
	}
}
