package model

import "strings"

var (
	incidentLabels   = []string{"incident", "production-incident"}
	productionLabels = []string{"production", "environment:production", "env:production"}
)

// IsProductionIncident reports whether labels carry both an incident-class and a
// production-class label. Matching is case-insensitive.
func IsProductionIncident(labels []string) bool {
	return hasAny(labels, incidentLabels) && hasAny(labels, productionLabels)
}

func hasAny(labels, class []string) bool {
	for _, l := range labels {
		for _, c := range class {
			if strings.EqualFold(l, c) {
				return true
			}
		}
	}
	return false
}
