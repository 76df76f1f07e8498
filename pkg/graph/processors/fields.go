package processors

import (
	"fmt"
	"regexp"
	"strings"
)

// Compiled field patterns. Date/time and location are deliberately
// case-sensitive: they key off the capitalized format of the report corpus.
var (
	dateTimePattern     = regexp.MustCompile(`occurred on\s+([A-Za-z]+ \d{1,2},\s*\d{4}),?\s+at\s+(\d{1,2}:\d{2}\s*[APap][Mm])`)
	locationPattern     = regexp.MustCompile(`\bin\s+([A-Z][a-zA-Z\s]+,\s*[A-Z][a-zA-Z\s]+?)(?:,\s*on route|\.|$)`)
	routePattern        = regexp.MustCompile(`(?i)on route\s+(\w+)`)
	roadClassPattern    = regexp.MustCompile(`(?i)road classification is\s+([^.]+)\.`)
	vehicleCountPattern = regexp.MustCompile(`(?i)(\d+)\s+vehicle[s]?\s+involved`)
	lightingPattern     = regexp.MustCompile(`(?i)(?:were\s+)?at\s+(dawn|dusk|dark|daylight|night)`)
	surfacePattern      = regexp.MustCompile(`(?i)(wet|dry|icy|snowy|muddy)\s+road surface`)
	weatherPattern      = regexp.MustCompile(`(?i)(rain|snow|fog|wind|clear|cloudy)\w*`)
	objectPattern       = regexp.MustCompile(`(?i)specifically\s+(?:a\s+)?([A-Za-z\s]+?)(?:\.|,|$)`)
	personPattern       = regexp.MustCompile(`(?i)Person\s+(\d+):\s+([^,]+),\s+(Male|Female),\s+(\d+)(?:,\s+([^.\n]+))?`)
	vehiclePattern      = regexp.MustCompile(`(?i)Vehicle\s*(\d+)\s+was\s+moving\s+([a-zA-Z]+)`)
	vehicleTypePattern  = regexp.MustCompile(`(?i)(non-commercial|commercial|truck|motorcycle|bus)\s+vehicle`)

	fatalPattern          = regexp.MustCompile(`(?i)\d+\s+facilit|fatal|death|killed`)
	injuryPattern         = regexp.MustCompile(`(?i)\d+\s+injur|serious injur`)
	propertyDamagePattern = regexp.MustCompile(`(?i)property damage|no injur`)

	casualtyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s+injur\w+`),
		regexp.MustCompile(`(?i)(\d+)\s+facilit\w+`),
		regexp.MustCompile(`(?i)(\d+)\s+death\w*`),
	}
)

// causePatterns maps known cause names to their keyword patterns. Order
// matters: every matching cause is emitted, in this order.
var causePatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"speeding", regexp.MustCompile(`(?i)exceeding a reasonable safe speed|over.?speed|speeding`)},
	{"drunk driving", regexp.MustCompile(`(?i)influence of alcohol|drunk driving|DUI`)},
	{"drug influence", regexp.MustCompile(`(?i)influence of drugs|under the influence of drug`)},
	{"distracted driving", regexp.MustCompile(`(?i)distracted|using phone|inattention`)},
	{"failure to yield", regexp.MustCompile(`(?i)failure to yield|did not yield`)},
	{"ran red light", regexp.MustCompile(`(?i)ran a? red light|ran the red light`)},
	{"improper lane change", regexp.MustCompile(`(?i)improper lane change|unsafe lane`)},
	{"road defect", regexp.MustCompile(`(?i)road defect|pavement failure|pothole`)},
}

// vehicleBlock is one "VehicleN was moving <dir>" description. Type is only
// ever set on the first vehicle: the corpus states it once per report.
type vehicleBlock struct {
	ID        string
	Direction string
	Type      string
}

// personBlock is one "Person N: role, gender, age[, restraint]" description.
// Restraint is captured for completeness but no triple is built from it.
type personBlock struct {
	ID        string
	Role      string
	Gender    string
	Age       string
	Restraint string
}

// extractDateTime pulls "occurred on March 2, 2022, at 5:00 AM" into
// "March 2, 2022 5:00 AM". Empty when the report phrasing differs.
func extractDateTime(text string) string {
	m := dateTimePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", m[1], m[2])
}

// extractLocation pulls the "in City, County" mention.
func extractLocation(text string) string {
	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractRoute pulls "on route 182" as "Route 182".
func extractRoute(text string) string {
	m := routePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("Route %s", m[1])
}

// extractRoadClass pulls the road classification sentence tail.
func extractRoadClass(text string) string {
	m := roadClassPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractVehicleCount pulls "1 vehicle involved" as "1 vehicle(s)".
func extractVehicleCount(text string) string {
	m := vehicleCountPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s vehicle(s)", m[1])
}

// extractEnvironment collects lighting, road surface and weather conditions,
// in that order, lower-cased.
func extractEnvironment(text string) []string {
	var conditions []string
	if m := lightingPattern.FindStringSubmatch(text); m != nil {
		conditions = append(conditions, strings.ToLower(m[1]))
	}
	if m := surfacePattern.FindStringSubmatch(text); m != nil {
		conditions = append(conditions, fmt.Sprintf("%s road surface", strings.ToLower(m[1])))
	}
	if m := weatherPattern.FindStringSubmatch(text); m != nil {
		conditions = append(conditions, strings.ToLower(m[1]))
	}
	return conditions
}

// extractCauses returns every known cause whose keywords appear in the text.
func extractCauses(text string) []string {
	var found []string
	for _, cp := range causePatterns {
		if cp.pattern.MatchString(text) {
			found = append(found, cp.name)
		}
	}
	return found
}

// extractObjects pulls the fixed object mention, at most one per report.
func extractObjects(text string) []string {
	m := objectPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return []string{strings.TrimSpace(m[1])}
}

// extractPersons pulls every person block. Restraint defaults to "Unknown"
// when the trailing field is absent.
func extractPersons(text string) []personBlock {
	var persons []personBlock
	for _, m := range personPattern.FindAllStringSubmatch(text, -1) {
		restraint := "Unknown"
		if m[5] != "" {
			restraint = strings.TrimSpace(m[5])
		}
		persons = append(persons, personBlock{
			ID:        fmt.Sprintf("Person%s", m[1]),
			Role:      strings.TrimSpace(m[2]),
			Gender:    strings.TrimSpace(m[3]),
			Age:       strings.TrimSpace(m[4]),
			Restraint: restraint,
		})
	}
	return persons
}

// extractVehicles pulls every vehicle movement block; when a vehicle type is
// mentioned it is attached to the first vehicle only.
func extractVehicles(text string) []vehicleBlock {
	var vehicles []vehicleBlock
	for _, m := range vehiclePattern.FindAllStringSubmatch(text, -1) {
		vehicles = append(vehicles, vehicleBlock{
			ID:        fmt.Sprintf("Vehicle%s", m[1]),
			Direction: m[2],
		})
	}
	if m := vehicleTypePattern.FindString(text); m != "" && len(vehicles) > 0 {
		vehicles[0].Type = strings.TrimSpace(m)
	}
	return vehicles
}

// extractSeverity infers severity from casualty keywords, worst first.
func extractSeverity(text string) string {
	switch {
	case fatalPattern.MatchString(text):
		return "Fatal"
	case injuryPattern.MatchString(text):
		return "Injury"
	case propertyDamagePattern.MatchString(text):
		return "Property Damage"
	}
	return ""
}

// extractCasualties collects casualty count mentions ("2 injured").
func extractCasualties(text string) []string {
	var casualties []string
	for _, p := range casualtyPatterns {
		if m := p.FindString(text); m != "" {
			casualties = append(casualties, strings.TrimSpace(m))
		}
	}
	return casualties
}
