package enrich

import (
	"fmt"
	"strings"
)

const notAvailable = "N/A"

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Format renders r for the operator. Photo bytes never appear in the text,
// only the paths they were written to.
func Format(r Result) string {
	if r.Err != nil {
		return fmt.Sprintf("Enrichment failed: %v", r.Err)
	}
	if r.Profile == nil {
		return "Enrichment failed: empty profile"
	}
	p := r.Profile

	premium := notAvailable
	if p.IsPremium != nil {
		premium = fmt.Sprintf("%t", *p.IsPremium)
	}

	lines := []string{
		fmt.Sprintf("id: %d", p.ID),
		"username: " + orDefault(p.Username, "None"),
		"first_name: " + orDefault(p.FirstName, notAvailable),
		"last_name: " + orDefault(p.LastName, notAvailable),
		"full_name: " + orDefault(p.FullName(), notAvailable),
		"is_premium: " + premium,
		"language_code: " + orDefault(p.LanguageCode, notAvailable),
		"bio: " + orDefault(p.Bio, notAvailable),
	}
	if len(r.PhotoPaths) > 0 {
		lines = append(lines, "Photos downloaded: "+strings.Join(r.PhotoPaths, ", "))
	}
	if r.PhotoErr != nil {
		lines = append(lines, fmt.Sprintf("Photos unavailable: %v", r.PhotoErr))
	}
	if len(r.MediaLog) > 0 {
		lines = append(lines, "Media log: "+strings.Join(r.MediaLog, ", "))
	}
	return strings.Join(lines, "\n")
}

// Render prefixes Format's output with the mode heading.
func Render(r Result) string {
	return r.Mode.Heading() + "\n" + Format(r)
}
