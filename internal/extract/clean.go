package extract

import (
	"regexp"
	"strings"
)

// Boilerplate the report template repeats on the explanation pages; none of
// it belongs in narration.
var removePhrases = []string{
	"Not a substitute for the Expert Radiology radiologist's report",
	"MRI of the Lumbar Spine",
	"Technique: MRI images were taken without using contrast dye.",
	"Comparison: No previous MRI scans are available for comparison.",
	"Findings:",
	"Simplified Patient Explanation",
	"of Radiologist's Report*",
}

var (
	reasonRe    = regexp.MustCompile(`(?i)Reason for MRI:[^\n]*`)
	citationRe  = regexp.MustCompile(`\[\d+\]`)
	multiBlank  = regexp.MustCompile(`\n{3,}`)
	skipLineRes = []*regexp.Regexp{
		regexp.MustCompile(`^Patient ID:`),
		regexp.MustCompile(`^Patient Name:`),
		regexp.MustCompile(`^Date:`),
		regexp.MustCompile(`^Page \d+ of \d+`),
		regexp.MustCompile(`^_+$`),
		regexp.MustCompile(`^\s*$`),
	}
)

// CleanExplanation strips report boilerplate, patient headers and citation
// markers from the raw page text, leaving only the narration script.
func CleanExplanation(text string) string {
	if text == "" {
		return ""
	}

	for _, phrase := range removePhrases {
		text = strings.ReplaceAll(text, phrase, "")
	}
	text = reasonRe.ReplaceAllString(text, "")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		skip := false
		for _, re := range skipLineRes {
			if re.MatchString(strings.TrimSpace(line)) {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, line)
		}
	}

	text = strings.Join(kept, "\n")
	text = multiBlank.ReplaceAllString(text, "\n\n")
	text = citationRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}
