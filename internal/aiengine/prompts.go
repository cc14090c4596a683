package aiengine

import (
	"fmt"
	"sort"
	"strings"
)

// permittedFunctions is the closed set a navigation-plan prompt must
// enumerate, matching the allowlist the trust boundary enforces.
var permittedFunctions = []string{
	"click", "scroll", "fill_form", "hover", "press_key", "wait_for", "navigate_url",
}

func classifyPagePrompt(domHTML string) string {
	return fmt.Sprintf(`Classify the current state of this web page.

HTML:
%s

Respond with JSON matching exactly:
{
  "page_state": one of CONTENT_VISIBLE, GATED, BLOCKED, ERROR, LOADING, REDIRECT, EMPTY,
  "confidence": number between 0 and 1,
  "content_regions_detected": integer count of distinct content regions you can identify,
  "obstruction_indicators": array of short strings naming anything blocking content (empty if none)
}`, domHTML)
}

func navigationPlanPrompt(domHTML, obstructionType string, targetSchema map[string]string, priorAttempts []PriorAttempt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The page is obstructed (%s). Propose a plan of browser actions to clear the obstruction and reach the target content.\n\n", obstructionType)
	fmt.Fprintf(&b, "Permitted functions (use no others): %s\n\n", strings.Join(permittedFunctions, ", "))
	fmt.Fprintf(&b, "Target extraction schema: %s\n\n", formatSchema(targetSchema))

	if len(priorAttempts) > 0 {
		b.WriteString("Prior attempts (do not repeat failed selectors):\n")
		for _, a := range priorAttempts {
			fmt.Fprintf(&b, "- phase=%s action=%s detail=%q outcome=%s", a.Phase, a.Action, a.Detail, a.Outcome)
			if a.Selector != "" {
				fmt.Fprintf(&b, " selector=%q", a.Selector)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "At most %d actions will be accepted; list them in execution order.\n\n", 20)
	b.WriteString("HTML:\n")
	b.WriteString(domHTML)
	b.WriteString(`

Respond with JSON matching exactly:
{
  "actions": [{"function": string, "parameters": object, "expected_outcome": string, "fallback": string or null}],
  "estimated_steps": integer,
  "confidence": number between 0 and 1
}`)
	return b.String()
}

func extractStructuredPrompt(domHTML string, schema map[string]string, sourceURL string) string {
	return fmt.Sprintf(`Extract structured records from this page matching the schema below.
Honour field types strictly: numbers as JSON numbers, dates as ISO-8601 strings,
absent optional fields as null. If the same record appears more than once,
count it once in duplicates_detected rather than repeating it in records.

Source URL: %s

Schema:
%s

HTML:
%s

Respond with JSON matching exactly:
{
  "records": [object matching the schema],
  "completeness_score": number between 0 and 1,
  "duplicates_detected": integer
}`, sourceURL, formatSchema(schema), domHTML)
}

func repairExtractionPrompt(partial []map[string]any, schema map[string]string, domHTML string) string {
	diagnosis := diagnoseExtraction(partial, schema)
	return fmt.Sprintf(`A prior extraction attempt was incomplete. Diagnosis:
%s

Partial records so far: %v

Schema:
%s

HTML:
%s

Repair the extraction: fill in missing fields, correct low-confidence values,
and return the complete record set.

Respond with JSON matching exactly:
{
  "records": [object matching the schema],
  "completeness_score": number between 0 and 1,
  "duplicates_detected": integer
}`, diagnosis, partial, formatSchema(schema), domHTML)
}

// diagnoseExtraction names the issues the repair prompt should address:
// an empty record set, fields missing from individual records, and
// fields whose carried confidence is below 0.5.
func diagnoseExtraction(partial []map[string]any, schema map[string]string) string {
	if len(partial) == 0 {
		return "- no records were extracted"
	}

	var issues []string
	fieldNames := make([]string, 0, len(schema))
	for name := range schema {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	for i, rec := range partial {
		for _, name := range fieldNames {
			v, present := rec[name]
			if !present || v == nil {
				issues = append(issues, fmt.Sprintf("- record %d is missing field %q", i, name))
				continue
			}
			if fv, ok := v.(map[string]any); ok {
				if conf, ok := fv["confidence"].(float64); ok && conf < 0.5 {
					issues = append(issues, fmt.Sprintf("- record %d field %q has low confidence (%.2f)", i, name, conf))
				}
			}
		}
	}

	if len(issues) == 0 {
		return "- records look complete; re-verify against the DOM"
	}
	return strings.Join(issues, "\n")
}

func formatSchema(schema map[string]string) string {
	if len(schema) == 0 {
		return "(none specified)"
	}
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, schema[name])
	}
	return b.String()
}
