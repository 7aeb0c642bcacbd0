package evaluator

import (
	"fmt"
	"strings"
)

// systemPersona is the fixed evaluator persona sent with every
// completion request.
const systemPersona = "You are an OKR evaluator in the tradition of Doerr and Grove. " +
	"Give concrete, actionable, brief feedback (at most 6 points, 1200 characters). " +
	"Avoid repetition and vague wording."

// objectivePrompt asks for a strict-JSON SMART critique of an objective.
// The schema here is the contract the validation ladder enforces.
func objectivePrompt(objective string, notes []string) string {
	var b strings.Builder
	b.WriteString("Evaluate the following OKR objective and respond with a single JSON object, no prose outside the JSON.\n\n")
	fmt.Fprintf(&b, "Objective: %q\n", objective)
	fmt.Fprintf(&b, "Automated review notes: %s\n\n", notesOrNone(notes))
	b.WriteString(`Required JSON shape:
{
  "overall_score": <number 1-10, one decimal>,
  "feedback": "<multi-line feedback string>",
  "criteria": {
    "specific":   {"score": <1-10>, "comment": "<string>"},
    "measurable": {"score": <1-10>, "comment": "<string>"},
    "achievable": {"score": <1-10>, "comment": "<string>"},
    "relevant":   {"score": <1-10>, "comment": "<string>"},
    "timebound":  {"score": <1-10>, "comment": "<string>"}
  },
  "suggestions": ["<3 to 4 actionable suggestions>"]
}`)
	return b.String()
}

// keyResultPrompt asks for a short free-text critique; key results carry
// no JSON schema.
func keyResultPrompt(definition, targetValue, targetDate string, notes []string) string {
	var b strings.Builder
	b.WriteString("Evaluate this OKR key result and give 3 to 6 concrete improvements as short bullet points.\n\n")
	fmt.Fprintf(&b, "Key result: %q\n", definition)
	fmt.Fprintf(&b, "Target value: %s\n", targetValue)
	fmt.Fprintf(&b, "Target date: %s\n", targetDate)
	fmt.Fprintf(&b, "Automated review notes: %s\n", notesOrNone(notes))
	return b.String()
}

func notesOrNone(notes []string) string {
	if len(notes) == 0 {
		return "none"
	}
	return strings.Join(notes, " ")
}
