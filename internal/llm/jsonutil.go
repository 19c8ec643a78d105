package llm

import (
	"regexp"
	"strings"
)

var (
	// ```json { ... } ```
	fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	bareObject   = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON returns the JSON object in a model response, unwrapping a
// markdown fence if the model added one. It returns "" when there is none.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "{") && strings.HasSuffix(content, "}") {
		return content
	}
	if m := fencedObject.FindStringSubmatch(content); len(m) > 1 {
		return m[1]
	}
	return bareObject.FindString(content)
}
