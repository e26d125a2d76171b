package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var reJSONObject = regexp.MustCompile(`\{[\s\S]*\}`)

// DecodeModelJSON parses the free-form text a model returns into a JSON
// object. Models wrap output in markdown fences and emit bogus escape
// sequences often enough that we clean first, then parse, then fall back to
// regex-extracting the first {...} block.
func DecodeModelJSON(raw string) (map[string]any, []byte, error) {
	cleaned := stripFences(raw)

	if m, ok := tryDecode(cleaned); ok {
		return m, []byte(cleaned), nil
	}

	fixed := fixEscapeArtifacts(cleaned)
	if m, ok := tryDecode(fixed); ok {
		return m, []byte(fixed), nil
	}

	match := reJSONObject.FindString(raw)
	if match == "" {
		return nil, nil, ErrNoJSON
	}
	if m, ok := tryDecode(match); ok {
		return m, []byte(match), nil
	}
	fixed = fixEscapeArtifacts(match)
	if m, ok := tryDecode(fixed); ok {
		return m, []byte(fixed), nil
	}
	return nil, nil, ErrNoJSON
}

func tryDecode(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	return m, true
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// fixEscapeArtifacts undoes escape sequences some models sprinkle into
// otherwise-plain JSON (escaped underscores, slashes, stray \n literals).
func fixEscapeArtifacts(s string) string {
	r := strings.NewReplacer(
		`\_`, `_`,
		`\/`, `/`,
		`\n`, "\n",
		`\t`, "\t",
	)
	return r.Replace(s)
}
