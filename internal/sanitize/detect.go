package sanitize

import (
	"regexp"

	"github.com/agentx-labs/confshare/internal/jsontree"
)

// sensitivePatterns match field names whose string values are credentials.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i).*_KEY$`),
	regexp.MustCompile(`(?i).*_TOKEN$`),
	regexp.MustCompile(`(?i).*_SECRET$`),
	regexp.MustCompile(`(?i).*_PASSWORD$`),
	regexp.MustCompile(`(?i).*_CREDENTIAL$`),
	regexp.MustCompile(`(?i).*_APIKEY$`),
	regexp.MustCompile(`(?i).*_APITOKEN$`),
	regexp.MustCompile(`(?i)^apikey$`),
	regexp.MustCompile(`(?i)^apitoken$`),
	regexp.MustCompile(`(?i)^api_key$`),
	regexp.MustCompile(`(?i)^api_token$`),
	regexp.MustCompile(`(?i)^secret$`),
	regexp.MustCompile(`(?i)^password$`),
	regexp.MustCompile(`(?i)^passwd$`),
	regexp.MustCompile(`(?i)^auth$`),
	regexp.MustCompile(`(?i)^authentication$`),
	regexp.MustCompile(`(?i)^credential$`),
}

// Fields maps sensitive field names to the literal values found for them.
// It only ever lives in memory.
type Fields map[string]string

// IsSensitiveKey reports whether a field name denotes a credential.
func IsSensitiveKey(name string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// Detect walks the tree and returns every string value stored under a
// sensitive key. Array indices are never treated as keys and non-string
// values are never flagged. When a name occurs more than once the last
// value visited wins.
func Detect(v *jsontree.Value) Fields {
	found := Fields{}
	detect(v, found)
	return found
}

func detect(v *jsontree.Value, found Fields) {
	switch v.Kind() {
	case jsontree.Object:
		for _, m := range v.Members() {
			if s, ok := m.Value.Str(); ok && IsSensitiveKey(m.Key) {
				found[m.Key] = s
				continue
			}
			detect(m.Value, found)
		}
	case jsontree.Array:
		for _, item := range v.Items() {
			detect(item, found)
		}
	}
}
