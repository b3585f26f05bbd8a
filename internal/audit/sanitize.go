package audit

import (
	"encoding/json"
	"strings"
)

// Keys whose lowercased form contains one of these are credentials.
var secretKeyParts = []string{"password", "passwd", "token", "secret", "apikey", "api_key"}

// Matched exactly; as substrings they would hit ordinary names.
var secretKeys = map[string]struct{}{"otp": {}, "pin": {}, "cvv": {}}

// Keys whose lowercased form contains or starts with one of these carry binary blobs.
var (
	blobKeyParts    = []string{"avatar", "photo", "image", "signature", "attachment", "base64"}
	blobKeyPrefixes = []string{"file", "document"}
)

func sensitiveKey(k string) bool {
	lk := strings.ToLower(k)
	if _, ok := secretKeys[lk]; ok {
		return true
	}
	for _, p := range secretKeyParts {
		if strings.Contains(lk, p) {
			return true
		}
	}
	for _, p := range blobKeyParts {
		if strings.Contains(lk, p) {
			return true
		}
	}
	for _, p := range blobKeyPrefixes {
		if strings.HasPrefix(lk, p) {
			return true
		}
	}
	return false
}

// Sanitize returns a deep copy of v without credential or blob fields.
// Inline data URIs are dropped wherever they appear.
func Sanitize(v map[string]any) map[string]any {
	if v == nil {
		return nil
	}
	out := make(map[string]any, len(v))
	for k, val := range v {
		if sensitiveKey(k) {
			continue
		}
		if c, keep := sanitizeValue(val); keep {
			out[k] = c
		}
	}
	return out
}

func sanitizeValue(v any) (any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return Sanitize(x), true
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if c, keep := sanitizeValue(e); keep {
				out = append(out, c)
			}
		}
		return out, true
	case string:
		if strings.HasPrefix(strings.TrimSpace(x), "data:") {
			return nil, false
		}
		return x, true
	default:
		return v, true
	}
}

type truncated struct {
	Truncated    bool `json:"truncated"`
	OriginalSize int  `json:"originalSize"`
}

// boundJSON serializes v. When the encoding exceeds limit bytes the value is
// replaced by {"truncated":true,"originalSize":N}. A nil v stays nil.
func boundJSON(v any, limit int) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(b) > limit {
		return json.Marshal(truncated{Truncated: true, OriginalSize: len(b)})
	}
	return b, nil
}
