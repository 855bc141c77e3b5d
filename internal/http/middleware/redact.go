package middleware

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Scrub patterns. UUIDs are replaced before phone numbers so the loose phone
// pattern never eats the digit groups of an ID.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

const redacted = "[REDACTED]"

// RedactOptions configures what the access log scrubs.
type RedactOptions struct {
	// MaskHeaders are extra header names whose values are fully masked.
	// Authorization, Cookie and Set-Cookie are always masked.
	MaskHeaders []string
	// MaskParams are extra query parameter names whose values are fully
	// masked. Employee name and contact parameters are always masked.
	MaskParams []string
}

type redactor struct {
	headers map[string]struct{}
	params  map[string]struct{}
}

func newRedactor(opts RedactOptions) *redactor {
	r := &redactor{
		headers: lowerSet([]string{"authorization", "cookie", "set-cookie"}, opts.MaskHeaders),
		params:  lowerSet([]string{"full_name", "name", "email", "phone", "token"}, opts.MaskParams),
	}
	return r
}

func lowerSet(base, extra []string) map[string]struct{} {
	m := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range append(base, extra...) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			m[s] = struct{}{}
		}
	}
	return m
}

// text scrubs identifiers that look like IDs, emails or phone numbers.
func (r *redactor) text(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// query masks sensitive parameters by name and scrubs the rest by pattern.
// Parameter order is normalized so log lines are stable.
func (r *redactor) query(raw string) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return r.text(raw)
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			if _, ok := r.params[strings.ToLower(k)]; ok {
				b.WriteString(redacted)
			} else {
				b.WriteString(r.text(v))
			}
		}
	}
	return b.String()
}

func (r *redactor) header(name string, values []string) string {
	if _, ok := r.headers[strings.ToLower(name)]; ok {
		return redacted
	}
	return r.text(strings.Join(values, ", "))
}
