// Package probe builds and executes outbound HTTP requests while
// capturing the literal header blocks sent on the wire.
package probe

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Form parameter names accepted at the input boundary.
const (
	paramMethod          = "method"
	paramURL             = "url"
	paramAuth            = "auth"
	paramUsername        = "username"
	paramPassword        = "password"
	paramHeaderKeys      = "header-keys"
	paramHeaderVals      = "header-vals"
	paramFieldKeys       = "param-keys"
	paramFieldVals       = "param-vals"
	paramFollowRedirects = "follow_redirects"
)

// Pair is one ordered name/value pair from the parallel key and value
// arrays supplied at the boundary.
type Pair struct {
	Name  string
	Value string
}

// RequestSpec is a validated, ready-to-send request description.
type RequestSpec struct {
	Method          string
	URL             string
	Headers         []Pair
	Fields          []Pair
	FollowRedirects bool
}

// ValidationError reports unusable boundary input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Build turns raw form parameters into a RequestSpec. The method
// defaults to GET and is upper-cased. Header and field pairs are
// cleaned as units: a pair is dropped when either side is empty, and
// the surviving pairs keep their relative order. Field pairs are only
// materialized for POST. Basic auth becomes an Authorization header,
// overwriting any header pair of the same name.
func Build(params url.Values) (*RequestSpec, error) {
	target := strings.TrimSpace(params.Get(paramURL))
	if target == "" {
		return nil, &ValidationError{Field: "url", Message: "url is required"}
	}

	method := strings.ToUpper(strings.TrimSpace(params.Get(paramMethod)))
	if method == "" {
		method = "GET"
	}

	spec := &RequestSpec{
		Method:          method,
		URL:             target,
		Headers:         cleanPairs(params[paramHeaderKeys], params[paramHeaderVals]),
		FollowRedirects: params.Get(paramFollowRedirects) != "",
	}

	if params.Get(paramAuth) == "basic" {
		username := params.Get(paramUsername)
		password := params.Get(paramPassword)
		encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		spec.setHeader("Authorization", "Basic "+encoded)
	}

	if method == "POST" {
		spec.Fields = cleanPairs(params[paramFieldKeys], params[paramFieldVals])
	}

	return spec, nil
}

// cleanPairs zips the parallel arrays into pairs, dropping any pair
// where the key or the value is empty or absent.
func cleanPairs(keys, vals []string) []Pair {
	var pairs []Pair
	for i, key := range keys {
		var val string
		if i < len(vals) {
			val = vals[i]
		}
		if key == "" || val == "" {
			continue
		}
		pairs = append(pairs, Pair{Name: key, Value: val})
	}
	return pairs
}

// setHeader overwrites the value of an existing header pair, or
// appends a new pair when none matches.
func (s *RequestSpec) setHeader(name, value string) {
	for i := range s.Headers {
		if s.Headers[i].Name == name {
			s.Headers[i].Value = value
			return
		}
	}
	s.Headers = append(s.Headers, Pair{Name: name, Value: value})
}

// FormBody returns the field pairs URL-encoded in order, as they would
// appear in a POST body. Empty for specs without fields.
func (s *RequestSpec) FormBody() string {
	var b strings.Builder
	for i, p := range s.Fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
