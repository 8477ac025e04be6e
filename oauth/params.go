package oauth

import (
	"net/url"
	"sort"
	"strings"
)

// SignatureFields carry the signature itself and are never part of the signed message.
// "signature" is the legacy app-proxy field; Shopify omits it on OAuth callbacks but it
// is dropped whenever present.
var SignatureFields = []string{"hmac", "signature"}

// RequiredCallbackParams must all be present before verification runs.
var RequiredCallbackParams = []string{"shop", "hmac", "code", "state", "timestamp"}

// Param is one name/value pair as received. Value is the decoded query value.
type Param struct {
	Name  string
	Value string
}

// Params keeps receipt order; canonicalisation sorts a copy.
type Params []Param

// ParamsFromValues flattens query values. Multi-valued names become one pair per value,
// in receipt order. Names are visited sorted so the result does not depend on map order.
func ParamsFromValues(values url.Values) Params {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Params, 0, len(values))
	for _, name := range names {
		for _, v := range values[name] {
			out = append(out, Param{Name: name, Value: v})
		}
	}
	return out
}

// Get returns the first value for name.
func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Without returns a copy of p lacking every pair whose name is in names.
func (p Params) Without(names ...string) Params {
	deny := make(map[string]struct{}, len(names))
	for _, name := range names {
		deny[name] = struct{}{}
	}
	out := make(Params, 0, len(p))
	for _, param := range p {
		if _, drop := deny[param.Name]; drop {
			continue
		}
		out = append(out, param)
	}
	return out
}

// CanonicalMessage is the exact byte string Shopify signs: signature fields removed,
// pairs sorted by raw name (byte order, stable for repeated names), rendered name=value
// with the raw value and joined with "&".
func CanonicalMessage(params Params) string {
	signed := params.Without(SignatureFields...)
	sort.SliceStable(signed, func(i, j int) bool {
		return signed[i].Name < signed[j].Name
	})

	var b strings.Builder
	for i, param := range signed {
		if i > 0 {
			b.WriteString(messageJoiner)
		}
		b.WriteString(param.Name)
		b.WriteByte('=')
		b.WriteString(param.Value)
	}
	return b.String()
}

const messageJoiner = "&"

// MissingParams lists required callback parameters that are absent or empty.
func MissingParams(values url.Values) []string {
	var missing []string
	for _, name := range RequiredCallbackParams {
		if strings.TrimSpace(values.Get(name)) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
