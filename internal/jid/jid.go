// Package jid canonicalizes gateway identifiers and decides whether two of
// them denote the same contact.
package jid

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// Brazilian mobile numbers are reported both with and without the ninth
// digit that was inserted after the area code.
const (
	mobileCountryPrefix = "55"
	mobileLongLength    = 13
	mobileNinthIndex    = 4
)

// Mapping resolves an identifier through learned alias mappings.
type Mapping interface {
	Lookup(id string) (string, bool)
}

// MapMapping is a plain map implementation of Mapping.
type MapMapping map[string]string

// Lookup returns the mapped identifier for id, trying the device-free form too.
func (m MapMapping) Lookup(id string) (string, bool) {
	if m == nil || id == "" {
		return "", false
	}
	if v, ok := m[id]; ok && v != "" {
		return v, true
	}
	if bare := Bare(id); bare != id {
		if v, ok := m[bare]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Split returns the local part (without device suffix) and the server of id.
// Identifiers without a server return an empty server.
func Split(id string) (local, server string) {
	id = strings.TrimSpace(id)
	if at := strings.LastIndexByte(id, '@'); at >= 0 {
		local, server = id[:at], strings.ToLower(id[at+1:])
	} else {
		local = id
	}
	if colon := strings.IndexByte(local, ':'); colon >= 0 {
		local = local[:colon]
	}
	return local, server
}

// Bare strips the device suffix from id, keeping the server.
func Bare(id string) string {
	local, server := Split(id)
	if server == "" {
		return local
	}
	return local + "@" + server
}

// Normalize returns the comparable token for id.
func Normalize(id string) string {
	local, _ := Split(id)
	if len(local) == mobileLongLength &&
		strings.HasPrefix(local, mobileCountryPrefix) &&
		local[mobileNinthIndex] == '9' &&
		isDigits(local) {
		return local[:mobileNinthIndex] + local[mobileNinthIndex+1:]
	}
	return local
}

// Equivalent reports whether a and b denote the same contact, either directly
// or after substituting one side through m. A nil m disables substitution.
func Equivalent(a, b string, m Mapping) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	na, nb := Normalize(a), Normalize(b)
	if na != "" && na == nb {
		return true
	}
	if m == nil {
		return false
	}
	as := []string{na}
	if v, ok := m.Lookup(a); ok {
		as = append(as, Normalize(v))
	}
	bs := []string{nb}
	if v, ok := m.Lookup(b); ok {
		bs = append(bs, Normalize(v))
	}
	for _, x := range as {
		for _, y := range bs {
			if x != "" && x == y {
				return true
			}
		}
	}
	return false
}

// IsAlias reports whether id is addressed in the anonymized alias space.
func IsAlias(id string) bool {
	_, server := Split(id)
	return server == types.HiddenUserServer || server == types.HostedLIDServer
}

// IsPhone reports whether id is phone-addressed.
func IsPhone(id string) bool {
	local, server := Split(id)
	if server != types.DefaultUserServer && server != types.LegacyUserServer {
		return false
	}
	return isDigits(local)
}

// IsGroup reports whether id addresses a group.
func IsGroup(id string) bool {
	_, server := Split(id)
	return server == types.GroupServer
}

// IsPseudo reports whether id is a broadcast list, newsletter or status feed
// rather than a conversation with a person or group.
func IsPseudo(id string) bool {
	_, server := Split(id)
	return server == types.BroadcastServer || server == types.NewsletterServer
}

// PhoneJID builds a phone-addressed identifier from a string of digits.
func PhoneJID(digits string) string {
	return types.NewJID(digits, types.DefaultUserServer).String()
}

// AsPhone coerces value into a phone-addressed identifier. Bare digit strings
// of plausible phone length are accepted; alias or group identifiers are not.
func AsPhone(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if IsPhone(value) {
		local, _ := Split(value)
		return PhoneJID(local), true
	}
	if strings.ContainsRune(value, '@') {
		return "", false
	}
	digits := strings.TrimPrefix(value, "+")
	if len(digits) >= 10 && len(digits) <= 15 && isDigits(digits) {
		return PhoneJID(digits), true
	}
	return "", false
}

// Digits returns the local part of id when it is made of digits only.
func Digits(id string) string {
	local, _ := Split(id)
	if isDigits(local) {
		return local
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
