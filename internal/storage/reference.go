// Package storage stores uploaded files in cloud object storage and resolves
// the provider-neutral references persisted in the database into signed URLs.
package storage

import (
	"net/url"
	"regexp"
	"strings"
)

// Scheme identifies an object storage provider inside a reference.
type Scheme string

const (
	SchemeOSS Scheme = "oss"
	SchemeCOS Scheme = "cos"
)

// Reference is a parsed "<scheme>:<bucket>:<key>" string.
type Reference struct {
	Scheme Scheme
	Bucket string
	Key    string
}

func (r Reference) String() string {
	return string(r.Scheme) + ":" + r.Bucket + ":" + r.Key
}

// ParseReference parses s as a storage reference. The key may itself contain
// colons; scheme and bucket may not.
func ParseReference(s string) (Reference, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Reference{}, false
	}
	scheme := Scheme(parts[0])
	if scheme != SchemeOSS && scheme != SchemeCOS {
		return Reference{}, false
	}
	if parts[1] == "" || parts[2] == "" || strings.ContainsAny(parts[1], "/ ") {
		return Reference{}, false
	}
	return Reference{Scheme: scheme, Bucket: parts[1], Key: parts[2]}, true
}

// HasReferencePrefix reports whether s claims to be a reference, well-formed or not.
func HasReferencePrefix(s string) bool {
	return strings.HasPrefix(s, string(SchemeOSS)+":") || strings.HasPrefix(s, string(SchemeCOS)+":")
}

var (
	ossHostPattern = regexp.MustCompile(`^([^.]+)\.oss-`)
	cosHostPattern = regexp.MustCompile(`^([^.]+)\.cos\.`)
)

// IsCOSURL reports whether raw is a Tencent COS object URL.
func IsCOSURL(raw string) bool {
	if !strings.HasPrefix(raw, "http") {
		return false
	}
	return strings.Contains(raw, ".cos.") || strings.Contains(raw, ".myqcloud.com")
}

// IsOSSURL reports whether raw is an Aliyun OSS object URL.
func IsOSSURL(raw string) bool {
	if !strings.HasPrefix(raw, "http") {
		return false
	}
	return strings.Contains(raw, ".oss-") || strings.Contains(raw, ".aliyuncs.com")
}

// ConvertToOSSReference turns an OSS object URL (signed or not) into an
// "oss:bucket:key" reference. References and other URLs are returned unchanged.
func ConvertToOSSReference(raw string) string {
	if strings.HasPrefix(raw, string(SchemeOSS)+":") || !IsOSSURL(raw) {
		return raw
	}
	ref, ok := referenceFromURL(raw, SchemeOSS, ossHostPattern)
	if !ok {
		return raw
	}
	return ref.String()
}

// convertToCOSReference is the COS counterpart of ConvertToOSSReference.
func convertToCOSReference(raw string) (Reference, bool) {
	if !IsCOSURL(raw) {
		return Reference{}, false
	}
	return referenceFromURL(raw, SchemeCOS, cosHostPattern)
}

func referenceFromURL(raw string, scheme Scheme, hostPattern *regexp.Regexp) (Reference, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return Reference{}, false
	}
	m := hostPattern.FindStringSubmatch(u.Hostname())
	if m == nil {
		return Reference{}, false
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return Reference{}, false
	}
	return Reference{Scheme: scheme, Bucket: m[1], Key: key}, true
}

// keyFromURL extracts the object key (URL path without the leading slash).
func keyFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "/")
	return key, key != ""
}
