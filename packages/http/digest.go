package http

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// DigestCredentials holds the username and password for digest auth;
// the remaining parameters come from the server challenge.
type DigestCredentials struct {
	Username string
	Password string
}

// DigestAuth carries everything needed to answer a digest challenge
// (RFC 7616 with the MD5 algorithm).
type DigestAuth struct {
	Username string
	Password string
	Realm    string
	Nonce    string
	URI      string
	Qop      string
	Nc       string
	Cnonce   string
	Opaque   string
	Method   string
}

// ParseWWWAuthenticate splits a digest challenge header into its
// key/value parameters.
func ParseWWWAuthenticate(header string) map[string]string {
	result := make(map[string]string)
	header = strings.TrimPrefix(header, "Digest ")
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if idx := strings.Index(part, "="); idx != -1 {
			key := strings.TrimSpace(part[:idx])
			value := strings.Trim(strings.TrimSpace(part[idx+1:]), `"`)
			result[key] = value
		}
	}
	return result
}

func (d *DigestAuth) response() string {
	ha1 := md5Hex(fmt.Sprintf("%s:%s:%s", d.Username, d.Realm, d.Password))
	ha2 := md5Hex(fmt.Sprintf("%s:%s", d.Method, d.URI))
	if d.Qop == "auth" || d.Qop == "auth-int" {
		return md5Hex(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, d.Nonce, d.Nc, d.Cnonce, d.Qop, ha2))
	}
	return md5Hex(fmt.Sprintf("%s:%s:%s", ha1, d.Nonce, ha2))
}

// AuthorizationHeader renders the Authorization header answering the
// challenge.
func (d *DigestAuth) AuthorizationHeader() string {
	parts := []string{
		fmt.Sprintf(`username=%q`, d.Username),
		fmt.Sprintf(`realm=%q`, d.Realm),
		fmt.Sprintf(`nonce=%q`, d.Nonce),
		fmt.Sprintf(`uri=%q`, d.URI),
		fmt.Sprintf(`response=%q`, d.response()),
	}
	if d.Qop != "" {
		parts = append(parts,
			fmt.Sprintf(`qop=%s`, d.Qop),
			fmt.Sprintf(`nc=%s`, d.Nc),
			fmt.Sprintf(`cnonce=%q`, d.Cnonce))
	}
	if d.Opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque=%q`, d.Opaque))
	}
	return "Digest " + strings.Join(parts, ", ")
}

func GenerateCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func md5Hex(s string) string {
	h := md5.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
