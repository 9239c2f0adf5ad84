// Package builtin implements the {{fn(...)}} functions available in
// scenario files.
package builtin

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"math/rand"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Func func(args []string) any

type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.funcs["now"] = func(_ []string) any { return time.Now().UTC().Format(time.RFC3339) }
	r.funcs["timestamp"] = func(_ []string) any { return time.Now().Unix() }
	r.funcs["timestampMs"] = func(_ []string) any { return time.Now().UnixMilli() }
	r.funcs["uuid"] = func(_ []string) any { return uuid.New().String() }
	r.funcs["random"] = fnRandom
	r.funcs["randomString"] = fnRandomString
	r.funcs["base64"] = fnBase64
	r.funcs["base64Decode"] = fnBase64Decode
	r.funcs["sha256"] = fnSHA256
	r.funcs["urlEncode"] = fnURLEncode
	r.funcs["urlDecode"] = fnURLDecode
	r.funcs["date"] = fnDate
	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

var callPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Call evaluates an expression of the form "name(arg, arg)". The second
// return value reports whether the expression named a known function.
func (r *Registry) Call(expr string) (any, bool) {
	m := callPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return nil, false
	}
	fn, ok := r.funcs[m[1]]
	if !ok {
		return nil, false
	}
	return fn(splitArgs(m[2])), true
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && ch == ',':
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	args = append(args, strings.TrimSpace(cur.String()))
	return args
}

func fnRandom(args []string) any {
	lo, hi := 0, 100
	if len(args) >= 2 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			lo = v
		}
		if v, err := strconv.Atoi(args[1]); err == nil {
			hi = v
		}
	}
	if hi <= lo {
		return lo
	}
	return rand.Intn(hi-lo+1) + lo
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func fnRandomString(args []string) any {
	length := 16
	if len(args) >= 1 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			length = v
		}
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	return string(b)
}

func fnBase64(args []string) any {
	if len(args) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(args[0]))
}

func fnBase64Decode(args []string) any {
	if len(args) == 0 {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(args[0])
	if err != nil {
		return ""
	}
	return string(decoded)
}

func fnSHA256(args []string) any {
	if len(args) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(args[0]))
	return hex.EncodeToString(sum[:])
}

func fnURLEncode(args []string) any {
	if len(args) == 0 {
		return ""
	}
	return url.QueryEscape(args[0])
}

func fnURLDecode(args []string) any {
	if len(args) == 0 {
		return ""
	}
	decoded, err := url.QueryUnescape(args[0])
	if err != nil {
		return ""
	}
	return decoded
}

// date formats the current time with a Go layout, defaulting to 2006-01-02.
func fnDate(args []string) any {
	layout := "2006-01-02"
	if len(args) >= 1 && args[0] != "" {
		layout = args[0]
	}
	return time.Now().UTC().Format(layout)
}
