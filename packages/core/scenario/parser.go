package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// block keywords that terminate the previous block
const (
	blockNone = iota
	blockGiven
	blockWhen
	blockThen
	blockExtract
)

var methods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// operator keywords in the order they are matched inside a check line
var opWords = map[string]Op{
	"==":         OpEquals,
	"!=":         OpNotEquals,
	">":          OpGreaterThan,
	">=":         OpGreaterOrEqual,
	"<":          OpLessThan,
	"<=":         OpLessOrEqual,
	"contains":   OpContains,
	"!contains":  OpNotContains,
	"startsWith": OpStartsWith,
	"endsWith":   OpEndsWith,
	"matches":    OpMatches,
	"exists":     OpExists,
	"!exists":    OpNotExists,
	"length":     OpLength,
	"includes":   OpIncludes,
	"in":         OpIn,
	"type":       OpType,
	"schema":     OpSchema,
}

type parser struct {
	file  string
	lines []string

	out      *File
	cur      *Scenario
	curBlock int
	expect   *ExpectBlock
	bodyBuf  []string
	inBody   bool
}

// ParseFile reads and parses a .rest scenario file.
func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(content), path)
}

// Parse parses scenario file content. The filename is only used in error
// messages.
func Parse(input, filename string) (*File, error) {
	p := &parser{
		file:  filename,
		lines: strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n"),
		out:   &File{Path: filename},
	}
	return p.run()
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return &ParseError{File: p.file, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) run() (*File, error) {
	for i, raw := range p.lines {
		n := i + 1
		line := strings.TrimSpace(raw)

		// raw body lines pass through untouched until the block ends
		if p.inBody && !p.isBlockBoundary(line) {
			p.bodyBuf = append(p.bodyBuf, raw)
			continue
		}

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "###"):
			p.flushBody()
			p.expect = nil
			name := strings.TrimSpace(strings.TrimPrefix(line, "###"))
			p.cur = &Scenario{Name: name, Line: n}
			p.curBlock = blockNone
			p.out.Scenarios = append(p.out.Scenarios, p.cur)
		case strings.HasPrefix(line, "#"):
			continue
		case p.cur == nil && strings.HasPrefix(line, "@"):
			p.expect = nil
			if err := p.parseVariable(line, n); err != nil {
				return nil, err
			}
		case p.cur == nil && strings.HasPrefix(line, "expect ") && strings.HasSuffix(line, ":"):
			name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "expect "), ":"))
			if name == "" {
				return nil, p.errorf(n, "expect block needs a name")
			}
			p.expect = &ExpectBlock{Name: name, Line: n}
			p.out.Expects = append(p.out.Expects, p.expect)
		case p.expect != nil && p.cur == nil:
			check, err := p.parseCheck(line, n)
			if err != nil {
				return nil, err
			}
			p.expect.Checks = append(p.expect.Checks, check)
		case p.cur == nil:
			return nil, p.errorf(n, "unexpected content outside a scenario: %s", line)
		case strings.HasPrefix(line, "@"):
			if err := p.parseAnnotation(line, n); err != nil {
				return nil, err
			}
		case line == "given:":
			p.flushBody()
			p.curBlock = blockGiven
		case line == "when:":
			p.flushBody()
			p.curBlock = blockWhen
		case line == "then:":
			p.flushBody()
			p.curBlock = blockThen
		case line == "extract:":
			p.flushBody()
			p.curBlock = blockExtract
		default:
			if err := p.parseBlockLine(line, n); err != nil {
				return nil, err
			}
		}
	}
	p.flushBody()

	for _, s := range p.out.Scenarios {
		if s.Method == "" {
			return nil, p.errorf(s.Line, "scenario %q has no when block", s.Name)
		}
	}
	return p.out, nil
}

func (p *parser) isBlockBoundary(line string) bool {
	switch line {
	case "given:", "when:", "then:", "extract:":
		return true
	}
	return strings.HasPrefix(line, "###")
}

func (p *parser) flushBody() {
	if !p.inBody {
		return
	}
	p.inBody = false
	body := strings.TrimRight(strings.Join(p.bodyBuf, "\n"), "\n")
	body = strings.TrimLeft(body, "\n")
	p.bodyBuf = nil
	p.cur.Given.Body = dedent(body)
	trimmed := strings.TrimSpace(p.cur.Given.Body)
	p.cur.Given.BodyIsJSON = strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// dedent strips the common leading whitespace of all non-empty lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	margin := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := len(l) - len(strings.TrimLeft(l, " \t"))
		if margin == -1 || indent < margin {
			margin = indent
		}
	}
	if margin <= 0 {
		return s
	}
	for i, l := range lines {
		if len(l) >= margin {
			lines[i] = l[margin:]
		}
	}
	return strings.Join(lines, "\n")
}

func (p *parser) parseVariable(line string, n int) error {
	rest := strings.TrimPrefix(line, "@")
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return p.errorf(n, "file variable must look like @name = value")
	}
	name := strings.TrimSpace(rest[:eq])
	value := strings.TrimSpace(rest[eq+1:])
	if name == "" {
		return p.errorf(n, "file variable needs a name")
	}
	p.out.Variables = append(p.out.Variables, Variable{Name: name, Value: value, Line: n})
	return nil
}

func (p *parser) parseAnnotation(line string, n int) error {
	rest := strings.TrimPrefix(line, "@")
	key := rest
	value := ""
	if idx := strings.IndexAny(rest, " \t"); idx >= 0 {
		key = rest[:idx]
		value = strings.TrimSpace(rest[idx+1:])
	}

	switch strings.ToLower(key) {
	case "description":
		p.cur.Description = value
	case "tags":
		for _, t := range strings.Split(value, ",") {
			if t = strings.TrimSpace(t); t != "" {
				p.cur.Tags = append(p.cur.Tags, t)
			}
		}
	case "skip":
		p.cur.Skip = value
		if p.cur.Skip == "" {
			p.cur.Skip = "skipped"
		}
	case "only":
		p.cur.Only = true
	case "timeout":
		v, err := strconv.Atoi(value)
		if err != nil {
			return p.errorf(n, "@timeout wants milliseconds, got %q", value)
		}
		p.cur.TimeoutMs = v
	case "retry":
		v, err := strconv.Atoi(value)
		if err != nil {
			return p.errorf(n, "@retry wants a count, got %q", value)
		}
		p.cur.Retry = v
	case "retry-delay":
		v, err := strconv.Atoi(value)
		if err != nil {
			return p.errorf(n, "@retry-delay wants milliseconds, got %q", value)
		}
		p.cur.RetryDelayMs = v
	case "retry-on":
		for _, s := range strings.Split(value, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return p.errorf(n, "@retry-on wants status codes, got %q", s)
			}
			p.cur.RetryOn = append(p.cur.RetryOn, v)
		}
	case "depends":
		for _, d := range strings.Split(value, ",") {
			if d = strings.TrimSpace(d); d != "" {
				p.cur.Depends = append(p.cur.Depends, d)
			}
		}
	default:
		return p.errorf(n, "unknown annotation @%s", key)
	}
	return nil
}

func (p *parser) parseBlockLine(line string, n int) error {
	switch p.curBlock {
	case blockGiven:
		return p.parseGivenLine(line, n)
	case blockWhen:
		return p.parseWhenLine(line, n)
	case blockThen:
		if strings.HasPrefix(line, "use ") {
			name := strings.TrimSpace(strings.TrimPrefix(line, "use "))
			p.cur.Uses = append(p.cur.Uses, name)
			return nil
		}
		check, err := p.parseCheck(line, n)
		if err != nil {
			return err
		}
		p.cur.Checks = append(p.cur.Checks, check)
		return nil
	case blockExtract:
		return p.parseExtractLine(line, n)
	default:
		return p.errorf(n, "unexpected line outside a block: %s", line)
	}
}

func (p *parser) parseGivenLine(line string, n int) error {
	word, rest := splitWord(line)
	switch word {
	case "header":
		colon := strings.Index(rest, ":")
		if colon < 0 {
			return p.errorf(n, "header wants 'Name: value', got %q", rest)
		}
		p.cur.Given.Headers = append(p.cur.Given.Headers, Param{
			Key:   strings.TrimSpace(rest[:colon]),
			Value: strings.TrimSpace(rest[colon+1:]),
			Line:  n,
		})
	case "query":
		k, v, err := splitAssign(rest)
		if err != nil {
			return p.errorf(n, "query wants 'name = value', got %q", rest)
		}
		p.cur.Given.QueryParams = append(p.cur.Given.QueryParams, Param{Key: k, Value: v, Line: n})
	case "path":
		k, v, err := splitAssign(rest)
		if err != nil {
			return p.errorf(n, "path wants 'name = value', got %q", rest)
		}
		p.cur.Given.PathParams = append(p.cur.Given.PathParams, Param{Key: k, Value: v, Line: n})
	case "auth":
		auth, err := parseAuth(rest)
		if err != nil {
			return p.errorf(n, "%v", err)
		}
		p.cur.Given.Auth = auth
	case "body:", "body":
		if rest != "" {
			p.cur.Given.Body = rest
			trimmed := strings.TrimSpace(rest)
			p.cur.Given.BodyIsJSON = strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
			return nil
		}
		p.inBody = true
		p.bodyBuf = nil
	default:
		return p.errorf(n, "unknown given directive %q", word)
	}
	return nil
}

func (p *parser) parseWhenLine(line string, n int) error {
	if p.cur.Method != "" {
		return p.errorf(n, "scenario %q already has a request line", p.cur.Name)
	}
	method, url := splitWord(line)
	method = strings.ToUpper(method)
	if !methods[method] {
		return p.errorf(n, "unknown HTTP method %q", method)
	}
	if url == "" {
		return p.errorf(n, "request line needs a URL")
	}
	p.cur.Method = method
	p.cur.URL = url
	return nil
}

func (p *parser) parseExtractLine(line string, n int) error {
	name, source, err := splitAssignFull(line)
	if err != nil {
		return p.errorf(n, "extract wants 'name = source', got %q", line)
	}
	ex := &Extract{Name: name, Line: n}
	switch {
	case source == "status":
		ex.Source = SourceStatus
	case source == "duration":
		ex.Source = SourceDuration
	case strings.HasPrefix(source, "header "):
		ex.Source = SourceHeader
		ex.Path = strings.TrimSpace(strings.TrimPrefix(source, "header "))
	case source == "body":
		ex.Source = SourceBody
	case strings.HasPrefix(source, "body."):
		ex.Source = SourceBody
		ex.Path = strings.TrimPrefix(source, "body.")
	default:
		return p.errorf(n, "unknown extract source %q", source)
	}
	p.cur.Extracts = append(p.cur.Extracts, ex)
	return nil
}

func (p *parser) parseCheck(line string, n int) (*Check, error) {
	fields := strings.Fields(line)
	opIdx := -1
	var op Op
	for i, f := range fields {
		if i == 0 {
			continue // the subject always comes first
		}
		if o, ok := opWords[f]; ok {
			op, opIdx = o, i
			break
		}
	}
	if opIdx < 0 {
		return nil, p.errorf(n, "no operator in check: %s", line)
	}

	subject := strings.Join(fields[:opIdx], " ")
	check := &Check{Subject: subject, Op: op, Line: n}

	rest := strings.Join(fields[opIdx+1:], " ")
	if op == OpExists || op == OpNotExists {
		if rest != "" {
			return nil, p.errorf(n, "%s takes no value", op)
		}
		return check, nil
	}
	if rest == "" {
		return nil, p.errorf(n, "%s needs a value", op)
	}
	check.Expected = parseLiteral(rest, op)
	check.HasExpected = true
	return check, nil
}

// parseLiteral interprets an expected value: quoted strings, JSON arrays,
// numbers, booleans and null, with a bare-string fallback. Regex patterns
// for matches stay raw.
func parseLiteral(s string, op Op) any {
	s = strings.TrimSpace(s)
	if op == OpMatches || op == OpSchema {
		return s
	}
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	if strings.HasPrefix(s, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return arr
		}
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func parseAuth(rest string) (*Auth, error) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, errAuth("auth needs a scheme")
	}
	scheme, params := fields[0], fields[1:]
	switch scheme {
	case "basic":
		if len(params) != 2 {
			return nil, errAuth("auth basic wants <user> <password>")
		}
		return &Auth{Scheme: AuthBasic, Params: params}, nil
	case "bearer":
		if len(params) != 1 {
			return nil, errAuth("auth bearer wants <token>")
		}
		return &Auth{Scheme: AuthBearer, Params: params}, nil
	case "apikey":
		if len(params) != 2 {
			return nil, errAuth("auth apikey wants <header> <value>")
		}
		return &Auth{Scheme: AuthAPIKey, Params: params}, nil
	case "apikey-query":
		if len(params) != 2 {
			return nil, errAuth("auth apikey-query wants <name> <value>")
		}
		return &Auth{Scheme: AuthAPIKeyQuery, Params: params}, nil
	case "digest":
		if len(params) != 2 {
			return nil, errAuth("auth digest wants <user> <password>")
		}
		return &Auth{Scheme: AuthDigest, Params: params}, nil
	default:
		return nil, errAuth("unknown auth scheme " + scheme)
	}
}

type authError string

func (e authError) Error() string { return string(e) }

func errAuth(msg string) error { return authError(msg) }

func splitWord(s string) (string, string) {
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}

func splitAssign(s string) (string, string, error) {
	return splitAssignFull(s)
}

func splitAssignFull(s string) (string, string, error) {
	eq := strings.Index(s, "=")
	if eq < 0 {
		return "", "", errAuth("missing '='")
	}
	k := strings.TrimSpace(s[:eq])
	v := strings.TrimSpace(s[eq+1:])
	if k == "" {
		return "", "", errAuth("missing name")
	}
	return k, v, nil
}
