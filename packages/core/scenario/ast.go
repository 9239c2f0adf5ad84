package scenario

import "strconv"

// File is a parsed .rest file: file-level variables, reusable expect
// blocks, and the scenarios themselves.
type File struct {
	Path      string
	Variables []Variable
	Expects   []*ExpectBlock
	Scenarios []*Scenario
}

// Expect returns the named expect block, or nil.
func (f *File) Expect(name string) *ExpectBlock {
	for _, e := range f.Expects {
		if e.Name == name {
			return e
		}
	}
	return nil
}

type Variable struct {
	Name  string
	Value string
	Line  int
}

// ExpectBlock is a named, reusable set of checks that scenarios pull in
// with "use <name>" inside their then block.
type ExpectBlock struct {
	Name   string
	Checks []*Check
	Line   int
}

type Scenario struct {
	Name         string
	Description  string
	Tags         []string
	Skip         string // skip reason, empty means run
	Only         bool
	TimeoutMs    int
	Retry        int
	RetryDelayMs int
	RetryOn      []int
	Depends      []string
	Given        Given
	Method       string
	URL          string
	Checks       []*Check
	Uses         []string
	Extracts     []*Extract
	Line         int
}

// Given holds everything set up before the request fires.
type Given struct {
	Headers     []Param
	QueryParams []Param
	PathParams  []Param
	Body        string
	BodyIsJSON  bool
	Auth        *Auth
}

type Param struct {
	Key   string
	Value string
	Line  int
}

type Auth struct {
	Scheme AuthScheme
	Params []string
}

type AuthScheme int

const (
	AuthNone AuthScheme = iota
	AuthBasic
	AuthBearer
	AuthAPIKey
	AuthAPIKeyQuery
	AuthDigest
)

func (s AuthScheme) String() string {
	switch s {
	case AuthBasic:
		return "basic"
	case AuthBearer:
		return "bearer"
	case AuthAPIKey:
		return "apikey"
	case AuthAPIKeyQuery:
		return "apikey-query"
	case AuthDigest:
		return "digest"
	default:
		return "none"
	}
}

// Check is a single then-block assertion: subject, operator and, for most
// operators, an expected value.
type Check struct {
	Subject     string
	Op          Op
	Expected    any
	HasExpected bool
	Line        int
}

type Op int

const (
	OpEquals Op = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpExists
	OpNotExists
	OpLength
	OpIncludes
	OpIn
	OpType
	OpSchema
)

func (op Op) String() string {
	switch op {
	case OpEquals:
		return "=="
	case OpNotEquals:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpContains:
		return "contains"
	case OpNotContains:
		return "!contains"
	case OpStartsWith:
		return "startsWith"
	case OpEndsWith:
		return "endsWith"
	case OpMatches:
		return "matches"
	case OpExists:
		return "exists"
	case OpNotExists:
		return "!exists"
	case OpLength:
		return "length"
	case OpIncludes:
		return "includes"
	case OpIn:
		return "in"
	case OpType:
		return "type"
	case OpSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Extract names a value pulled out of the response and made available to
// later scenarios through the resolver.
type Extract struct {
	Name   string
	Source Source
	Path   string
	Line   int
}

type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
	SourceDuration
)

func (s Source) String() string {
	switch s {
	case SourceBody:
		return "body"
	case SourceHeader:
		return "header"
	case SourceStatus:
		return "status"
	case SourceDuration:
		return "duration"
	default:
		return "unknown"
	}
}

type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return e.File + ":" + strconv.Itoa(e.Line) + ": " + e.Message
	}
	return "line " + strconv.Itoa(e.Line) + ": " + e.Message
}
