package codegen

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// goKeywords holds the Go keywords. Predeclared identifiers such as "error"
// are left out since they can be shadowed.
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// escapeKeyword appends "_" to names that match a Go keyword. The match is
// case-insensitive so PascalCase names like "Type" are escaped as well.
func escapeKeyword(name string) string {
	if goKeywords[strings.ToLower(name)] {
		return name + "_"
	}
	return name
}

// splitWords breaks s into words at non-alphanumeric runes, at lower-to-upper
// transitions and at the end of an upper-case run followed by a lower-case
// rune ("HTTPServer" is "HTTP", "Server"). Digits stay with the preceding word.
func splitWords(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 && unicode.IsUpper(r) {
			prev := cur[len(cur)-1]
			switch {
			case unicode.IsLower(prev), unicode.IsDigit(prev):
				flush()
			case unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// pascalCase title-cases every word of s and joins them.
func pascalCase(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	for _, w := range splitWords(s) {
		b.WriteString(caser.String(w))
	}
	return b.String()
}

// snakeCase lower-cases every word of s and joins them with "_".
func snakeCase(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// identifier derives an exported Go identifier from s. fallback is used when
// s has no letters or digits. Names whose first rune has no upper case form,
// such as digits or CJK letters, get an "X" prefix.
func identifier(s, fallback string) string {
	name := pascalCase(s)
	if name == "" {
		return fallback
	}
	if r := []rune(name)[0]; !unicode.IsUpper(r) {
		name = "X" + name
	}
	return escapeKeyword(name)
}

// TypeName returns the Go type name for a schema or operation name.
func TypeName(s string) string { return identifier(s, "Type") }

// FieldName returns the Go field name for a property or parameter name.
func FieldName(s string) string { return identifier(s, "Field") }

// runtimeNames are declared by the runtime files of the generated root
// package. Schema types deriving one of them get a "_" suffix.
var runtimeNames = map[string]bool{
	"Client": true, "Do": true, "ErrStatus": true, "Error": true, "NewClient": true,
	"NoBody": true, "NoContent": true, "NoQuery": true, "Request": true, "StaticClient": true,
}

// schemaTypeName is TypeName kept clear of the runtime declarations.
func schemaTypeName(s string) string { return avoidRuntime(TypeName(s)) }

// avoidRuntime appends "_" to package-level names the runtime declares.
func avoidRuntime(name string) string {
	if runtimeNames[name] {
		return name + "_"
	}
	return name
}

// uniqueNames hands out identifiers that are unique within one scope by
// appending 2, 3, ... to repeated names.
type uniqueNames map[string]bool

func newUniqueNames(reserved ...string) uniqueNames {
	u := uniqueNames{}
	for _, r := range reserved {
		u[r] = true
	}
	return u
}

func (u uniqueNames) take(name string) string {
	if !u[name] {
		u[name] = true
		return name
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if !u[candidate] {
			u[candidate] = true
			return candidate
		}
	}
}

var knownOS = map[string]bool{
	"aix": true, "android": true, "darwin": true, "dragonfly": true, "freebsd": true,
	"hurd": true, "illumos": true, "ios": true, "js": true, "linux": true, "nacl": true,
	"netbsd": true, "openbsd": true, "plan9": true, "solaris": true, "wasip1": true,
	"windows": true, "zos": true,
}

var knownArch = map[string]bool{
	"386": true, "amd64": true, "arm": true, "arm64": true, "loong64": true,
	"mips": true, "mipsle": true, "mips64": true, "mips64le": true, "ppc64": true,
	"ppc64le": true, "riscv64": true, "s390x": true, "wasm": true,
}

// aggregatorStem is the file stem of the methods package index.
const aggregatorStem = "methods"

// fileStem derives an operation file stem the go tool will not treat
// specially: test files, build-constrained files and the aggregator get an
// "_op" suffix.
func fileStem(operationID string) string {
	stem := snakeCase(operationID)
	if stem == "" {
		stem = "operation"
	}
	parts := strings.Split(stem, "_")
	last := parts[len(parts)-1]
	special := stem == aggregatorStem
	if len(parts) > 1 && (last == "test" || knownOS[last] || knownArch[last]) {
		special = true
	}
	if special {
		stem += "_op"
	}
	return stem
}
