package prefs

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	prefsLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
		{Name: "Number", Pattern: `-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?`},
		{Name: "Keyword", Pattern: `true|false|null`},
		{Name: "Punct", Pattern: `[{}:,]`},
	})

	fileParser = participle.MustBuild[File](
		participle.Lexer(prefsLexer),
		participle.Elide("Whitespace"),
	)
)

// File 是解析后的偏好文件：一个只含标量值的扁平 JSON 对象。
type File struct {
	Entries []*Entry `parser:"'{' ( @@ ( ',' @@ )* )? '}'"`
}

// Entry is one `"key": value` member.
type Entry struct {
	Pos   lexer.Position `parser:""`
	Key   StringLiteral  `parser:"@String ':'"`
	Value Value          `parser:"@@"`
}

// Value keeps the raw scalar; typing happens per key.
type Value struct {
	Str    *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Bool   *string        `parser:"| @('true' | 'false')"`
	Null   bool           `parser:"| @'null'"`
}

// IsString reports whether the value was written as a JSON string.
func (v Value) IsString() bool { return v.Str != nil }

// Text returns the value as written; strings are unquoted, null is empty.
func (v Value) Text() string {
	switch {
	case v.Str != nil:
		return string(*v.Str)
	case v.Number != nil:
		return *v.Number
	case v.Bool != nil:
		return *v.Bool
	}
	return ""
}

// StringLiteral 在捕获时按 JSON 规则反转义。
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	var v string
	if err := json.Unmarshal([]byte(values[0]), &v); err != nil {
		return fmt.Errorf("invalid string %s: %w", values[0], err)
	}
	*s = StringLiteral(v)
	return nil
}

// Parse reads a preferences file.
func Parse(r io.Reader) (*File, error) {
	return fileParser.Parse("", r)
}

// ParseString parses preferences from a string.
func ParseString(input string) (*File, error) {
	return fileParser.ParseString("", input)
}

// Lookup returns the last value assigned to key.
func (f *File) Lookup(key string) (Value, bool) {
	var (
		v  Value
		ok bool
	)
	for _, e := range f.Entries {
		if string(e.Key) == key {
			v, ok = e.Value, true
		}
	}
	return v, ok
}
