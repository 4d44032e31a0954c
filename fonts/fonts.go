// Package fonts resolves a family name and style to TrueType data.
//
// The Go fonts from golang.org/x/image are always available under the
// families "Go" and "Go Mono". Any other family is looked up among the font
// files installed on the host.
package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flopp/go-findfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Built-in families.
const (
	FamilyGo     = "Go"
	FamilyGoMono = "Go Mono"
	Fallback     = FamilyGo
)

// ErrNotFound is returned when neither a built-in nor a host font matches.
var ErrNotFound = errors.New("font not found")

// Style selects one face of a family.
type Style struct {
	Bold   bool
	Italic bool
}

func (s Style) String() string {
	switch {
	case s.Bold && s.Italic:
		return "Bold Italic"
	case s.Bold:
		return "Bold"
	case s.Italic:
		return "Italic"
	}
	return "Regular"
}

var builtin = map[string][4][]byte{
	// regular, bold, italic, bold italic
	normalize(FamilyGo):     {goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
	normalize(FamilyGoMono): {gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF},
}

func (s Style) index() int {
	i := 0
	if s.Bold {
		i |= 1
	}
	if s.Italic {
		i |= 2
	}
	return i
}

// Builtin returns the embedded data for family, if it is one of the Go fonts.
func Builtin(family string, style Style) ([]byte, bool) {
	faces, ok := builtin[normalize(family)]
	if !ok {
		return nil, false
	}
	return faces[style.index()], true
}

// IsBuiltin reports whether family is served without touching the host.
func IsBuiltin(family string) bool {
	_, ok := builtin[normalize(family)]
	return ok
}

// Load returns the font data for family and style. family may also be a
// path or a file name such as "DejaVuSans-Bold.ttf".
func Load(family string, style Style) ([]byte, error) {
	if data, ok := Builtin(family, style); ok {
		return data, nil
	}
	path, err := Locate(family, style)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	return data, nil
}

// Locate finds the host font file for family and style. When the family has
// no face for the requested style its first file is returned instead.
func Locate(family string, style Style) (string, error) {
	if family == "" {
		return "", ErrNotFound
	}
	if ext := strings.ToLower(filepath.Ext(family)); ext == ".ttf" || ext == ".otf" || ext == ".ttc" {
		if _, err := os.Stat(family); err == nil {
			return family, nil
		}
		path, err := findfont.Find(family)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, family)
		}
		return path, nil
	}
	files := Host()[normalize(family)]
	if len(files) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, family)
	}
	return choose(files, style), nil
}

// File is one host font file.
type File struct {
	Path   string
	Family string
	Style  string
}

var styleTargets = map[Style][]string{
	{Bold: true, Italic: true}: {"bolditalic", "boldoblique", "bi"},
	{Bold: true}:               {"bold", "b"},
	{Italic: true}:             {"italic", "oblique", "i"},
	{}:                         {"regular", "book", "roman", ""},
}

func choose(files []File, style Style) string {
	for _, t := range styleTargets[style] {
		for _, f := range files {
			if normalize(f.Style) == t {
				return f.Path
			}
		}
	}
	return files[0].Path
}

// Host groups the font files found by findfont by normalized family name.
// File names are split on the last dash into family and style, which is how
// most font packages name their files.
func Host() map[string][]File {
	out := map[string][]File{}
	for _, path := range findfont.List() {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".ttf" && ext != ".otf" {
			continue
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		family, style := base, ""
		if i := strings.LastIndex(base, "-"); i > 0 {
			family, style = base[:i], base[i+1:]
		}
		key := normalize(family)
		out[key] = append(out[key], File{Path: path, Family: family, Style: style})
	}
	for _, files := range out {
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	}
	return out
}

// Families lists the built-in families followed by the host families, sorted.
func Families() []string {
	names := []string{FamilyGo, FamilyGoMono}
	var host []string
	for _, files := range Host() {
		host = append(host, files[0].Family)
	}
	sort.Strings(host)
	return append(names, host...)
}

func normalize(family string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(family)))
}
