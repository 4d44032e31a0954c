// Package prefs persists the font configuration between sessions.
//
// The store is a flat JSON object, read once at startup and written only
// when the operator asks to save the current settings as default:
//
//	{
//	  "font_family": "DejaVu Sans",
//	  "font_size": 20,
//	  "font_bold_flag": false,
//	  "font_italic_flag": false,
//	  "name_font_size": 50,
//	  "auto_fit_enabled": true
//	}
//
// 文件名与格式和桌面版保持一致，两边可以共用同一份偏好。
package prefs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ByLCY/pulseira/errors"
	"github.com/ByLCY/pulseira/layout"
)

// Keys of the preferences file.
const (
	KeyFamily   = "font_family"
	KeyBaseSize = "font_size"
	KeyBold     = "font_bold_flag"
	KeyItalic   = "font_italic_flag"
	KeyNameSize = "name_font_size"
	KeyAutoFit  = "auto_fit_enabled"
)

// FileName is the preferences file in the user's home directory.
const FileName = ".unipulso_prefs.json"

// DefaultPath returns ~/.unipulso_prefs.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Store reads and writes one preferences file. Load and Save never overlap.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load returns the saved configuration, or the defaults when the file does
// not exist. Keys missing from the file keep their default value.
func (s *Store) Load() (layout.FontConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return layout.DefaultFontConfig(), nil
	}
	if err != nil {
		return layout.FontConfig{}, errors.Wrap(errors.ErrCodeIO, err, "read preferences %s", s.path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return layout.DefaultFontConfig(), nil
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return layout.FontConfig{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse preferences %s", s.path)
	}
	return Decode(f, layout.DefaultFontConfig())
}

// Save replaces the file with cfg. The new content is written to a temporary
// file in the same directory, synced and renamed over the old one.
func (s *Store) Save(cfg layout.FontConfig) (err error) {
	if err := validate(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "save preferences")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = Encode(tmp, cfg); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write preferences")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "sync preferences")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close preferences")
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "replace %s", s.path)
	}
	return nil
}

// Decode applies the entries of f on top of base. Unknown keys and null
// values are ignored.
func Decode(f *File, base layout.FontConfig) (layout.FontConfig, error) {
	cfg := base
	for _, e := range f.Entries {
		if e.Value.Null {
			continue
		}
		text := strings.TrimSpace(e.Value.Text())
		var err error
		switch string(e.Key) {
		case KeyFamily:
			if !e.Value.IsString() {
				err = fmt.Errorf("want a string, got %s", text)
			}
			cfg.Family = text
		case KeyBaseSize:
			cfg.BaseSize, err = parseSize(text)
		case KeyNameSize:
			cfg.NameSize, err = parseSize(text)
		case KeyBold:
			cfg.Bold, err = parseFlag(text)
		case KeyItalic:
			cfg.Italic, err = parseFlag(text)
		case KeyAutoFit:
			cfg.AutoFit, err = parseFlag(text)
		default:
			continue
		}
		if err != nil {
			return layout.FontConfig{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s at line %d", e.Key, e.Pos.Line)
		}
	}
	if err := validate(cfg); err != nil {
		return layout.FontConfig{}, err
	}
	return cfg, nil
}

// document fixes the key order of saved files.
type document struct {
	Family   string `json:"font_family"`
	BaseSize int    `json:"font_size"`
	Bold     bool   `json:"font_bold_flag"`
	Italic   bool   `json:"font_italic_flag"`
	NameSize int    `json:"name_font_size"`
	AutoFit  bool   `json:"auto_fit_enabled"`
}

// Encode writes cfg as an indented JSON object, non-ASCII text unescaped.
func Encode(w io.Writer, cfg layout.FontConfig) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(document{
		Family:   cfg.Family,
		BaseSize: cfg.BaseSize,
		Bold:     cfg.Bold,
		Italic:   cfg.Italic,
		NameSize: cfg.NameSize,
		AutoFit:  cfg.AutoFit,
	})
}

func validate(cfg layout.FontConfig) error {
	if cfg.BaseSize <= 0 || cfg.NameSize <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "font sizes must be positive, got %s=%d %s=%d",
			KeyBaseSize, cfg.BaseSize, KeyNameSize, cfg.NameSize)
	}
	return nil
}

func parseSize(s string) (int, error) {
	s = strings.TrimSuffix(strings.ReplaceAll(s, " ", ""), "px")
	n, err := strconv.Atoi(s)
	if err != nil {
		// 20.0 is accepted and truncated.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, fmt.Errorf("want a pixel size, got %q", s)
		}
		n = int(f)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive, got %d", n)
	}
	return n, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on", "sim":
		return true, nil
	case "0", "false", "no", "off", "nao", "não":
		return false, nil
	}
	return false, fmt.Errorf("want true or false, got %q", s)
}
