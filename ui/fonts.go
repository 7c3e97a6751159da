package ui

import (
	"io/fs"

	"github.com/go-fonts/latin-modern/lmmath"
	"github.com/go-fonts/latin-modern/lmsans10regular"
	"github.com/gogpu/gg/text"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"
)

// Names of the fonts a FontLoader must supply.
const (
	FontStandard  = "standard"
	FontLocalized = "localized"
	FontSymbols   = "symbols"
)

// FontNames lists the fonts in fallback order.
var FontNames = []string{FontStandard, FontLocalized, FontSymbols}

// FontLoader supplies raw font blobs by name.
type FontLoader interface {
	Font(name string) ([]byte, error)
}

// BuiltinFonts serves the fonts compiled into the binary.
type BuiltinFonts struct{}

func (BuiltinFonts) Font(name string) ([]byte, error) {
	switch name {
	case FontStandard:
		return goregular.TTF, nil
	case FontLocalized:
		return lmsans10regular.TTF, nil
	case FontSymbols:
		return lmmath.TTF, nil
	}
	return nil, errors.Errorf("no builtin font %q", name)
}

// FSFonts reads fonts from a file system. Files maps font names to paths;
// names without an entry fall back to Fallback when it is set.
type FSFonts struct {
	FS       fs.FS
	Files    map[string]string
	Fallback FontLoader
}

func (l FSFonts) Font(name string) ([]byte, error) {
	path, ok := l.Files[name]
	if !ok || path == "" {
		if l.Fallback != nil {
			return l.Fallback.Font(name)
		}
		return nil, errors.Errorf("no file configured for font %q", name)
	}
	data, err := fs.ReadFile(l.FS, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading font %q", name)
	}
	return data, nil
}

// FontStash owns the parsed font sources for one UI state.
type FontStash struct {
	Standard  *text.FontSource
	Localized *text.FontSource
	Symbols   *text.FontSource

	faces map[float64]text.Face
}

// NewFontStash loads and parses every font from l.
func NewFontStash(l FontLoader) (*FontStash, error) {
	s := &FontStash{faces: make(map[float64]text.Face)}
	dst := []**text.FontSource{&s.Standard, &s.Localized, &s.Symbols}
	for i, name := range FontNames {
		data, err := l.Font(name)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "loading font %q", name)
		}
		src, err := text.NewFontSource(data)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "parsing font %q", name)
		}
		*dst[i] = src
		Logger().Debug("font loaded", "font", name, "family", src.Name(), "bytes", len(data))
	}
	return s, nil
}

// Face returns a face of the given size that falls back from the standard
// font to the localized font and then to the symbol font.
func (s *FontStash) Face(size float64) (text.Face, error) {
	if f, ok := s.faces[size]; ok {
		return f, nil
	}
	f, err := text.NewMultiFace(s.Standard.Face(size), s.Localized.Face(size), s.Symbols.Face(size))
	if err != nil {
		return nil, errors.Wrap(err, "building font fallback chain")
	}
	s.faces[size] = f
	return f, nil
}

// Close releases the font sources.
func (s *FontStash) Close() error {
	var first error
	for _, src := range []*text.FontSource{s.Standard, s.Localized, s.Symbols} {
		if src == nil {
			continue
		}
		if err := src.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.Standard, s.Localized, s.Symbols = nil, nil, nil
	s.faces = nil
	return first
}
