package canvas

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
)

const defaultFace = "regular"

var faceData = map[string][]byte{
	"regular":   goregular.TTF,
	"bold":      gobold.TTF,
	"italic":    goitalic.TTF,
	"medium":    gomedium.TTF,
	"mono":      gomono.TTF,
	"smallcaps": gosmallcaps.TTF,
}

// familyAliases maps CSS family names to the embedded Go font standing in for them.
var familyAliases = map[string]string{
	"go":              "regular",
	"arial":           "regular",
	"helvetica":       "regular",
	"sans-serif":      "regular",
	"system-ui":       "regular",
	"microsoft yahei": "regular",
	"pingfang sc":     "regular",
	"impact":          "bold",
	"arial black":     "bold",
	"go bold":         "bold",
	"cursive":         "italic",
	"comic sans ms":   "italic",
	"go italic":       "italic",
	"serif":           "medium",
	"georgia":         "medium",
	"times new roman": "medium",
	"go medium":       "medium",
	"monospace":       "mono",
	"courier":         "mono",
	"courier new":     "mono",
	"go mono":         "mono",
	"fantasy":         "smallcaps",
	"go smallcaps":    "smallcaps",
}

// FontSet resolves font family lists to parsed fonts. Parsed fonts are shared;
// faces are not safe for concurrent use and are created per render.
type FontSet struct {
	once  sync.Once
	fonts map[string]*opentype.Font
	err   error
}

var defaultFonts = &FontSet{}

func (fs *FontSet) load() {
	fs.fonts = make(map[string]*opentype.Font, len(faceData))
	for name, data := range faceData {
		f, err := opentype.Parse(data)
		if err != nil {
			fs.err = fmt.Errorf("parse font %s: %w", name, err)
			return
		}
		fs.fonts[name] = f
	}
}

// Resolve picks the first known family of a CSS-like list such as `"Impact", sans-serif`.
func Resolve(family string) string {
	for _, part := range strings.Split(family, ",") {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(part), `"'`))
		if key, ok := familyAliases[name]; ok {
			return key
		}
	}
	return defaultFace
}

// Face opens a face of the resolved family at size pixels. The caller closes it.
func (fs *FontSet) Face(family string, size float64) (font.Face, error) {
	fs.once.Do(fs.load)
	if fs.err != nil {
		return nil, fs.err
	}

	return opentype.NewFace(fs.fonts[Resolve(family)], &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
