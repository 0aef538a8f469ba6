package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 1200
	Height = 630

	padding       = 80
	titleSize     = 64
	footerSize    = 28
	lineSpacing   = 1.25
	maxTitleLines = 4
	ellipsis      = "…"
	footerText    = "Survey"
)

var (
	background = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	accent     = color.RGBA{R: 0x38, G: 0xbd, B: 0xf8, A: 0xff}
	foreground = color.RGBA{R: 0xf9, G: 0xfa, B: 0xfb, A: 0xff}
	muted      = color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
)

var (
	fontOnce    sync.Once
	fontLoadErr error
	boldFont    *opentype.Font
	regularFont *opentype.Font
)

func loadFonts() {
	boldFont, fontLoadErr = opentype.Parse(gobold.TTF)
	if fontLoadErr != nil {
		fontLoadErr = fmt.Errorf("thumbnail: failed to parse bold font: %w", fontLoadErr)
		return
	}
	regularFont, fontLoadErr = opentype.Parse(goregular.TTF)
	if fontLoadErr != nil {
		fontLoadErr = fmt.Errorf("thumbnail: failed to parse regular font: %w", fontLoadErr)
	}
}

// newFace builds a fresh face per render; font.Face values are not safe for concurrent use
func newFace(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Render draws a 1200x630 PNG title card
func Render(title string) ([]byte, error) {
	fontOnce.Do(loadFonts)
	if fontLoadErr != nil {
		return nil, fontLoadErr
	}

	titleFace, err := newFace(boldFont, titleSize)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = titleFace.Close()
	}()

	footerFace, err := newFace(regularFont, footerSize)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = footerFace.Close()
	}()

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, Width, 16), image.NewUniform(accent), image.Point{}, draw.Src)

	lines := Wrap(titleFace, title, Width-2*padding, maxTitleLines)
	lineHeight := int(titleSize * lineSpacing)
	blockHeight := lineHeight * len(lines)
	y := (Height-blockHeight)/2 + titleFace.Metrics().Ascent.Ceil()

	drawer := &font.Drawer{Dst: img, Src: image.NewUniform(foreground), Face: titleFace}
	for _, line := range lines {
		drawer.Dot = fixed.P(padding, y)
		drawer.DrawString(line)
		y += lineHeight
	}

	footer := &font.Drawer{Dst: img, Src: image.NewUniform(muted), Face: footerFace}
	footer.Dot = fixed.P(padding, Height-padding/2)
	footer.DrawString(footerText)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Wrap splits text into at most maxLines lines no wider than maxWidth pixels. Lines break at the last
// space that fits, or between runes when a word has none (CJK titles). Overflow ends in an ellipsis.
func Wrap(face font.Face, text string, maxWidth, maxLines int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	limit := fixed.I(maxWidth)
	var lines []string
	runes := []rune(text)

	for len(runes) > 0 && len(lines) < maxLines {
		end := fitRunes(face, runes, limit)
		if end < len(runes) {
			if space := lastSpace(runes[:end+1]); space > 0 {
				end = space
			}
		}

		lines = append(lines, strings.TrimSpace(string(runes[:end])))
		runes = runes[end:]
		for len(runes) > 0 && unicode.IsSpace(runes[0]) {
			runes = runes[1:]
		}
	}

	if len(runes) > 0 {
		last := []rune(lines[len(lines)-1])
		for len(last) > 0 && font.MeasureString(face, string(last)+ellipsis) > limit {
			last = last[:len(last)-1]
		}
		lines[len(lines)-1] = strings.TrimSpace(string(last)) + ellipsis
	}

	return lines
}

// fitRunes returns how many leading runes fit within limit, at least one
func fitRunes(face font.Face, runes []rune, limit fixed.Int26_6) int {
	var width fixed.Int26_6
	prev := rune(-1)
	for i, r := range runes {
		if prev >= 0 {
			width += face.Kern(prev, r)
		}
		advance, ok := face.GlyphAdvance(r)
		if !ok {
			advance, _ = face.GlyphAdvance(unicode.ReplacementChar)
		}
		width += advance
		if width > limit {
			return max(i, 1)
		}
		prev = r
	}
	return len(runes)
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i > 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
