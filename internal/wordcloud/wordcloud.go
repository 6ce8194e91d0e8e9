// Package wordcloud renders word frequencies into a bitmap: larger words
// are more frequent, colors follow size tiers, and placement walks an
// Archimedean spiral out from the center until a free spot is found.
package wordcloud

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	defaultWidth  = 1920
	defaultHeight = 1080
	maxWords      = 200
	minWordRunes  = 3
	maxFontSize   = 400
	minFontSize   = 12
	// shrinkFactor is applied to a word's font size until it fits.
	shrinkFactor = 0.9
	// spiralStep controls how quickly the placement spiral unwinds.
	spiralStep = 0.35
	// wordMargin keeps placed words from touching.
	wordMargin = 2
	layoutSeed = 1
)

// ErrNoWords is returned when nothing survived lexical filtering.
var ErrNoWords = errors.New("wordcloud: no words to render")

// sizeColor maps a font size to its tier color, hottest tiers first.
func sizeColor(size int) color.RGBA {
	switch {
	case size > 315:
		return color.RGBA{200, 0, 255, 255} // violet
	case size > 150:
		return color.RGBA{255, 50, 0, 255} // red
	case size > 85:
		return color.RGBA{255, 255, 0, 255} // yellow
	case size > 42:
		return color.RGBA{255, 165, 0, 255} // orange
	case size > 31:
		return color.RGBA{0, 255, 100, 255} // green
	case size > 22:
		return color.RGBA{255, 255, 255, 255} // white
	default:
		return color.RGBA{0, 255, 255, 255} // cyan
	}
}

// Renderer lays out and draws word clouds. It is safe to reuse across
// renders; each render seeds its own deterministic random source.
type Renderer struct {
	width  int
	height int
	font   *opentype.Font
}

func New() (*Renderer, error) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return &Renderer{width: defaultWidth, height: defaultHeight, font: parsed}, nil
}

// RenderWords counts a raw token stream, folding frequent bigrams into
// phrases, and renders the result.
func (r *Renderer) RenderWords(words []string, stopwords map[string]struct{}) ([]byte, error) {
	return r.RenderFrequencies(countTokens(words, stopwords, minWordRunes))
}

// RenderFrequencies renders a PNG from precomputed word frequencies.
func (r *Renderer) RenderFrequencies(freqs map[string]float64) ([]byte, error) {
	entries := topEntries(freqs, maxWords)
	if len(entries) == 0 {
		return nil, ErrNoWords
	}

	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	rng := rand.New(rand.NewSource(layoutSeed))
	var placed []image.Rectangle
	maxFreq := entries[0].freq
	prevSize := maxFontSize

	for _, entry := range entries {
		size := int(float64(maxFontSize) * math.Sqrt(entry.freq/maxFreq))
		if size > prevSize {
			size = prevSize
		}
		rect, face, ok, err := r.placeWord(entry.word, size, placed, rng)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		r.drawWord(img, entry.word, rect, face)
		placed = append(placed, rect)
		prevSize = face.size
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type entry struct {
	word string
	freq float64
}

func topEntries(freqs map[string]float64, limit int) []entry {
	entries := make([]entry, 0, len(freqs))
	for word, freq := range freqs {
		if freq > 0 {
			entries = append(entries, entry{word, freq})
		}
	}
	// Equal frequencies order alphabetically so layout is reproducible.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].freq != entries[j].freq {
			return entries[i].freq > entries[j].freq
		}
		return entries[i].word < entries[j].word
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

type sizedFace struct {
	face font.Face
	size int
}

// placeWord finds a free rectangle for word, shrinking the font until it
// fits or drops below the minimum size.
func (r *Renderer) placeWord(word string, size int, placed []image.Rectangle, rng *rand.Rand) (image.Rectangle, sizedFace, bool, error) {
	for ; size >= minFontSize; size = int(float64(size) * shrinkFactor) {
		face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return image.Rectangle{}, sizedFace{}, false, err
		}
		w := font.MeasureString(face, word).Ceil()
		metrics := face.Metrics()
		h := (metrics.Ascent + metrics.Descent).Ceil()
		if w+2*wordMargin > r.width || h+2*wordMargin > r.height {
			continue
		}
		if rect, ok := r.spiralSearch(w, h, placed, rng); ok {
			return rect, sizedFace{face: face, size: size}, true, nil
		}
	}
	return image.Rectangle{}, sizedFace{}, false, nil
}

// spiralSearch walks an Archimedean spiral from a jittered center looking
// for a spot where a w×h rectangle overlaps nothing already placed.
func (r *Renderer) spiralSearch(w, h int, placed []image.Rectangle, rng *rand.Rand) (image.Rectangle, bool) {
	cx := float64(r.width)/2 + (rng.Float64()-0.5)*float64(r.width)/8
	cy := float64(r.height)/2 + (rng.Float64()-0.5)*float64(r.height)/8
	start := rng.Float64() * 2 * math.Pi

	maxRadius := math.Hypot(float64(r.width), float64(r.height)) / 2
	for t := 0.0; spiralStep*t <= maxRadius; t += 0.2 {
		radius := spiralStep * t
		angle := start + t
		x := int(cx+radius*math.Cos(angle)) - w/2
		y := int(cy+radius*math.Sin(angle)) - h/2
		rect := image.Rect(x, y, x+w, y+h)
		if rect.Min.X < 0 || rect.Min.Y < 0 || rect.Max.X > r.width || rect.Max.Y > r.height {
			continue
		}
		if collides(rect, placed) {
			continue
		}
		return rect, true
	}
	return image.Rectangle{}, false
}

func collides(rect image.Rectangle, placed []image.Rectangle) bool {
	grown := rect.Inset(-wordMargin)
	for _, p := range placed {
		if grown.Overlaps(p) {
			return true
		}
	}
	return false
}

func (r *Renderer) drawWord(img *image.RGBA, word string, rect image.Rectangle, face sizedFace) {
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(sizeColor(face.size)),
		Face: face.face,
		Dot: fixed.Point26_6{
			X: fixed.I(rect.Min.X),
			Y: fixed.I(rect.Min.Y) + face.face.Metrics().Ascent,
		},
	}
	drawer.DrawString(word)
}
