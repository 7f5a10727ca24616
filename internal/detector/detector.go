package detector

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	xdraw "golang.org/x/image/draw"

	"ghoststation/internal/config"
)

// Options tunes frame normalization and motion detection.
type Options struct {
	Width           int
	Height          int
	MotionThreshold int
}

// OptionsFromConfig reads the detector section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Width:           cfg.Detector.FrameWidth,
		Height:          cfg.Detector.FrameHeight,
		MotionThreshold: cfg.Detector.MotionThreshold,
	}
}

// RegionFinder locates candidate regions (faces, figures, bright blobs) in a
// normalized luminance frame.
type RegionFinder interface {
	Find(frame *image.Gray) []image.Rectangle
}

// Result is the analysis of one frame. Frame is the normalized color frame
// and is nil when the input could not be decoded.
type Result struct {
	Regions     []image.Rectangle
	MotionScore int
	Frame       *image.RGBA
}

// Detector analyses frames one at a time, remembering the previous frame for
// motion scoring.
type Detector struct {
	opts   Options
	finder RegionFinder

	mu   sync.Mutex
	last *image.Gray
}

// New builds a detector. A nil finder disables region finding.
func New(opts Options, finder RegionFinder) *Detector {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 640, 480
	}
	return &Detector{opts: opts, finder: finder}
}

// Detect normalizes the frame, finds regions, and scores motion against the
// previous frame. Undecodable input yields an empty result and leaves the
// remembered frame in place; Detect never fails.
func (d *Detector) Detect(frame []byte) Result {
	rgba, err := d.normalize(frame)
	if err != nil {
		return Result{}
	}
	gray := luminance(rgba)

	var regions []image.Rectangle
	if d.finder != nil {
		regions = d.finder.Find(gray)
	}

	d.mu.Lock()
	motion := 0
	if d.last != nil {
		motion = motionScore(d.last, gray, d.opts.MotionThreshold)
	}
	d.last = gray
	d.mu.Unlock()

	return Result{Regions: regions, MotionScore: motion, Frame: rgba}
}

// Reset forgets the remembered frame.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = nil
}

func (d *Detector) normalize(frame []byte) (*image.RGBA, error) {
	if len(frame) == 0 {
		return nil, errors.New("empty frame")
	}
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("invalid frame bounds: %dx%d", b.Dx(), b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, d.opts.Width, d.opts.Height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}

func luminance(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.SetGray(x, y, color.GrayModel.Convert(src.RGBAAt(x, y)).(color.Gray))
		}
	}
	return gray
}

// motionScore counts pixels whose luminance changed by more than threshold.
func motionScore(prev, cur *image.Gray, threshold int) int {
	if !prev.Bounds().Eq(cur.Bounds()) {
		return 0
	}
	count := 0
	for i := range cur.Pix {
		diff := int(cur.Pix[i]) - int(prev.Pix[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > threshold {
			count++
		}
	}
	return count
}
