package detector

import (
	"image"
	"math"

	"ghoststation/internal/config"
)

const (
	defaultCellSize = 16
	// minContrast keeps sensor noise on flat frames from producing regions.
	minContrast = 4.0
)

// BlobFinder flags grid cells whose mean luminance stands out from the frame
// and merges 4-connected flagged cells into regions.
type BlobFinder struct {
	CellSize int
	Sigma    float64
	MinCells int
}

// NewBlobFinder builds the default region finder from the detector section.
func NewBlobFinder(cfg *config.Config) *BlobFinder {
	return &BlobFinder{
		CellSize: defaultCellSize,
		Sigma:    cfg.Detector.RegionSigma,
		MinCells: cfg.Detector.MinRegionCells,
	}
}

// Find implements RegionFinder.
func (f *BlobFinder) Find(frame *image.Gray) []image.Rectangle {
	cell := f.CellSize
	if cell <= 0 {
		cell = defaultCellSize
	}
	b := frame.Bounds()
	cols, rows := b.Dx()/cell, b.Dy()/cell
	if cols == 0 || rows == 0 {
		return nil
	}

	means := make([]float64, cols*rows)
	var sum float64
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			var total int
			for y := 0; y < cell; y++ {
				row := frame.PixOffset(b.Min.X+cx*cell, b.Min.Y+cy*cell+y)
				for _, p := range frame.Pix[row : row+cell] {
					total += int(p)
				}
			}
			mean := float64(total) / float64(cell*cell)
			means[cy*cols+cx] = mean
			sum += mean
		}
	}
	globalMean := sum / float64(len(means))
	var variance float64
	for _, m := range means {
		variance += (m - globalMean) * (m - globalMean)
	}
	stddev := math.Sqrt(variance / float64(len(means)))
	if stddev < minContrast {
		return nil
	}

	limit := f.Sigma * stddev
	flagged := make([]bool, len(means))
	for i, m := range means {
		flagged[i] = math.Abs(m-globalMean) > limit
	}

	minCells := max(f.MinCells, 1)
	var regions []image.Rectangle
	seen := make([]bool, len(means))
	queue := make([]int, 0, 16)
	for start := range flagged {
		if !flagged[start] || seen[start] {
			continue
		}
		seen[start] = true
		queue = append(queue[:0], start)
		minX, minY, maxX, maxY := cols, rows, -1, -1
		size := 0
		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			size++
			cx, cy := idx%cols, idx/cols
			minX, maxX = min(minX, cx), max(maxX, cx)
			minY, maxY = min(minY, cy), max(maxY, cy)
			for _, n := range [4][2]int{{cx - 1, cy}, {cx + 1, cy}, {cx, cy - 1}, {cx, cy + 1}} {
				if n[0] < 0 || n[0] >= cols || n[1] < 0 || n[1] >= rows {
					continue
				}
				ni := n[1]*cols + n[0]
				if flagged[ni] && !seen[ni] {
					seen[ni] = true
					queue = append(queue, ni)
				}
			}
		}
		if size < minCells {
			continue
		}
		regions = append(regions, image.Rect(
			b.Min.X+minX*cell, b.Min.Y+minY*cell,
			b.Min.X+(maxX+1)*cell, b.Min.Y+(maxY+1)*cell,
		))
	}
	return regions
}
