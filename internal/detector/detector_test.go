package detector_test

import (
	"image"
	"sync"
	"testing"

	"ghoststation/internal/detector"
	"ghoststation/internal/testsupport"
)

func newDetector(t *testing.T) *detector.Detector {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return detector.New(detector.OptionsFromConfig(cfg), detector.NewBlobFinder(cfg))
}

func TestDetectFindsBrightSquare(t *testing.T) {
	det := newDetector(t)
	square := image.Rect(96, 96, 160, 160)
	frame := testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 40, &square, 255))

	result := det.Detect(frame)
	if len(result.Regions) != 1 {
		t.Fatalf("expected 1 region, got %d (%v)", len(result.Regions), result.Regions)
	}
	if !result.Regions[0].Overlaps(square) {
		t.Fatalf("region %v does not overlap square %v", result.Regions[0], square)
	}
	if result.MotionScore != 0 {
		t.Fatalf("first frame motion = %d, want 0", result.MotionScore)
	}
	if result.Frame == nil || result.Frame.Bounds().Dx() != 640 {
		t.Fatalf("expected normalized 640px frame, got %v", result.Frame)
	}
}

func TestDetectFlatFrameHasNoRegions(t *testing.T) {
	det := newDetector(t)
	result := det.Detect(testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 90, nil, 0)))
	if len(result.Regions) != 0 {
		t.Fatalf("expected no regions on a flat frame, got %v", result.Regions)
	}
}

func TestDetectScoresMotionAgainstPreviousFrame(t *testing.T) {
	det := newDetector(t)
	square := image.Rect(96, 96, 160, 160)
	det.Detect(testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 40, nil, 0)))

	result := det.Detect(testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 40, &square, 255)))
	// 64x64 changed pixels, give or take JPEG ringing at the edges.
	if result.MotionScore < 3500 || result.MotionScore > 6000 {
		t.Fatalf("motion score = %d, want about 4096", result.MotionScore)
	}
}

func TestDetectUndecodableFrameKeepsPreviousState(t *testing.T) {
	det := newDetector(t)
	square := image.Rect(96, 96, 160, 160)
	plain := testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 40, nil, 0))
	det.Detect(plain)

	garbage := det.Detect([]byte("not an image"))
	if len(garbage.Regions) != 0 || garbage.MotionScore != 0 || garbage.Frame != nil {
		t.Fatalf("expected empty result for garbage, got %+v", garbage)
	}
	if empty := det.Detect(nil); empty.Frame != nil {
		t.Fatalf("expected empty result for nil frame")
	}

	result := det.Detect(testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 40, &square, 255)))
	if result.MotionScore < 3500 {
		t.Fatalf("expected motion against the retained frame, got %d", result.MotionScore)
	}
}

func TestResetClearsMotionBaseline(t *testing.T) {
	det := newDetector(t)
	square := image.Rect(96, 96, 160, 160)
	det.Detect(testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 40, nil, 0)))
	det.Reset()

	result := det.Detect(testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 40, &square, 255)))
	if result.MotionScore != 0 {
		t.Fatalf("motion after reset = %d, want 0", result.MotionScore)
	}
}

func TestDetectScalesSmallFrames(t *testing.T) {
	det := newDetector(t)
	square := image.Rect(48, 48, 80, 80)
	result := det.Detect(testsupport.EncodeJPEG(t, testsupport.Frame(320, 240, 40, &square, 255)))
	if result.Frame == nil || result.Frame.Bounds() != image.Rect(0, 0, 640, 480) {
		t.Fatalf("expected frame scaled to 640x480")
	}
	if len(result.Regions) != 1 {
		t.Fatalf("expected 1 region after scaling, got %v", result.Regions)
	}
}

func TestBlobFinderIgnoresSingleCellSpecks(t *testing.T) {
	finder := &detector.BlobFinder{CellSize: 16, Sigma: 2.5, MinCells: 2}
	speck := image.Rect(320, 240, 336, 256)
	if regions := finder.Find(testsupport.Frame(640, 480, 40, &speck, 255)); len(regions) != 0 {
		t.Fatalf("expected single cell to be ignored, got %v", regions)
	}
}

func TestConcurrentDetectCallsAreSerialized(t *testing.T) {
	det := newDetector(t)
	square := image.Rect(96, 96, 160, 160)
	frames := [][]byte{
		testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 40, nil, 0)),
		testsupport.EncodeJPEG(t, testsupport.Frame(640, 480, 40, &square, 255)),
	}

	const workers = 8
	const rounds = 5
	var wg sync.WaitGroup
	failures := make(chan string, workers*rounds)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				kind := (w + r) % 2
				result := det.Detect(frames[kind])
				if result.Frame == nil {
					failures <- "nil frame"
					continue
				}
				if len(result.Regions) != kind {
					failures <- "region count does not match the submitted frame"
				}
				// Motion is measured against whichever frame ran before this
				// one, so it is either none or the whole square.
				if result.MotionScore != 0 && (result.MotionScore < 3500 || result.MotionScore > 6000) {
					failures <- "motion score from a torn baseline"
				}
			}
		}(w)
	}
	wg.Wait()
	close(failures)
	for msg := range failures {
		t.Fatal(msg)
	}
}
