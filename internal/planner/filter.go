package planner

import "fmt"

// ScaleFilter returns the ffmpeg video filter that caps the output height at
// h without upscaling. The width follows the source aspect ratio, rounded to
// an even number as required by 4:2:0 chroma subsampling.
func ScaleFilter(h int) string {
	return fmt.Sprintf("scale=-2:'min(%d,ih)'", h)
}

// OutputDimensions models what ScaleFilter(h) yields for a srcW x srcH
// source: height min(h, srcH), width scaled by the same factor and rounded
// to the nearest even number (halves round up), never below 2. It returns
// 0, 0 for non-positive inputs.
func OutputDimensions(srcW, srcH, h int) (int, int) {
	if srcW <= 0 || srcH <= 0 || h <= 0 {
		return 0, 0
	}
	outH := min(h, srcH)
	w := 2 * rescale(int64(outH), int64(srcW), 2*int64(srcH))
	return int(max(w, 2)), outH
}

// rescale returns a*b/c rounded to nearest, halves away from zero. All
// arguments are positive.
func rescale(a, b, c int64) int64 {
	return (a*b + c/2) / c
}
