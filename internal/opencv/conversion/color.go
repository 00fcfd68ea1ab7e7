// Package conversion performs colour space conversions on tracked Mats.
package conversion

import (
	"fmt"

	"catfilter/internal/opencv/memory"
	"catfilter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

func cvtColor(mgr *memory.Manager, src *safe.Mat, code gocv.ColorConversionCode, tag string) (*safe.Mat, error) {
	if err := safe.ValidateColorConversion(src, code); err != nil {
		return nil, fmt.Errorf("color conversion validation failed: %w", err)
	}

	dst := gocv.NewMat()
	gocv.CvtColor(src.GetMat(), &dst, code)
	return mgr.Adopt(dst, tag)
}

// ConvertToGrayscale returns a single channel copy of src.
func ConvertToGrayscale(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ConvertToGrayscale"); err != nil {
		return nil, err
	}

	switch src.Channels() {
	case 1:
		return src.Clone()
	case 3:
		return cvtColor(mgr, src, gocv.ColorBGRToGray, "gray")
	case 4:
		bgr, err := cvtColor(mgr, src, gocv.ColorBGRAToBGR, "gray_bgr")
		if err != nil {
			return nil, err
		}
		defer bgr.Close()
		return cvtColor(mgr, bgr, gocv.ColorBGRToGray, "gray")
	default:
		return nil, fmt.Errorf("unsupported channel count for grayscale conversion: %d", src.Channels())
	}
}

// ConvertToBGR returns a three channel copy of src.
func ConvertToBGR(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ConvertToBGR"); err != nil {
		return nil, err
	}

	switch src.Channels() {
	case 3:
		return src.Clone()
	case 1:
		return cvtColor(mgr, src, gocv.ColorGrayToBGR, "bgr")
	case 4:
		return cvtColor(mgr, src, gocv.ColorBGRAToBGR, "bgr")
	default:
		return nil, fmt.Errorf("unsupported channel count for BGR conversion: %d", src.Channels())
	}
}
