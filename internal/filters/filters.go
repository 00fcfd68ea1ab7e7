package filters

import (
	"errors"
	"fmt"

	"catfilter/internal/opencv/conversion"
	"catfilter/internal/opencv/memory"
	"catfilter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

var (
	ErrNoFilterOutput = errors.New("filter produced no output")
	ErrRenderNoImage  = errors.New("render produced no image")
	ErrUnknownFilter  = errors.New("unknown filter")
)

// Filter turns a BGR Mat into a new BGR Mat. Implementations must not close src.
type Filter interface {
	Name() string
	Title() string
	Apply(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error)
}

type filterFunc struct {
	name  string
	title string
	apply func(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error)
}

func (f filterFunc) Name() string  { return f.name }
func (f filterFunc) Title() string { return f.title }

func (f filterFunc) Apply(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, f.name); err != nil {
		return nil, err
	}
	return f.apply(mgr, src)
}

func adoptOutput(mgr *memory.Manager, dst gocv.Mat, tag string) (*safe.Mat, error) {
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("%s: %w", tag, ErrNoFilterOutput)
	}
	return mgr.Adopt(dst, tag)
}

// Colour matrices are in BGR order: row i is output channel i.
var (
	sepiaMatrix = [3][3]float32{
		{0.131, 0.534, 0.272},
		{0.168, 0.686, 0.349},
		{0.189, 0.769, 0.393},
	}
	transferMatrix = [3][3]float32{
		{0.80, 0.10, 0.05},
		{0.05, 0.90, 0.10},
		{0.00, 0.15, 1.05},
	}
	processMatrix = [3][3]float32{
		{1.10, 0.10, 0.05},
		{0.05, 1.00, 0.05},
		{0.00, 0.05, 0.85},
	}
	instantMatrix = [3][3]float32{
		{0.75, 0.10, 0.05},
		{0.05, 0.85, 0.15},
		{0.05, 0.15, 0.90},
	}
)

func saturationMatrix(s float32) [3][3]float32 {
	// Rec. 601 luma weights in BGR order.
	lb, lg, lr := float32(0.114)*(1-s), float32(0.587)*(1-s), float32(0.299)*(1-s)
	return [3][3]float32{
		{lb + s, lg, lr},
		{lb, lg + s, lr},
		{lb, lg, lr + s},
	}
}

func colorMatrix(mgr *memory.Manager, m [3][3]float32, tag string) (*safe.Mat, error) {
	kernel, err := mgr.GetMat(3, 3, gocv.MatTypeCV32F, tag+"_kernel")
	if err != nil {
		return nil, fmt.Errorf("allocate %s kernel: %w", tag, err)
	}
	k := kernel.GetMat()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			k.SetFloatAt(r, c, m[r][c])
		}
	}
	return kernel, nil
}

func transform(mgr *memory.Manager, src *safe.Mat, m [3][3]float32, tag string) (*safe.Mat, error) {
	kernel, err := colorMatrix(mgr, m, tag)
	if err != nil {
		return nil, err
	}
	defer mgr.ReleaseMat(kernel)

	dst := gocv.NewMat()
	gocv.Transform(src.GetMat(), &dst, kernel.GetMat())
	return adoptOutput(mgr, dst, tag)
}

func linear(mgr *memory.Manager, src *safe.Mat, alpha, beta float32, tag string) (*safe.Mat, error) {
	dst := gocv.NewMat()
	src.GetMat().ConvertToWithParams(&dst, gocv.MatTypeCV8UC3, alpha, beta)
	return adoptOutput(mgr, dst, tag)
}

func matrixFilter(name, title string, m [3][3]float32) Filter {
	return filterFunc{name: name, title: title, apply: func(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error) {
		return transform(mgr, src, m, name)
	}}
}

func mono(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error) {
	gray, err := conversion.ConvertToGrayscale(mgr, src)
	if err != nil {
		return nil, err
	}
	defer gray.Close()
	return conversion.ConvertToBGR(mgr, gray)
}

func noir(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error) {
	gray, err := conversion.ConvertToGrayscale(mgr, src)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	eq := gocv.NewMat()
	gocv.EqualizeHist(gray.GetMat(), &eq)
	equalized, err := adoptOutput(mgr, eq, "noir_equalized")
	if err != nil {
		return nil, err
	}
	defer equalized.Close()

	return conversion.ConvertToBGR(mgr, equalized)
}

func invert(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error) {
	dst := gocv.NewMat()
	gocv.BitwiseNot(src.GetMat(), &dst)
	return adoptOutput(mgr, dst, "invert")
}

func chrome(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error) {
	saturated, err := transform(mgr, src, saturationMatrix(1.35), "chrome_saturated")
	if err != nil {
		return nil, err
	}
	defer saturated.Close()
	return linear(mgr, saturated, 1.1, -12, "chrome")
}

func fade(mgr *memory.Manager, src *safe.Mat) (*safe.Mat, error) {
	muted, err := transform(mgr, src, saturationMatrix(0.7), "fade_muted")
	if err != nil {
		return nil, err
	}
	defer muted.Close()
	return linear(mgr, muted, 0.75, 45, "fade")
}

func builtin() []Filter {
	return []Filter{
		filterFunc{name: "mono", title: "Mono", apply: mono},
		matrixFilter("sepia", "Sepia", sepiaMatrix),
		filterFunc{name: "invert", title: "Invert", apply: invert},
		filterFunc{name: "chrome", title: "Chrome", apply: chrome},
		matrixFilter("transfer", "Transfer", transferMatrix),
		matrixFilter("process", "Process", processMatrix),
		filterFunc{name: "noir", title: "Noir", apply: noir},
		matrixFilter("instant", "Instant", instantMatrix),
		filterFunc{name: "fade", title: "Fade", apply: fade},
	}
}
