package opencv

import (
	"fmt"

	"github.com/jarupong555/Detec-V1.0/internal/frame"
	"gocv.io/x/gocv"
)

// Frame wraps a gocv.Mat.
type Frame struct {
	mat gocv.Mat
}

// NewFrame takes ownership of mat.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Mat exposes the underlying matrix. It stays owned by the Frame.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Clone() frame.Frame {
	return &Frame{mat: f.mat.Clone()}
}

func (f *Frame) Close() error {
	return f.mat.Close()
}

func (f *Frame) Size() (int, int) {
	return f.mat.Cols(), f.mat.Rows()
}

// AsMat returns the matrix behind fr, or an error for frames from another backend.
func AsMat(fr frame.Frame) (gocv.Mat, error) {
	f, ok := fr.(*Frame)
	if !ok {
		return gocv.Mat{}, fmt.Errorf("unsupported frame type %T", fr)
	}
	if f.mat.Empty() {
		return gocv.Mat{}, fmt.Errorf("frame is empty")
	}
	return f.mat, nil
}

// JPEGEncoder encodes frames as JPEG at a fixed quality.
type JPEGEncoder struct {
	quality int
}

// NewJPEGEncoder returns an encoder using quality (1-100).
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &JPEGEncoder{quality: quality}
}

// Encode returns the JPEG bytes of fr.
func (e *JPEGEncoder) Encode(fr frame.Frame) ([]byte, error) {
	mat, err := AsMat(fr)
	if err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, e.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// DecodeJPEG decodes JPEG bytes into a new Frame.
func DecodeJPEG(data []byte) (*Frame, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("decoded image is empty")
	}
	return NewFrame(mat), nil
}
