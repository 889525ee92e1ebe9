// Package label crops shipping label PDFs down to the printable slip. Labels
// arrive as a full A4 page with the label content in the lower-left corner;
// the crop margins below are fixed offsets against that layout.
package label

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	cropX           = 24.0
	cropY           = 70.0
	cropWidthInset  = 572.0
	cropHeightInset = 90.0
)

// Crop rewrites the first page's media box and crop box to the computed
// rectangle and returns the re-saved document.
func Crop(doc []byte) ([]byte, error) {
	rs := bytes.NewReader(doc)
	conf := model.NewDefaultConfiguration()

	dims, err := api.PageDims(rs, conf)
	if err != nil {
		return nil, fault.WrapValidation(err, "reading label document")
	}
	if len(dims) == 0 {
		return nil, fault.Validation("label document has no pages")
	}

	rect, err := cropRect(dims[0].Width, dims[0].Height)
	if err != nil {
		return nil, err
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	boundaries := &model.PageBoundaries{
		Media: &model.Box{Rect: rect},
		Crop:  &model.Box{Rect: rect},
	}

	var buf bytes.Buffer
	if err := api.AddBoxes(rs, &buf, []string{"1"}, boundaries, conf); err != nil {
		return nil, fault.WrapValidation(err, "cropping label document")
	}
	return buf.Bytes(), nil
}

// cropRect computes the crop rectangle for a page of the given size. A
// non-finite or non-positive dimension means the page geometry is degenerate.
func cropRect(width, height float64) (*types.Rectangle, error) {
	cropWidth := width - cropWidthInset
	cropHeight := height - cropHeightInset

	for _, v := range []float64{cropX, cropY, cropWidth, cropHeight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fault.Validation("label crop: computed dimension is not finite")
		}
	}
	if cropWidth <= 0 || cropHeight <= 0 {
		return nil, fault.Validation(fmt.Sprintf("label crop: degenerate page size %gx%g", width, height))
	}

	return types.NewRectangle(cropX, cropY, cropX+cropWidth, cropY+cropHeight), nil
}
