package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// pxToPt maps 96dpi pixels onto PDF points.
const pxToPt = 72.0 / 96.0

// encodePDF writes one page per frame, each page the size of the frame.
func encodePDF(w io.Writer, frames []*image.RGBA, _ time.Duration, s Settings, progress Progress) error {
	b := frames[0].Bounds()
	size := gofpdf.SizeType{Wd: float64(b.Dx()) * pxToPt, Ht: float64(b.Dy()) * pxToPt}
	p := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	p.SetAutoPageBreak(false, 0)
	p.SetCreator("CrayonBoard", true)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	var buf bytes.Buffer
	for i, f := range frames {
		buf.Reset()
		if err := png.Encode(&buf, flatten(f, s)); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("frame%d", i)
		p.RegisterImageOptionsReader(name, opts, &buf)
		p.AddPage()
		p.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")
		if progress != nil {
			progress(50 + float64(i+1)/float64(len(frames))*45)
		}
	}
	if err := p.Error(); err != nil {
		return err
	}
	return p.Output(w)
}
