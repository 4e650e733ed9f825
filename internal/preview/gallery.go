package preview

import (
	"image"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/opencv/conversion"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	xdraw "golang.org/x/image/draw"
)

const (
	AppID           = "io.pixelgraph.preview"
	MaxPreviewSide  = 1024
	MinWindowWidth  = 640
	MinWindowHeight = 480
)

type galleryEntry struct {
	label string
	img   image.Image
}

// Gallery collects shown buffers and presents them as tabs of a single fyne
// window. The fyne event loop can run once per process, so only the first
// Wait opens a window.
type Gallery struct {
	entries []galleryEntry
	ran     bool
	logger  logger.Logger
}

func NewGallery(log logger.Logger) *Gallery {
	return &Gallery{logger: logger.OrNop(log)}
}

func (g *Gallery) Show(buf *buffer.Buffer, label string) {
	if buf.Empty() {
		g.logger.Debug("Gallery", "nothing to show", map[string]interface{}{"label": label})
		return
	}

	img, err := conversion.ToImage(buf)
	if err != nil {
		g.logger.Error("Gallery", err, map[string]interface{}{"label": label})
		return
	}

	g.entries = append(g.entries, galleryEntry{label: label, img: Fit(img, MaxPreviewSide)})
}

// Len reports how many images wait to be shown.
func (g *Gallery) Len() int {
	return len(g.entries)
}

func (g *Gallery) Wait() {
	if len(g.entries) == 0 {
		return
	}
	if g.ran {
		g.logger.Warning("Gallery", "preview window already closed, dropping images", map[string]interface{}{
			"dropped": len(g.entries),
		})
		g.entries = nil
		return
	}
	g.ran = true

	fyneApp := app.NewWithID(AppID)
	window := fyneApp.NewWindow("pixelgraph preview")

	tabs := container.NewAppTabs()
	for _, e := range g.entries {
		img := canvas.NewImageFromImage(e.img)
		img.FillMode = canvas.ImageFillContain
		bounds := e.img.Bounds()
		img.SetMinSize(fyne.NewSize(float32(bounds.Dx()), float32(bounds.Dy())))
		tabs.Append(container.NewTabItem(e.label, container.NewScroll(img)))
	}
	g.entries = nil

	window.SetContent(tabs)
	window.Resize(fyne.NewSize(MinWindowWidth, MinWindowHeight))
	window.CenterOnScreen()
	window.ShowAndRun()
}

// Fit scales img down with Catmull-Rom so that neither side exceeds maxSide.
// Smaller images are returned unchanged.
func Fit(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}

	scale := float64(maxSide) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}
