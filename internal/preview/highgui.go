package preview

import (
	"fmt"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"

	"gocv.io/x/gocv"
)

// HighGUI opens one OpenCV window per shown buffer and waits for a key press.
type HighGUI struct {
	windows []*gocv.Window
	names   map[string]int
	logger  logger.Logger
}

func NewHighGUI(log logger.Logger) *HighGUI {
	return &HighGUI{
		names:  make(map[string]int),
		logger: logger.OrNop(log),
	}
}

func (h *HighGUI) Show(buf *buffer.Buffer, label string) {
	if buf.Empty() {
		h.logger.Debug("HighGUI", "nothing to show", map[string]interface{}{"label": label})
		return
	}

	name := label
	if n := h.names[label]; n > 0 {
		name = fmt.Sprintf("%s (%d)", label, n+1)
	}
	h.names[label]++

	window := gocv.NewWindow(name)
	window.IMShow(buf.Mat())
	h.windows = append(h.windows, window)
}

func (h *HighGUI) Wait() {
	if len(h.windows) == 0 {
		return
	}

	h.logger.Info("HighGUI", "press any key to close the preview", map[string]interface{}{
		"windows": len(h.windows),
	})
	h.windows[0].WaitKey(0)

	for _, w := range h.windows {
		w.Close()
	}
	h.windows = nil
	h.names = make(map[string]int)
}
