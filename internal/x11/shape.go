package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
)

// SetInputPassthrough toggles click-through on a window through its XShape
// input region. An empty region lets every event fall through to whatever
// is below; clearing the region restores the default (the whole window).
//
// X has no notion of "ignore but still forward moves": pointer motion
// keeps reaching the host through QueryPointer polling either way.
func (c *Connection) SetInputPassthrough(windowID xproto.Window, ignore bool) error {
	conn := c.XUtil.Conn()
	if ignore {
		err := shape.RectanglesChecked(conn, shape.SoSet, shape.SkInput,
			xproto.ClipOrderingUnsorted, windowID, 0, 0, nil).Check()
		if err != nil {
			return fmt.Errorf("failed to clear input region: %w", err)
		}
		return nil
	}
	err := shape.MaskChecked(conn, shape.SoSet, shape.SkInput, windowID, 0, 0, xproto.PixmapNone).Check()
	if err != nil {
		return fmt.Errorf("failed to restore input region: %w", err)
	}
	return nil
}
