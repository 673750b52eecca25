package audit

import (
	"bytes"
	"fmt"
)

// Marshal renders one Event as a plain-text line: space-separated
// KEY=VALUE pairs, with the two order ids written as their raw 16 bytes
// (not hex-encoded) immediately after their '='. The raw-bytes-in-a-text-
// line choice matches the wire contract this sink implements, not chosen
// for readability.
func Marshal(e Event) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "TIMESTAMP=%d KIND=%d PRICE=%d QTY=%d SIDE=%d PRICE2=%d QTY2=%d SIDE2=%d ",
		e.Timestamp, uint8(e.Kind), e.Price, e.Qty, uint8(e.Side), e.Price2, e.Qty2, uint8(e.Side2))
	buf.WriteString("ORDID=")
	buf.Write(e.ID[:])
	buf.WriteString(" ORDID2=")
	buf.Write(e.ID2[:])
	buf.WriteByte('\n')
	return buf.Bytes()
}
