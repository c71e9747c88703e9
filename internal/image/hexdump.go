package image

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const bytesPerRow = 16

// HexDump writes data as rows of 16 bytes, each row prefixed with its offset:
//
//	0000: 3e 01 c9 00 ...
func HexDump(w io.Writer, data []byte) error {
	bw := bufio.NewWriter(w)
	for off := 0; off < len(data); off += bytesPerRow {
		end := off + bytesPerRow
		if end > len(data) {
			end = len(data)
		}
		if _, err := fmt.Fprintf(bw, "%04x:", off); err != nil {
			return err
		}
		for _, b := range data[off:end] {
			if _, err := fmt.Fprintf(bw, " %02x", b); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// HexDumpString is HexDump into a string.
func HexDumpString(data []byte) string {
	var sb strings.Builder
	// strings.Builder never fails a write.
	_ = HexDump(&sb, data)
	return sb.String()
}
