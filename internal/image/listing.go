package image

import (
	"bufio"
	"encoding/hex"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// ParseListing extracts addressed chunks from a GNU as listing (-al/-alh).
//
// A primary listing line is "<lineno> <addr> <hex...>\t<source>". Lines whose
// data does not fit on one row continue as "<lineno>      <hex...>" with no
// tab and no address; their bytes follow the previous row. Page headers,
// high-level source rows, rows without data and rows with an unknown address
// ("????") carry no chunk and are skipped.
func ParseListing(text string) []Chunk {
	var (
		chunks  []Chunk
		next    uint64
		canCont bool
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		left, _, primary := strings.Cut(line, "\t")
		fields := strings.Fields(left)
		if len(fields) == 0 || !isDecimal(fields[0]) {
			continue
		}

		if !primary {
			if !canCont || len(fields) < 2 {
				continue
			}
			data, ok := decodeHex(fields[1:])
			if !ok {
				canCont = false
				continue
			}
			addr, err := safecast.Conv[uint32](next)
			if err != nil {
				canCont = false
				continue
			}
			chunks = append(chunks, Chunk{Address: addr, Bytes: data})
			next += uint64(len(data))
			continue
		}

		canCont = false
		if len(fields) < 3 {
			continue
		}
		addr, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			continue
		}
		data, ok := decodeHex(fields[2:])
		if !ok {
			continue
		}
		chunks = append(chunks, Chunk{Address: uint32(addr), Bytes: data})
		next = addr + uint64(len(data))
		canCont = true
	}
	return chunks
}

func isDecimal(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func decodeHex(groups []string) ([]byte, bool) {
	joined := strings.Join(groups, "")
	if joined == "" || len(joined)%2 != 0 {
		return nil, false
	}
	data, err := hex.DecodeString(joined)
	if err != nil {
		return nil, false
	}
	return data, true
}
