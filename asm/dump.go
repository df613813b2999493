package asm

import (
	"fmt"
	"strings"
)

// Dump returns a human readable hex listing of the given image,
// sixteen bytes per row.
func Dump(image []byte) string {
	var sb strings.Builder

	for offset := 0; offset < len(image); offset += 16 {
		fmt.Fprintf(&sb, "%02x:", offset)

		end := offset + 16
		if end > len(image) {
			end = len(image)
		}

		for _, b := range image[offset:end] {
			fmt.Fprintf(&sb, " %02x", b)
		}

		sb.WriteByte('\n')
	}

	return sb.String()
}
