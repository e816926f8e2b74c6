package extract

import (
	"bytes"
)

// embeddedJPEGs scans raw PDF bytes for DCTDecode (JPEG) image streams
// and returns their payloads in order of appearance, which follows page
// order for scanner-produced PDFs (one full-page JPEG per page). This is
// deliberately a byte-level scan: it avoids a full PDF object parser and
// only needs to work for the scanned-document case where the text layer
// is absent.
func embeddedJPEGs(pdf []byte) [][]byte {
	var images [][]byte

	rest := pdf
	for {
		idx := bytes.Index(rest, []byte("/DCTDecode"))
		if idx < 0 {
			break
		}
		rest = rest[idx+len("/DCTDecode"):]

		start := bytes.Index(rest, []byte("stream"))
		if start < 0 {
			break
		}
		payload := rest[start+len("stream"):]
		// The stream keyword is followed by CRLF or LF.
		if len(payload) > 0 && payload[0] == '\r' {
			payload = payload[1:]
		}
		if len(payload) > 0 && payload[0] == '\n' {
			payload = payload[1:]
		}

		end := bytes.Index(payload, []byte("endstream"))
		if end < 0 {
			break
		}
		img := bytes.TrimRight(payload[:end], "\r\n")
		if len(img) > 2 && img[0] == 0xFF && img[1] == 0xD8 { // JPEG SOI marker
			images = append(images, img)
		}
		rest = payload[end:]
	}
	return images
}
