package models

import (
	"encoding/base64"
	"time"
)

// Blob is a raw piece of media handed over by a capture surface.
type Blob struct {
	Name     string
	MimeType string
	Data     []byte
}

func (b Blob) Size() int64 {
	return int64(len(b.Data))
}

// CapturedPhoto is the photo held for a named slot (e.g. "foto_frente").
type CapturedPhoto struct {
	SlotName       string    `json:"slot"`
	Data           []byte    `json:"-"`
	MimeType       string    `json:"type"`
	PreviewDataURI string    `json:"-"`
	CapturedAt     time.Time `json:"captured_at"`
}

func (p CapturedPhoto) Size() int64 {
	return int64(len(p.Data))
}

// CapturedDocument is the optional invoice or registration attached to an inspection.
type CapturedDocument struct {
	Data           []byte    `json:"-"`
	PreviewDataURI string    `json:"-"`
	FileName       string    `json:"name"`
	SizeBytes      int64     `json:"size"`
	MimeType       string    `json:"type"`
	PageCount      int       `json:"page_count,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}

// SignatureImage is the rasterized client signature, always PNG.
type SignatureImage struct {
	Data       []byte    `json:"-"`
	DataURI    string    `json:"-"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CapturedAt time.Time `json:"captured_at"`
}

// CaptureSnapshot is a point-in-time copy of everything captured so far.
// Photos are in display order. Nothing in it aliases the live store.
type CaptureSnapshot struct {
	Photos    []CapturedPhoto   `json:"photos"`
	Document  *CapturedDocument `json:"document"`
	Signature *SignatureImage   `json:"signature"`
}

func (s CaptureSnapshot) Photo(slot string) (CapturedPhoto, bool) {
	for _, p := range s.Photos {
		if p.SlotName == slot {
			return p, true
		}
	}
	return CapturedPhoto{}, false
}

// DataURI renders data as a base64 data URI of the given MIME type.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
