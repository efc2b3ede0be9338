package service

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// proofCaptureDate extracts the EXIF capture timestamp from a proof photo.
// Missing or unreadable EXIF data is normal for screenshots and bank
// exports, so failures simply mean no capture date.
func proofCaptureDate(data []byte) *time.Time {
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	taken, err := meta.DateTime()
	if err != nil {
		return nil
	}
	utc := taken.UTC()
	return &utc
}
