package qrpass

import (
	"context"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/wrc-program/attendance/internal/attendee"
	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/qrsign"
	"github.com/wrc-program/attendance/internal/storage"
)

// ImageSize is the edge length in pixels of generated QR PNGs.
const ImageSize = 300

// Minter issues the four signed verification links of an attendee and
// uploads a QR image for each. It implements attendee.PassMinter.
type Minter struct {
	signer  *qrsign.Signer
	baseURL string
	store   storage.ObjectStore
}

var _ attendee.PassMinter = (*Minter)(nil)

func NewMinter(signer *qrsign.Signer, baseURL string, store storage.ObjectStore) (*Minter, error) {
	if signer == nil {
		return nil, errors.New("qrpass: signer is required")
	}
	if baseURL == "" {
		return nil, errors.New("qrpass: public base url is required")
	}
	return &Minter{signer: signer, baseURL: baseURL, store: store}, nil
}

// Links returns the four signed verification links of uid.
func (m *Minter) Links(uid string, secret qrsign.AttendeeSecret) [program.NumDays]string {
	var links [program.NumDays]string
	for _, day := range program.AllDays() {
		links[day.Index()] = m.signer.VerificationURL(m.baseURL, uid, day, secret)
	}
	return links
}

// PublishImages renders each link as a PNG and uploads it under ImageKey.
// Without an object store nothing is uploaded and no image URLs are returned.
func (m *Minter) PublishImages(ctx context.Context, uid string, links [program.NumDays]string) ([program.NumDays]string, error) {
	var images [program.NumDays]string
	if m.store == nil {
		return images, nil
	}
	for _, day := range program.AllDays() {
		link := links[day.Index()]
		if link == "" {
			continue
		}
		png, err := RenderPNG(link, ImageSize)
		if err != nil {
			return [program.NumDays]string{}, err
		}
		imageURL, err := m.store.Put(ctx, ImageKey(uid, day), "image/png", png)
		if err != nil {
			return [program.NumDays]string{}, fmt.Errorf("store %s pass: %w", day, err)
		}
		images[day.Index()] = imageURL
	}
	return images, nil
}

// ImageKey is the object key of the QR image for uid on day.
func ImageKey(uid string, day program.Day) string {
	return fmt.Sprintf("%s/day%d.png", uid, int(day))
}

// RenderPNG encodes content as a QR code PNG.
func RenderPNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = ImageSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
