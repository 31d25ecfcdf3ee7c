package attendee

import "time"

// View is the JSON shape of an attendee. The QR secret is never exposed.
type View struct {
	ID                 string     `json:"id"`
	UID                string     `json:"uid"`
	Name               string     `json:"name"`
	Phone              string     `json:"phone"`
	QRURLs             []string   `json:"qr_urls"`
	QRImageURLs        []string   `json:"qr_image_urls"`
	VoucherCollected   bool       `json:"voucher_collected"`
	VoucherCollectedAt *time.Time `json:"voucher_collected_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

func NewView(a Attendee) View {
	return View{
		ID:                 a.ID,
		UID:                a.UID,
		Name:               a.Name,
		Phone:              a.Phone,
		QRURLs:             nonEmpty(a.DayURLs[:]),
		QRImageURLs:        nonEmpty(a.DayImageURLs[:]),
		VoucherCollected:   a.VoucherCollected,
		VoucherCollectedAt: a.VoucherCollectedAt,
		CreatedAt:          a.CreatedAt,
	}
}

// nonEmpty keeps the per-day slice when at least one entry is set.
func nonEmpty(values []string) []string {
	for _, v := range values {
		if v != "" {
			out := make([]string, len(values))
			copy(out, values)
			return out
		}
	}
	return []string{}
}
