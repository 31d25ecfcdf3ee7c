package qrpass

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/wrc-program/attendance/internal/attendee"
	"github.com/wrc-program/attendance/internal/clock"
	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/qrsign"
	"github.com/wrc-program/attendance/internal/storage"
)

func newMinter(t *testing.T, store storage.ObjectStore) (*Minter, *qrsign.Signer) {
	t.Helper()
	signer, err := qrsign.NewSigner(qrsign.ServerSecret("test-server-secret"))
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	m, err := NewMinter(signer, "https://attend.example.org", store)
	if err != nil {
		t.Fatalf("minter: %v", err)
	}
	return m, signer
}

func TestLinksVerifyAndImagesAreStored(t *testing.T) {
	store := storage.NewMemoryStore("/qr-codes")
	m, signer := newMinter(t, store)

	secret := qrsign.AttendeeSecret("attendee-secret")
	links := m.Links("WRCAB12CD3", secret)
	if store.Len() != 0 {
		t.Fatalf("building links must not upload anything")
	}
	images, err := m.PublishImages(context.Background(), "WRCAB12CD3", links)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, day := range program.AllDays() {
		u, err := url.Parse(links[day.Index()])
		if err != nil {
			t.Fatalf("parse url: %v", err)
		}
		q := u.Query()
		if q.Get("uid") != "WRCAB12CD3" || q.Get("day") != strconv.Itoa(int(day)) {
			t.Fatalf("unexpected query %v", q)
		}
		if !signer.Verify("WRCAB12CD3", day, q.Get("sig"), secret) {
			t.Fatalf("%s link does not verify", day)
		}

		wantImage := "/qr-codes/" + ImageKey("WRCAB12CD3", day)
		if images[day.Index()] != wantImage {
			t.Fatalf("expected image url %s got %s", wantImage, images[day.Index()])
		}
		png, ct, err := store.Get(ImageKey("WRCAB12CD3", day))
		if err != nil || ct != "image/png" {
			t.Fatalf("stored image: %v", err)
		}
		if !bytes.HasPrefix(png, []byte("\x89PNG")) {
			t.Fatalf("stored object is not a png")
		}
	}
}

func TestPublishWithoutStoreReturnsNoImages(t *testing.T) {
	m, _ := newMinter(t, nil)
	links := m.Links("WRC0000001", "s")
	images, err := m.PublishImages(context.Background(), "WRC0000001", links)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if links[0] == "" || images[0] != "" {
		t.Fatalf("unexpected links %v images %v", links, images)
	}
}

func TestNewMinterRequiresBaseURL(t *testing.T) {
	signer, _ := qrsign.NewSigner(qrsign.ServerSecret("k"))
	if _, err := NewMinter(signer, "", nil); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestRenderPDF(t *testing.T) {
	sched, err := program.NewSchedule(program.DefaultDates, time.UTC, clock.Fake(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	m, _ := newMinter(t, nil)
	a := attendee.Attendee{UID: "WRCAB12CD3", Name: "Grace Okafor", DayURLs: m.Links("WRCAB12CD3", "secret")}
	a.DayURLs[2] = ""

	pdf, err := RenderPDF(a, sched)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Fatalf("output is not a pdf")
	}
}
