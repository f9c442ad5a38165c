package services

import (
	"testing"

	"golang.org/x/text/language"
)

func TestResolveLocale(t *testing.T) {
	cases := map[string]language.Tag{
		"":      language.English,
		"vi":    language.Vietnamese,
		"vi-VN": language.Vietnamese,
		"en-GB": language.English,
		"fr":    language.English,
		"%%":    language.English,
	}
	for input, want := range cases {
		if got := resolveLocale(input); got != want {
			t.Fatalf("resolveLocale(%q): expected %s, got %s", input, want, got)
		}
	}
}

func TestRenderNotification(t *testing.T) {
	title, msg := renderNotification("vi", templateOrderStatus, "CV-1", statusLabel("shipping"))
	if title != "Cập nhật đơn hàng" {
		t.Fatalf("unexpected vi title %q", title)
	}
	if msg != "Đơn hàng CV-1 hiện ở trạng thái đang giao." {
		t.Fatalf("unexpected vi message %q", msg)
	}

	title, msg = renderNotification("en", templateBookingCreated, "BK2406011234", "Sapa Trek")
	if title != "Booking received" || msg != "Booking BK2406011234 for Sapa Trek has been received." {
		t.Fatalf("unexpected en rendering %q / %q", title, msg)
	}
}
