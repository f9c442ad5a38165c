package services

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	templateOrderCreated   = "order.created"
	templateOrderStatus    = "order.status"
	templateOrderExpired   = "order.expired"
	templateOrderPayment   = "order.payment"
	templateBookingCreated = "booking.created"
	templateBookingStatus  = "booking.status"
	templateSupportMessage = "support.message"
)

var (
	notificationLanguages = []language.Tag{language.English, language.Vietnamese}
	notificationMatcher   = language.NewMatcher(notificationLanguages)
	notificationCatalog   = buildNotificationCatalog()
)

// statusLabel marks a template argument that is translated before formatting.
type statusLabel string

func buildNotificationCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	entries := map[string][2]string{
		templateOrderCreated + ".title":     {"Order placed", "Đặt hàng thành công"},
		templateOrderCreated + ".message":   {"Your order %s has been placed.", "Đơn hàng %s của bạn đã được đặt."},
		templateOrderStatus + ".title":      {"Order updated", "Cập nhật đơn hàng"},
		templateOrderStatus + ".message":    {"Order %s is now %s.", "Đơn hàng %s hiện ở trạng thái %s."},
		templateOrderExpired + ".title":     {"Order expired", "Đơn hàng đã hết hạn"},
		templateOrderExpired + ".message":   {"Order %s was removed because it was not confirmed in time.", "Đơn hàng %s đã bị hủy do không được xác nhận kịp thời."},
		templateOrderPayment + ".title":     {"Payment update", "Cập nhật thanh toán"},
		templateOrderPayment + ".message":   {"Payment for order %s is %s.", "Thanh toán cho đơn hàng %s: %s."},
		templateBookingCreated + ".title":   {"Booking received", "Đã nhận đặt tour"},
		templateBookingCreated + ".message": {"Booking %s for %s has been received.", "Đặt tour %s cho %s đã được tiếp nhận."},
		templateBookingStatus + ".title":    {"Booking updated", "Cập nhật đặt tour"},
		templateBookingStatus + ".message":  {"Booking %s is now %s.", "Đặt tour %s hiện ở trạng thái %s."},
		templateSupportMessage + ".title":   {"New message", "Tin nhắn mới"},
		templateSupportMessage + ".message": {"You have a new message: %s", "Bạn có tin nhắn mới: %s"},

		"status.pending":        {"pending", "chờ xử lý"},
		"status.processing":     {"processing", "đang xử lý"},
		"status.confirmed":      {"confirmed", "đã xác nhận"},
		"status.shipping":       {"shipping", "đang giao"},
		"status.delivered":      {"delivered", "đã giao"},
		"status.completed":      {"completed", "hoàn thành"},
		"status.cancelled":      {"cancelled", "đã hủy"},
		"status.cancel_request": {"awaiting cancellation", "chờ hủy"},
		"status.paid":           {"paid", "đã thanh toán"},
		"status.failed":         {"failed", "thất bại"},
		"status.refunded":       {"refunded", "đã hoàn tiền"},
	}
	for key, text := range entries {
		_ = b.SetString(language.English, key, text[0])
		_ = b.SetString(language.Vietnamese, key, text[1])
	}
	return b
}

// resolveLocale matches a BCP 47 string against the supported notification languages.
func resolveLocale(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	_, index, confidence := notificationMatcher.Match(tag)
	if confidence == language.No {
		return language.English
	}
	return notificationLanguages[index]
}

// renderNotification returns the localised title and message for template.
func renderNotification(locale, template string, args ...any) (string, string) {
	printer := message.NewPrinter(resolveLocale(locale), message.Catalog(notificationCatalog))
	formatted := make([]any, len(args))
	for i, arg := range args {
		if label, ok := arg.(statusLabel); ok {
			formatted[i] = printer.Sprintf("status." + string(label))
			continue
		}
		formatted[i] = arg
	}
	return printer.Sprintf(template + ".title"), printer.Sprintf(template+".message", formatted...)
}
