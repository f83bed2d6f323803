package notifications

import (
	"fmt"
	"html"
)

// FormatMinor renders minor currency units as a decimal amount, e.g. 123456 -> "1234.56".
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

func PayoutApprovedEmail(fullName, reference string, amount int64) (string, string) {
	return "Your payout has been approved",
		fmt.Sprintf("<h1>Payout approved</h1><p>Hello %s,</p><p>Your payout request %s for %s has been approved and will be transferred shortly.</p>",
			html.EscapeString(fullName), html.EscapeString(reference), FormatMinor(amount))
}

func PayoutRejectedEmail(fullName, reference, note string) (string, string) {
	body := fmt.Sprintf("<h1>Payout request update</h1><p>Hello %s,</p><p>Your payout request %s was rejected. Your balance is unchanged and you can submit a new request.</p>",
		html.EscapeString(fullName), html.EscapeString(reference))
	if note != "" {
		body += fmt.Sprintf("<p><b>Note:</b> %s</p>", html.EscapeString(note))
	}
	return "Update on your payout request", body
}

func PendingDigestEmail(fullName string, pending int64, oldestDays int) (string, string) {
	return "Payout requests waiting for review",
		fmt.Sprintf("<h1>Pending payouts</h1><p>Hello %s,</p><p>%d payout request(s) are waiting for a decision. The oldest has been pending for %d day(s).</p>",
			html.EscapeString(fullName), pending, oldestDays)
}
