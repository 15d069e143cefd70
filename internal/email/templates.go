package email

import (
	"fmt"
	"html"
	"strings"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	Price     float64
}

// OrderMail is everything an order email shows.
type OrderMail struct {
	To           string
	CustomerName string
	OrderID      string
	Items        []OrderItem
}

func (m OrderMail) Total() float64 {
	var total float64
	for _, it := range m.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

var headings = map[Kind]struct{ title, intro string }{
	KindOrderReceived: {
		"Thank you for your order",
		"We have received your order and reserved the items below.",
	},
	KindOrderConfirmed: {
		"Your order is confirmed",
		"Your order has been confirmed and is being prepared.",
	},
	KindOrderCancelled: {
		"Your order was cancelled",
		"Your order has been cancelled. The reserved items were released.",
	},
}

// BuildOrderBody builds the HTML body of an order email.
func BuildOrderBody(kind Kind, m OrderMail) string {
	var itemsHTML strings.Builder
	for _, item := range m.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">$%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">$%s</td>
			</tr>`,
			html.EscapeString(name),
			item.Quantity,
			formatPrice(item.Price),
			formatPrice(item.Price*float64(item.Quantity)),
		))
	}

	h := headings[kind]
	greeting := "Hello"
	if m.CustomerName != "" {
		greeting = "Hello " + html.EscapeString(m.CustomerName)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #4f46e5; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">%s</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">%s,</p>
		<p>%s</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Product</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Unit price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #4f46e5; margin-left: 10px;">$%s</span>
		</div>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. Please contact support if you have any questions.
		</p>
	</div>
</body>
</html>`, h.title, greeting, h.intro, html.EscapeString(m.OrderID), itemsHTML.String(), formatPrice(m.Total()))
}

// formatPrice renders an amount with two decimals and comma separators.
func formatPrice(amount float64) string {
	str := fmt.Sprintf("%.2f", amount)
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}
	whole, frac, _ := strings.Cut(str, ".")
	return sign + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var result strings.Builder
	remainder := len(digits) % 3
	if remainder > 0 {
		result.WriteString(digits[:remainder])
		result.WriteString(",")
	}

	for i := remainder; i < len(digits); i += 3 {
		result.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			result.WriteString(",")
		}
	}

	return result.String()
}
