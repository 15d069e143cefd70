package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{9.5, "9.50"},
		{999.999, "1,000.00"},
		{1234567.891, "1,234,567.89"},
		{123456, "123,456.00"},
		{-4200, "-4,200.00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPrice(tt.in))
		})
	}
}

func TestBuildOrderBody(t *testing.T) {
	m := OrderMail{
		To:           "alice@example.com",
		CustomerName: "Alice <script>",
		OrderID:      "0f8c2d4e-aaaa-bbbb-cccc-1234567890ab",
		Items: []OrderItem{
			{ProductID: "p-1", Name: "Mug", Quantity: 2, Price: 1500},
			{ProductID: "p-2", Quantity: 1, Price: 2.25},
		},
	}

	body := BuildOrderBody(KindOrderCancelled, m)

	assert.Contains(t, body, "Your order was cancelled")
	assert.Contains(t, body, "Hello Alice &lt;script&gt;")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "Mug")
	assert.Contains(t, body, "p-2", "falls back to the product id without a name")
	assert.Contains(t, body, "$3,000.00")
	assert.Contains(t, body, "$3,002.25")
	assert.Equal(t, 3002.25, m.Total())
}

func TestService_SendOrderMail(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	svc := NewService("mail.local", "1025", "noreply@example.com")
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	err := svc.SendOrderMail(KindOrderReceived, OrderMail{
		To:      "bob@example.com",
		OrderID: "12345678-rest-of-id",
		Items:   []OrderItem{{Name: "Pen", Quantity: 1, Price: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, "mail.local:1025", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"bob@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: noreply@example.com\r\nTo: bob@example.com\r\n"))
	assert.Contains(t, gotMsg, "Subject: Order received (order no. 12345678)\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=UTF-8")
}

func TestService_SendOrderMail_Errors(t *testing.T) {
	svc := NewService("mail.local", "1025", "noreply@example.com")
	relayDown := errors.New("connection refused")
	svc.send = func(string, smtp.Auth, string, []string, []byte) error { return relayDown }

	assert.ErrorIs(t, svc.SendOrderMail(KindOrderConfirmed, OrderMail{To: "a@b.co", OrderID: "x"}), relayDown)
	assert.ErrorContains(t, svc.SendOrderMail(Kind("shipped"), OrderMail{To: "a@b.co"}), "unknown order mail kind")
}
