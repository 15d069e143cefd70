package email

import (
	"fmt"
	"net/smtp"
)

// Kind selects the subject and wording of an order email.
type Kind string

const (
	KindOrderReceived  Kind = "received"
	KindOrderConfirmed Kind = "confirmed"
	KindOrderCancelled Kind = "cancelled"
)

var subjects = map[Kind]string{
	KindOrderReceived:  "Order received (order no. %s)",
	KindOrderConfirmed: "Order confirmed (order no. %s)",
	KindOrderCancelled: "Order cancelled (order no. %s)",
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
	send sendFunc
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
		send: smtp.SendMail,
	}
}

// SendOrderMail renders the email for kind and hands it to the SMTP relay.
func (s *Service) SendOrderMail(kind Kind, m OrderMail) error {
	subject, ok := subjects[kind]
	if !ok {
		return fmt.Errorf("unknown order mail kind %q", kind)
	}
	body := BuildOrderBody(kind, m)
	return s.deliver(m.To, fmt.Sprintf(subject, shortID(m.OrderID)), body)
}

func (s *Service) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.send(addr, nil, s.from, []string{to}, []byte(msg))
}

func shortID(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}
