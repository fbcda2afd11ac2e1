// Package notify carries outbound email through a durable AMQP queue. The
// flows publish jobs best-effort; a separate consumer process drains the
// queue and delivers over SMTP.
package notify

import "encoding/json"

// MessageTypeEmail marks an email delivery job.
const MessageTypeEmail = "email"

// Message is the queue payload shared by publisher and consumer.
type Message struct {
	Type    string `json:"type"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// EncodeEmail marshals an email job.
func EncodeEmail(to, subject, text string) ([]byte, error) {
	return json.Marshal(Message{
		Type:    MessageTypeEmail,
		To:      to,
		Subject: subject,
		Text:    text,
	})
}

// DecodeMessage unmarshals a queue payload.
func DecodeMessage(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
