package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// EventID returns the producer-assigned event id carried in the
// "event_id" header, falling back to the message key.
func EventID(msg kafka.Message) string {
	if id := HeaderValue(msg.Headers, "event_id"); id != "" {
		return id
	}
	return string(msg.Key)
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// SplitBrokers parses a comma-separated broker list from config.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
