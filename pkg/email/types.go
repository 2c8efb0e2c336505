package email

import "strings"

// Message is one outgoing email. At least one of TextBody and HTMLBody
// must be set; when both are, HTML is sent as the alternative part.
type Message struct {
	To       []string
	CC       []string
	BCC      []string
	Subject  string
	TextBody string
	HTMLBody string
	Headers  map[string]string
}

func (m Message) hasRecipient() bool {
	return len(trimAll(m.To))+len(trimAll(m.CC))+len(trimAll(m.BCC)) > 0
}

// trimAll drops blank entries and surrounding whitespace.
func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
