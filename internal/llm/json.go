package llm

import (
	"encoding/json"
	"log"
	"strings"
)

// verdictReply is the JSON object the detect prompt asks for. Fields are
// untyped because models do not reliably keep to the schema.
type verdictReply struct {
	Verdict     any `json:"verdict"`
	Confidence  any `json:"confidence"`
	Explanation any `json:"explanation"`
}

// parseReply pulls the JSON object out of a model reply. The object may be
// wrapped in a markdown code fence or surrounded by prose.
func parseReply(text string) (*verdictReply, bool) {
	body := jsonObject(text)
	if body == "" {
		return nil, false
	}

	var r verdictReply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		log.Printf("Failed to parse detect reply as JSON: %v", err)
		return nil, false
	}
	return &r, true
}

func jsonObject(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		end := len(lines)
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				end = i
				break
			}
		}
		text = strings.TrimSpace(strings.Join(lines[1:end], "\n"))
	}

	start := strings.Index(text, "{")
	stop := strings.LastIndex(text, "}")
	if start < 0 || stop < start {
		return ""
	}
	return text[start : stop+1]
}

func (r *verdictReply) explanation() string {
	s, _ := r.Explanation.(string)
	return strings.TrimSpace(s)
}

func (r *verdictReply) verdict() string {
	s, _ := r.Verdict.(string)
	return s
}

func (r *verdictReply) confidence() (float64, bool) {
	f, ok := r.Confidence.(float64)
	return f, ok && f >= 0 && f <= 1
}
