package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
)

type classificationReply struct {
	CategoryCode          *string         `json:"category_code"`
	PackagingType         *string         `json:"packaging_type"`
	HasSecondaryPackaging json.RawMessage `json:"has_secondary_packaging"`
	Reasoning             *string         `json:"reasoning"`
	ShrinkageRisk         *string         `json:"shrinkage_risk"`
	WebSourceNote         *string         `json:"web_source_note"`
}

// replyText joins the plain-text segments of a reply. Search tool calls and
// their results are interleaved with text and are skipped.
func replyText(blocks []anthropic.ContentBlockUnion) string {
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// extractObject narrows text to its outermost {...} span when the model
// wrapped the JSON in prose.
func extractObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseReply decodes and validates the reasoning service's reply text.
func ParseReply(text string) (domain.Result, error) {
	cleaned := stripCodeFences(text)
	if cleaned == "" {
		return domain.Result{}, newParseError("empty reply", text, nil)
	}

	var reply classificationReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		obj, ok := extractObject(cleaned)
		if !ok {
			return domain.Result{}, newParseError("invalid JSON", cleaned, err)
		}
		reply = classificationReply{}
		if err := json.Unmarshal([]byte(obj), &reply); err != nil {
			return domain.Result{}, newParseError("invalid JSON", cleaned, err)
		}
	}
	return validateReply(reply, cleaned)
}

func validateReply(reply classificationReply, text string) (domain.Result, error) {
	var missing []string
	required := []struct {
		key string
		val *string
	}{
		{"category_code", reply.CategoryCode},
		{"packaging_type", reply.PackagingType},
		{"reasoning", reply.Reasoning},
		{"shrinkage_risk", reply.ShrinkageRisk},
		{"web_source_note", reply.WebSourceNote},
	}
	for _, r := range required {
		if r.val == nil {
			missing = append(missing, r.key)
		}
	}
	if len(reply.HasSecondaryPackaging) == 0 || string(reply.HasSecondaryPackaging) == "null" {
		missing = append(missing, "has_secondary_packaging")
	}
	if len(missing) > 0 {
		return domain.Result{}, newParseError("missing keys "+strings.Join(missing, ", "), text, nil)
	}

	category, ok := domain.ParseCategoryCode(*reply.CategoryCode)
	if !ok {
		return domain.Result{}, newParseError(fmt.Sprintf("unknown category_code %q", *reply.CategoryCode), text, nil)
	}
	risk, ok := domain.ParseShrinkageRisk(*reply.ShrinkageRisk)
	if !ok {
		return domain.Result{}, newParseError(fmt.Sprintf("unknown shrinkage_risk %q", *reply.ShrinkageRisk), text, nil)
	}
	secondary, ok := parseSecondaryField(reply.HasSecondaryPackaging)
	if !ok {
		return domain.Result{}, newParseError(fmt.Sprintf("unknown has_secondary_packaging %s", reply.HasSecondaryPackaging), text, nil)
	}

	return domain.Result{
		CategoryCode:          category,
		PackagingType:         strings.TrimSpace(*reply.PackagingType),
		HasSecondaryPackaging: secondary,
		Reasoning:             strings.TrimSpace(*reply.Reasoning),
		ShrinkageRisk:         risk,
		WebSourceNote:         strings.TrimSpace(*reply.WebSourceNote),
	}, nil
}

// parseSecondaryField accepts "Sí"/"No" style strings and bare booleans.
func parseSecondaryField(raw json.RawMessage) (string, bool) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return domain.ParseSecondaryPackaging(asString)
	}
	var asBool bool
	if err := json.Unmarshal(raw, &asBool); err == nil {
		if asBool {
			return domain.SecondaryYes, true
		}
		return domain.SecondaryNo, true
	}
	return "", false
}
