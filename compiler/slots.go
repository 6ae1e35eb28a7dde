package compiler

import (
	"regexp"
	"strconv"
	"strings"
)

// Slots is the map from slot name to JSON-compatible value produced by
// ExtractSlots. Values may be string, int, or []string.
type Slots map[string]any

var (
	quotedPathRe    = regexp.MustCompile(`['"]([^'"\s]+\.\w{1,5})['"]`)
	bareTokenRe     = regexp.MustCompile(`\S+\.\w{1,5}`)
	llmModelRe      = regexp.MustCompile(`(?i)\b(claude\S*|gpt\S*|gemini\S*)\b`)
	topKRe          = regexp.MustCompile(`(?i)top[_\s-]?k\s*[:=]?\s*(\d+)`)
	chunkSizeRe     = regexp.MustCompile(`(?i)chunk[_\s-]?size\s*[:=]?\s*(\d+)`)
	maxLengthRe     = regexp.MustCompile(`(?i)max[_\s-]?length\s*[:=]?\s*(\d+)`)
	numQuestionsRe  = regexp.MustCompile(`(?i)(\d+)\s+questions`)
	translationToRe = regexp.MustCompile(`(?i)\btranslate\s+(?:this\s+)?(?:text\s+|document\s+)?(?:in)?to\s+([a-zA-Z]+)`)
	categoriesRe    = regexp.MustCompile(`(?i)categories?\s*[:=]?\s*([a-zA-Z, ]+)`)
	indexNameRe     = regexp.MustCompile(`(?i)index\s+name\s*[:=]?\s*(\S+)`)

	defaultLLMModel = "claude-sonnet-4-20250514"
)

// ExtractSlots runs the ordered pattern extractors for taskType over prompt,
// then applies the fixed default values for any slot left unset.
func ExtractSlots(prompt string, taskType TaskType) Slots {
	slots := Slots{}

	if src, ok := extractDataSource(prompt); ok {
		slots["data_source"] = src
	}
	slots["llm_model"] = extractLLMModel(prompt)

	if v, ok := extractFirstInt(topKRe, prompt); ok {
		slots["top_k"] = v
	}
	if v, ok := extractFirstInt(chunkSizeRe, prompt); ok {
		slots["chunk_size"] = v
	}
	if v, ok := extractFirstInt(maxLengthRe, prompt); ok {
		slots["max_length"] = v
	}
	if v, ok := extractFirstInt(numQuestionsRe, prompt); ok {
		slots["num_questions"] = v
	}

	switch taskType {
	case TaskTypeTranslation:
		if m := translationToRe.FindStringSubmatch(prompt); m != nil {
			slots["target_language"] = strings.ToLower(m[1])
		}
	case TaskTypeReview, TaskTypeCodeReview:
		if strings.Contains(strings.ToLower(prompt), "criteria") {
			slots["review_criteria"] = extractAfterKeyword(prompt, "criteria")
		}
	case TaskTypeSentiment:
		if m := categoriesRe.FindStringSubmatch(prompt); m != nil {
			cats := strings.Split(m[1], ",")
			for i := range cats {
				cats[i] = strings.TrimSpace(cats[i])
			}
			slots["categories"] = cats
		}
	case TaskTypeKnowledgeBaseBuild:
		if m := indexNameRe.FindStringSubmatch(prompt); m != nil {
			slots["index_name"] = m[1]
		}
	}

	applyDefaults(slots)
	return slots
}

func applyDefaults(slots Slots) {
	if _, ok := slots["chunk_size"]; !ok {
		slots["chunk_size"] = 1000
	}
	if _, ok := slots["top_k"]; !ok {
		slots["top_k"] = 5
	}
	if _, ok := slots["max_length"]; !ok {
		slots["max_length"] = 500
	}
	if _, ok := slots["output_format"]; !ok {
		slots["output_format"] = "text"
	}
}

func extractDataSource(prompt string) (string, bool) {
	if m := quotedPathRe.FindStringSubmatch(prompt); m != nil {
		return m[1], true
	}
	if m := bareTokenRe.FindString(prompt); m != "" {
		return m, true
	}
	return "", false
}

func extractLLMModel(prompt string) string {
	if m := llmModelRe.FindString(prompt); m != "" {
		return strings.ToLower(m)
	}
	return defaultLLMModel
}

func extractFirstInt(re *regexp.Regexp, prompt string) (int, bool) {
	m := re.FindStringSubmatch(prompt)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func extractAfterKeyword(prompt, keyword string) string {
	idx := strings.Index(strings.ToLower(prompt), keyword)
	if idx < 0 {
		return ""
	}
	rest := prompt[idx+len(keyword):]
	rest = strings.TrimLeft(rest, ": ")
	if i := strings.IndexAny(rest, ".\n"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}
