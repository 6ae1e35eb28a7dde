// Package compiler translates a free-text prompt into a validated
// core.WorkflowSpec: classify the task, extract slot values, match a
// template (falling back to an injected planner), type-check the result
// against the registry, and insert validator nodes where side-effect and
// permission surfaces disagree across an edge.
package compiler

import "strings"

// TaskType is the fixed set of recognized task shapes a prompt may classify to.
type TaskType string

const (
	TaskTypeRAG               TaskType = "rag"
	TaskTypeSummarize         TaskType = "summarize"
	TaskTypeReview            TaskType = "review"
	TaskTypeDataAnalysis      TaskType = "data_analysis"
	TaskTypeReport            TaskType = "report"
	TaskTypeTranslation       TaskType = "translation"
	TaskTypeCodeReview        TaskType = "code_review"
	TaskTypeQAExtraction      TaskType = "qa_extraction"
	TaskTypeSentiment         TaskType = "sentiment"
	TaskTypeKnowledgeBaseBuild TaskType = "knowledge_base_build"
	TaskTypeCustomUnknown     TaskType = "custom:unknown"
)

// classifyRule pairs a task type with the keywords that select it. Order is
// significant: the first matching rule wins.
type classifyRule struct {
	taskType TaskType
	keywords []string
}

var classifyRules = []classifyRule{
	{TaskTypeRAG, []string{"rag", "retrieval augmented", "retrieve and generate", "retrieval-augmented"}},
	{TaskTypeSummarize, []string{"summarize", "summary", "summarise", "tl;dr"}},
	{TaskTypeReview, []string{"review", "critique", "feedback on"}},
	{TaskTypeDataAnalysis, []string{"analyze data", "data analysis", "analyse data", "statistics on"}},
	{TaskTypeReport, []string{"report", "write-up", "writeup"}},
	{TaskTypeTranslation, []string{"translate", "translation"}},
	{TaskTypeCodeReview, []string{"code review", "review this code", "pull request review"}},
	{TaskTypeQAExtraction, []string{"extract questions", "qa extraction", "question answer"}},
	{TaskTypeSentiment, []string{"sentiment", "opinion mining"}},
	{TaskTypeKnowledgeBaseBuild, []string{"knowledge base", "build a kb", "index documents"}},
}

// Classify maps a prompt to a TaskType by case-insensitive containment match
// against an ordered keyword list. Always succeeds: an unmatched prompt
// classifies to TaskTypeCustomUnknown.
func Classify(prompt string) TaskType {
	lower := strings.ToLower(prompt)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.taskType
			}
		}
	}
	return TaskTypeCustomUnknown
}
