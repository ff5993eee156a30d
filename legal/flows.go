package legal

import (
	"embed"
	"fmt"

	"github.com/tluyben/lawyeredup/flow"
)

// Flow names
const (
	SummarizeDocument          = "summarize-document"
	ExplainLegalClause         = "explain-legal-clause"
	AnswerQuestionFromDocument = "answer-question-from-document"
	CheckMissingContracts      = "check-missing-contracts"
	CompareDocuments           = "compare-documents"
	PredictRisk                = "predict-risk"
	ParseUploadedDocument      = "parse-uploaded-document"
	IdentifyRisks              = "identify-risks"
)

//go:embed flows/*.yml
var definitions embed.FS

// Specs parses the built-in flow definitions. Each call returns fresh,
// uncompiled specs
func Specs() ([]*flow.Spec, error) {
	return flow.LoadFS(definitions, "flows")
}

// NewRegistry builds the registry of built-in flows. Definitions found in
// overrideDir, when it is not empty, replace built-ins of the same name or
// add new flows
func NewRegistry(overrideDir string) (*flow.Registry, error) {
	specs, err := Specs()
	if err != nil {
		return nil, err
	}
	reg, err := flow.NewRegistry(specs...)
	if err != nil {
		return nil, err
	}
	if overrideDir == "" {
		return reg, nil
	}
	extra, err := flow.LoadDir(overrideDir)
	if err != nil {
		return nil, fmt.Errorf("error loading flows from %s: %w", overrideDir, err)
	}
	return reg.With(extra...)
}
