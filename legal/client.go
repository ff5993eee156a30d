package legal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tluyben/lawyeredup/flow"
)

// Client exposes each legal flow as a typed call
type Client struct {
	exec *flow.Executor
}

// NewClient wraps an executor whose registry holds the legal flows
func NewClient(exec *flow.Executor) *Client {
	return &Client{exec: exec}
}

func (c *Client) Summarize(
	ctx context.Context, in SummarizeInput,
) (*SummarizeOutput, error) {
	return invoke[SummarizeOutput](ctx, c.exec, SummarizeDocument, in)
}

func (c *Client) ExplainClause(
	ctx context.Context, in ExplainClauseInput,
) (*ExplainClauseOutput, error) {
	return invoke[ExplainClauseOutput](ctx, c.exec, ExplainLegalClause, in)
}

func (c *Client) AnswerQuestion(
	ctx context.Context, in AnswerQuestionInput,
) (*AnswerQuestionOutput, error) {
	return invoke[AnswerQuestionOutput](
		ctx, c.exec, AnswerQuestionFromDocument, in,
	)
}

func (c *Client) CheckMissingContracts(
	ctx context.Context, in CheckMissingContractsInput,
) (*CheckMissingContractsOutput, error) {
	return invoke[CheckMissingContractsOutput](
		ctx, c.exec, CheckMissingContracts, in,
	)
}

// CompareDocuments returns the conflicts between two documents; an empty
// slice means none were found
func (c *Client) CompareDocuments(
	ctx context.Context, in CompareDocumentsInput,
) ([]Conflict, error) {
	res, err := invoke[[]Conflict](ctx, c.exec, CompareDocuments, in)
	if err != nil {
		return nil, err
	}
	if *res == nil {
		return []Conflict{}, nil
	}
	return *res, nil
}

func (c *Client) PredictRisk(
	ctx context.Context, in PredictRiskInput,
) (*PredictRiskOutput, error) {
	if in.PastDisputes == nil {
		in.PastDisputes = []string{}
	}
	if in.Deadlines == nil {
		in.Deadlines = []string{}
	}
	return invoke[PredictRiskOutput](ctx, c.exec, PredictRisk, in)
}

func (c *Client) ParseDocument(
	ctx context.Context, in ParseDocumentInput,
) (*ParseDocumentOutput, error) {
	return invoke[ParseDocumentOutput](ctx, c.exec, ParseUploadedDocument, in)
}

// IdentifyRisks classifies clauses and drafts counter-proposals. A non-empty
// Role reviews the contract from that party's point of view
func (c *Client) IdentifyRisks(
	ctx context.Context, in IdentifyRisksInput,
) (*IdentifyRisksOutput, error) {
	return invoke[IdentifyRisksOutput](ctx, c.exec, IdentifyRisks, in)
}

func invoke[T any](
	ctx context.Context, exec *flow.Executor, name string, in any,
) (*T, error) {
	obj, err := toObject(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	res, err := exec.Invoke(ctx, name, obj)
	if err != nil {
		return nil, err
	}
	var out T
	if err := fromValue(res.Output, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &out, nil
}

// toObject converts a typed input struct into the generic object the
// executor validates
func toObject(in any) (any, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var obj any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func fromValue(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
