package legal_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluyben/lawyeredup/flow"
	"github.com/tluyben/lawyeredup/legal"
	"github.com/tluyben/lawyeredup/provider"
	"github.com/tluyben/lawyeredup/schema"
)

type recorder struct {
	mu       sync.Mutex
	requests []*provider.Request
	respond  func(*provider.Request) string
}

func (r *recorder) Generate(
	_ context.Context, req *provider.Request,
) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return r.respond(req), nil
}

func (r *recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func respondWith(v any) func(*provider.Request) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return func(*provider.Request) string { return string(data) }
}

func newClient(
	t *testing.T, respond func(*provider.Request) string,
) (*legal.Client, *flow.Executor, *recorder) {
	t.Helper()
	reg, err := legal.NewRegistry("")
	require.NoError(t, err)
	rec := &recorder{respond: respond}
	exec := flow.NewExecutor(
		reg, rec, slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return legal.NewClient(exec), exec, rec
}

func TestBuiltInFlows(t *testing.T) {
	reg, err := legal.NewRegistry("")
	require.NoError(t, err)
	assert.Equal(t, []string{
		legal.AnswerQuestionFromDocument,
		legal.CheckMissingContracts,
		legal.CompareDocuments,
		legal.ExplainLegalClause,
		legal.IdentifyRisks,
		legal.ParseUploadedDocument,
		legal.PredictRisk,
		legal.SummarizeDocument,
	}, reg.Names())

	for _, spec := range reg.Specs() {
		assert.True(t, spec.Compiled(), spec.Name)
		assert.NotEmpty(t, spec.Description, spec.Name)
		assert.NotEmpty(t, spec.OutputSchema(), spec.Name)
	}
}

func TestMissingRequiredInputForEveryFlow(t *testing.T) {
	_, exec, rec := newClient(t, respondWith(map[string]any{}))
	for _, name := range exec.Registry().Names() {
		_, err := exec.Invoke(context.Background(), name, map[string]any{})
		assert.True(t, errors.Is(err, flow.ErrInputValidation), name)
	}
	assert.Equal(t, 0, rec.Calls())
}

func TestExplainClause(t *testing.T) {
	c, _, rec := newClient(t, respondWith(map[string]any{
		"eli5_summary":  "If you pay rent late, you pay $50 extra.",
		"eli15_summary": "A late rent payment triggers a fixed $50 fee owed by the tenant.",
		"disclaimer":    "This is not legal advice.",
	}))

	out, err := c.ExplainClause(context.Background(), legal.ExplainClauseInput{
		Clause: "Tenant shall pay a $50 late fee.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ELI5Summary)
	assert.NotEmpty(t, out.ELI15Summary)
	assert.NotEmpty(t, out.Disclaimer)

	require.Equal(t, 1, rec.Calls())
	assert.Contains(t, rec.requests[0].Prompt,
		`Clause: "Tenant shall pay a $50 late fee."`,
	)
}

func TestExplainClauseRawOutputMatchesSchema(t *testing.T) {
	want := map[string]any{
		"eli5_summary":  "Pay late, pay $50.",
		"eli15_summary": "Late payment costs a $50 fee.",
		"disclaimer":    "Not legal advice.",
	}
	_, exec, _ := newClient(t, respondWith(want))

	res, err := exec.Invoke(context.Background(), legal.ExplainLegalClause,
		map[string]any{"clause": "Tenant shall pay a $50 late fee."},
	)
	require.NoError(t, err)
	assert.Equal(t, want, res.Output)

	spec, err := exec.Registry().Get(legal.ExplainLegalClause)
	require.NoError(t, err)
	_, err = schema.Validate(spec.Output, res.Output)
	assert.NoError(t, err)
}

func TestExplainClauseEmptyDisclaimer(t *testing.T) {
	c, _, _ := newClient(t, respondWith(map[string]any{
		"eli5_summary":  "a",
		"eli15_summary": "b",
		"disclaimer":    " ",
	}))
	_, err := c.ExplainClause(context.Background(), legal.ExplainClauseInput{
		Clause: "x",
	})
	assert.True(t, errors.Is(err, flow.ErrOutputValidation))
}

var governingLaw = regexp.MustCompile(`governed by the laws of ([A-Z][a-z]+)`)

// compareStub reports a conflict when the two documents name different
// governing law jurisdictions
func compareStub(req *provider.Request) string {
	m := governingLaw.FindAllStringSubmatch(req.Prompt, -1)
	conflicts := []map[string]any{}
	if len(m) == 2 && m[0][1] != m[1][1] {
		conflicts = append(conflicts, map[string]any{
			"docId1": "employment",
			"docId2": "nda",
			"conflict": fmt.Sprintf(
				"Different governing law clauses (%s vs. %s)", m[0][1], m[1][1],
			),
			"recommendation": "Standardize governing law across contracts.",
		})
	}
	data, _ := json.Marshal(conflicts)
	return string(data)
}

func TestCompareIdenticalDocuments(t *testing.T) {
	c, _, _ := newClient(t, compareStub)
	text := "This Agreement is governed by the laws of India."

	conflicts, err := c.CompareDocuments(context.Background(),
		legal.CompareDocumentsInput{
			DocID1: "employment", DocText1: text,
			DocID2: "nda", DocText2: text,
		},
	)
	require.NoError(t, err)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
}

func TestCompareDifferentGoverningLaw(t *testing.T) {
	c, _, _ := newClient(t, compareStub)

	conflicts, err := c.CompareDocuments(context.Background(),
		legal.CompareDocumentsInput{
			DocID1:   "employment",
			DocText1: "This Agreement is governed by the laws of India.",
			DocID2:   "nda",
			DocText2: "This NDA is governed by the laws of Singapore.",
		},
	)
	require.NoError(t, err)
	require.NotEmpty(t, conflicts)
	assert.Contains(t, conflicts[0].Conflict, "India")
	assert.Contains(t, conflicts[0].Conflict, "Singapore")
	assert.Equal(t, "employment", conflicts[0].DocID1)
}

func TestCompareWrongDocumentIDs(t *testing.T) {
	c, _, _ := newClient(t, respondWith([]map[string]any{{
		"docId1": "a", "docId2": "b",
		"conflict": "x", "recommendation": "y",
	}}))
	_, err := c.CompareDocuments(context.Background(),
		legal.CompareDocumentsInput{
			DocID1: "employment", DocText1: "t1", DocID2: "nda", DocText2: "t2",
		},
	)
	assert.True(t, errors.Is(err, flow.ErrOutputValidation))
}

func TestAnswerQuestion(t *testing.T) {
	c, _, rec := newClient(t, respondWith(map[string]any{
		"question":          "Can I sublet?",
		"answer":            "No. Subletting is not allowed.",
		"supporting_clause": "Tenant shall not sublet the premises.",
		"certainty":         "high",
	}))
	out, err := c.AnswerQuestion(context.Background(), legal.AnswerQuestionInput{
		UserQuestion: "Can I sublet?",
		ContractText: "Tenant shall not sublet the premises.",
	})
	require.NoError(t, err)
	assert.Equal(t, legal.CertaintyHigh, out.Certainty)
	assert.Contains(t, rec.requests[0].Prompt, `User question: "Can I sublet?"`)
}

func TestAnswerQuestionRejectsUnknownCertainty(t *testing.T) {
	c, _, _ := newClient(t, respondWith(map[string]any{
		"question":          "q",
		"answer":            "a",
		"supporting_clause": "s",
		"certainty":         "medium",
	}))
	_, err := c.AnswerQuestion(context.Background(), legal.AnswerQuestionInput{
		UserQuestion: "q", ContractText: "t",
	})
	assert.True(t, errors.Is(err, flow.ErrOutputValidation))

	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "certainty", ve.Path)
}

func TestAnswerQuestionUnsupportedMustBeLowCertainty(t *testing.T) {
	c, _, _ := newClient(t, respondWith(map[string]any{
		"question":          "q",
		"answer":            "This clause is unclear, please consult a lawyer.",
		"supporting_clause": "",
		"certainty":         "high",
	}))
	_, err := c.AnswerQuestion(context.Background(), legal.AnswerQuestionInput{
		UserQuestion: "q", ContractText: "t",
	})
	var ce *flow.CheckError
	assert.ErrorAs(t, err, &ce)
}

func TestCheckMissingContracts(t *testing.T) {
	c, _, rec := newClient(t, respondWith(map[string]any{
		"mainContract":                   "Employment Agreement",
		"recommendedAdditionalContracts": []string{"NDA"},
		"reasoning": map[string]string{
			"NDA": "The agreement has no confidentiality clause.",
		},
	}))
	out, err := c.CheckMissingContracts(context.Background(),
		legal.CheckMissingContractsInput{
			MainContractType:    "Employment Agreement",
			MainContractContent: "Employee will work 40 hours a week.",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"NDA"}, out.RecommendedAdditionalContracts)
	assert.Contains(t, out.Reasoning["NDA"], "confidentiality")
	assert.Contains(t, rec.requests[0].Prompt,
		`Contract Type: "Employment Agreement"`,
	)
}

func TestCheckMissingContractsReasonPerRecommendation(t *testing.T) {
	c, _, _ := newClient(t, respondWith(map[string]any{
		"mainContract":                   "Rental Agreement",
		"recommendedAdditionalContracts": []string{"Security Deposit Agreement"},
		"reasoning":                      map[string]string{},
	}))
	_, err := c.CheckMissingContracts(context.Background(),
		legal.CheckMissingContractsInput{
			MainContractType: "Rental Agreement", MainContractContent: "t",
		},
	)
	assert.True(t, errors.Is(err, flow.ErrOutputValidation))
}

func TestPredictRisk(t *testing.T) {
	c, _, rec := newClient(t, respondWith(map[string]any{
		"risk_score":         64,
		"risk_factors":       []string{"Prior missed deadline"},
		"preventive_actions": []string{"File before 1 March"},
		"confidence_level":   "Medium",
	}))
	out, err := c.PredictRisk(context.Background(), legal.PredictRiskInput{
		CaseType:     "Rental Dispute",
		Region:       "Delhi",
		UserProfile:  "First-time tenant",
		PastDisputes: []string{"Deposit withheld in 2021"},
	})
	require.NoError(t, err)
	assert.Equal(t, 64.0, out.RiskScore)
	assert.Equal(t, legal.ConfidenceMedium, out.ConfidenceLevel)

	prompt := rec.requests[0].Prompt
	assert.Contains(t, prompt, "Past Disputes:\n- Deposit withheld in 2021\nDeadlines:\n\n")
}

func TestPredictRiskOutOfRange(t *testing.T) {
	c, _, _ := newClient(t, respondWith(map[string]any{
		"risk_score":         140,
		"risk_factors":       []string{},
		"preventive_actions": []string{},
		"confidence_level":   "High",
	}))
	_, err := c.PredictRisk(context.Background(), legal.PredictRiskInput{})
	assert.True(t, errors.Is(err, flow.ErrOutputValidation))
}

func parsedDocument(ids ...string) map[string]any {
	clauses := make([]map[string]any, len(ids))
	for i, id := range ids {
		clauses[i] = map[string]any{
			"clauseId":    id,
			"type":        "Payment",
			"text":        "Rent is due on the 1st.",
			"riskFlag":    "standard",
			"explanation": "",
		}
	}
	return map[string]any{
		"title":   "Residential Lease",
		"docType": "Rental Agreement",
		"parties": []string{"Landlord", "Tenant"},
		"dates": map[string]any{
			"startDate": "2025-01-01",
			"endDate":   "",
		},
		"financialTerms":   []string{"Rent: $2,000/month"},
		"clauses":          clauses,
		"structuralIssues": []string{},
	}
}

func TestParseDocument(t *testing.T) {
	c, _, _ := newClient(t, respondWith(parsedDocument("C1", "C2")))
	out, err := c.ParseDocument(context.Background(), legal.ParseDocumentInput{
		DocumentText: "RESIDENTIAL LEASE ...",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rental Agreement", out.DocType)
	require.Len(t, out.Clauses, 2)
	assert.Equal(t, legal.RiskFlagStandard, out.Clauses[0].RiskFlag)
	assert.Equal(t, "2025-01-01", out.Dates.StartDate)
}

func TestParseDocumentDuplicateClauseIDs(t *testing.T) {
	c, _, _ := newClient(t, respondWith(parsedDocument("C1", "C1")))
	_, err := c.ParseDocument(context.Background(), legal.ParseDocumentInput{
		DocumentText: "x",
	})
	assert.True(t, errors.Is(err, flow.ErrOutputValidation))
}

func TestSummarize(t *testing.T) {
	c, _, rec := newClient(t, respondWith(map[string]any{
		"summary": "# Contract TL;DR\n**Key Terms**\n- Term: 12 months",
	}))
	out, err := c.Summarize(context.Background(), legal.SummarizeInput{
		DocumentText: "Lease for 12 months.",
	})
	require.NoError(t, err)
	assert.Contains(t, out.Summary, "Key Terms")
	assert.Contains(t, rec.requests[0].Prompt, `Contract text: "Lease for 12 months."`)
	assert.Contains(t, rec.requests[0].Prompt, `"summary": "# Contract TL;DR\n`)
}

func TestIdentifyRisks(t *testing.T) {
	c, _, rec := newClient(t, respondWith(map[string]any{
		"clauses": []map[string]any{
			{
				"text":          "Rent is due on the 1st.",
				"risk":          "standard",
				"summary_eli5":  "Pay on the first day.",
				"summary_eli15": "Monthly rent is due on the first.",
			},
			{
				"text":            "Landlord may change rent at any time.",
				"risk":            "risky",
				"summary_eli5":    "They can ask for more money whenever.",
				"summary_eli15":   "Rent can be raised without notice.",
				"counterProposal": "Rent may change once a year with 60 days notice.",
			},
		},
	}))
	out, err := c.IdentifyRisks(context.Background(), legal.IdentifyRisksInput{
		DocumentText: "lease text",
		Role:         "Tenant",
	})
	require.NoError(t, err)
	risky := out.Risky()
	require.Len(t, risky, 1)
	assert.Equal(t, legal.RiskRisky, risky[0].Risk)
	assert.Contains(t, rec.requests[0].Prompt, `role in this contract is: "Tenant"`)

	_, err = c.IdentifyRisks(context.Background(), legal.IdentifyRisksInput{
		DocumentText: "lease text",
	})
	require.NoError(t, err)
	assert.Contains(t, rec.requests[1].Prompt, `role in this contract is: ""`)
}

func TestIdentifyRisksNeedsCounterProposal(t *testing.T) {
	c, _, _ := newClient(t, respondWith(map[string]any{
		"clauses": []map[string]any{{
			"text":          "Tenant pays all repairs.",
			"risk":          "negotiable",
			"summary_eli5":  "You fix everything.",
			"summary_eli15": "Repairs are the tenant's cost.",
		}},
	}))
	_, err := c.IdentifyRisks(context.Background(), legal.IdentifyRisksInput{
		DocumentText: "x",
	})
	assert.True(t, errors.Is(err, flow.ErrOutputValidation))
}

func TestProviderErrorSurfaces(t *testing.T) {
	reg, err := legal.NewRegistry("")
	require.NoError(t, err)
	exec := flow.NewExecutor(reg,
		provider.Func(func(context.Context, *provider.Request) (string, error) {
			return "", errors.New("401 unauthorized")
		}),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	_, err = legal.NewClient(exec).Summarize(context.Background(),
		legal.SummarizeInput{DocumentText: "x"},
	)
	assert.True(t, errors.Is(err, flow.ErrProvider))
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary.yml"), []byte(`
name: summarize-document
description: Short summary
prompt: "Summarize: {documentText}"
input:
  type: object
  properties:
    - name: documentText
      type: string
output:
  type: object
  properties:
    - name: summary
      type: string
`), 0o600))

	reg, err := legal.NewRegistry(dir)
	require.NoError(t, err)
	spec, err := reg.Get(legal.SummarizeDocument)
	require.NoError(t, err)
	assert.Equal(t, "Short summary", spec.Description)
	assert.Len(t, reg.Names(), 8)

	_, err = legal.NewRegistry(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
