package legal

type (
	SummarizeInput struct {
		DocumentText string `json:"documentText"`
	}

	SummarizeOutput struct {
		Summary string `json:"summary"`
	}

	ExplainClauseInput struct {
		Clause string `json:"clause"`
	}

	ExplainClauseOutput struct {
		ELI5Summary  string `json:"eli5_summary"`
		ELI15Summary string `json:"eli15_summary"`
		Disclaimer   string `json:"disclaimer"`
	}

	AnswerQuestionInput struct {
		UserQuestion string `json:"user_question"`
		ContractText string `json:"contract_text"`
	}

	AnswerQuestionOutput struct {
		Question         string    `json:"question"`
		Answer           string    `json:"answer"`
		SupportingClause string    `json:"supporting_clause"`
		Certainty        Certainty `json:"certainty"`
	}

	CheckMissingContractsInput struct {
		MainContractType    string `json:"mainContractType"`
		MainContractContent string `json:"mainContractContent"`
	}

	CheckMissingContractsOutput struct {
		MainContract                   string            `json:"mainContract"`
		RecommendedAdditionalContracts []string          `json:"recommendedAdditionalContracts"`
		Reasoning                      map[string]string `json:"reasoning"`
	}

	CompareDocumentsInput struct {
		DocID1   string `json:"docId1"`
		DocText1 string `json:"docText1"`
		DocID2   string `json:"docId2"`
		DocText2 string `json:"docText2"`
	}

	// Conflict is one inconsistency between two compared documents
	Conflict struct {
		DocID1         string `json:"docId1"`
		DocID2         string `json:"docId2"`
		Conflict       string `json:"conflict"`
		Recommendation string `json:"recommendation"`
	}

	PredictRiskInput struct {
		CaseType     string   `json:"caseType"`
		Region       string   `json:"region"`
		UserProfile  string   `json:"userProfile"`
		PastDisputes []string `json:"pastDisputes"`
		Deadlines    []string `json:"deadlines"`
	}

	PredictRiskOutput struct {
		RiskScore         float64    `json:"risk_score"`
		RiskFactors       []string   `json:"risk_factors"`
		PreventiveActions []string   `json:"preventive_actions"`
		ConfidenceLevel   Confidence `json:"confidence_level"`
	}

	ParseDocumentInput struct {
		DocumentText string `json:"documentText"`
	}

	ParseDocumentOutput struct {
		Title            string         `json:"title"`
		DocType          string         `json:"docType"`
		Parties          []string       `json:"parties"`
		Dates            DocumentDates  `json:"dates"`
		FinancialTerms   []string       `json:"financialTerms"`
		Clauses          []ParsedClause `json:"clauses"`
		StructuralIssues []string       `json:"structuralIssues"`
	}

	DocumentDates struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}

	ParsedClause struct {
		ClauseID    string   `json:"clauseId"`
		Type        string   `json:"type"`
		Text        string   `json:"text"`
		RiskFlag    RiskFlag `json:"riskFlag"`
		Explanation string   `json:"explanation"`
	}

	IdentifyRisksInput struct {
		DocumentText string `json:"documentText"`
		Role         string `json:"role,omitempty"`
	}

	IdentifyRisksOutput struct {
		Clauses []Clause `json:"clauses"`
	}

	// Clause is a segment of contract text with its risk classification,
	// as highlighted in the document viewer
	Clause struct {
		Text            string `json:"text"`
		Risk            Risk   `json:"risk"`
		SummaryELI5     string `json:"summary_eli5"`
		SummaryELI15    string `json:"summary_eli15"`
		CounterProposal string `json:"counterProposal,omitempty"`
	}

	Certainty  string
	Confidence string
	RiskFlag   string
	Risk       string
)

const (
	CertaintyHigh Certainty = "high"
	CertaintyLow  Certainty = "low"

	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"

	RiskFlagStandard RiskFlag = "standard"
	RiskFlagUnusual  RiskFlag = "unusual"

	RiskStandard   Risk = "standard"
	RiskNegotiable Risk = "negotiable"
	RiskRisky      Risk = "risky"
)

// Risky returns the clauses that are not standard
func (o *IdentifyRisksOutput) Risky() []Clause {
	var res []Clause
	for _, c := range o.Clauses {
		if c.Risk != RiskStandard {
			res = append(res, c)
		}
	}
	return res
}
