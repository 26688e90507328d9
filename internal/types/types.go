package types

// DocumentKind identifies the upload format a CV arrived in.
type DocumentKind string

const (
	DocumentPDF  DocumentKind = "pdf"
	DocumentDOCX DocumentKind = "docx"
)

// ModifyCVInput represents the input for aligning a CV with a job post
type ModifyCVInput struct {
	Filename    string `json:"filename"`
	CVText      string `json:"cvText"`
	JobPostText string `json:"jobPostText"`
}

// ModifyCVOutput represents the recovered LaTeX result of a modify run
type ModifyCVOutput struct {
	Message    string `json:"message"`
	Filename   string `json:"filename"`
	ModifiedCV string `json:"modified_cv_latex"`
}

// AlignmentScores is the structured verdict of a CV vs job description
// comparison. All four dimensions are 0-100 integers.
type AlignmentScores struct {
	FairMatch   int `json:"fair_match"`
	ExpLevel    int `json:"exp_level"`
	Skill       int `json:"skill"`
	IndustryExp int `json:"industry_exp"`
}

// RankedEntry is one element of the array the model returns when ranking
// postings. JobIndex is 1-based into the posting list it was shown.
type RankedEntry struct {
	JobIndex  int `json:"job_index"`
	Alignment int `json:"alignment"`
}

// JobPosting is the subset of a JSearch posting the ranking flow needs.
type JobPosting struct {
	Title       string `json:"job_title"`
	Employer    string `json:"employer_name"`
	Description string `json:"job_description"`
	ApplyLink   string `json:"job_apply_link"`
}

// RankedMatch joins a model ranking entry back to the posting it refers to.
type RankedMatch struct {
	JobTitle       string `json:"job_title"`
	EmployerName   string `json:"employer_name"`
	Alignment      int    `json:"alignment"`
	JobURL         string `json:"job_url"`
	JobDescription string `json:"job_description"`
}

// MatchJobsOutput is the payload of a successful posting-ranking run.
type MatchJobsOutput struct {
	TopMatches []RankedMatch `json:"top_matches"`
}
