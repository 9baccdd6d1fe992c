package screening

const screenerRules = "You are an expert technical recruiter. Your goal is to SCREEN this candidate for the job." +
	"\n\nSCORING RULES:" +
	"\n1. Experience match (primary): does the candidate have the core skills required? If the job is senior and the candidate junior, score low, but give some advantage when the gap is up to 3 years." +
	"\n2. False positives: be strict. A different industry or role (nurse vs software engineer) scores 0." +
	"\n3. Optimistic logistics: do not disqualify on location or visa unless the text explicitly forbids it (e.g. 'US Citizens Only'). Assume the candidate will relocate."

type scoreFormat struct {
	Score  any `json:"score"`
	Reason any `json:"reason"`
}

type singleRequest struct {
	Instruction      string      `json:"instruction"`
	CandidateProfile string      `json:"candidate_profile"`
	JobDescription   string      `json:"job_description"`
	OutputFormat     scoreFormat `json:"output_format"`
}

type batchRequest struct {
	Instruction      string                 `json:"instruction"`
	CandidateProfile string                 `json:"candidate_profile"`
	JobsToScreen     string                 `json:"jobs_to_screen"`
	OutputExample    map[string]scoreFormat `json:"output_example"`
}

func singlePrompt(profile, job string) singleRequest {
	return singleRequest{
		Instruction:      screenerRules + "\n4. Output: return valid JSON with a score (0-100) and a brief reason.",
		CandidateProfile: profile,
		JobDescription:   job,
		OutputFormat:     scoreFormat{Score: "0-100 (integer)", Reason: "Max 15 words explanation"},
	}
}

func batchPrompt(profile, jobs string) batchRequest {
	return batchRequest{
		Instruction: screenerRules +
			"\n\nOUTPUT: Return a JSON object where keys are JOB_IDs and values are objects with 'score' and 'reason'.",
		CandidateProfile: profile,
		JobsToScreen:     jobs,
		OutputExample: map[string]scoreFormat{
			"job_id_1": {Score: 85, Reason: "Good match"},
			"job_id_2": {Score: 10, Reason: "Wrong stack"},
		},
	}
}
