package answers

import "fmt"

const PurposeQuestionAnswering = "Question Answering"

type answerSchema struct {
	Answer string `json:"answer"`
	Type   string `json:"type"`
}

type answerExample struct {
	Question string       `json:"q"`
	Output   answerSchema `json:"out"`
}

type answerPrompt struct {
	Instruction  string          `json:"instruction"`
	OutputSchema answerSchema    `json:"output_schema"`
	Examples     []answerExample `json:"examples"`
}

func buildPrompt(question, options, profileText string) answerPrompt {
	instruction := fmt.Sprintf(
		"Act as the candidate described in the profile. You are filling out a job application form.\n\n"+
			"PROFILE (Source of Truth):\n%s\n\n"+
			"QUESTION: %s\n"+
			"OPTIONS/TYPE: %s\n\n"+
			"=== INSTRUCTIONS ===\n"+
			"1. Tone: professional, confident and direct.\n"+
			"2. Logic: infer the best positive answer from the profile. If years of experience are asked and the profile shows 2015-2023, answer 8. If asked 'Do you have X', answer Yes if the profile shows it.\n"+
			"3. Format: return a JSON object without Markdown.\n"+
			"   - 'answer': the value to put in the form.\n"+
			"   - 'type': one of ['numeric', 'text', 'boolean'] based on what the question asks, regardless of language.\n",
		profileText, question, options,
	)

	return answerPrompt{
		Instruction: instruction,
		OutputSchema: answerSchema{
			Answer: "The clean value (e.g., '5', 'Yes', 'Software Engineer')",
			Type:   "numeric | text | boolean",
		},
		Examples: []answerExample{
			{Question: "¿Cuántos años de experiencia?", Output: answerSchema{Answer: "5", Type: "numeric"}},
			{Question: "Mobile Phone", Output: answerSchema{Answer: "+123456789", Type: "numeric"}},
			{Question: "Are you willing to relocate?", Output: answerSchema{Answer: "Yes", Type: "boolean"}},
		},
	}
}
