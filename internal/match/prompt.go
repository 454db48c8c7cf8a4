package match

import "fmt"

const systemInstruction = "Only return valid JSON. No markdown."

const matchPrompt = `You are a job-matching assistant. Compare the resume with the job description.

Return STRICT JSON ONLY, with this shape:
{
  "match_score": <integer 0-100>,
  "strengths": "<string: overlapping qualifications>",
  "gaps": "<string: missing qualifications>",
  "skill_breakdown": [
    {
      "skill": "<skill name>",
      "match_level": "strong" | "good" | "partial" | "missing",
      "reason": "<one sentence>",
      "importance": "high" | "medium" | "low"
    }
  ]
}

RULES:
- List the 5-8 skills most relevant to the job in "skill_breakdown".
- "match_level" must be exactly one of: strong, good, partial, missing.
- "importance" must be exactly one of: high, medium, low.
- Do not add fields. Do not wrap the JSON in code blocks.

RESUME:
%s

JOB DESCRIPTION:
%s
`

func buildPrompt(resumeText, jobDescription string) string {
	return fmt.Sprintf(matchPrompt, resumeText, jobDescription)
}
