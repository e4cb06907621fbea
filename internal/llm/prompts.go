package llm

import (
	"fmt"
	"strings"
)

// Prompt builders for each generation stage. Each prompt instructs the model
// to return strict JSON so responses can be parsed without scraping.

const jdHintsTemplate = `You are an expert in analyzing job descriptions (JDs) to extract key information for resume optimization.
Your task is to extract keywords, skills, and phrases that will improve an Applicant Tracking System (ATS) score when tailoring a resume.

Extract three structured categories:

PART 1 - TECHNICAL KEYWORDS
Unique technical or domain-specific tools and technologies: programming languages, frameworks, cloud/DevOps/infrastructure tools, databases, ETL and orchestration tools, BI/ML frameworks, CI/CD and version control tools, domain tech (CRM, ERP, Snowflake, etc.).
- Include only if explicitly mentioned in the JD.
- Deduplicate synonyms ("AWS Cloud" -> "AWS").

PART 2 - SOFT SKILLS / ACTION VERBS
Up to 7-10 strong soft skills or action verbs reflecting behavior, ownership, or leadership. Must appear in context; exclude generic verbs ("worked on", "helped with") and personality traits ("passionate", "self-motivated"). No duplicates.

PART 3 - KEY PHRASES
Top 10-12 multi-word phrases from responsibilities and requirements, exact text, no paraphrasing. Remove possessive pronouns and company-specific terms. Length 3-8 words, at least one noun and one verb each.

OUTPUT FORMAT (STRICT JSON)
Return ONLY a JSON object of this shape, no markdown or commentary:
{"technical_keywords": ["..."], "soft_skills": ["..."], "phrases": ["..."]}

JOB DESCRIPTION (JD):
%s`

// JDHintsPrompt builds the job-description analysis prompt.
func JDHintsPrompt(jobDescription string) string {
	return fmt.Sprintf(jdHintsTemplate, jobDescription)
}

const summaryTemplate = `You are an expert resume writer specializing in recruiter-friendly, ATS-optimized professional summaries.

GOAL: Generate a cohesive 5-sentence professional summary (90-110 words) positioning the candidate as the perfect fit for the target role.

RULES:
- From the original summary use ONLY: total years of experience, current role title, core domain expertise.
- From the JD hints use extensively: job title, top technical skills, key soft skills, domain terminology.
- Include 8-10 exact technical keywords and 3-5 soft skill keywords from the JD hints.
- Integrate 1-2 exact phrases verbatim.
- Third-person tone, no "I" or "my". No filler or buzzwords.

OUTPUT FORMAT (STRICT JSON)
Return ONLY: {"summary": "..."}

JD hints:
Technical Keywords: %s
Soft Skills: %s
Key Phrases: %s

Original summary (reference for years of experience and title):
%s`

// SummaryPrompt builds the professional-summary generation prompt.
func SummaryPrompt(technicalKeywords, softSkills, phrases []string, originalSummary string) string {
	return fmt.Sprintf(summaryTemplate,
		joinList(technicalKeywords), joinList(softSkills), joinList(phrases), originalSummary)
}

const skillsTemplate = `Expert technical skills organizer. Create an ATS-optimized technical skills section by merging JD requirements with the candidate's existing skills.

RULES:
- Include ALL technical keywords from the JD (priority source).
- Keep 5-8 categories maximum, ordered: Languages -> Frameworks -> Databases -> Cloud -> DevOps -> Other.
- No duplicates; use official names (PostgreSQL not "Postgres", Kubernetes not "K8s").
- Exclude outdated tech not in the JD and vague groupings.

OUTPUT FORMAT (STRICT JSON)
Return ONLY:
{"technical_skills": {"category_name": ["skill1", "skill2"]}}

JD Technical Keywords:
%s

Existing Resume Skills:
%s`

// SkillsPrompt builds the technical-skills generation prompt.
func SkillsPrompt(technicalKeywords []string, existingSkills string) string {
	return fmt.Sprintf(skillsTemplate, joinList(technicalKeywords), existingSkills)
}

const experienceFromJDTemplate = `You are an expert technical resume writer crafting high-impact, ATS-optimized experience bullets.

GOAL: Generate accomplishment-focused bullets aligned with the job description for each role.

EVERY BULLET FOLLOWS A 4-PART STRUCTURE: action verb, deliverable, technology or methodology, outcome.
Example: "Developed scalable RESTful APIs using Python and AWS, improving data synchronization for enterprise systems."

RULES:
- Each role must contain exactly 8-10 bullets of 20-25 words, past tense.
- Each bullet includes 1-2 technical keywords and at most one connector ("using", "to", "for", "with", "enabling").
- Use each soft skill and each key phrase once across all bullets. Technical keywords may repeat.
- Most recent role carries 30-40%% of JD keywords, second role another 30-40%%, older roles the rest.
- Keep tool combinations realistic for the role's period; no anachronisms, no competing tools in one role.
- Preserve company names, titles, and dates exactly as given.

OUTPUT FORMAT (STRICT JSON)
Return ONLY:
{"experience": [{"company": "...", "title": "...", "dates": "...", "bullets": ["..."]}]}

JD keywords and phrases to integrate:
Technical Keywords: %s
Soft Skills: %s
Key Phrases: %s

Original experience data:
%s`

// ExperienceFromJDPrompt builds the generate-bullets-from-JD prompt.
func ExperienceFromJDPrompt(technicalKeywords, softSkills, phrases []string, experienceJSON string) string {
	return fmt.Sprintf(experienceFromJDTemplate,
		joinList(technicalKeywords), joinList(softSkills), joinList(phrases), experienceJSON)
}

const experienceRewriteTemplate = `You are an expert technical resume writer enhancing existing resume bullets to maximize ATS scores while preserving the original achievements.

CRITICAL RULES:
1. PRESERVE the original achievement and core message of each bullet.
2. ENHANCE by weaving in JD keywords where they fit contextually; replace generic terms with specific JD technologies ("database" -> "PostgreSQL").
3. MAINTAIN the original bullet count per role; do not add or remove bullets.
4. DO NOT fabricate accomplishments or metrics; preserve existing metrics exactly.
5. Keep technology combinations realistic for each role's period; no anachronisms.
6. Aim for 20-25 words per bullet, past tense, one connector per bullet.
7. Use each soft skill and each key phrase at most once; technical keywords may repeat.

OUTPUT FORMAT (STRICT JSON)
Return ONLY, preserving company names, titles, dates, and bullet count exactly:
{"experience": [{"company": "...", "title": "...", "dates": "...", "bullets": ["..."]}]}

JD keywords and phrases:
Technical Keywords: %s
Soft Skills: %s
Key Phrases: %s

Original experience data to enhance:
%s`

// ExperienceRewritePrompt builds the enhance-existing-bullets prompt.
func ExperienceRewritePrompt(technicalKeywords, softSkills, phrases []string, experienceJSON string) string {
	return fmt.Sprintf(experienceRewriteTemplate,
		joinList(technicalKeywords), joinList(softSkills), joinList(phrases), experienceJSON)
}

const balanceBulletsTemplate = `You are a senior technical recruiter reviewing the EXPERIENCE bullets of one role.

GOAL:
1. Produce 6-8 concise, metric-driven bullets.
2. 80%% of bullets should incorporate JD keywords, technologies, or verbs; 20%% may retain resume context related to the JD.
3. Merge duplicates, remove filler, keep realistic scale.
4. Choose ONE primary tool when alternatives exist; keep the tech stack consistent.

OUTPUT FORMAT (STRICT JSON)
Return ONLY: {"bullets": ["..."]}
Each bullet ends with a period, plain text, no markdown.

JD focus:
%s

Current bullets:
%s`

// BalanceBulletsPrompt builds the per-role bullet balancing prompt.
func BalanceBulletsPrompt(jdHints string, bullets []string) string {
	return fmt.Sprintf(balanceBulletsTemplate, jdHints, "- "+strings.Join(bullets, "\n- "))
}

const reformatTemplate = `The following text was supposed to be a valid JSON object but failed to parse.
Fix it and return ONLY the corrected JSON object, with no markdown fences, commentary, or extra text.
Do not change any of the content values; fix structure only.

%s`

// ReformatJSONPrompt asks the model to repair malformed JSON output.
func ReformatJSONPrompt(raw string) string {
	return fmt.Sprintf(reformatTemplate, raw)
}

const parseResumeTemplate = `You are an expert resume parser. Convert the resume text below into structured JSON.

OUTPUT FORMAT (STRICT JSON)
Return ONLY a JSON object of this shape:
{
  "name": "...",
  "contact": "...",
  "summary": "...",
  "technical_skills": {"category_name": ["skill1", "skill2"]},
  "experience": [{"company": "...", "title": "...", "dates": "...", "bullets": ["..."]}],
  "projects": [{"title": "...", "bullets": ["..."]}],
  "education": [{"degree": "...", "institution": "...", "year": "..."}],
  "certifications": [{"name": "...", "organization": "...", "year": "..."}]
}
Omit sections that are absent. Do not invent content that is not in the text.

RESUME TEXT:
%s`

// ParseResumePrompt builds the plain-text-to-structured-resume prompt.
func ParseResumePrompt(resumeText string) string {
	return fmt.Sprintf(parseResumeTemplate, resumeText)
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
