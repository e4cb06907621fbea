package pipeline

import (
	"context"
	"fmt"
	"strings"

	"resume-tailor/internal/jobs"
	"resume-tailor/internal/llm"
	"resume-tailor/internal/resume"
)

const (
	// jdTruncateRunes bounds the retry prompt when the first hint
	// extraction fails on an oversized job description.
	jdTruncateRunes = 4000

	minBulletsPerRole = 6
	maxBulletsPerRole = 8
)

// analyzeJD extracts keyword hints from a job description. A schema
// failure on the full text gets one retry against a truncated copy,
// which recovers descriptions with broken markup in their tail.
func analyzeJD(ctx context.Context, client llm.Client, jobDescription string) (jobs.JDHints, error) {
	hints, err := decodeHints(ctx, client, jobDescription)
	if err == nil {
		return hints, nil
	}

	runes := []rune(jobDescription)
	if len(runes) <= jdTruncateRunes {
		return jobs.JDHints{}, err
	}
	return decodeHints(ctx, client, string(runes[:jdTruncateRunes]))
}

func decodeHints(ctx context.Context, client llm.Client, jobDescription string) (jobs.JDHints, error) {
	var hints jobs.JDHints
	if err := completeJSON(ctx, client, llm.JDHintsPrompt(jobDescription), &hints); err != nil {
		return jobs.JDHints{}, fmt.Errorf("extract jd hints: %w", err)
	}
	if hints.IsZero() {
		return jobs.JDHints{}, fmt.Errorf("extract jd hints: empty hint set")
	}
	return hints, nil
}

func generateSummary(ctx context.Context, client llm.Client, hints jobs.JDHints, original string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	prompt := llm.SummaryPrompt(hints.TechnicalKeywords, hints.SoftSkills, hints.Phrases, original)
	if err := completeJSON(ctx, client, prompt, &out); err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	summary := strings.TrimSpace(out.Summary)
	if summary == "" {
		return "", fmt.Errorf("generate summary: empty result")
	}
	return summary, nil
}

func generateSkills(ctx context.Context, client llm.Client, hints jobs.JDHints, existing resume.Skills) (resume.Skills, error) {
	existingJSON, err := marshalPromptJSON(existing)
	if err != nil {
		return nil, fmt.Errorf("generate skills: %w", err)
	}

	var out struct {
		Skills resume.Skills `json:"technical_skills"`
	}
	prompt := llm.SkillsPrompt(hints.TechnicalKeywords, existingJSON)
	if err := completeJSON(ctx, client, prompt, &out); err != nil {
		return nil, fmt.Errorf("generate skills: %w", err)
	}
	if len(out.Skills) == 0 {
		return nil, fmt.Errorf("generate skills: empty result")
	}
	return out.Skills, nil
}

func generateExperience(ctx context.Context, client llm.Client, mode jobs.Mode, hints jobs.JDHints, roles []resume.Role) ([]resume.Role, error) {
	rolesJSON, err := marshalPromptJSON(roles)
	if err != nil {
		return nil, fmt.Errorf("generate experience: %w", err)
	}

	var prompt string
	if mode == jobs.ModeCompleteFromJD {
		prompt = llm.ExperienceFromJDPrompt(hints.TechnicalKeywords, hints.SoftSkills, hints.Phrases, rolesJSON)
	} else {
		prompt = llm.ExperienceRewritePrompt(hints.TechnicalKeywords, hints.SoftSkills, hints.Phrases, rolesJSON)
	}

	var out struct {
		Experience []resume.Role `json:"experience"`
	}
	if err := completeJSON(ctx, client, prompt, &out); err != nil {
		return nil, fmt.Errorf("generate experience: %w", err)
	}
	if len(out.Experience) == 0 {
		return nil, fmt.Errorf("generate experience: empty result")
	}
	return out.Experience, nil
}

// balanceRoles forces every rewritten role into the bullet range the
// renderer lays out well. Overlong roles keep their strongest leading
// bullets; short roles get one balancing pass through the model and
// then backfill from the original bullets that went unused.
func balanceRoles(ctx context.Context, client llm.Client, hints jobs.JDHints, original, rewritten []resume.Role) []resume.Role {
	balanced := make([]resume.Role, len(rewritten))
	for i, role := range rewritten {
		balanced[i] = role
		bullets := role.Bullets

		if len(bullets) > maxBulletsPerRole {
			balanced[i].Bullets = bullets[:maxBulletsPerRole]
			continue
		}
		if len(bullets) >= minBulletsPerRole {
			continue
		}

		if expanded, err := expandBullets(ctx, client, hints, bullets); err == nil && len(expanded) >= len(bullets) {
			bullets = expanded
		}
		if len(bullets) < minBulletsPerRole {
			bullets = backfillBullets(bullets, originalBulletsFor(original, role, i))
		}
		if len(bullets) > maxBulletsPerRole {
			bullets = bullets[:maxBulletsPerRole]
		}
		balanced[i].Bullets = bullets
	}
	return balanced
}

func expandBullets(ctx context.Context, client llm.Client, hints jobs.JDHints, bullets []string) ([]string, error) {
	hintsJSON, err := marshalPromptJSON(hints)
	if err != nil {
		return nil, err
	}

	var out struct {
		Bullets []string `json:"bullets"`
	}
	if err := completeJSON(ctx, client, llm.BalanceBulletsPrompt(hintsJSON, bullets), &out); err != nil {
		return nil, err
	}
	return out.Bullets, nil
}

// originalBulletsFor matches a rewritten role back to its source role,
// by company first and then by position.
func originalBulletsFor(original []resume.Role, role resume.Role, idx int) []string {
	for _, src := range original {
		if strings.EqualFold(strings.TrimSpace(src.Company), strings.TrimSpace(role.Company)) {
			return src.Bullets
		}
	}
	if idx < len(original) {
		return original[idx].Bullets
	}
	return nil
}

func backfillBullets(bullets, source []string) []string {
	seen := make(map[string]bool, len(bullets))
	for _, b := range bullets {
		seen[normalizeBullet(b)] = true
	}
	for _, b := range source {
		if len(bullets) >= minBulletsPerRole {
			break
		}
		key := normalizeBullet(b)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		bullets = append(bullets, b)
	}
	return bullets
}

func normalizeBullet(b string) string {
	return strings.ToLower(strings.Join(strings.Fields(b), " "))
}
