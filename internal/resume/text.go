package resume

import (
	"fmt"
	"strings"
)

// ToText renders the resume as plain text for inclusion in model prompts.
func (r Resume) ToText() string {
	var b strings.Builder

	b.WriteString(strings.ToUpper(r.Name))
	b.WriteString("\n")
	if r.Contact != "" {
		b.WriteString(r.Contact)
		b.WriteString("\n")
	}

	if strings.TrimSpace(r.Summary) != "" {
		b.WriteString("\nSUMMARY\n")
		b.WriteString(strings.TrimSpace(r.Summary))
		b.WriteString("\n")
	}

	if len(r.Skills) > 0 {
		b.WriteString("\nTECHNICAL SKILLS\n")
		for _, category := range r.Skills.Categories() {
			items := r.Skills[category]
			if len(items) == 0 {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", category, strings.Join(items, ", "))
		}
	}

	if len(r.Experience) > 0 {
		b.WriteString("\nEXPERIENCE\n")
		for _, role := range r.Experience {
			fmt.Fprintf(&b, "%s | %s | %s\n", role.Company, role.Title, role.Dates)
			for _, bullet := range role.Bullets {
				fmt.Fprintf(&b, "  - %s\n", bullet)
			}
			b.WriteString("\n")
		}
	}

	if len(r.Projects) > 0 {
		b.WriteString("PROJECTS\n")
		for _, project := range r.Projects {
			b.WriteString(project.Title)
			b.WriteString("\n")
			for _, bullet := range project.Bullets {
				fmt.Fprintf(&b, "  - %s\n", bullet)
			}
		}
		b.WriteString("\n")
	}

	if len(r.Education) > 0 {
		b.WriteString("EDUCATION\n")
		for _, edu := range r.Education {
			fmt.Fprintf(&b, "%s, %s (%s)\n", edu.Degree, edu.Institution, edu.Year)
		}
	}

	if len(r.Certifications) > 0 {
		b.WriteString("\nCERTIFICATIONS\n")
		for _, cert := range r.Certifications {
			line := cert.Name
			if cert.Organization != "" {
				line += ", " + cert.Organization
			}
			if cert.Year != "" {
				line += " (" + cert.Year + ")"
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// BulletCount returns the total number of experience bullets.
func (r Resume) BulletCount() int {
	total := 0
	for _, role := range r.Experience {
		total += len(role.Bullets)
	}
	return total
}

// Clone returns a deep copy of the resume.
func (r Resume) Clone() Resume {
	out := r
	if r.Skills != nil {
		out.Skills = make(Skills, len(r.Skills))
		for category, items := range r.Skills {
			out.Skills[category] = append([]string(nil), items...)
		}
	}
	out.Experience = cloneRoles(r.Experience)
	if r.Projects != nil {
		out.Projects = make([]Project, len(r.Projects))
		for i, p := range r.Projects {
			p.Bullets = append([]string(nil), p.Bullets...)
			out.Projects[i] = p
		}
	}
	out.Education = append([]Education(nil), r.Education...)
	out.Certifications = append([]Certification(nil), r.Certifications...)
	return out
}

func cloneRoles(roles []Role) []Role {
	if roles == nil {
		return nil
	}
	out := make([]Role, len(roles))
	for i, role := range roles {
		role.Bullets = append([]string(nil), role.Bullets...)
		out[i] = role
	}
	return out
}
