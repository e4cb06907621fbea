package render

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"resume-tailor/internal/resume"
)

// MimeTypeDocx is the content type of rendered documents.
const MimeTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Render produces a DOCX document for the resume in the requested format.
func Render(r resume.Resume, format Format) ([]byte, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, errors.New("resume name is required")
	}
	styles, ok := styleMap[format]
	if !ok {
		return nil, fmt.Errorf("unknown render format %q", format)
	}

	doc := buildDocumentXML(r, styles)

	var output bytes.Buffer
	writer := zip.NewWriter(&output)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{"word/numbering.xml", numberingXML},
		{"word/document.xml", doc},
	}
	for _, part := range parts {
		f, err := writer.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", part.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

func buildDocumentXML(r resume.Resume, styles formatStyles) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	writeParagraph(&b, paragraph{Center: true, Runs: []run{{Text: r.Name, Style: styles.Name}}})
	if r.Contact != "" {
		writeParagraph(&b, paragraph{Center: true, Runs: []run{{Text: r.Contact, Style: styles.Contact}}})
	}

	if strings.TrimSpace(r.Summary) != "" {
		writeHeading(&b, "SUMMARY", styles)
		writeParagraph(&b, paragraph{Justify: true, Runs: []run{{Text: strings.TrimSpace(r.Summary), Style: styles.Body}}})
	}

	if len(r.Skills) > 0 {
		writeHeading(&b, "TECHNICAL SKILLS", styles)
		for _, category := range r.Skills.Categories() {
			items := r.Skills[category]
			if len(items) == 0 {
				continue
			}
			writeParagraph(&b, paragraph{Runs: []run{
				{Text: category + ": ", Style: boldOf(styles.Body)},
				{Text: strings.Join(items, ", "), Style: styles.Body},
			}})
		}
	}

	if len(r.Experience) > 0 {
		writeHeading(&b, "EXPERIENCE", styles)
		for _, role := range r.Experience {
			line := joinNonEmpty(" | ", role.Company, role.Title, role.Dates)
			writeParagraph(&b, paragraph{Runs: []run{{Text: line, Style: styles.RoleLine}}})
			for _, bullet := range role.Bullets {
				writeParagraph(&b, paragraph{Bullet: true, Justify: true, Runs: []run{{Text: bullet, Style: styles.Body}}})
			}
		}
	}

	if len(r.Projects) > 0 {
		writeHeading(&b, "PROJECTS", styles)
		for _, project := range r.Projects {
			if strings.TrimSpace(project.Title) == "" {
				continue
			}
			writeParagraph(&b, paragraph{Runs: []run{{Text: project.Title, Style: styles.RoleLine}}})
			for _, bullet := range project.Bullets {
				if strings.TrimSpace(bullet) == "" {
					continue
				}
				writeParagraph(&b, paragraph{Bullet: true, Justify: true, Runs: []run{{Text: bullet, Style: styles.Body}}})
			}
		}
	}

	if len(r.Education) > 0 {
		writeHeading(&b, "EDUCATION", styles)
		for _, edu := range r.Education {
			line := fmt.Sprintf("%s, %s (%s)", edu.Degree, edu.Institution, edu.Year)
			writeParagraph(&b, paragraph{Runs: []run{{Text: line, Style: boldOf(styles.Body)}}})
		}
	}

	if len(r.Certifications) > 0 {
		writeHeading(&b, "CERTIFICATIONS", styles)
		for _, cert := range r.Certifications {
			if strings.TrimSpace(cert.Name) == "" {
				continue
			}
			line := cert.Name
			if cert.Organization != "" {
				line += ", " + cert.Organization
			}
			if cert.Year != "" {
				line += " (" + cert.Year + ")"
			}
			writeParagraph(&b, paragraph{Runs: []run{{Text: line, Style: boldOf(styles.Body)}}})
		}
	}

	b.WriteString(sectPrXML)
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

type run struct {
	Text  string
	Style runStyle
}

type paragraph struct {
	Runs    []run
	Center  bool
	Justify bool
	Bullet  bool
	// Border draws a thin bottom border, used under section headings.
	Border bool
}

func writeHeading(b *strings.Builder, title string, styles formatStyles) {
	writeParagraph(b, paragraph{
		Border: styles.HeadingBorder,
		Runs:   []run{{Text: title, Style: styles.Heading}},
	})
}

func writeParagraph(b *strings.Builder, p paragraph) {
	b.WriteString(`<w:p><w:pPr>`)
	if p.Bullet {
		b.WriteString(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr><w:ind w:left="360" w:hanging="180"/>`)
	}
	switch {
	case p.Center:
		b.WriteString(`<w:jc w:val="center"/>`)
	case p.Justify:
		b.WriteString(`<w:jc w:val="both"/>`)
	}
	if p.Border {
		b.WriteString(`<w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="auto"/></w:pBdr>`)
	}
	b.WriteString(`<w:spacing w:after="60"/>`)
	b.WriteString(`</w:pPr>`)
	for _, r := range p.Runs {
		writeRun(b, r)
	}
	b.WriteString(`</w:p>`)
}

func writeRun(b *strings.Builder, r run) {
	b.WriteString(`<w:r><w:rPr>`)
	if r.Style.Font != "" {
		fmt.Fprintf(b, `<w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s"/>`, escapeXML(r.Style.Font))
	}
	if r.Style.Bold {
		b.WriteString(`<w:b/>`)
	}
	if r.Style.Italic {
		b.WriteString(`<w:i/>`)
	}
	if r.Style.Caps {
		b.WriteString(`<w:caps/>`)
	}
	if r.Style.Underline {
		b.WriteString(`<w:u w:val="single"/>`)
	}
	if r.Style.Color != "" {
		fmt.Fprintf(b, `<w:color w:val="%s"/>`, r.Style.Color)
	}
	if r.Style.Size > 0 {
		fmt.Fprintf(b, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, r.Style.Size, r.Style.Size)
	}
	b.WriteString(`</w:rPr>`)
	fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, escapeXML(r.Text))
	b.WriteString(`</w:r>`)
}

func boldOf(s runStyle) runStyle {
	s.Bold = true
	return s
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func escapeXML(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\r\n"

// Narrow page margins so a tailored resume fits more content per page.
const sectPrXML = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="720" w:right="720" w:bottom="720" w:left="720" w:header="720" w:footer="720"/></w:sectPr>`

const contentTypesXML = xmlHeader + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/><Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/><Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/></Types>`

const relsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const documentRelsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/></Relationships>`

const stylesXML = xmlHeader + `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:docDefaults><w:rPrDefault><w:rPr><w:sz w:val="20"/><w:szCs w:val="20"/></w:rPr></w:rPrDefault><w:pPrDefault><w:pPr><w:spacing w:after="0" w:line="240" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults><w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style></w:styles>`

const numberingXML = xmlHeader + `<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="bullet"/><w:lvlText w:val="&#8226;"/><w:lvlJc w:val="left"/><w:pPr><w:ind w:left="360" w:hanging="180"/></w:pPr></w:lvl></w:abstractNum><w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num></w:numbering>`
