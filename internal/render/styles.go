package render

// runStyle captures the inline run formatting applied to rendered text.
type runStyle struct {
	Bold      bool
	Italic    bool
	Caps      bool
	Size      int // half-points
	Color     string
	Font      string
	Underline bool
}

// formatStyles centralizes the formatting for key resume elements per layout.
type formatStyles struct {
	Name     runStyle
	Contact  runStyle
	Heading  runStyle
	RoleLine runStyle
	Body     runStyle
	// HeadingBorder draws a bottom border under section headings.
	HeadingBorder bool
}

var styleMap = map[Format]formatStyles{
	FormatClassic: {
		Name:          runStyle{Bold: true, Caps: true, Size: 32, Font: "Times New Roman"},
		Contact:       runStyle{Size: 20, Font: "Times New Roman"},
		Heading:       runStyle{Bold: true, Size: 22, Font: "Times New Roman"},
		RoleLine:      runStyle{Bold: true, Size: 22, Font: "Times New Roman"},
		Body:          runStyle{Size: 20, Font: "Times New Roman"},
		HeadingBorder: true,
	},
	FormatModern: {
		Name:          runStyle{Bold: true, Size: 36, Font: "Calibri", Color: "111111"},
		Contact:       runStyle{Size: 20, Font: "Calibri", Color: "444444"},
		Heading:       runStyle{Bold: true, Caps: true, Size: 24, Font: "Calibri", Color: "1F2937"},
		RoleLine:      runStyle{Bold: true, Size: 22, Font: "Calibri"},
		Body:          runStyle{Size: 20, Font: "Calibri"},
		HeadingBorder: false,
	},
}
