package markup

import (
	"errors"
	"testing"

	"github.com/Aravindmodala/Bookology-sub001/internal/editor"
)

func TestRoundTripParagraphsAndMedia(t *testing.T) {
	c := New()
	doc := editor.NewDocument(
		&editor.Paragraph{Runs: []editor.Run{
			{Text: "Bold start", Marks: []editor.Mark{editor.MarkBold}},
			{Text: " then plain"},
		}},
		&editor.Media{
			Src:      "https://cdn.example.com/a.png",
			Alt:      "a picture",
			WidthPx:  320,
			HeightPx: 200,
			Align:    editor.AlignRight,
		},
		editor.NewParagraph("Closing thoughts."),
	)

	out, err := c.Parse(c.Serialize(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(out.Blocks))
	}

	p := out.Blocks[0].(*editor.Paragraph)
	if p.Text() != "Bold start then plain" {
		t.Errorf("paragraph text = %q", p.Text())
	}
	if len(p.Runs) != 2 || len(p.Runs[0].Marks) != 1 || p.Runs[0].Marks[0] != editor.MarkBold {
		t.Errorf("bold run not preserved: %+v", p.Runs)
	}

	m := out.Blocks[1].(*editor.Media)
	if m.Src != "https://cdn.example.com/a.png" || m.Alt != "a picture" {
		t.Errorf("media identity lost: %+v", m)
	}
	if m.WidthPx != 320 || m.HeightPx != 200 {
		t.Errorf("geometry = %dx%d, want 320x200", m.WidthPx, m.HeightPx)
	}
	if m.Align != editor.AlignRight {
		t.Errorf("align = %q, want right", m.Align)
	}
	if m.AspectRatio == 0 {
		t.Error("aspect ratio not derived from geometry")
	}
}

func TestParsePlainTextSplitsOnBlankLines(t *testing.T) {
	c := New()
	doc, err := c.Parse("First paragraph.\n\nSecond paragraph.")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(doc.Blocks))
	}
	if got := doc.Blocks[1].(*editor.Paragraph).Text(); got != "Second paragraph." {
		t.Errorf("second paragraph = %q", got)
	}
}

func TestParseEmptyContent(t *testing.T) {
	c := New()
	doc, err := c.Parse("   \n\t ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Blocks) != 0 {
		t.Errorf("blocks = %d, want empty document", len(doc.Blocks))
	}
}

func TestParseNoRecognizableBlocks(t *testing.T) {
	c := New()
	_, err := c.Parse("<hr/>")
	var malformed *MalformedContentError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedContentError", err)
	}
}

func TestParseTolerantOfBrokenStyle(t *testing.T) {
	c := New()
	doc, err := c.Parse(`<p>text</p><img src="x.png" alt="" style="width:banana;height:50px;float:left">`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := doc.Blocks[1].(*editor.Media)
	if m.WidthPx != 0 {
		t.Errorf("WidthPx = %d, want 0 (unparseable width skipped)", m.WidthPx)
	}
	if m.HeightPx != 50 {
		t.Errorf("HeightPx = %d, want 50", m.HeightPx)
	}
	if m.Align != editor.AlignLeft {
		t.Errorf("align = %q, want left", m.Align)
	}
}

func TestParseMediaWithoutStyleUsesNaturalSize(t *testing.T) {
	c := New()
	doc, err := c.Parse(`<img src="x.png" alt="bare">`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := doc.Blocks[0].(*editor.Media)
	if m.WidthPx != 0 || m.HeightPx != 0 {
		t.Errorf("geometry = %dx%d, want natural (0x0)", m.WidthPx, m.HeightPx)
	}
	if m.Align != editor.AlignCenter {
		t.Errorf("align = %q, want default center", m.Align)
	}
}

func TestParseImageInsideParagraph(t *testing.T) {
	c := New()
	doc, err := c.Parse(`<p>before <img src="x.png" alt=""> after</p>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var paras, medias int
	for _, b := range doc.Blocks {
		switch b.(type) {
		case *editor.Paragraph:
			paras++
		case *editor.Media:
			medias++
		}
	}
	if paras != 1 || medias != 1 {
		t.Errorf("got %d paragraphs and %d media blocks, want 1 and 1", paras, medias)
	}
}

func TestSerializeEscapesText(t *testing.T) {
	c := New()
	doc := editor.NewDocument(editor.NewParagraph("a < b & c"))
	out, err := c.Parse(c.Serialize(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := out.Blocks[0].(*editor.Paragraph).Text(); got != "a < b & c" {
		t.Errorf("round-trip text = %q, want original", got)
	}
}

func TestParseNestedMarks(t *testing.T) {
	c := New()
	doc, err := c.Parse(`<p><em><strong>both</strong></em></p>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	runs := doc.Blocks[0].(*editor.Paragraph).Runs
	if len(runs) != 1 || len(runs[0].Marks) != 2 {
		t.Fatalf("runs = %+v, want one run with two marks", runs)
	}
}

func TestSerializeCenterAlignment(t *testing.T) {
	c := New()
	doc := editor.NewDocument(&editor.Media{Src: "x.png", Align: editor.AlignCenter})
	out, err := c.Parse(c.Serialize(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := out.Blocks[0].(*editor.Media).Align; got != editor.AlignCenter {
		t.Errorf("align = %q, want center", got)
	}
}
