package render

import (
	"bytes"
	"fmt"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"

	"autodeck/internal/model"
	"autodeck/internal/theme"
)

// 16:9 canvas, 10 x 5.625 in.
const (
	emuPerInch = 914400

	slideWidth   = int64(10.0 * emuPerInch)
	slideHeight  = int64(5.625 * emuPerInch)
	marginLeft   = int64(0.5 * emuPerInch)
	contentWidth = int64(9.0 * emuPerInch)
	bodyTop      = int64(1.3 * emuPerInch)
	bodyHeight   = int64(4.0 * emuPerInch)

	imageBodyWidth = int64(5.5 * emuPerInch)
	imageLeft      = int64(6.2 * emuPerInch)
	imageSize      = int64(3.3 * emuPerInch)

	gradientBands = 24

	chartTop    = int64(1.25 * emuPerInch)
	chartHeight = int64(4.1 * emuPerInch)

	fontCaption   = 10
	fontStatLabel = 16
	fontReference = 12

	creator = "autodeck"
)

func inches(v float64) int64 {
	return int64(v * emuPerInch)
}

func color(c theme.RGB) ppt.Color {
	return ppt.NewColor(c.ARGB())
}

// heading and body style a run with the theme's fonts.
func heading(run *ppt.TextRun, spec theme.Spec, size int, c theme.RGB) {
	run.GetFont().SetName(spec.Fonts.Heading).SetSize(size).SetBold(true).SetColor(color(c))
}

func body(run *ppt.TextRun, spec theme.Spec, size int, c theme.RGB) {
	run.GetFont().SetName(spec.Fonts.Body).SetSize(size).SetColor(color(c))
}

func solidFill(c theme.RGB) *ppt.Fill {
	return ppt.NewFill().SetSolid(color(c))
}

func alignCenter(p *ppt.Paragraph) {
	p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
}

// PPTXWriter serializes a RenderedDeck with GoPPT.
type PPTXWriter struct{}

func NewPPTXWriter() *PPTXWriter {
	return &PPTXWriter{}
}

// Write returns the .pptx bytes of deck. Failures are *model.RenderError.
func (w *PPTXWriter) Write(deck *RenderedDeck) (data []byte, err error) {
	if deck == nil || len(deck.Slides) == 0 {
		return nil, &model.RenderError{Op: "serialize", Err: fmt.Errorf("deck has no slides")}
	}
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, &model.RenderError{Op: "serialize", Err: fmt.Errorf("pptx writer panic: %v", r)}
		}
	}()

	p := ppt.New()
	p.GetDocumentProperties().Title = deck.Title
	p.GetDocumentProperties().Creator = creator

	for i, rs := range deck.All() {
		slide := p.GetActiveSlide()
		if i > 0 {
			slide = p.CreateSlide()
		}
		drawSlide(slide, deck.Theme, rs)
	}

	writer, err := ppt.NewWriter(p, ppt.WriterPowerPoint2007)
	if err != nil {
		return nil, &model.RenderError{Op: "serialize", Err: fmt.Errorf("create pptx writer: %w", err)}
	}
	pw, ok := writer.(*ppt.PPTXWriter)
	if !ok {
		return nil, &model.RenderError{Op: "serialize", Err: fmt.Errorf("unexpected writer type %T", writer)}
	}

	var buf bytes.Buffer
	if err := pw.WriteTo(&buf); err != nil {
		return nil, &model.RenderError{Op: "serialize", Err: fmt.Errorf("write pptx: %w", err)}
	}
	return buf.Bytes(), nil
}

func drawSlide(slide *ppt.Slide, spec theme.Spec, rs RenderedSlide) {
	drawBackground(slide, spec.Background)
	if rs.Slide.Notes != "" {
		slide.SetNotes(rs.Slide.Notes)
	}

	switch rs.Layout {
	case model.LayoutTitle:
		drawTitleSlide(slide, spec, rs)
		return
	case model.LayoutChart:
		drawHeader(slide, spec, rs, contentWidth)
		drawChart(slide, spec, rs)
	case model.LayoutStatistics:
		drawHeader(slide, spec, rs, contentWidth)
		drawStatistics(slide, spec, rs)
	case model.LayoutCitations:
		drawHeader(slide, spec, rs, contentWidth)
		drawReferences(slide, spec, rs.References)
	default:
		width := contentWidth
		if rs.Image != nil {
			width = imageBodyWidth
		}
		drawHeader(slide, spec, rs, width)
		drawBullets(slide, spec, rs.Slide.Bullets, rs.Rule.BodySize, width)
		if rs.Image != nil {
			drawImage(slide, spec, rs)
		}
	}
}

// drawBackground fills the canvas. Gradients are emulated with horizontal
// bands of interpolated color.
func drawBackground(slide *ppt.Slide, bg theme.Background) {
	if len(bg.Stops) == 0 {
		return
	}
	if bg.Strategy != theme.Gradient || len(bg.Stops) < 2 {
		fillRect(slide, 0, 0, slideWidth, slideHeight, bg.Stops[0])
		return
	}

	band := slideHeight / gradientBands
	for i := range gradientBands {
		y := int64(i) * band
		h := band
		if i == gradientBands-1 {
			h = slideHeight - y
		}
		fillRect(slide, 0, y, slideWidth, h, gradientAt(bg.Stops, float64(i)/float64(gradientBands-1)))
	}
}

// gradientAt interpolates piecewise across evenly spaced stops.
func gradientAt(stops []theme.RGB, t float64) theme.RGB {
	if len(stops) == 1 {
		return stops[0]
	}
	t = max(0, min(1, t))
	pos := t * float64(len(stops)-1)
	i := min(int(pos), len(stops)-2)
	return stops[i].Lerp(stops[i+1], pos-float64(i))
}

func fillRect(slide *ppt.Slide, x, y, w, h int64, c theme.RGB) *ppt.RichTextShape {
	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(x).SetOffsetY(y)
	shape.SetWidth(w).SetHeight(h)
	shape.SetFill(solidFill(c))
	return shape
}

func textBox(slide *ppt.Slide, x, y, w, h int64) *ppt.RichTextShape {
	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(x).SetOffsetY(y)
	shape.SetWidth(w).SetHeight(h)
	return shape
}

func drawTitleSlide(slide *ppt.Slide, spec theme.Spec, rs RenderedSlide) {
	title := textBox(slide, marginLeft, inches(1.6), contentWidth, inches(1.2))
	heading(title.CreateTextRun(rs.Slide.Title), spec, rs.Rule.TitleSize, spec.Palette.Title)
	alignCenter(title.GetActiveParagraph())

	if spec.DecorationLine {
		fillRect(slide, inches(4.0), inches(2.9), inches(2.0), inches(0.05), spec.Palette.Accent)
	}

	if rs.Slide.Subtitle != "" {
		sub := textBox(slide, marginLeft, inches(3.1), contentWidth, inches(0.8))
		body(sub.CreateTextRun(rs.Slide.Subtitle), spec, rs.Rule.BodySize, spec.Palette.Text)
		alignCenter(sub.GetActiveParagraph())
	}
}

func drawHeader(slide *ppt.Slide, spec theme.Spec, rs RenderedSlide, width int64) {
	title := textBox(slide, marginLeft, inches(0.3), width, inches(0.8))
	heading(title.CreateTextRun(rs.Slide.Title), spec, rs.Rule.TitleSize, spec.Palette.Title)

	if spec.DecorationLine {
		fillRect(slide, marginLeft, inches(1.1), inches(1.5), inches(0.05), spec.Palette.Accent)
	}
}

func drawBullets(slide *ppt.Slide, spec theme.Spec, bullets []model.Bullet, size int, width int64) {
	if len(bullets) == 0 {
		return
	}
	box := textBox(slide, marginLeft, bodyTop, width, bodyHeight)
	first := true
	for _, b := range bullets {
		writeBullet(box, spec, b, size, 0, &first)
	}
}

func writeBullet(box *ppt.RichTextShape, spec theme.Spec, b model.Bullet, size, depth int, first *bool) {
	if !*first {
		box.CreateParagraph()
	}
	*first = false

	marker := "• "
	if depth > 0 {
		marker = strings.Repeat("    ", depth) + "– "
	}
	body(box.CreateTextRun(marker+b.Text), spec, max(size-2*depth, 10), spec.Palette.Text)

	for _, child := range b.Children {
		writeBullet(box, spec, child, size, depth+1, first)
	}
}

func drawImage(slide *ppt.Slide, spec theme.Spec, rs RenderedSlide) {
	img := slide.CreateDrawingShape()
	img.SetImageData(rs.Image.Data, rs.Image.MIME)
	img.SetOffsetX(imageLeft).SetOffsetY(bodyTop)
	img.SetWidth(imageSize).SetHeight(imageSize)

	if rs.Image.Query == "" {
		return
	}
	caption := textBox(slide, imageLeft, bodyTop+imageSize+inches(0.05), imageSize, inches(0.3))
	body(caption.CreateTextRun(rs.Image.Query), spec, fontCaption, spec.Palette.Text)
	alignCenter(caption.GetActiveParagraph())
}

// nativeChart maps a chart spec onto a GoPPT plot. Bar charts are
// horizontal, column charts vertical; pie charts plot the first series.
func nativeChart(spec theme.Spec, chart *model.ChartSpec) ppt.ChartType {
	series := make([]*ppt.ChartSeries, 0, len(chart.Series))
	for i, s := range chart.Series {
		cs := ppt.NewChartSeriesOrdered(s.Name, chart.Categories, s.Values)
		cs.ShowValue = true
		if chart.Kind != model.ChartPie {
			cs.SetFillColor(color(seriesColor(spec, i)))
		}
		series = append(series, cs)
	}

	switch chart.Kind {
	case model.ChartLine:
		line := ppt.NewLineChart()
		for _, s := range series {
			line.AddSeries(s)
		}
		return line
	case model.ChartPie:
		series[0].ShowValue = false
		series[0].ShowPercentage = true
		return ppt.NewPieChart().AddSeries(series[0])
	default:
		bar := ppt.NewBarChart()
		bar.BarDirection = ppt.BarDirectionVertical
		if chart.Kind == model.ChartBar {
			bar.BarDirection = ppt.BarDirectionHorizontal
		}
		for _, s := range series {
			bar.AddSeries(s)
		}
		return bar
	}
}

func seriesColor(spec theme.Spec, i int) theme.RGB {
	return spec.Palette.Accent.Lerp(spec.Palette.Title, 0.35*float64(i%3))
}

func drawChart(slide *ppt.Slide, spec theme.Spec, rs RenderedSlide) {
	chart := rs.Slide.Chart

	shape := slide.CreateChartShape()
	shape.SetOffsetX(marginLeft).SetOffsetY(chartTop)
	shape.SetWidth(contentWidth).SetHeight(chartHeight)
	shape.GetPlotArea().SetType(nativeChart(spec, chart))

	if chart.Title != "" {
		shape.GetTitle().SetText(chart.Title)
		shape.GetTitle().Font.SetName(spec.Fonts.Heading).SetSize(rs.Rule.AccentSize).SetBold(true)
	} else {
		shape.GetTitle().SetVisible(false)
	}
	shape.GetLegend().Visible = len(chart.Series) > 1 || chart.Kind == model.ChartPie
}

func drawStatistics(slide *ppt.Slide, spec theme.Spec, rs RenderedSlide) {
	stats := rs.Slide.Statistics
	if len(stats) > model.MaxStatistics {
		stats = stats[:model.MaxStatistics]
	}
	if len(stats) == 0 {
		return
	}

	gap := inches(0.2)
	n := int64(len(stats))
	cardWidth := (contentWidth - gap*(n-1)) / n
	cardFill := spec.Palette.Background.Lerp(spec.Palette.Accent, 0.12)

	for i, st := range stats {
		x := marginLeft + int64(i)*(cardWidth+gap)
		card := fillRect(slide, x, inches(1.6), cardWidth, inches(2.6), cardFill)

		heading(card.CreateTextRun(st.Value), spec, rs.Rule.AccentSize, spec.Palette.Accent)
		alignCenter(card.GetActiveParagraph())

		card.CreateParagraph()
		body(card.CreateTextRun(st.Label), spec, fontStatLabel, spec.Palette.Text)
		alignCenter(card.GetActiveParagraph())
	}
}

func drawReferences(slide *ppt.Slide, spec theme.Spec, items []model.ResearchItem) {
	if len(items) == 0 {
		return
	}
	box := textBox(slide, marginLeft, bodyTop, contentWidth, bodyHeight)
	for i, it := range items {
		if i > 0 {
			box.CreateParagraph()
		}
		body(box.CreateTextRun(fmt.Sprintf("[%d] %s", it.Citation, it.Label())), spec, fontReference, spec.Palette.Text)
	}
}
