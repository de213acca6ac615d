package extract

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	rpdf "rsc.io/pdf"
)

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

// inspect validates the document structure and returns its page count.
func inspect(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return 0, fmt.Errorf("validate pdf: %w", err)
	}
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// run is text drawn from one text position without intervening moves.
type run struct {
	x, y float64
	size float64
	text string
}

// matrix is a PDF affine matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func translate(tx, ty float64) matrix { return matrix{1, 0, 0, 1, tx, ty} }

// layoutPages reads the text layer with rsc.io/pdf and returns, per page,
// the visual lines top to bottom with their left edges. The library panics on malformed input,
// so panics are turned into errors here.
func layoutPages(data []byte) (pages [][]textLine, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("read text layer: %v", r)
		}
	}()

	r, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, groupLines(pageRuns(p)))
	}
	return pages, nil
}

func pageRuns(p rpdf.Page) []run {
	encoders := map[string]rpdf.TextEncoding{}
	for _, name := range p.Fonts() {
		encoders[name] = p.Font(name).Encoder()
	}

	var (
		runs       []run
		cur        strings.Builder
		ctm        = identity
		stack      []matrix
		tm, tlm    = identity, identity
		leading    float64
		fontSize   float64
		enc        rpdf.TextEncoding
		runX, runY float64
		runSize    float64
		inRun      bool
	)

	flush := func() {
		if inRun && strings.TrimSpace(cur.String()) != "" {
			runs = append(runs, run{x: runX, y: runY, size: runSize, text: cur.String()})
		}
		cur.Reset()
		inRun = false
	}
	show := func(s string) {
		if !inRun {
			pos := tm.mul(ctm)
			runX, runY = pos[4], pos[5]
			runSize = math.Abs(fontSize * tm.mul(ctm)[3])
			inRun = true
		}
		if enc != nil {
			s = enc.Decode(s)
		}
		cur.WriteString(s)
	}
	moveTo := func(tx, ty float64) {
		flush()
		tlm = translate(tx, ty).mul(tlm)
		tm = tlm
	}
	nextLine := func() { moveTo(0, -leading) }

	interpret := func(strm rpdf.Value) {
		rpdf.Interpret(strm, func(stk *rpdf.Stack, op string) {
			n := stk.Len()
			args := make([]rpdf.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}
			switch op {
			case "q":
				stack = append(stack, ctm)
			case "Q":
				if len(stack) > 0 {
					ctm = stack[len(stack)-1]
					stack = stack[:len(stack)-1]
				}
			case "cm":
				if len(args) == 6 {
					var m matrix
					for i := range m {
						m[i] = args[i].Float64()
					}
					ctm = m.mul(ctm)
				}
			case "BT":
				flush()
				tm, tlm = identity, identity
			case "ET":
				flush()
			case "Tf":
				if len(args) == 2 {
					enc = encoders[args[0].Name()]
					fontSize = args[1].Float64()
				}
			case "TL":
				if len(args) == 1 {
					leading = args[0].Float64()
				}
			case "Td":
				if len(args) == 2 {
					moveTo(args[0].Float64(), args[1].Float64())
				}
			case "TD":
				if len(args) == 2 {
					leading = -args[1].Float64()
					moveTo(args[0].Float64(), args[1].Float64())
				}
			case "Tm":
				if len(args) == 6 {
					flush()
					for i := range tlm {
						tlm[i] = args[i].Float64()
					}
					tm = tlm
				}
			case "T*":
				nextLine()
			case "Tj":
				if len(args) == 1 {
					show(args[0].RawString())
				}
			case "'":
				if len(args) == 1 {
					nextLine()
					show(args[0].RawString())
				}
			case "\"":
				if len(args) == 3 {
					nextLine()
					show(args[2].RawString())
				}
			case "TJ":
				if len(args) == 1 {
					arr := args[0]
					for i := 0; i < arr.Len(); i++ {
						el := arr.Index(i)
						if el.Kind() == rpdf.String {
							show(el.RawString())
						} else if el.Float64() < -250 {
							// Large negative kerning is a visual word gap.
							show(" ")
						}
					}
				}
			}
		})
	}

	contents := p.V.Key("Contents")
	if contents.Kind() == rpdf.Array {
		for i := 0; i < contents.Len(); i++ {
			interpret(contents.Index(i))
		}
	} else {
		interpret(contents)
	}
	flush()
	return runs
}

// groupLines clusters runs sharing a baseline and orders them left to right.
// A line starts where its leftmost run starts.
func groupLines(runs []run) []textLine {
	if len(runs) == 0 {
		return nil
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].y > runs[j].y })

	var (
		lines [][]run
		line  []run
		baseY float64
	)
	for _, r := range runs {
		tol := math.Max(1.5, 0.3*r.size)
		if len(line) > 0 && math.Abs(r.y-baseY) > tol {
			lines = append(lines, line)
			line = nil
		}
		if len(line) == 0 {
			baseY = r.y
		}
		line = append(line, r)
	}
	lines = append(lines, line)

	out := make([]textLine, 0, len(lines))
	for _, l := range lines {
		sort.SliceStable(l, func(i, j int) bool { return l[i].x < l[j].x })
		parts := make([]string, len(l))
		for i, r := range l {
			parts[i] = r.text
		}
		out = append(out, textLine{text: strings.Join(parts, " "), x: l[0].x})
	}
	return out
}

// plainPages is the fallback reader: ledongthuc/pdf's plain text per page.
func plainPages(data []byte) (pages [][]textLine, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("read plain text: %v", r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	fonts := make(map[string]*lpdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		text, perr := p.GetPlainText(fonts)
		if perr != nil {
			return nil, fmt.Errorf("read page %d: %w", i, perr)
		}
		pages = append(pages, plainLines(strings.Split(text, "\n")))
	}
	return pages, nil
}

var errEmptyLayer = fmt.Errorf("text layer is empty: %w", ErrNoText)

// readPages tries the layout reader first and falls back to plain text.
func readPages(data []byte) ([][]textLine, string, error) {
	pages, err := layoutPages(data)
	if err == nil && hasText(pages) {
		return pages, "layout", nil
	}
	layoutErr := err
	if layoutErr == nil {
		layoutErr = errEmptyLayer
	}
	pages, err = plainPages(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w; fallback: %v", layoutErr, err)
	}
	return pages, "plain", nil
}

func hasText(pages [][]textLine) bool {
	for _, p := range pages {
		for _, ln := range p {
			if strings.TrimSpace(ln.text) != "" {
				return true
			}
		}
	}
	return false
}
