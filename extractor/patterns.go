package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/drawcheck/drawing"
)

// Token grammars for the annotations found on fabrication drawings. All
// matching is done on the uppercased page text.
var (
	// Datum feature symbols appear as single bracketed uppercase letters.
	datumRe = regexp.MustCompile(`\[([A-Z])\]`)

	// Feature control frames in linearized form:
	//   POS|0.010|M|A|B|C   FLAT|.005   PERP|0.002|A
	frameRe = regexp.MustCompile(`\b(POS|FLAT|STR|CIRC|CYL|PERP|PAR|ANG|PROF|RUNOUT|TRUNOUT|CONC|SYM)((?:\|[A-Z0-9.]+)+)`)

	// Weld callouts: size, type, optional side qualifier.
	//   1/4 FILLET BOTH SIDES    6MM FILLET    0.375 GROOVE WELD ARROW SIDE
	weldRe = regexp.MustCompile(`\b(\d+/\d+|\d*\.\d+|\d+MM|\d+\s*MM)\s*(?:IN|")?\s+(FILLET|GROOVE|PLUG|SLOT|SPOT|SEAM)(?:\s+WELD)?(\s+(?:BOTH\s+SIDES|ARROW\s+SIDE|OTHER\s+SIDE))?(\s+ALL\s+AROUND)?(\s+FIELD\s+WELD)?`)

	// Material designations: ASTM A516 GR 70, A36, A572 GRADE 50.
	materialRe = regexp.MustCompile(`\b(?:ASTM\s+)?(A\d{2,3})(?:[\s-]*(?:GR\.?|GRADE)\s*([A-Z]?\d+[A-Z]?\d*))?\b`)

	// MTR property assignments: C=0.22 MN:0.95 FY=42 KSI ELONG=25%
	chemRe = regexp.MustCompile(`\b(C|MN|P|S|SI|CR|MO|V|NI|CU)\s*[=:]\s*(\d*\.?\d+)`)
	mechRe = regexp.MustCompile(`\b(FY|YIELD|FU|TENSILE|ELONG(?:ATION)?)\s*[=:]\s*(\d+\.?\d*)`)

	// Heat treatment condition tokens.
	heatRe = regexp.MustCompile(`\b(NORMALIZED|AS[\s-]ROLLED|QUENCHED\s+AND\s+TEMPERED|Q&T|ANNEALED|STRESS\s+RELIEVED)\b`)

	// Toleranced dimensions: 12.500 ±0.010, 0.500 +0.002/-0.003, 25.4 MM ±0.1
	dimTolRe  = regexp.MustCompile(`\b(\d+\.?\d*)\s*(MM|IN|FT|")?\s*(?:±|\+/-)\s*(\d*\.?\d+)`)
	dimSplitRe = regexp.MustCompile(`\b(\d+\.?\d*)\s*(MM|IN|FT|")?\s*\+(\d*\.?\d+)\s*/\s*-(\d*\.?\d+)`)
	dimPlainRe = regexp.MustCompile(`\b(\d+\.\d+)\s*(MM|IN|FT)\b`)

	// Title block fields.
	dwgNoRe = regexp.MustCompile(`DWG\.?\s*(?:NO\.?|NUMBER)\s*[:.]?\s*([A-Z0-9][A-Z0-9-]*)`)
	revRe   = regexp.MustCompile(`\bREV(?:ISION)?\.?\s*[:.]?\s*([A-Z0-9]{1,3})\b`)
	titleRe = regexp.MustCompile(`\bTITLE\s*[:.]\s*([^\n]+)`)
	sheetRe = regexp.MustCompile(`\bSHEET\s+\d+\s+OF\s+(\d+)`)
)

var frameSymbols = map[string]string{
	"POS": "position", "FLAT": "flatness", "STR": "straightness",
	"CIRC": "circularity", "CYL": "cylindricity", "PERP": "perpendicularity",
	"PAR": "parallelism", "ANG": "angularity", "PROF": "profile",
	"RUNOUT": "runout", "TRUNOUT": "total-runout", "CONC": "concentricity",
	"SYM": "symmetry",
}

// parsePage extracts all structured tokens from one page of text and appends
// them to out with page-scoped locations.
func parsePage(out *drawing.Data, text string, page int) {
	up := strings.ToUpper(text)
	loc := drawing.Location{Page: page}

	parseDatums(out, up)
	parseFrames(out, up, loc)
	parseWelds(out, up, loc)
	parseMaterials(out, up, loc)
	parseDimensions(out, up, loc)
}

func parseDatums(out *drawing.Data, text string) {
	seen := make(map[string]bool, len(out.Datums))
	for _, d := range out.Datums {
		seen[d] = true
	}
	for _, m := range datumRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out.Datums = append(out.Datums, m[1])
		}
	}
	sort.Strings(out.Datums)
}

func parseFrames(out *drawing.Data, text string, loc drawing.Location) {
	for _, m := range frameRe.FindAllStringSubmatch(text, -1) {
		symbol := frameSymbols[m[1]]
		parts := strings.Split(strings.TrimPrefix(m[2], "|"), "|")
		if len(parts) == 0 {
			continue
		}
		tol, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		frame := drawing.FeatureFrame{
			Symbol:    symbol,
			Tolerance: tol,
			Location:  loc,
			Raw:       m[0],
		}
		rest := parts[1:]
		if len(rest) > 0 && (rest[0] == "M" || rest[0] == "L" || rest[0] == "S") {
			frame.Modifier = rest[0]
			rest = rest[1:]
		}
		for _, ref := range rest {
			if len(ref) == 1 && ref[0] >= 'A' && ref[0] <= 'Z' {
				frame.DatumRefs = append(frame.DatumRefs, ref)
			}
		}
		out.Frames = append(out.Frames, frame)
	}
}

func parseWelds(out *drawing.Data, text string, loc drawing.Location) {
	for _, m := range weldRe.FindAllStringSubmatch(text, -1) {
		size, ok := parseWeldSize(m[1])
		if !ok {
			continue
		}
		weld := drawing.WeldCallout{
			Size:     size,
			Type:     strings.ToLower(m[2]),
			Sides:    drawing.WeldSideArrow,
			Location: loc,
			Raw:      strings.TrimSpace(m[0]),
		}
		switch strings.Join(strings.Fields(m[3]), " ") {
		case "BOTH SIDES":
			weld.Sides = drawing.WeldSideBoth
		case "OTHER SIDE":
			weld.Sides = drawing.WeldSideOther
		}
		weld.AllAround = strings.TrimSpace(m[4]) != ""
		weld.FieldWeld = strings.TrimSpace(m[5]) != ""
		out.Welds = append(out.Welds, weld)
	}
}

// parseWeldSize handles fractional ("1/4"), decimal ("0.375"), and metric
// ("6MM") size tokens, returning inches.
func parseWeldSize(tok string) (float64, bool) {
	tok = strings.ReplaceAll(tok, " ", "")
	if strings.HasSuffix(tok, "MM") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "MM"), 64)
		if err != nil {
			return 0, false
		}
		return v / 25.4, true
	}
	if num, den, ok := strings.Cut(tok, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseMaterials(out *drawing.Data, text string, loc drawing.Location) {
	heat := ""
	if m := heatRe.FindStringSubmatch(text); m != nil {
		heat = normalizeHeat(m[1])
	}
	props := parseProperties(text)

	for _, m := range materialRe.FindAllStringSubmatch(text, -1) {
		spec := drawing.MaterialSpec{
			Designation:   m[1],
			Grade:         m[2],
			HeatTreatment: heat,
			Location:      loc,
		}
		if len(props) > 0 {
			spec.Properties = props
		}
		if duplicateMaterial(out.Materials, spec) {
			continue
		}
		out.Materials = append(out.Materials, spec)
	}
}

func duplicateMaterial(specs []drawing.MaterialSpec, candidate drawing.MaterialSpec) bool {
	for _, s := range specs {
		if s.Designation == candidate.Designation && s.Grade == candidate.Grade {
			return true
		}
	}
	return false
}

func normalizeHeat(tok string) string {
	tok = strings.Join(strings.Fields(tok), " ")
	switch tok {
	case "Q&T", "QUENCHED AND TEMPERED":
		return "quenched-and-tempered"
	case "AS ROLLED", "AS-ROLLED":
		return "as-rolled"
	default:
		return strings.ToLower(strings.ReplaceAll(tok, " ", "-"))
	}
}

func parseProperties(text string) map[string]float64 {
	props := make(map[string]float64)
	for _, m := range chemRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			props[strings.ToLower(m[1])] = v
		}
	}
	for _, m := range mechRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		switch m[1] {
		case "FY", "YIELD":
			props["yield_ksi"] = v
		case "FU", "TENSILE":
			props["tensile_ksi"] = v
		default:
			props["elongation_pct"] = v
		}
	}
	if len(props) == 0 {
		return nil
	}
	return props
}

func parseDimensions(out *drawing.Data, text string, loc drawing.Location) {
	covered := make(map[string]bool)

	for _, m := range dimSplitRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		plus, _ := strconv.ParseFloat(m[3], 64)
		minus, _ := strconv.ParseFloat(m[4], 64)
		covered[m[1]] = true
		out.Dimensions = append(out.Dimensions, drawing.Dimension{
			Value: v, Unit: normalizeUnit(m[2]), Plus: plus, Minus: minus, Location: loc,
		})
	}
	for _, m := range dimTolRe.FindAllStringSubmatch(text, -1) {
		if covered[m[1]] {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		tol, _ := strconv.ParseFloat(m[3], 64)
		covered[m[1]] = true
		out.Dimensions = append(out.Dimensions, drawing.Dimension{
			Value: v, Unit: normalizeUnit(m[2]), Plus: tol, Minus: tol, Location: loc,
		})
	}
	for _, m := range dimPlainRe.FindAllStringSubmatch(text, -1) {
		if covered[m[1]] {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		covered[m[1]] = true
		out.Dimensions = append(out.Dimensions, drawing.Dimension{
			Value: v, Unit: normalizeUnit(m[2]), Location: loc,
		})
	}
}

func normalizeUnit(u string) string {
	switch u {
	case "MM":
		return "mm"
	case "FT":
		return "ft"
	case "", `"`, "IN":
		return "in"
	default:
		return strings.ToLower(u)
	}
}

// parseMetadata fills the title block fields from the merged document text.
func parseMetadata(out *drawing.Data, text string) {
	up := strings.ToUpper(text)
	if m := dwgNoRe.FindStringSubmatch(up); m != nil {
		out.Metadata.DrawingNumber = m[1]
	}
	if m := revRe.FindStringSubmatch(up); m != nil {
		out.Metadata.Revision = m[1]
	}
	if m := titleRe.FindStringSubmatch(up); m != nil {
		out.Metadata.Title = strings.TrimSpace(m[1])
	}
	if m := sheetRe.FindStringSubmatch(up); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > out.Metadata.SheetCount {
			out.Metadata.SheetCount = n
		}
	}
}
