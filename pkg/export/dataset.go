package export

import "fmt"

// Dataset defines tabular export content. Footer rows are rendered after the body
// and are used for totals.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	Footer  []map[string]string
	// Notes are free-text lines printed under the title of paged formats.
	Notes []string
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	return nil
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}

// Money formats an amount with two decimals and thousands separators.
func Money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	raw := fmt.Sprintf("%.2f", v)
	intPart, frac := raw[:len(raw)-3], raw[len(raw)-3:]
	var out []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	s := string(out) + frac
	if neg {
		s = "-" + s
	}
	return s
}
