package markers

import "strings"

// occurrence locates one marker in the scanned text. pos is the offset of
// the start delimiter; the value is text[valueStart:valueEnd].
type occurrence struct {
	pos        int
	name       string
	valueStart int
	valueEnd   int
}

// scan finds every marker in text in document order. A candidate whose name is
// empty, spans lines or contains a delimiter prefix, or that has no matching
// end delimiter, is not a marker and scanning resumes after its first byte.
func scan(text string, d Delimiters) []occurrence {
	if d.StartPrefix == "" || d.StartSuffix == "" {
		return nil
	}

	var occs []occurrence
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], d.StartPrefix)
		if i < 0 {
			break
		}
		start := pos + i
		nameStart := start + len(d.StartPrefix)

		j := strings.Index(text[nameStart:], d.StartSuffix)
		if j < 0 {
			break
		}
		name := text[nameStart : nameStart+j]
		if !validName(name, d) {
			pos = start + 1
			continue
		}

		valueStart := nameStart + j + len(d.StartSuffix)
		closing := d.EndPrefix + name + d.EndSuffix
		k := strings.Index(text[valueStart:], closing)
		if k < 0 {
			pos = start + 1
			continue
		}

		occs = append(occs, occurrence{
			pos:        start,
			name:       name,
			valueStart: valueStart,
			valueEnd:   valueStart + k,
		})
		pos = valueStart + k + len(closing)
	}
	return occs
}

func validName(name string, d Delimiters) bool {
	if name == "" || strings.ContainsAny(name, "\r\n") {
		return false
	}
	if strings.Contains(name, d.StartPrefix) {
		return false
	}
	return d.EndPrefix == "" || !strings.Contains(name, d.EndPrefix)
}
