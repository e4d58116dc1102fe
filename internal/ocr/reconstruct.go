package ocr

import "strings"

// lineAccumulator is the fold state carried across tokens.
type lineAccumulator struct {
	text    strings.Builder
	confSum float64
	words   int
	pos     Position
	noConf  bool
}

func (a *lineAccumulator) add(tok Token) {
	if a.words == 0 {
		a.pos = tok.Position
	}
	if a.text.Len() > 0 {
		a.text.WriteByte(' ')
	}
	a.text.WriteString(tok.Text)
	a.confSum += tok.Confidence
	a.noConf = a.noConf || tok.NoConfidence
	a.words++
}

// flush appends the accumulated line to out when it holds text, then resets.
// Words with empty text carry over into the next line.
func (a *lineAccumulator) flush(out []LineRecord) []LineRecord {
	if a.text.Len() == 0 {
		return out
	}
	out = append(out, LineRecord{
		Text:         a.text.String(),
		Confidence:   a.confSum / float64(a.words),
		Position:     a.pos,
		NoConfidence: a.noConf,
	})
	*a = lineAccumulator{}
	return out
}

// Reconstruct groups tokens into lines.
//
// A token with word ordinal 0 closes the current line. A token is a real word only when
// its ordinal is strictly greater than the previous token's; anything else is treated as
// a duplicate and dropped. That also drops the first word of a line that follows
// another line without an intervening boundary marker.
func Reconstruct(tokens []Token) []LineRecord {
	var (
		acc      lineAccumulator
		lastWord int
		out      []LineRecord
	)
	for _, tok := range tokens {
		if tok.Position.Word == 0 {
			out = acc.flush(out)
		}
		if tok.Position.Word > lastWord {
			acc.add(tok)
		}
		lastWord = tok.Position.Word
	}
	return acc.flush(out)
}

// FullText joins the non-empty token texts with single spaces, in stream order.
func FullText(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		if tok.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}

// Lines returns the text of each record, in order.
func Lines(records []LineRecord) []string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.Text
	}
	return lines
}

// NewLines returns the records of cur whose text does not appear in prev.
func NewLines(prev, cur []LineRecord) []LineRecord {
	seen := make(map[string]struct{}, len(prev))
	for _, r := range prev {
		seen[r.Text] = struct{}{}
	}
	var out []LineRecord
	for _, r := range cur {
		if _, ok := seen[r.Text]; !ok {
			out = append(out, r)
		}
	}
	return out
}
