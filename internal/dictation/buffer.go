package dictation

import "strings"

// Buffer holds committed dictation text. Only final transcript text is ever
// written to it.
type Buffer struct {
	text string
}

// Apply commits the final text of ev and reports what was committed.
func (b *Buffer) Apply(ev Event) (string, bool) {
	final := ev.Final()
	if final == "" {
		return "", false
	}
	b.Commit(final)
	return final, true
}

// Commit appends text, separated by one space unless the buffer is blank,
// in which case text replaces it.
func (b *Buffer) Commit(text string) {
	if strings.TrimSpace(b.text) == "" {
		b.text = text
		return
	}
	b.text += " " + text
}

func (b *Buffer) Set(text string) { b.text = text }

func (b *Buffer) String() string { return b.text }
