package importer

import (
	"regexp"
	"strings"
)

// UnknownTable is the table context of statements that are not INSERT or CREATE TABLE
const UnknownTable = "Unknown"

// sqlSpace is the whitespace set stripped around lines and statements, NUL and VT included
const sqlSpace = " \t\n\r\x00\x0b"

var (
	delimiterPattern = regexp.MustCompile(`(?i)^DELIMITER\s+(.*)$`)
	tablePattern     = regexp.MustCompile("(?i)^\\s*(?:INSERT\\s+(?:IGNORE\\s+)?INTO|CREATE\\s+TABLE(?:\\s+IF\\s+NOT\\s+EXISTS)?)\\s+[`\"]?([a-zA-Z0-9_]+)")
)

// Statement is one complete SQL statement cut out of the dump
type Statement struct {
	SQL       string
	Table     string
	StartLine int64
	EndLine   int64
}

// Assembler turns raw dump lines into complete statements.
// Completion is a suffix match of the trimmed line against the active
// delimiter; string literals are not tokenised, so a delimiter at the end
// of a line inside a multi-line string literal ends the statement early.
type Assembler struct {
	delimiter   string
	buf         strings.Builder
	table       string
	startLine   int64
	inComment   bool
	skipVersion bool
}

// NewAssembler creates an assembler starting with the given delimiter.
// If skipVersionComments is set, /*!NNNNN ... */ lines are dropped like plain comments.
func NewAssembler(delimiter string, skipVersionComments bool) *Assembler {
	if delimiter == "" {
		delimiter = ";"
	}
	return &Assembler{
		delimiter:   delimiter,
		table:       UnknownTable,
		skipVersion: skipVersionComments,
	}
}

// Feed consumes one raw line (terminator included). It returns a statement
// when the line completes one.
func (a *Assembler) Feed(line string, lineNo int64) (Statement, bool) {
	trimmed := strings.Trim(line, sqlSpace)

	if a.inComment {
		end := strings.Index(trimmed, "*/")
		if end < 0 {
			return Statement{}, false
		}
		a.inComment = false

		// text after the close starts a new line of its own
		rest := strings.Trim(trimmed[end+2:], sqlSpace)
		if rest == "" || rest == a.delimiter {
			return Statement{}, false
		}
		return a.Feed(rest+"\n", lineNo)
	}

	if m := delimiterPattern.FindStringSubmatch(trimmed); m != nil {
		if tok := strings.Trim(m[1], sqlSpace); tok != "" {
			a.delimiter = tok
		}
		return Statement{}, false
	}

	if a.buf.Len() == 0 {
		if trimmed == "" || a.skipComment(trimmed) {
			return Statement{}, false
		}
		a.table = UnknownTable
		if m := tablePattern.FindStringSubmatch(trimmed); m != nil {
			a.table = m[1]
		}
		a.startLine = lineNo
	}

	a.buf.WriteString(line)

	if !strings.HasSuffix(trimmed, a.delimiter) {
		return Statement{}, false
	}

	stmt := Statement{
		SQL:       a.cut(),
		Table:     a.table,
		StartLine: a.startLine,
		EndLine:   lineNo,
	}
	a.reset()

	if stmt.SQL == "" {
		return Statement{}, false
	}
	return stmt, true
}

// skipComment reports whether a line seen on an empty buffer is a comment
func (a *Assembler) skipComment(trimmed string) bool {
	if strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "#") {
		return true
	}
	if !strings.HasPrefix(trimmed, "/*") {
		return false
	}
	if strings.HasPrefix(trimmed, "/*!") && !a.skipVersion {
		return false
	}

	end := strings.Index(trimmed[2:], "*/")
	if end < 0 {
		a.inComment = true
		return true
	}

	// "/* note */ INSERT ..." still carries a statement
	rest := strings.Trim(trimmed[2+end+2:], sqlSpace)
	return rest == "" || rest == a.delimiter
}

func (a *Assembler) cut() string {
	sql := strings.Trim(a.buf.String(), sqlSpace)
	sql = strings.TrimSuffix(sql, a.delimiter)
	return strings.Trim(sql, sqlSpace)
}

func (a *Assembler) reset() {
	a.buf.Reset()
	a.table = UnknownTable
	a.startLine = 0
}

// Empty reports whether no statement is in progress
func (a *Assembler) Empty() bool {
	if a.inComment {
		return false
	}
	return strings.Trim(a.buf.String(), sqlSpace) == ""
}

// Delimiter returns the active statement delimiter
func (a *Assembler) Delimiter() string {
	return a.delimiter
}

// Table returns the table context of the statement in progress
func (a *Assembler) Table() string {
	return a.table
}

// Drain hands out whatever is buffered and leaves the assembler empty.
// The returned statement is incomplete: it never met its delimiter.
func (a *Assembler) Drain() (Statement, bool) {
	// An unclosed block comment carries no statement
	a.inComment = false

	sql := strings.Trim(a.buf.String(), sqlSpace)
	stmt := Statement{SQL: sql, Table: a.table, StartLine: a.startLine}
	a.reset()

	if sql == "" {
		return Statement{}, false
	}
	return stmt, true
}

// settle returns proof that no statement is in progress
func (a *Assembler) settle() (emptyBuffer, bool) {
	if !a.Empty() {
		return emptyBuffer{}, false
	}
	return emptyBuffer{}, true
}

// emptyBuffer can only be obtained from an assembler with nothing buffered.
// Terminal checkpoints require one.
type emptyBuffer struct{}
