package pipeline

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse splits a raw input line into statements and stages. Parsing never
// fails as a whole: a stage whose redirections are malformed carries the
// error in Stage.Err and the remaining stages are still usable.
func Parse(text string) *Line {
	rest, background := DetectBackground(text)
	line := &Line{Text: text, Background: background}

	for _, stmtText := range SplitStatements(rest) {
		stmt := Statement{Text: stmtText}
		for _, stageText := range SplitPipeline(stmtText) {
			stmt.Stages = append(stmt.Stages, parseStage(stageText))
		}
		line.Statements = append(line.Statements, stmt)
	}
	return line
}

func parseStage(text string) Stage {
	st := Stage{Text: text}
	rest, redir, err := ExtractRedirection(text)
	if err != nil {
		st.Err = err
		return st
	}
	st.Redirect = redir
	st.Args = Tokenize(rest)
	return st
}

// SplitStatements splits a line on ';'. Consecutive separators are not
// merged; the empty statements between them are kept.
func SplitStatements(line string) []string {
	return strings.Split(line, OpSequential)
}

// SplitPipeline splits a statement on '|'. Consecutive separators are not
// merged; the empty stages between them are kept.
func SplitPipeline(stmt string) []string {
	return strings.Split(stmt, OpPipe)
}

// DetectBackground looks for a trailing '&'. Trailing characters that are
// neither letters nor digits (spaces, separators) may follow it. When found,
// the '&' and everything after it is removed.
func DetectBackground(line string) (string, bool) {
	runes := []rune(line)
	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		if string(r) == OpBackground {
			return string(runes[:i]), true
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			break
		}
	}
	return line, false
}

// Tokenize splits stage text on runs of whitespace. Quotes and backslashes
// have no special meaning.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// ExtractRedirection removes '<path' and '>path' from a stage's text.
// The path is the word following the operator, optionally after spaces; it
// ends at whitespace or at the next operator. Both directions may appear,
// in either order, but each at most once.
func ExtractRedirection(text string) (string, Redirection, error) {
	var (
		redir Redirection
		rest  strings.Builder
	)
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		op := string(runes[i])
		if op != OpRedirectIn && op != OpRedirectOut {
			rest.WriteRune(runes[i])
			continue
		}

		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start := j
		for j < len(runes) && !unicode.IsSpace(runes[j]) && !isRedirectOp(runes[j]) {
			j++
		}
		path := strings.TrimSpace(string(runes[start:j]))
		if path == "" {
			return "", Redirection{}, fmt.Errorf("%s requires a file path", op)
		}

		switch op {
		case OpRedirectIn:
			if redir.In != "" {
				return "", Redirection{}, fmt.Errorf("multiple %s redirects", op)
			}
			redir.In = path
		case OpRedirectOut:
			if redir.Out != "" {
				return "", Redirection{}, fmt.Errorf("multiple %s redirects", op)
			}
			redir.Out = path
		}

		// Keep the surrounding words apart: "cat>out -n" is "cat -n".
		rest.WriteByte(' ')
		i = j - 1
	}

	return rest.String(), redir, nil
}

func isRedirectOp(r rune) bool {
	s := string(r)
	return s == OpRedirectIn || s == OpRedirectOut
}
