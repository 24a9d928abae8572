package shell

import (
	"fmt"
	"strings"
)

// CommandSpec is the parsed representation of one pipeline stage: its
// argument vector plus at most one input and one output redirection.
// Later redirections of the same kind in the token stream overwrite
// earlier ones. Redirection targets are not part of Argv.
type CommandSpec struct {
	Argv       []string
	InputFile  string
	OutputFile string
	Append     bool // only meaningful when OutputFile != ""
}

// Pipeline is an ordered, non-empty list of CommandSpec stages. All but
// the last stage have their stdout wired to the next stage's stdin
// unless an explicit OutputFile overrides it; all but the first have
// their stdin wired from the previous stage unless an explicit
// InputFile overrides it.
type Pipeline []*CommandSpec

// ParsePipeline tokenizes line and groups the result into a Pipeline.
// A blank or whitespace-only line yields a nil Pipeline and a nil error
// (spec.md §4.2: "a pipeline with zero CommandSpecs is treated as a
// no-op").
func ParsePipeline(line string) (Pipeline, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	segments := SplitByPipe(tokens)
	pipeline := make(Pipeline, 0, len(segments))
	for i, segTokens := range segments {
		// Only a Pipe-triggered commit requires a non-empty argv
		// (spec.md §4.2: "on Pipe, commit the current spec (parse
		// error if its argv is empty)"). The trailing segment is the
		// end-of-stream commit, which the grammar in spec.md §6
		// allows to be redirections-only (e.g. "> out.txt").
		spec, err := parseSegment(segTokens, i < len(segments)-1)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, spec)
	}
	return pipeline, nil
}

// parseSegment walks one stage's tokens, maintaining argv and the two
// redirection slots. Order between words and redirections is
// unconstrained ("> out echo hi" parses the same as "echo hi > out"),
// per spec.md §9. requireArgv is set for every segment whose commit was
// triggered by a Pipe token; the final, end-of-stream segment may be
// redirections-only.
func parseSegment(tokens []Token, requireArgv bool) (*CommandSpec, error) {
	spec := &CommandSpec{}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case TokenWord:
			spec.Argv = append(spec.Argv, tok.Value)

		case TokenRedirectIn:
			file, err := redirectionTarget(tokens, i)
			if err != nil {
				return nil, err
			}
			spec.InputFile = file
			i++

		case TokenRedirectOut, TokenRedirectAppend:
			file, err := redirectionTarget(tokens, i)
			if err != nil {
				return nil, err
			}
			spec.OutputFile = file
			spec.Append = tok.Type == TokenRedirectAppend
			i++

		default:
			return nil, &ParseError{Msg: fmt.Sprintf("dsh: unexpected token %q", tok.Value)}
		}
	}

	// spec.md §6's grammar, command := (word | redirect)+, requires at
	// least one token regardless of position; a wholly empty segment
	// (no words, no redirections) is never a legal command.
	if len(tokens) == 0 {
		return nil, &ParseError{Msg: "dsh: syntax error near unexpected token `|'"}
	}
	if requireArgv && len(spec.Argv) == 0 {
		return nil, &ParseError{Msg: "dsh: syntax error near unexpected token `|'"}
	}
	return spec, nil
}

func redirectionTarget(tokens []Token, i int) (string, error) {
	if i+1 >= len(tokens) || tokens[i+1].Type != TokenWord {
		return "", &ParseError{Msg: "dsh: missing filename for redirection"}
	}
	return tokens[i+1].Value, nil
}

// String renders the pipeline back to shell syntax, quoting words that
// need it. Used by the tokenizer round-trip property test (spec.md §8.1).
func (p Pipeline) String() string {
	stages := make([]string, len(p))
	for i, spec := range p {
		var b strings.Builder
		for j, a := range spec.Argv {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(quoteWord(a))
		}
		if spec.InputFile != "" {
			fmt.Fprintf(&b, " < %s", quoteWord(spec.InputFile))
		}
		if spec.OutputFile != "" {
			op := ">"
			if spec.Append {
				op = ">>"
			}
			fmt.Fprintf(&b, " %s %s", op, quoteWord(spec.OutputFile))
		}
		stages[i] = b.String()
	}
	return strings.Join(stages, " | ")
}

// quoteWord wraps a word in single quotes whenever it contains anything
// the tokenizer would otherwise treat specially, escaping embedded
// single quotes. An already-safe bare word is left unquoted.
func quoteWord(w string) string {
	if w != "" && !strings.ContainsAny(w, " \t|<>'\"\\") {
		return w
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range w {
		if r == '\'' {
			b.WriteString(`'\''`)
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}
