package packer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/output"
)

// RebaseURLs rewrites every relative url(...) in a stylesheet located in
// fileDir so that it resolves identically from bundleDir. data:, absolute,
// fragment-only, placeholder and protocol urls are left untouched.
func RebaseURLs(text, fileDir, bundleDir string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))

	l := css.NewLexer(parse.NewInputString(text))
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != io.EOF {
				return "", fmt.Errorf("parsing stylesheet: %w", err)
			}
			return b.String(), nil
		}
		if tt != css.URLToken {
			b.Write(data)
			continue
		}
		b.WriteString(rebaseURLToken(string(data), fileDir, bundleDir))
	}
}

func rebaseURLToken(tok, fileDir, bundleDir string) string {
	open := strings.IndexByte(tok, '(')
	if open < 0 {
		return tok
	}
	inner := strings.TrimSuffix(tok[open+1:], ")")
	inner = strings.TrimSpace(inner)

	quote := ""
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		quote = inner[:1]
		inner = inner[1 : len(inner)-1]
	}
	if keepURL(inner) {
		return tok
	}

	target, suffix := inner, ""
	if i := strings.IndexAny(inner, "?#"); i >= 0 {
		target, suffix = inner[:i], inner[i:]
	}
	abs := filepath.Join(fileDir, filepath.FromSlash(target))
	rel, err := filepath.Rel(bundleDir, abs)
	if err != nil {
		return tok
	}
	return "url(" + quote + filepath.ToSlash(rel) + suffix + quote + ")"
}

func keepURL(u string) bool {
	switch {
	case u == "",
		strings.HasPrefix(u, "data:"),
		strings.HasPrefix(u, "/"),
		strings.HasPrefix(u, "#"),
		strings.HasPrefix(u, "%{"):
		return true
	}
	// Any scheme (http:, https:, about:) before the first slash.
	if i := strings.IndexByte(u, ':'); i >= 0 && !strings.Contains(u[:i], "/") {
		return true
	}
	return false
}

// cssRule is one top-level rule (or at-rule) with its selector count.
type cssRule struct {
	text      string
	selectors int
}

// splitRules splits a stylesheet into top-level rules. Selectors are counted
// per qualified rule as commas outside parentheses plus one; rules nested in
// at-rule blocks count individually and keyframe selectors do not count.
// Whitespace and comments between rules belong to the following rule.
func splitRules(text string) ([]cssRule, error) {
	var (
		rules    []cssRule
		cur      strings.Builder
		selCount int

		// blocks holds one entry per open brace: whether it is a keyframes block.
		blocks []bool

		preludeStarted bool
		preludeAt      string
		preludeCommas  int
		parens         int
	)

	resetPrelude := func() {
		preludeStarted, preludeAt, preludeCommas, parens = false, "", 0, 0
	}
	flush := func() {
		rules = append(rules, cssRule{text: cur.String(), selectors: selCount})
		cur.Reset()
		selCount = 0
	}

	l := css.NewLexer(parse.NewInputString(text))
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != io.EOF {
				return nil, fmt.Errorf("parsing stylesheet: %w", err)
			}
			break
		}
		cur.Write(data)

		switch tt {
		case css.WhitespaceToken, css.CommentToken, css.CDOToken, css.CDCToken:
		case css.LeftBraceToken:
			inKeyframes := len(blocks) > 0 && blocks[len(blocks)-1]
			if preludeStarted && preludeAt == "" && !inKeyframes {
				selCount += preludeCommas + 1
			}
			blocks = append(blocks, strings.Contains(strings.ToLower(preludeAt), "keyframes"))
			resetPrelude()
		case css.RightBraceToken:
			if len(blocks) > 0 {
				blocks = blocks[:len(blocks)-1]
			}
			resetPrelude()
			if len(blocks) == 0 {
				flush()
			}
		case css.SemicolonToken:
			resetPrelude()
			if len(blocks) == 0 {
				flush()
			}
		default:
			if !preludeStarted {
				preludeStarted = true
				if tt == css.AtKeywordToken {
					preludeAt = string(data)
				}
			}
			switch tt {
			case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
				parens++
			case css.RightParenthesisToken, css.RightBracketToken:
				if parens > 0 {
					parens--
				}
			case css.CommaToken:
				if parens == 0 {
					preludeCommas++
				}
			}
		}
	}

	if strings.TrimSpace(cur.String()) != "" || (cur.Len() > 0 && len(rules) == 0) {
		flush()
	} else if cur.Len() > 0 {
		rules[len(rules)-1].text += cur.String()
	}
	return rules, nil
}

// CountSelectors returns the selector count of a stylesheet as legacy
// engines count it.
func CountSelectors(text string) (int, error) {
	rules, err := splitRules(text)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rules {
		n += r.selectors
	}
	return n, nil
}

// PackCSS concatenates stylesheets into one or more chunks, each holding at
// most limit selectors. Files are taken in absolute path order; relative
// files are resolved against root. Every url(...) is rebased to bundleDir.
// A single rule above the limit is emitted as a chunk of its own.
//
// Rules are never split or reordered and chunks are filled greedily, so any
// two consecutive chunks together exceed limit. The chunk count is thus
// below 2*total/limit + 1 but may exceed ceil(total/limit) when rules hold
// several selectors.
func PackCSS(files []string, root, bundleDir string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultSelectorLimit
	}

	abs := make([]string, 0, len(files))
	for _, f := range files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(root, f)
		}
		abs = append(abs, filepath.Clean(f))
	}
	sort.Strings(abs)

	var rules []cssRule
	for _, f := range abs {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", oerrors.ErrArtifactRead, f, err)
		}
		text, err := RebaseURLs(string(data), filepath.Dir(f), bundleDir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		fileRules, err := splitRules(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if len(fileRules) > 0 {
			fileRules[0].text = "\n" + fileRules[0].text
		}
		rules = append(rules, fileRules...)
	}

	var (
		chunks []string
		cur    strings.Builder
		count  int
	)
	emit := func() {
		if text := strings.TrimSpace(cur.String()); text != "" {
			chunks = append(chunks, text)
		}
		cur.Reset()
		count = 0
	}
	for _, r := range rules {
		if r.selectors > limit {
			output.Warn("stylesheet rule exceeds selector limit", "selectors", r.selectors, "limit", limit)
			emit()
			cur.WriteString(r.text)
			count = r.selectors
			emit()
			continue
		}
		if count+r.selectors > limit {
			emit()
		}
		cur.WriteString(r.text)
		count += r.selectors
	}
	emit()
	return chunks, nil
}
