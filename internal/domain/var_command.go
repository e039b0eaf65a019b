package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// VarOp is what a variable command does to the matching variables.
type VarOp string

const (
	VarAdd  VarOp = "add"
	VarDel  VarOp = "del"
	VarKeep VarOp = "keep"
)

const allBoxesSuffix = "@all"

// maxSuggestions bounds the "did you mean" list.
const maxSuggestions = 3

var commandSeparator = regexp.MustCompile(`[ ]+`)

// VarCommand is a parsed "add|del|keep[@all] <regexp>" command.
type VarCommand struct {
	Op      VarOp
	All     bool
	Pattern string
}

// String renders the command the way it is typed.
func (c VarCommand) String() string {
	op := string(c.Op)
	if c.All {
		op += allBoxesSuffix
	}

	return op + " " + c.Pattern
}

// ParseVarCommand parses a variable command.
func ParseVarCommand(cmd string) (VarCommand, error) {
	parts := commandSeparator.Split(strings.TrimSpace(cmd), -1)
	if len(parts) != 2 {
		return VarCommand{}, fmt.Errorf("%q: want add|del|keep [@all] <regexp>: %w", cmd, ErrBadCommand)
	}

	op, all := strings.CutSuffix(strings.TrimSpace(parts[0]), allBoxesSuffix)

	c := VarCommand{Op: VarOp(op), All: all, Pattern: strings.TrimSpace(parts[1])}

	switch c.Op {
	case VarAdd, VarDel, VarKeep:
	default:
		return VarCommand{}, fmt.Errorf("%q: unknown operation %q: %w", cmd, op, ErrBadCommand)
	}

	if _, err := compilePattern(c.Pattern); err != nil {
		return VarCommand{}, fmt.Errorf("%q: %w: %w", cmd, ErrBadCommand, err)
	}

	return c, nil
}

// VarCommandResult reports what a command touched.
type VarCommandResult struct {
	Command VarCommand
	// Changed lists the variables shown or hidden by the command.
	Changed []string
	// Suggestions are close variable names when the pattern matched
	// nothing.
	Suggestions []string
}

// matchesAny reports whether pattern names at least one variable.
func matchesAny(pattern string, vars []string) bool {
	re, err := compilePattern(pattern)
	if err != nil {
		return false
	}

	for _, v := range vars {
		if matchesEntirely(re, v) {
			return true
		}
	}

	return false
}

// suggest ranks known variables by closeness to pattern: fuzzy
// subsequence matches first, otherwise names within a small edit distance.
func suggest(pattern string, vars []string) []string {
	needle := strings.Trim(pattern, ".*^$")
	if needle == "" {
		return nil
	}

	ranks := fuzzy.RankFindFold(needle, vars)
	if len(ranks) == 0 {
		for _, v := range vars {
			d := fuzzy.LevenshteinDistance(strings.ToLower(needle), strings.ToLower(v))
			if d <= max(len(needle)/2, 2) {
				ranks = append(ranks, fuzzy.Rank{Source: needle, Target: v, Distance: d})
			}
		}
	}

	sort.Stable(ranks)

	out := make([]string, 0, maxSuggestions)
	for _, r := range ranks {
		if len(out) == maxSuggestions {
			break
		}

		out = append(out, r.Target)
	}

	return out
}
