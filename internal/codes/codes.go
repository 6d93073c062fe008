// Package codes parses prefab seed codes and assigns element codes
// deterministically: fittings share the base code, pipes and tags get
// numbered suffixes in the caller-supplied spatial order.
package codes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bvdk-tools/prefabgen/internal/document"
)

// SeedFormatError reports a seed text the parser could not accept.
type SeedFormatError struct {
	Input  string
	Reason string
}

func (e *SeedFormatError) Error() string {
	return fmt.Sprintf("invalid seed %q: %s", e.Input, e.Reason)
}

// basePattern accepts dotted numeric codes like "5.5.5" or "12.3".
var basePattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// Seed is a parsed prefab seed. Base is the dotted numeric code the
// whole package derives from.
type Seed struct {
	Base string
}

// ParseSeed extracts the base code from a seed text such as
// "prefab 5.5.5". The prefix keyword is matched case-insensitively and
// is optional: a bare "5.5.5" parses too. Anything else fails with a
// SeedFormatError.
func ParseSeed(text, prefixKeyword string) (Seed, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Seed{}, &SeedFormatError{Input: text, Reason: "empty seed"}
	}

	fields := strings.Fields(trimmed)
	switch len(fields) {
	case 1:
		// Bare base code.
	case 2:
		if !strings.EqualFold(fields[0], prefixKeyword) {
			return Seed{}, &SeedFormatError{
				Input:  text,
				Reason: fmt.Sprintf("expected keyword %q, got %q", prefixKeyword, fields[0]),
			}
		}
		fields = fields[1:]
	default:
		return Seed{}, &SeedFormatError{Input: text, Reason: "expected at most two fields"}
	}

	base := fields[0]
	if !basePattern.MatchString(base) {
		return Seed{}, &SeedFormatError{
			Input:  text,
			Reason: "base code must be dotted digits, like 5.5.5",
		}
	}
	return Seed{Base: base}, nil
}

// FormatCode appends an index to a base code: FormatCode("5.5.5", 2)
// is "5.5.5.2".
func FormatCode(base string, index int) string {
	return base + "." + strconv.Itoa(index)
}

// PairingPolicy decides how tags are numbered relative to pipes.
type PairingPolicy string

const (
	// PairingIndependent numbers tags in their own spatial sequence,
	// unrelated to the pipes they tag.
	PairingIndependent PairingPolicy = "independent"

	// PairingPaired gives a tag the index of its host pipe, so a tag
	// always reads the same as the pipe it labels. Tags without a
	// numbered host fall back to the independent sequence.
	PairingPaired PairingPolicy = "paired"
)

// ParsePairingPolicy validates a policy name; empty means independent.
func ParsePairingPolicy(s string) (PairingPolicy, error) {
	switch PairingPolicy(s) {
	case "":
		return PairingIndependent, nil
	case PairingIndependent, PairingPaired:
		return PairingPolicy(s), nil
	default:
		return "", fmt.Errorf("invalid pairing policy %q: must be independent or paired", s)
	}
}

// Member is one element to assign a code to, in its final spatial
// position within the ordered input.
type Member struct {
	ID       int64
	Category document.Category
	HostID   *int64
}

// Entry is one assigned code. Index is 0 for fittings, which carry the
// bare base code.
type Entry struct {
	ElementID int64
	Category  document.Category
	Code      string
	Index     int
}

// Assignment holds the full deterministic result of one assignment run.
type Assignment struct {
	Base    string
	Policy  PairingPolicy
	Entries []Entry

	byID map[int64]string
}

// Code returns the assigned code for an element.
func (a *Assignment) Code(id int64) (string, bool) {
	c, ok := a.byID[id]
	return c, ok
}

// Assign numbers the ordered members against the seed. The input order
// is authoritative: callers sort by bounding-box center before calling,
// and equal inputs always produce equal assignments.
//
// Fittings all get the bare base code. Pipes get base.1, base.2, ... in
// order. Tag numbering follows the policy: independent tags run their
// own sequence, paired tags copy their host pipe's index.
func Assign(seed Seed, members []Member, policy PairingPolicy) *Assignment {
	a := &Assignment{
		Base:   seed.Base,
		Policy: policy,
		byID:   make(map[int64]string, len(members)),
	}

	pipeIndex := make(map[int64]int)
	nextPipe, nextTag := 1, 1

	// Pipes first, so paired tags can look their host up regardless of
	// relative spatial order.
	for _, m := range members {
		if m.Category != document.CategoryPipe {
			continue
		}
		a.add(m, FormatCode(seed.Base, nextPipe), nextPipe)
		pipeIndex[m.ID] = nextPipe
		nextPipe++
	}

	for _, m := range members {
		switch m.Category {
		case document.CategoryPipe:
			// Already numbered.
		case document.CategoryFitting:
			a.add(m, seed.Base, 0)
		case document.CategoryTag:
			if policy == PairingPaired && m.HostID != nil {
				if idx, ok := pipeIndex[*m.HostID]; ok {
					a.add(m, FormatCode(seed.Base, idx), idx)
					continue
				}
			}
			a.add(m, FormatCode(seed.Base, nextTag), nextTag)
			nextTag++
		}
	}

	return a
}

func (a *Assignment) add(m Member, code string, index int) {
	a.Entries = append(a.Entries, Entry{
		ElementID: m.ID,
		Category:  m.Category,
		Code:      code,
		Index:     index,
	})
	a.byID[m.ID] = code
}
