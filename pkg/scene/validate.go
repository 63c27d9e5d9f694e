package scene

import (
	"fmt"
	"sort"
)

// ValidationSeverity indicates whether a finding makes the document
// unusable or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // document is structurally broken
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// noIndex marks a document-level finding.
const noIndex NodeIndex = -1

// ValidationError describes a single validation finding.
type ValidationError struct {
	Index    NodeIndex          // offending record, -1 if document-level
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Index == noIndex {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %d: %s", e.Severity, e.Index, e.Message)
}

// HasErrors reports whether any finding has SeverityError.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs structural checks on a document: index ranges, tree
// shape, reachability, names and rule targets. An empty result means the
// document is consistent. Validate never mutates doc.
//
// Documents produced by Scene are correct by construction; Validate is
// for documents assembled or edited by other means, and for surfacing
// warnings such as detached tags.
func Validate(doc *Document) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRoots(doc)...)
	errs = append(errs, validateChildren(doc)...)
	errs = append(errs, validateAcyclic(doc)...)
	errs = append(errs, validateReachable(doc)...)
	errs = append(errs, validateNames(doc)...)
	errs = append(errs, validateRules(doc)...)
	return errs
}

func inRange(doc *Document, idx NodeIndex) bool {
	return idx >= 0 && int(idx) < len(doc.Nodes)
}

// validateRoots checks that every root is a valid position and listed once.
func validateRoots(doc *Document) []ValidationError {
	var errs []ValidationError
	seen := make(map[NodeIndex]bool)
	for _, root := range doc.RootNodeIndexes {
		if !inRange(doc, root) {
			errs = append(errs, ValidationError{
				Index:    noIndex,
				Message:  fmt.Sprintf("root index %d is outside the node array (len %d)", root, len(doc.Nodes)),
				Severity: SeverityError,
			})
			continue
		}
		if seen[root] {
			errs = append(errs, ValidationError{
				Index:    root,
				Message:  "listed more than once in rootNodeIndexes",
				Severity: SeverityWarning,
			})
		}
		seen[root] = true
	}
	return errs
}

// validateChildren checks every child index: in range, not self, owned by
// exactly one parent, and only present on records that carry children.
func validateChildren(doc *Document) []ValidationError {
	var errs []ValidationError

	roots := make(map[NodeIndex]bool, len(doc.RootNodeIndexes))
	for _, r := range doc.RootNodeIndexes {
		roots[r] = true
	}
	parentOf := make(map[NodeIndex]NodeIndex)

	for i, r := range doc.Nodes {
		idx := NodeIndex(i)
		if len(r.Children) > 0 && !r.HasChildren() {
			errs = append(errs, ValidationError{
				Index:    idx,
				Message:  fmt.Sprintf("%s record has children, which are not serialized", r.Kind),
				Severity: SeverityError,
			})
		}
		for _, child := range r.Children {
			switch {
			case !inRange(doc, child):
				errs = append(errs, ValidationError{
					Index:    idx,
					Message:  fmt.Sprintf("child index %d is outside the node array (len %d)", child, len(doc.Nodes)),
					Severity: SeverityError,
				})
				continue
			case child == idx:
				errs = append(errs, ValidationError{
					Index:    idx,
					Message:  "lists itself as a child",
					Severity: SeverityError,
				})
				continue
			}
			if prev, ok := parentOf[child]; ok {
				errs = append(errs, ValidationError{
					Index:    child,
					Message:  fmt.Sprintf("has two parents: %d and %d", prev, idx),
					Severity: SeverityError,
				})
				continue
			}
			parentOf[child] = idx
			if roots[child] {
				errs = append(errs, ValidationError{
					Index:    child,
					Message:  fmt.Sprintf("is both a root and a child of %d", idx),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}

// validateAcyclic checks for cycles through child indexes using DFS with
// three-color marking. One cycle error is reported.
func validateAcyclic(doc *Document) []ValidationError {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(doc.Nodes))

	var found NodeIndex = noIndex
	var visit func(idx NodeIndex) bool
	visit = func(idx NodeIndex) bool {
		switch color[idx] {
		case black:
			return false
		case gray:
			found = idx
			return true
		}
		color[idx] = gray
		for _, child := range doc.Nodes[idx].Children {
			if !inRange(doc, child) {
				continue // reported by validateChildren
			}
			if visit(child) {
				return true
			}
		}
		color[idx] = black
		return false
	}

	for i := range doc.Nodes {
		if color[i] == white && visit(NodeIndex(i)) {
			return []ValidationError{{
				Index:    found,
				Message:  "is part of a child cycle",
				Severity: SeverityError,
			}}
		}
	}
	return nil
}

// validateReachable warns about records no root reaches through children.
// Detached tags land here.
func validateReachable(doc *Document) []ValidationError {
	if len(doc.Nodes) == 0 {
		return nil
	}

	reachable := make([]bool, len(doc.Nodes))
	queue := make([]NodeIndex, 0, len(doc.RootNodeIndexes))
	for _, root := range doc.RootNodeIndexes {
		if inRange(doc, root) && !reachable[root] {
			reachable[root] = true
			queue = append(queue, root)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range doc.Nodes[current].Children {
			if inRange(doc, child) && !reachable[child] {
				reachable[child] = true
				queue = append(queue, child)
			}
		}
	}

	var errs []ValidationError
	for i, r := range doc.Nodes {
		if !reachable[i] {
			errs = append(errs, ValidationError{
				Index:    NodeIndex(i),
				Message:  fmt.Sprintf("%s %q is not reachable from any root", r.Kind, r.Name),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateNames warns when several records share a name.
func validateNames(doc *Document) []ValidationError {
	byName := make(map[string][]NodeIndex)
	for i, r := range doc.Nodes {
		byName[r.Name] = append(byName[r.Name], NodeIndex(i))
	}

	names := make([]string, 0, len(byName))
	for name, idxs := range byName {
		if len(idxs) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var errs []ValidationError
	for _, name := range names {
		errs = append(errs, ValidationError{
			Index:    noIndex,
			Message:  fmt.Sprintf("duplicate name %q at positions %v", name, byName[name]),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateRules checks statement targets against the closed icon set.
func validateRules(doc *Document) []ValidationError {
	icons := map[string]bool{
		TargetError.Icon():   true,
		TargetWarning.Icon(): true,
		TargetInfo.Icon():    true,
	}

	names := make([]string, 0, len(doc.Rules))
	for name := range doc.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []ValidationError
	for _, name := range names {
		entry := doc.Rules[name]
		if len(entry.Statements) == 0 {
			errs = append(errs, ValidationError{
				Index:    noIndex,
				Message:  fmt.Sprintf("rule %q has no statements", name),
				Severity: SeverityWarning,
			})
		}
		for i, st := range entry.Statements {
			if !icons[st.Target] {
				errs = append(errs, ValidationError{
					Index:    noIndex,
					Message:  fmt.Sprintf("rule %q statement %d: unknown target %q", name, i, st.Target),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}
