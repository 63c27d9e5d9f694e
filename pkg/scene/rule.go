package scene

import "fmt"

// Target is the severity a rule statement raises. Its icon is the visual
// shown on matching entities.
type Target int

const (
	TargetError Target = iota
	TargetWarning
	TargetInfo
)

func (t Target) String() string {
	switch t {
	case TargetError:
		return "ERROR"
	case TargetWarning:
		return "WARNING"
	case TargetInfo:
		return "INFO"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Icon returns the platform icon identifier for t.
func (t Target) Icon() string {
	switch t {
	case TargetError:
		return "iottwinmaker.common.icon:Error"
	case TargetWarning:
		return "iottwinmaker.common.icon:Warning"
	case TargetInfo:
		return "iottwinmaker.common.icon:Info"
	default:
		return ""
	}
}

// ParseTarget maps a severity name (ERROR, WARNING, INFO) to a Target.
// Matching is exact; anything else wraps ErrUnknownSeverity.
func ParseTarget(name string) (Target, error) {
	switch name {
	case "ERROR":
		return TargetError, nil
	case "WARNING":
		return TargetWarning, nil
	case "INFO":
		return TargetInfo, nil
	}
	return 0, fmt.Errorf("target %q: %w", name, ErrUnknownSeverity)
}

// DefaultExpression is the statement expression used when none is given.
const DefaultExpression = "alarm_status == 'ACTIVE'"

// DefaultRuleName is the rule name used when none is given.
const DefaultRuleName = "testRule"

// StatementConfig configures NewStatement. A nil Expression takes
// DefaultExpression; a set one is kept, even when empty. Target is a
// severity name and defaults to "ERROR".
type StatementConfig struct {
	Expression *string
	Target     string
}

// Statement maps a boolean expression to the icon shown when it holds.
type Statement struct {
	Expression string `json:"expression"`
	Target     string `json:"target"`
}

// NewStatement builds a statement, resolving the severity name to its icon.
func NewStatement(cfg StatementConfig) (Statement, error) {
	name := cfg.Target
	if name == "" {
		name = TargetError.String()
	}
	target, err := ParseTarget(name)
	if err != nil {
		return Statement{}, fmt.Errorf("statement: %w", err)
	}
	expr := DefaultExpression
	if cfg.Expression != nil {
		expr = *cfg.Expression
	}
	return Statement{Expression: expr, Target: target.Icon()}, nil
}

// DefaultStatement returns the statement built from an empty config.
func DefaultStatement() Statement {
	return Statement{Expression: DefaultExpression, Target: TargetError.Icon()}
}

// RuleConfig configures NewRule. A nil Statements slice takes the single
// default statement; an empty non-nil slice is kept empty.
type RuleConfig struct {
	Name       string
	Statements []Statement
}

// Rule is a named set of statements, independent of the node tree.
type Rule struct {
	Name       string
	Statements []Statement
}

// NewRule builds a rule with defaults applied.
func NewRule(cfg RuleConfig) Rule {
	r := Rule{Name: cfg.Name, Statements: cfg.Statements}
	if r.Name == "" {
		r.Name = DefaultRuleName
	}
	if r.Statements == nil {
		r.Statements = []Statement{DefaultStatement()}
	}
	return r
}

// RuleEntry is a rule's value in the document's rules map.
type RuleEntry struct {
	Statements []Statement `json:"statements"`
}
