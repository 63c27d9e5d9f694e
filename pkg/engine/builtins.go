package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/twinscene/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites scene script source before passing it to
// zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids registering keyword symbols as globals, which would
//     conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: add-node -> add_node, pump-2 -> pump_2
//     zygomys reads a hyphen inside an identifier as subtraction. Only
//     symbols starting with a letter or underscore are rewritten, so
//     numbers such as 1e-5 pass through.
//
//  3. Line comments: ; and ;; become //, the zygomys comment marker.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only a hyphen inside a symbol is kebab-case; anything else is
		// the minus operator, a negative literal or an exponent.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentChar(b[i+1]) && inSymbol(b, i) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// inSymbol reports whether the token holding position i starts with a
// letter or underscore.
func inSymbol(b []byte, i int) bool {
	j := i
	for j > 0 && isKWChar(b[j-1]) {
		j--
	}
	return j < i && (isLetter(b[j]) || b[j] == '_')
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a scene.Vec3.
type sexpVec3 struct {
	vec scene.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpTransform wraps a scene.Transform returned by `transform`.
type sexpTransform struct {
	t scene.Transform
}

func (t *sexpTransform) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(transform :position %v :rotation %v :scale %v)", t.t.Position, t.t.Rotation, t.t.Scale)
}
func (t *sexpTransform) Type() *zygo.RegisteredType { return nil }

// sexpComponent wraps a component returned by `model`.
type sexpComponent struct {
	c scene.Component
}

func (c *sexpComponent) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(component %q)", c.c.ComponentType())
}
func (c *sexpComponent) Type() *zygo.RegisteredType { return nil }

// sexpNode wraps an unflattened node. The same *scene.Node may be added
// to the scene and later looked up with `index-of`.
type sexpNode struct {
	node *scene.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %q)", n.node.Name)
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// sexpStatement wraps a validated rule statement.
type sexpStatement struct {
	st scene.Statement
}

func (s *sexpStatement) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(statement :expression %q :target %q)", s.st.Expression, s.st.Target)
}
func (s *sexpStatement) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value is a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// optionalName returns the first positional argument as a string, or ""
// when there is none.
func (pa kwArgs) optionalName(builtin string) (string, error) {
	if len(pa.positional) == 0 {
		return "", nil
	}
	s, err := toString(pa.positional[0])
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", builtin, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean. A bare trailing keyword counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_info) and plain strings ("INFO").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (scene.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return scene.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toNode extracts the node from a sexpNode.
func toNode(s zygo.Sexp) (*scene.Node, error) {
	if n, ok := s.(*sexpNode); ok {
		return n.node, nil
	}
	return nil, fmt.Errorf("expected node, got %T (%s)", s, s.SexpString(nil))
}

// toValue converts a literal to a Go value for a properties map.
func toValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpStr:
		return v.S, nil
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		return v.Val, nil
	}
	return nil, fmt.Errorf("expected string, number or boolean, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// transformArgs builds a transform from :transform, then applies any
// :position, :rotation and :scale overrides.
func transformArgs(builtin string, pa kwArgs) (*scene.Transform, error) {
	var t *scene.Transform
	if v, ok := pa.kw["transform"]; ok {
		st, ok := v.(*sexpTransform)
		if !ok {
			return nil, fmt.Errorf("%s: transform: expected transform, got %T (%s)", builtin, v, v.SexpString(nil))
		}
		tr := st.t
		t = &tr
	}
	for _, field := range []string{"position", "rotation", "scale"} {
		v, ok := pa.kw[field]
		if !ok {
			continue
		}
		vec, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", builtin, field, err)
		}
		if t == nil {
			tr := scene.DefaultTransform()
			t = &tr
		}
		switch field {
		case "position":
			t.Position = vec
		case "rotation":
			t.Rotation = vec
		case "scale":
			t.Scale = vec
		}
	}
	return t, nil
}

// propertiesArg reads :properties (list "key" value ...).
func propertiesArg(builtin string, pa kwArgs) (map[string]any, error) {
	v, ok := pa.kw["properties"]
	if !ok {
		return nil, nil
	}
	items, err := sexpListToSlice(v)
	if err != nil {
		return nil, fmt.Errorf("%s: properties: %w", builtin, err)
	}
	if len(items)%2 != 0 {
		return nil, fmt.Errorf("%s: properties: expected key/value pairs, got %d items", builtin, len(items))
	}
	props := make(map[string]any, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		key, err := toKeywordString(items[i])
		if err != nil {
			return nil, fmt.Errorf("%s: properties: key %d: %w", builtin, i/2, err)
		}
		val, err := toValue(items[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: properties: %q: %w", builtin, key, err)
		}
		props[key] = val
	}
	return props, nil
}

// nodeIndexResult converts a scene position to a Lisp integer.
func nodeIndexResult(idx scene.NodeIndex) zygo.Sexp {
	return &zygo.SexpInt{Val: int64(idx)}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene DSL builtins into a zygomys
// environment. The builtins operate on s, populating it during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals and
// kebab-case names resolve to the underscore names registered here.
func registerBuiltins(env *zygo.Zlisp, s *scene.Scene) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		var vec scene.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			vec[i] = f
		}
		return &sexpVec3{vec: vec}, nil
	})

	// -----------------------------------------------------------------------
	// (transform :position (vec3 ...) :rotation (vec3 ...) :scale (vec3 ...))
	// -----------------------------------------------------------------------
	env.AddFunction("transform", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		t, err := transformArgs("transform", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		if t == nil {
			tr := scene.DefaultTransform()
			t = &tr
		}
		return &sexpTransform{t: *t}, nil
	})

	// -----------------------------------------------------------------------
	// (model :uri "s3://bucket/pump.glb" :type "ModelRef")
	// -----------------------------------------------------------------------
	env.AddFunction("model", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		cfg := scene.ModelRefConfig{}

		if v, ok := pa.kw["uri"]; ok {
			uri, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("model: uri: %w", err)
			}
			cfg.URI = uri
		}
		if v, ok := pa.kw["type"]; ok {
			typ, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("model: type: %w", err)
			}
			cfg.Type = typ
		}
		return &sexpComponent{c: scene.NewModelRef(cfg)}, nil
	})

	// -----------------------------------------------------------------------
	// (node "pump" :position (vec3 1 0 0) :components (list (model ...))
	//       :children (list (node ...)) :properties (list "k" v))
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		nodeName, err := pa.optionalName("node")
		if err != nil {
			return zygo.SexpNull, err
		}
		t, err := transformArgs("node", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		props, err := propertiesArg("node", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		var components []scene.Component
		if v, ok := pa.kw["components"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("node: components: %w", err)
			}
			for i, item := range items {
				c, ok := item.(*sexpComponent)
				if !ok {
					return zygo.SexpNull, fmt.Errorf("node: component %d: expected component, got %T (%s)",
						i, item, item.SexpString(nil))
				}
				components = append(components, c.c)
			}
		}

		var children []*scene.Node
		if v, ok := pa.kw["children"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("node: children: %w", err)
			}
			for i, item := range items {
				child, err := toNode(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("node: child %d: %w", i, err)
				}
				children = append(children, child)
			}
		}

		n := scene.NewNode(scene.NodeConfig{
			Name:       nodeName,
			Transform:  t,
			Children:   children,
			Components: components,
			Properties: props,
		})
		return &sexpNode{node: n}, nil
	})

	// -----------------------------------------------------------------------
	// (add-node n) -> root position
	// -----------------------------------------------------------------------
	env.AddFunction("add_node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("add-node requires exactly 1 argument, got %d", len(args))
		}
		n, err := toNode(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("add-node: %w", err)
		}
		idx, err := s.AddNode(n)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("add-node: %w", err)
		}
		return nodeIndexResult(idx), nil
	})

	// -----------------------------------------------------------------------
	// (index-of n) -> position of the first record equal to n
	// -----------------------------------------------------------------------
	env.AddFunction("index_of", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("index-of requires exactly 1 argument, got %d", len(args))
		}
		n, err := toNode(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("index-of: %w", err)
		}
		idx, err := s.IndexOf(n)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("index-of: %w", err)
		}
		return nodeIndexResult(idx), nil
	})

	// -----------------------------------------------------------------------
	// (add-root 3)
	// -----------------------------------------------------------------------
	env.AddFunction("add_root", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("add-root requires exactly 1 argument, got %d", len(args))
		}
		idx, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("add-root: %w", err)
		}
		if err := s.AddRootNodeIndex(scene.NodeIndex(idx)); err != nil {
			return zygo.SexpNull, fmt.Errorf("add-root: %w", err)
		}
		return nodeIndexResult(scene.NodeIndex(idx)), nil
	})

	// -----------------------------------------------------------------------
	// (motion-indicator "flow" :position (vec3 ...) :repeat-y 2 :speed 0.5
	//                   :color "#ff0000")
	// -----------------------------------------------------------------------
	env.AddFunction("motion_indicator", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		cfg := scene.MotionIndicatorConfig{}

		var err error
		if cfg.Name, err = pa.optionalName("motion-indicator"); err != nil {
			return zygo.SexpNull, err
		}
		if cfg.Transform, err = transformArgs("motion-indicator", pa); err != nil {
			return zygo.SexpNull, err
		}
		if cfg.Properties, err = propertiesArg("motion-indicator", pa); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["repeat-y"]; ok {
			repeat, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("motion-indicator: repeat-y: %w", err)
			}
			cfg.NumOfRepeatInY = &repeat
		}
		if v, ok := pa.kw["speed"]; ok {
			speed, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("motion-indicator: speed: %w", err)
			}
			cfg.DefaultSpeed = &speed
		}
		if v, ok := pa.kw["color"]; ok {
			color, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("motion-indicator: color: %w", err)
			}
			cfg.DefaultForegroundColor = &color
		}

		idx := s.AddMotionIndicator(scene.NewMotionIndicator(cfg))
		return nodeIndexResult(idx), nil
	})

	// -----------------------------------------------------------------------
	// (tag "alarm" :content "..." :attach-to 1)
	// (tag "alarm" :root true)
	// (tag "alarm" :detached true)
	// -----------------------------------------------------------------------
	env.AddFunction("tag", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		cfg := scene.TagConfig{}

		var err error
		if cfg.Name, err = pa.optionalName("tag"); err != nil {
			return zygo.SexpNull, err
		}
		if cfg.Transform, err = transformArgs("tag", pa); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["content"]; ok {
			if cfg.Content, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("tag: content: %w", err)
			}
		}

		p, err := tagPlacement(pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		idx, err := s.AddTag(cfg, p)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tag: %w", err)
		}
		return nodeIndexResult(idx), nil
	})

	// -----------------------------------------------------------------------
	// (camera "overview" :index 0 :position (vec3 ...) :rotation (vec3 ...))
	// -----------------------------------------------------------------------
	env.AddFunction("camera", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		cfg := scene.CameraConfig{}

		var err error
		if cfg.Name, err = pa.optionalName("camera"); err != nil {
			return zygo.SexpNull, err
		}
		if cfg.Transform, err = transformArgs("camera", pa); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["index"]; ok {
			if cfg.CameraIndex, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: index: %w", err)
			}
		}

		s.AddCamera(cfg)
		return &zygo.SexpStr{S: scene.NewCamera(cfg).Name}, nil
	})

	// -----------------------------------------------------------------------
	// (statement :expression "flow < 10" :target :warning)
	// -----------------------------------------------------------------------
	env.AddFunction("statement", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		cfg := scene.StatementConfig{}

		if v, ok := pa.kw["expression"]; ok {
			expr, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("statement: expression: %w", err)
			}
			cfg.Expression = &expr
		}
		if v, ok := pa.kw["target"]; ok {
			target, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("statement: target: %w", err)
			}
			cfg.Target = strings.ToUpper(target)
		}

		st, err := scene.NewStatement(cfg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("statement: %w", err)
		}
		return &sexpStatement{st: st}, nil
	})

	// -----------------------------------------------------------------------
	// (rule "overflow" (statement ...) (statement ...))
	// -----------------------------------------------------------------------
	env.AddFunction("rule", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		cfg := scene.RuleConfig{}
		rest := args
		if len(rest) > 0 {
			if str, ok := rest[0].(*zygo.SexpStr); ok {
				cfg.Name = str.S
				rest = rest[1:]
			}
		}
		if len(rest) > 0 {
			cfg.Statements = make([]scene.Statement, 0, len(rest))
		}
		for i, arg := range rest {
			st, ok := arg.(*sexpStatement)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("rule: statement %d: expected statement, got %T (%s)",
					i, arg, arg.SexpString(nil))
			}
			cfg.Statements = append(cfg.Statements, st.st)
		}

		r := scene.NewRule(cfg)
		s.AddRule(r)
		return &zygo.SexpStr{S: r.Name}, nil
	})
}

// tagPlacement reads exactly one of :attach-to, :root or :detached.
func tagPlacement(pa kwArgs) (scene.Placement, error) {
	var (
		placements []scene.Placement
		err        error
	)
	if v, ok := pa.kw["attach-to"]; ok {
		parent, err := toInt(v)
		if err != nil {
			return scene.Placement{}, fmt.Errorf("tag: attach-to: %w", err)
		}
		placements = append(placements, scene.AttachTo(scene.NodeIndex(parent)))
	}
	for _, flag := range []struct {
		kw string
		p  scene.Placement
	}{
		{"root", scene.AsRoot()},
		{"detached", scene.Detached()},
	} {
		v, ok := pa.kw[flag.kw]
		if !ok {
			continue
		}
		var on bool
		if on, err = toBool(v); err != nil {
			return scene.Placement{}, fmt.Errorf("tag: %s: %w", flag.kw, err)
		}
		if on {
			placements = append(placements, flag.p)
		}
	}

	switch len(placements) {
	case 0:
		return scene.Placement{}, fmt.Errorf("tag: placement required: one of :attach-to, :root true, :detached true")
	case 1:
		return placements[0], nil
	default:
		return scene.Placement{}, fmt.Errorf("tag: conflicting placements %v", placements)
	}
}
