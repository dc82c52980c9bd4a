package extract

import (
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"tpack/internal/manifest"
)

// Namespace prefixes that mark an action reference as user-defined rather
// than a runtime built-in.
var actionNamespaces = map[string]bool{
	"user": true,
	"edit": true,
	"core": true,
	"app":  true,
	"code": true,
}

// mod.setting("x") and friends: declaration calls mapped to the entity kind
// they contribute.
var declarationCalls = map[string]manifest.Kind{
	"setting": manifest.KindSettings,
	"tag":     manifest.KindTags,
	"mode":    manifest.KindModes,
	"list":    manifest.KindLists,
}

var matchesPattern = regexp.MustCompile(`(mode|tag):\s*([\w.]+)`)

type pythonExtractor struct {
	source []byte
}

func (e *pythonExtractor) walk(node *sitter.Node, res *Result) {
	switch node.Kind() {
	case "decorated_definition":
		e.extractDecorated(node, res)
	case "call":
		e.extractCall(node, res)
	case "attribute":
		e.extractActionReference(node, res)
	case "assignment", "augmented_assignment":
		e.extractAssignment(node, res)
	case "subscript":
		e.extractBetaSubscript(node, res)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), res)
	}
}

// extractDecorated handles declaration blocks: action classes, action
// overrides, action and capture decorators. Declarations require this
// structure-aware match; loose dotted references never count as declared.
func (e *pythonExtractor) extractDecorated(node *sitter.Node, res *Result) {
	def := node.ChildByFieldName("definition")
	if def == nil {
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		dec := node.Child(i)
		if dec.Kind() != "decorator" {
			continue
		}
		expr := decoratorExpression(dec)
		if expr == nil {
			continue
		}

		switch def.Kind() {
		case "class_definition":
			e.extractActionClass(expr, def, res)
		case "function_definition":
			e.extractFunctionDecorator(expr, def, res)
		}
	}
}

func (e *pythonExtractor) extractActionClass(expr, class *sitter.Node, res *Result) {
	switch expr.Kind() {
	case "attribute":
		// @mod.action_class: every method declares user.<name>.
		if e.attributeName(expr) == "action_class" {
			for _, method := range e.classMethods(class) {
				res.Contributes.Add(manifest.KindActions, "user."+method)
			}
		}
	case "call":
		// @ctx.action_class("edit"): overrides reference the original
		// actions, they do not declare new ones.
		fn := expr.ChildByFieldName("function")
		if fn == nil || fn.Kind() != "attribute" || e.attributeName(fn) != "action_class" {
			return
		}
		context, ok := e.firstStringArgument(expr)
		if !ok {
			return
		}
		for _, method := range e.classMethods(class) {
			res.Depends.Add(manifest.KindActions, context+"."+method)
			res.AllActions[context+"."+method] = true
		}
	}
}

func (e *pythonExtractor) extractFunctionDecorator(expr, fn *sitter.Node, res *Result) {
	name := e.text(fn.ChildByFieldName("name"))
	if name == "" {
		return
	}

	switch expr.Kind() {
	case "call":
		callee := expr.ChildByFieldName("function")
		if callee == nil || callee.Kind() != "attribute" {
			return
		}
		switch e.attributeName(callee) {
		case "action":
			// @mod.action("user.full_name"): full name given explicitly.
			if full, ok := e.firstStringArgument(expr); ok {
				res.Contributes.Add(manifest.KindActions, full)
			}
		case "capture":
			res.Contributes.Add(manifest.KindCaptures, "user."+name)
		}
	case "attribute":
		if e.attributeName(expr) == "capture" {
			res.Contributes.Add(manifest.KindCaptures, "user."+name)
		}
	}
}

func (e *pythonExtractor) extractCall(node *sitter.Node, res *Result) {
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "attribute" {
		return
	}

	attr := e.attributeName(fn)
	obj := fn.ChildByFieldName("object")
	if obj == nil {
		return
	}

	// mod.setting("x") / mod.tag("x") / mod.mode("x") / mod.list("x")
	if kind, ok := declarationCalls[attr]; ok && obj.Kind() == "identifier" {
		if name, ok := e.entityNameArgument(node); ok {
			res.Contributes.Add(kind, "user."+name)
		}
		return
	}

	// settings.get("user.x")
	if attr == "get" && obj.Kind() == "identifier" && e.text(obj) == "settings" {
		if name, ok := e.firstStringArgument(node); ok {
			res.Depends.Add(manifest.KindSettings, name)
		}
		return
	}

	// ctx.dynamic_list(...) is a beta API.
	if attr == "dynamic_list" && obj.Kind() == "identifier" &&
		strings.Contains(strings.ToLower(e.text(obj)), "ctx") {
		res.RequiresBeta = true
	}

	// actions.user.thing(...) handled by the attribute chain below.
	e.extractActionReference(fn, res)
}

// extractActionReference records actions.<ns>.<name> chains, called or not.
func (e *pythonExtractor) extractActionReference(node *sitter.Node, res *Result) {
	chain := e.attributeChain(node)
	if len(chain) != 3 || chain[0] != "actions" {
		return
	}

	full := chain[1] + "." + chain[2]
	res.AllActions[full] = true
	if actionNamespaces[chain[1]] {
		res.Depends.Add(manifest.KindActions, full)
	}
}

func (e *pythonExtractor) extractAssignment(node *sitter.Node, res *Result) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil {
		return
	}

	switch left.Kind() {
	case "attribute":
		attr := e.attributeName(left)
		obj := left.ChildByFieldName("object")

		switch {
		case attr == "tags":
			// ctx.tags = ["user.tabs"]
			e.collectStringList(right, func(s string) {
				res.Depends.Add(manifest.KindTags, s)
			})
		case attr == "matches":
			// ctx.matches = "mode: command\ntag: user.x"
			if s, ok := e.stringValue(right); ok {
				for _, m := range matchesPattern.FindAllStringSubmatch(s, -1) {
					switch m[1] {
					case "mode":
						res.Depends.Add(manifest.KindModes, m[2])
					case "tag":
						res.Depends.Add(manifest.KindTags, m[2])
					}
				}
			}
		case obj != nil && obj.Kind() == "attribute" && e.attributeName(obj) == "apps":
			// mod.apps.vscode = "matcher"
			res.Contributes.Add(manifest.KindApps, attr)
		}

	case "subscript":
		// ctx.lists["user.symbol_key"] = {...}
		val := left.ChildByFieldName("value")
		if val == nil || val.Kind() != "attribute" || e.attributeName(val) != "lists" {
			return
		}
		if key, ok := e.stringValue(left.ChildByFieldName("subscript")); ok {
			res.Depends.Add(manifest.KindLists, key)
		}
	}
}

func (e *pythonExtractor) extractBetaSubscript(node *sitter.Node, res *Result) {
	val := node.ChildByFieldName("value")
	if val == nil || val.Kind() != "attribute" || e.attributeName(val) != "selections" {
		return
	}
	obj := val.ChildByFieldName("object")
	if obj != nil && obj.Kind() == "identifier" &&
		strings.Contains(strings.ToLower(e.text(obj)), "ctx") {
		res.RequiresBeta = true
	}
}

// --- node helpers ---

func decoratorExpression(dec *sitter.Node) *sitter.Node {
	for i := uint(0); i < dec.ChildCount(); i++ {
		child := dec.Child(i)
		switch child.Kind() {
		case "identifier", "attribute", "call":
			return child
		}
	}
	return nil
}

func (e *pythonExtractor) classMethods(class *sitter.Node) []string {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	var methods []string
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child.Kind() == "decorated_definition" {
			child = child.ChildByFieldName("definition")
			if child == nil {
				continue
			}
		}
		if child.Kind() != "function_definition" {
			continue
		}
		if name := e.text(child.ChildByFieldName("name")); name != "" {
			methods = append(methods, name)
		}
	}
	return methods
}

// attributeChain flattens a pure identifier.attr.attr chain, outermost last.
// Returns nil when any link is not a plain identifier/attribute.
func (e *pythonExtractor) attributeChain(node *sitter.Node) []string {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier":
		return []string{e.text(node)}
	case "attribute":
		base := e.attributeChain(node.ChildByFieldName("object"))
		if base == nil {
			return nil
		}
		return append(base, e.attributeName(node))
	}
	return nil
}

func (e *pythonExtractor) attributeName(node *sitter.Node) string {
	return e.text(node.ChildByFieldName("attribute"))
}

// firstStringArgument returns the first positional string literal of a call.
func (e *pythonExtractor) firstStringArgument(call *sitter.Node) (string, bool) {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return "", false
	}
	for i := uint(0); i < args.ChildCount(); i++ {
		child := args.Child(i)
		if child.Kind() == "keyword_argument" {
			continue
		}
		if s, ok := e.stringValue(child); ok {
			return s, true
		}
	}
	return "", false
}

// entityNameArgument resolves the entity name of a declaration call: first
// positional string, or the name= keyword argument.
func (e *pythonExtractor) entityNameArgument(call *sitter.Node) (string, bool) {
	if s, ok := e.firstStringArgument(call); ok {
		return s, true
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return "", false
	}
	for i := uint(0); i < args.ChildCount(); i++ {
		child := args.Child(i)
		if child.Kind() != "keyword_argument" {
			continue
		}
		if e.text(child.ChildByFieldName("name")) != "name" {
			continue
		}
		return e.stringValue(child.ChildByFieldName("value"))
	}
	return "", false
}

// stringValue extracts the literal text of a string node, concatenating the
// constant parts of f-strings and implicit concatenations.
func (e *pythonExtractor) stringValue(node *sitter.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "string":
		var b strings.Builder
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "string_content" {
				b.WriteString(e.text(child))
			}
		}
		return b.String(), true
	case "concatenated_string":
		var b strings.Builder
		for i := uint(0); i < node.ChildCount(); i++ {
			if s, ok := e.stringValue(node.Child(i)); ok {
				b.WriteString(s)
			}
		}
		return b.String(), true
	}
	return "", false
}

func (e *pythonExtractor) collectStringList(node *sitter.Node, add func(string)) {
	if node == nil || node.Kind() != "list" {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if s, ok := e.stringValue(node.Child(i)); ok {
			add(s)
		}
	}
}

func (e *pythonExtractor) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(e.source[node.StartByte():node.EndByte()])
}
