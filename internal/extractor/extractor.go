// Package extractor parses source files with tree-sitter and extracts
// symbol records (functions, classes, methods, variables, imports).
package extractor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// MaxSignatureLen caps the recorded signature text.
const MaxSignatureLen = 300

// Extractor turns source file content into symbol records. Parsers are
// constructed lazily per language and reused across calls; tree-sitter
// parsers are not thread-safe, so each parse holds the extractor's lock.
type Extractor struct {
	mu      sync.Mutex
	parsers map[string]*sitter.Parser
}

// New returns an Extractor with an empty parser cache.
func New() *Extractor {
	return &Extractor{parsers: make(map[string]*sitter.Parser)}
}

// Extract parses content and returns the symbols it declares.
// Unsupported languages yield (nil, nil). Parse failures return an
// *ExtractionError; callers treat these as per-file, never fatal.
// Given identical (filePath, content) the result is identical, with
// symbols ordered by position.
func (e *Extractor) Extract(ctx context.Context, filePath string, content []byte) ([]Symbol, error) {
	config := GetLanguageConfig(filePath)
	if config == nil {
		return nil, nil
	}
	if len(content) == 0 {
		return nil, nil
	}

	tree, err := e.parse(ctx, config, content)
	if err != nil {
		return nil, &ExtractionError{FilePath: filePath, Err: err}
	}
	defer tree.Close()

	fileHash := HashContent(content)

	w := &walker{
		config:   config,
		content:  content,
		filePath: filePath,
		fileHash: fileHash,
	}
	w.walk(tree.RootNode(), "")

	sort.SliceStable(w.symbols, func(i, j int) bool {
		a, b := w.symbols[i], w.symbols[j]
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.StartCol != b.StartCol {
			return a.StartCol < b.StartCol
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Name < b.Name
	})

	return w.symbols, nil
}

// parse runs the tree-sitter parser for the language under the cache lock.
func (e *Extractor) parse(ctx context.Context, config *LanguageConfig, content []byte) (*sitter.Tree, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	parser, ok := e.parsers[config.Name]
	if !ok {
		parser = sitter.NewParser()
		parser.SetLanguage(config.Language)
		e.parsers[config.Name] = parser
	}

	return parser.ParseCtx(ctx, nil, content)
}

type walker struct {
	config   *LanguageConfig
	content  []byte
	filePath string
	fileHash string
	symbols  []Symbol
}

func (w *walker) walk(node *sitter.Node, parent string) {
	rule, matched := w.config.Rules[node.Type()]
	if !matched {
		for i := 0; i < int(node.ChildCount()); i++ {
			w.walk(node.Child(i), parent)
		}
		return
	}

	if rule.TopLevelOnly && parent != "" {
		return
	}

	nextParent := parent
	if names := w.variableNames(node, rule); names != nil {
		for _, nameNode := range names {
			w.emit(node, nameNode, rule, parent)
		}
	} else if name, ok := w.symbolName(node, rule); ok {
		sym := w.emitNamed(node, name, rule, parent)
		if rule.NamesScope && sym != nil {
			nextParent = sym.Name
		}
	}

	// Descend so nested definitions (methods in classes, inner functions)
	// are recorded with their enclosing scope as parent.
	for i := 0; i < int(node.ChildCount()); i++ {
		w.walk(node.Child(i), nextParent)
	}
}

// variableNames returns the per-declarator name nodes for declaration
// statements that may bind several names, or nil when the rule's node is
// not a multi-name declaration.
func (w *walker) variableNames(node *sitter.Node, rule SymbolRule) []*sitter.Node {
	if rule.Type != "variable" {
		return nil
	}

	if node.Type() == "assignment" {
		if left := node.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			return []*sitter.Node{left}
		}
		return nil
	}

	var names []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "var_spec", "const_spec", "variable_declarator":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, name)
			} else if id := firstIdentifier(child); id != nil {
				names = append(names, id)
			}
		}
	}
	return names
}

func (w *walker) emit(node, nameNode *sitter.Node, rule SymbolRule, parent string) {
	name := w.text(nameNode)
	if name == "" {
		return
	}
	w.emitNamed(node, name, rule, parent)
}

func (w *walker) emitNamed(node *sitter.Node, name string, rule SymbolRule, parent string) *Symbol {
	symbolType := rule.Type
	if rule.MethodWhenNested && parent != "" {
		symbolType = "method"
	}

	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1
	if node.EndPoint().Column == 0 && endLine > startLine {
		endLine--
	}

	sym := Symbol{
		Name:      name,
		Type:      symbolType,
		FilePath:  w.filePath,
		StartLine: startLine,
		StartCol:  int(node.StartPoint().Column),
		EndLine:   endLine,
		EndCol:    int(node.EndPoint().Column),
		Language:  w.config.Name,
		Signature: w.signature(node),
		Docstring: w.docstring(node),
		Parent:    parent,
		Scope:     scopeFor(w.config.Name, name),
		FileHash:  w.fileHash,
	}

	if rule.ParamsField != "" {
		if params := node.ChildByFieldName(rule.ParamsField); params != nil {
			sym.Parameters = w.text(params)
		}
	}
	if rule.ReturnField != "" {
		if ret := node.ChildByFieldName(rule.ReturnField); ret != nil {
			sym.ReturnType = w.text(ret)
		}
	}

	w.symbols = append(w.symbols, sym)
	return &w.symbols[len(w.symbols)-1]
}

// symbolName resolves the declared name for a node, trying configured name
// fields first, then an identifier-like direct child, then one level down
// (go type_specs, c declarator chains).
func (w *walker) symbolName(node *sitter.Node, rule SymbolRule) (string, bool) {
	if rule.FullTextName {
		name := firstLine(w.text(node))
		return name, name != ""
	}

	for _, field := range w.config.NameFields {
		if n := node.ChildByFieldName(field); n != nil {
			if id := resolveIdentifier(n); id != nil {
				return w.text(id), true
			}
			return w.text(n), true
		}
	}

	if id := firstIdentifier(node); id != nil {
		return w.text(id), true
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if n := child.ChildByFieldName("name"); n != nil {
			return w.text(n), true
		}
	}

	return "", false
}

// resolveIdentifier follows declarator fields down to the identifier leaf,
// as in c/cpp where function_definition.declarator nests the name.
func resolveIdentifier(node *sitter.Node) *sitter.Node {
	for node != nil {
		if isIdentifier(node.Type()) {
			return node
		}
		next := node.ChildByFieldName("declarator")
		if next == nil {
			next = firstIdentifier(node)
			return next
		}
		node = next
	}
	return nil
}

func firstIdentifier(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if isIdentifier(child.Type()) {
			return child
		}
	}
	return nil
}

func isIdentifier(nodeType string) bool {
	switch nodeType {
	case "identifier", "property_identifier", "type_identifier", "field_identifier", "constant":
		return true
	}
	return false
}

// signature is the first line of the node's source text.
func (w *walker) signature(node *sitter.Node) string {
	sig := firstLine(w.text(node))
	if len(sig) > MaxSignatureLen {
		sig = sig[:MaxSignatureLen]
	}
	return sig
}

func (w *walker) docstring(node *sitter.Node) string {
	switch w.config.Doc {
	case DocBodyString:
		return w.bodyDocstring(node)
	case DocPrecedingComments:
		return w.precedingComments(node)
	}
	return ""
}

// bodyDocstring finds the leading string expression of a python-style body.
func (w *walker) bodyDocstring(node *sitter.Node) string {
	body := node.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		stmt := body.Child(i)
		if stmt.Type() != "expression_statement" {
			continue
		}
		for j := 0; j < int(stmt.ChildCount()); j++ {
			expr := stmt.Child(j)
			if expr.Type() == "string" {
				return stripQuotes(w.text(expr))
			}
		}
		return ""
	}
	return ""
}

// precedingComments joins the contiguous comment block directly above the
// node, the convention for go, rust, java, c-family and js doc comments.
func (w *walker) precedingComments(node *sitter.Node) string {
	var parts []string
	expectLine := int(node.StartPoint().Row)
	for prev := node.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		if prev.Type() != "comment" && prev.Type() != "line_comment" && prev.Type() != "block_comment" {
			break
		}
		if int(prev.EndPoint().Row)+1 < expectLine {
			break
		}
		parts = append([]string{w.text(prev)}, parts...)
		expectLine = int(prev.StartPoint().Row)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func (w *walker) text(node *sitter.Node) string {
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(w.content) {
		end = uint32(len(w.content))
	}
	if start >= end {
		return ""
	}
	return string(w.content[start:end])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, `"""`) || strings.HasPrefix(s, "'''"):
		if len(s) >= 6 {
			s = s[3 : len(s)-3]
		}
	case strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'"):
		if len(s) >= 2 {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}

// scopeFor applies per-language visibility heuristics. These are lexical
// conventions only; the index does not model language semantics.
func scopeFor(language, name string) string {
	if name == "" {
		return "public"
	}
	switch language {
	case "python", "ruby":
		if strings.HasPrefix(name, "_") {
			return "private"
		}
	case "go":
		r := []rune(name)[0]
		if unicode.IsLetter(r) && unicode.IsLower(r) {
			return "private"
		}
	}
	return "public"
}
