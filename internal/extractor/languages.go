package extractor

import (
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// SymbolRule maps one AST node type to the symbol record it produces.
type SymbolRule struct {
	// Type is the symbol_type recorded for matching nodes. The set of types
	// is open-ended; grammars introduce whatever types fit their constructs.
	Type string

	// MethodWhenNested rewrites Type to "method" when the node sits inside
	// a named parent scope (class, type, module).
	MethodWhenNested bool

	// NamesScope marks the produced symbol as an enclosing scope: child
	// symbols extracted beneath it record it as their parent_symbol.
	NamesScope bool

	// TopLevelOnly skips the node when it already has a named parent scope.
	// Used for variable assignments so locals do not flood the index.
	TopLevelOnly bool

	// FullTextName uses the node's (first-line) source text as the symbol
	// name instead of a name field. Used for import statements.
	FullTextName bool

	// ParamsField and ReturnField are tree-sitter field names exposing the
	// declared parameter list and return type, when the grammar has them.
	ParamsField string
	ReturnField string
}

// DocStyle selects how attached documentation is located for a language.
type DocStyle int

const (
	// DocNone extracts no documentation.
	DocNone DocStyle = iota
	// DocPrecedingComments joins comment nodes directly above the symbol.
	DocPrecedingComments
	// DocBodyString takes the first string expression in the body block
	// (python docstrings).
	DocBodyString
)

// LanguageConfig holds the grammar and extraction rules for one language.
type LanguageConfig struct {
	Name       string
	Language   *sitter.Language
	Rules      map[string]SymbolRule
	NameFields []string
	Doc        DocStyle
}

var languageConfigs = map[string]*LanguageConfig{
	"go": {
		Name:       "go",
		Language:   golang.GetLanguage(),
		NameFields: []string{"name"},
		Doc:        DocPrecedingComments,
		Rules: map[string]SymbolRule{
			"function_declaration": {Type: "function", NamesScope: true, ParamsField: "parameters", ReturnField: "result"},
			"method_declaration":   {Type: "method", NamesScope: true, ParamsField: "parameters", ReturnField: "result"},
			"type_declaration":     {Type: "type", NamesScope: true},
			"const_declaration":    {Type: "variable", TopLevelOnly: true},
			"var_declaration":      {Type: "variable", TopLevelOnly: true},
			"import_declaration":   {Type: "import", FullTextName: true},
		},
	},
	"python": {
		Name:       "python",
		Language:   python.GetLanguage(),
		NameFields: []string{"name"},
		Doc:        DocBodyString,
		Rules: map[string]SymbolRule{
			"function_definition":   {Type: "function", MethodWhenNested: true, NamesScope: true, ParamsField: "parameters", ReturnField: "return_type"},
			"class_definition":      {Type: "class", NamesScope: true},
			"import_statement":      {Type: "import", FullTextName: true},
			"import_from_statement": {Type: "import", FullTextName: true},
			"assignment":            {Type: "variable", TopLevelOnly: true},
		},
	},
	"javascript": {
		Name:       "javascript",
		Language:   javascript.GetLanguage(),
		NameFields: []string{"name"},
		Doc:        DocPrecedingComments,
		Rules: map[string]SymbolRule{
			"function_declaration": {Type: "function", MethodWhenNested: true, NamesScope: true, ParamsField: "parameters"},
			"class_declaration":    {Type: "class", NamesScope: true},
			"method_definition":    {Type: "method", ParamsField: "parameters"},
			"lexical_declaration":  {Type: "variable", TopLevelOnly: true},
			"variable_declaration": {Type: "variable", TopLevelOnly: true},
			"import_statement":     {Type: "import", FullTextName: true},
		},
	},
	"typescript": {
		Name:       "typescript",
		Language:   typescript.GetLanguage(),
		NameFields: []string{"name"},
		Doc:        DocPrecedingComments,
		Rules: map[string]SymbolRule{
			"function_declaration":   {Type: "function", MethodWhenNested: true, NamesScope: true, ParamsField: "parameters", ReturnField: "return_type"},
			"class_declaration":      {Type: "class", NamesScope: true},
			"method_definition":      {Type: "method", ParamsField: "parameters", ReturnField: "return_type"},
			"interface_declaration":  {Type: "interface", NamesScope: true},
			"type_alias_declaration": {Type: "type"},
			"enum_declaration":       {Type: "enum", NamesScope: true},
			"lexical_declaration":    {Type: "variable", TopLevelOnly: true},
			"import_statement":       {Type: "import", FullTextName: true},
		},
	},
	"tsx": {
		Name:       "tsx",
		Language:   tsx.GetLanguage(),
		NameFields: []string{"name"},
		Doc:        DocPrecedingComments,
		Rules: map[string]SymbolRule{
			"function_declaration":   {Type: "function", MethodWhenNested: true, NamesScope: true, ParamsField: "parameters", ReturnField: "return_type"},
			"class_declaration":      {Type: "class", NamesScope: true},
			"method_definition":      {Type: "method", ParamsField: "parameters", ReturnField: "return_type"},
			"interface_declaration":  {Type: "interface", NamesScope: true},
			"type_alias_declaration": {Type: "type"},
			"import_statement":       {Type: "import", FullTextName: true},
		},
	},
	"rust": {
		Name:       "rust",
		Language:   rust.GetLanguage(),
		NameFields: []string{"name"},
		Doc:        DocPrecedingComments,
		Rules: map[string]SymbolRule{
			"function_item":   {Type: "function", MethodWhenNested: true, ParamsField: "parameters", ReturnField: "return_type"},
			"struct_item":     {Type: "struct", NamesScope: true},
			"enum_item":       {Type: "enum", NamesScope: true},
			"trait_item":      {Type: "trait", NamesScope: true},
			"mod_item":        {Type: "module", NamesScope: true},
			"use_declaration": {Type: "import", FullTextName: true},
		},
	},
	"java": {
		Name:       "java",
		Language:   java.GetLanguage(),
		NameFields: []string{"name"},
		Doc:        DocPrecedingComments,
		Rules: map[string]SymbolRule{
			"class_declaration":       {Type: "class", NamesScope: true},
			"interface_declaration":   {Type: "interface", NamesScope: true},
			"method_declaration":      {Type: "method", ParamsField: "parameters", ReturnField: "type"},
			"constructor_declaration": {Type: "method", ParamsField: "parameters"},
			"field_declaration":       {Type: "variable"},
			"import_declaration":      {Type: "import", FullTextName: true},
		},
	},
	"c": {
		Name:       "c",
		Language:   c.GetLanguage(),
		NameFields: []string{"declarator", "name"},
		Doc:        DocPrecedingComments,
		Rules: map[string]SymbolRule{
			"function_definition": {Type: "function", ParamsField: "parameters"},
			"struct_specifier":    {Type: "struct", NamesScope: true},
			"enum_specifier":      {Type: "enum"},
			"type_definition":     {Type: "type"},
		},
	},
	"cpp": {
		Name:       "cpp",
		Language:   cpp.GetLanguage(),
		NameFields: []string{"declarator", "name"},
		Doc:        DocPrecedingComments,
		Rules: map[string]SymbolRule{
			"function_definition":  {Type: "function", MethodWhenNested: true, ParamsField: "parameters"},
			"class_specifier":      {Type: "class", NamesScope: true},
			"struct_specifier":     {Type: "struct", NamesScope: true},
			"namespace_definition": {Type: "namespace", NamesScope: true},
		},
	},
	"ruby": {
		Name:       "ruby",
		Language:   ruby.GetLanguage(),
		NameFields: []string{"name"},
		Doc:        DocPrecedingComments,
		Rules: map[string]SymbolRule{
			"method":           {Type: "function", MethodWhenNested: true, ParamsField: "parameters"},
			"singleton_method": {Type: "method", ParamsField: "parameters"},
			"class":            {Type: "class", NamesScope: true},
			"module":           {Type: "module", NamesScope: true},
		},
	},
}

var extToLanguage = map[string]string{
	".go":   "go",
	".py":   "python",
	".pyw":  "python",
	".pyi":  "python",
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".mts":  "typescript",
	".cts":  "typescript",
	".tsx":  "tsx",
	".rs":   "rust",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".hxx":  "cpp",
	".rb":   "ruby",
	".rake": "ruby",
}

// specialFilenames maps well-known extensionless files to languages.
var specialFilenames = map[string]string{
	"rakefile": "ruby",
	"gemfile":  "ruby",
}

// DetectLanguage returns the language identifier for the file path, or ""
// when the language is not supported.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extToLanguage[ext]; ok {
		return lang
	}
	if lang, ok := specialFilenames[strings.ToLower(filepath.Base(path))]; ok {
		return lang
	}
	return ""
}

// GetLanguageConfig returns the extraction config for a file path, or nil
// when the language is not supported.
func GetLanguageConfig(path string) *LanguageConfig {
	lang := DetectLanguage(path)
	if lang == "" {
		return nil
	}
	return languageConfigs[lang]
}

// SupportedLanguages returns all supported language names, sorted.
func SupportedLanguages() []string {
	langs := make([]string, 0, len(languageConfigs))
	for lang := range languageConfigs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// IsSupported returns true if the file's language has a registered grammar.
func IsSupported(path string) bool {
	return GetLanguageConfig(path) != nil
}
