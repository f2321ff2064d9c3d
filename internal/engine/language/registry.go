// # internal/engine/language/registry.go
package language

import (
	"sort"
	"strings"
	"sync"

	coreerrors "sapling/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// bundled maps a language id to the constructor of its compiled grammar.
var bundled = map[string]func() *sitter.Language{
	"css":        func() *sitter.Language { return sitter.NewLanguage(tree_sitter_css.Language()) },
	"go":         func() *sitter.Language { return sitter.NewLanguage(tree_sitter_go.Language()) },
	"html":       func() *sitter.Language { return sitter.NewLanguage(tree_sitter_html.Language()) },
	"java":       func() *sitter.Language { return sitter.NewLanguage(tree_sitter_java.Language()) },
	"javascript": func() *sitter.Language { return sitter.NewLanguage(tree_sitter_javascript.Language()) },
	"python":     func() *sitter.Language { return sitter.NewLanguage(tree_sitter_python.Language()) },
	"rust":       func() *sitter.Language { return sitter.NewLanguage(tree_sitter_rust.Language()) },
	"tsx":        func() *sitter.Language { return sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()) },
	"typescript": func() *sitter.Language { return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) },
}

var (
	mu     sync.Mutex
	loaded = make(map[string]*sitter.Language)
)

// Names returns the ids of the bundled languages, sorted.
func Names() []string {
	names := make([]string, 0, len(bundled))
	for name := range bundled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the compiled grammar registered under name. Languages are
// constructed on first use and shared afterwards.
func Lookup(name string) (*sitter.Language, error) {
	id := strings.ToLower(strings.TrimSpace(name))
	ctor, ok := bundled[id]
	if !ok {
		return nil, coreerrors.AddContext(
			coreerrors.Newf(coreerrors.CodeNotSupported, "no bundled language %q (available: %s)", name, strings.Join(Names(), ", ")),
			coreerrors.CtxLanguage, name,
		)
	}

	mu.Lock()
	defer mu.Unlock()
	if lang, ok := loaded[id]; ok {
		return lang, nil
	}
	lang := ctor()
	loaded[id] = lang
	return lang, nil
}
