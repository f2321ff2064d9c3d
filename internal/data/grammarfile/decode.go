// # internal/data/grammarfile/decode.go
package grammarfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	coreerrors "sapling/internal/core/errors"
	"sapling/internal/engine/grammar"
	"sapling/internal/shared/observability"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and decodes a grammar file.
func Load(path string) (*grammar.Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := coreerrors.CodeInternal
		if os.IsNotExist(err) {
			code = coreerrors.CodeNotFound
		}
		return nil, coreerrors.AddContext(coreerrors.Wrap(err, code, "read grammar file"), coreerrors.CtxPath, path)
	}
	g, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, coreerrors.AddContext(err, coreerrors.CtxPath, path)
	}
	return g, nil
}

// Decode turns a serialized grammar into the in-memory model. Every failure
// is a DECODE_ERROR domain error.
func Decode(data []byte, format Format) (*grammar.Grammar, error) {
	start := time.Now()
	defer func() {
		observability.DecodeDuration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())
	}()

	raw := &rawGrammar{}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, raw); err != nil {
			return nil, decodeError(err, format, "malformed grammar document")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, raw); err != nil {
			return nil, decodeError(err, format, "malformed grammar document")
		}
	default:
		return nil, coreerrors.Newf(coreerrors.CodeNotSupported, "unsupported grammar format %q", format)
	}

	g, err := raw.build()
	if err != nil {
		return nil, decodeError(err, format, "invalid grammar document")
	}
	return g, nil
}

func decodeError(err error, format Format, msg string) error {
	return coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeDecodeError, msg), coreerrors.CtxFormat, string(format))
}

func (r *rawGrammar) build() (*grammar.Grammar, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, fmt.Errorf("grammar name is required")
	}
	if r.Rules == nil {
		return nil, fmt.Errorf("grammar %q has no rules object", r.Name)
	}

	g := grammar.New(r.Name)
	g.Schema = r.Schema
	g.Inherits = r.Inherits
	g.Inline = r.Inline
	g.Conflicts = r.Conflicts
	g.Word = r.Word
	g.Supertypes = r.Supertypes

	for _, entry := range r.Rules.entries {
		rule, err := convert(entry.rule, "rules."+entry.name)
		if err != nil {
			return nil, err
		}
		g.Define(entry.name, rule)
	}

	var err error
	if g.Extras, err = convertList(r.Extras, "extras"); err != nil {
		return nil, err
	}
	if g.Externals, err = convertList(r.Externals, "externals"); err != nil {
		return nil, err
	}
	if len(r.Reserved) > 0 {
		g.Reserved = make(map[string][]*grammar.Rule, len(r.Reserved))
		for ctx, words := range r.Reserved {
			if g.Reserved[ctx], err = convertList(words, "reserved."+ctx); err != nil {
				return nil, err
			}
		}
	}

	for i, group := range r.Precedences {
		entries := make([]grammar.PrecedenceEntry, 0, len(group))
		for j, item := range group {
			path := fmt.Sprintf("precedences[%d][%d]", i, j)
			entry, err := precedenceEntry(item, path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		g.Precedences = append(g.Precedences, entries)
	}
	return g, nil
}

func precedenceEntry(item *rawRule, path string) (grammar.PrecedenceEntry, error) {
	if item == nil {
		return grammar.PrecedenceEntry{}, fmt.Errorf("%s: null precedence entry", path)
	}
	switch item.Type {
	case "STRING":
		if item.Value == nil || item.Value.isInt {
			return grammar.PrecedenceEntry{}, fmt.Errorf("%s: STRING entry needs a string value", path)
		}
		return grammar.PrecedenceName(item.Value.text), nil
	case "SYMBOL":
		if item.Name == nil || *item.Name == "" {
			return grammar.PrecedenceEntry{}, fmt.Errorf("%s: SYMBOL entry needs a name", path)
		}
		return grammar.PrecedenceRef(*item.Name), nil
	default:
		return grammar.PrecedenceEntry{}, fmt.Errorf("%s: precedence entries must be STRING or SYMBOL, got %q", path, item.Type)
	}
}

func convertList(items []*rawRule, path string) ([]*grammar.Rule, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]*grammar.Rule, 0, len(items))
	for i, item := range items {
		rule, err := convert(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func convert(raw *rawRule, path string) (*grammar.Rule, error) {
	if raw == nil {
		return nil, fmt.Errorf("%s: null rule", path)
	}
	typ, ok := grammar.ParseRuleType(raw.Type)
	if !ok {
		return nil, fmt.Errorf("%s: unknown rule type %q", path, raw.Type)
	}
	rule := &grammar.Rule{Type: typ, Flags: raw.Flags, Context: raw.ContextName}

	switch typ {
	case grammar.TypeString, grammar.TypePattern:
		if raw.Value == nil || raw.Value.isInt {
			return nil, fmt.Errorf("%s: %s needs a string value", path, raw.Type)
		}
	case grammar.TypeSymbol:
		if raw.Name == nil || *raw.Name == "" {
			return nil, fmt.Errorf("%s: SYMBOL needs a name", path)
		}
	case grammar.TypeField:
		if raw.Name == nil || *raw.Name == "" {
			return nil, fmt.Errorf("%s: FIELD needs a name", path)
		}
	case grammar.TypeAlias:
		if raw.Value == nil || raw.Value.isInt {
			return nil, fmt.Errorf("%s: ALIAS needs a string value", path)
		}
		rule.Named = raw.Named != nil && *raw.Named
	case grammar.TypeReserved:
		if raw.ContextName == "" {
			return nil, fmt.Errorf("%s: RESERVED needs a context_name", path)
		}
	}
	if typ.IsPrecedence() && raw.Value == nil {
		return nil, fmt.Errorf("%s: %s needs a value", path, raw.Type)
	}

	if raw.Value != nil {
		if raw.Value.isInt {
			rule.Value = grammar.IntValue(raw.Value.num)
		} else {
			rule.Value = grammar.TextValue(raw.Value.text)
		}
	}
	if raw.Name != nil {
		rule.Name = *raw.Name
	}

	switch {
	case typ.HasMembers():
		if raw.Members == nil {
			return nil, fmt.Errorf("%s: %s needs members", path, raw.Type)
		}
		rule.Members = make([]*grammar.Rule, 0, len(raw.Members))
		for i, m := range raw.Members {
			child, err := convert(m, fmt.Sprintf("%s.members[%d]", path, i))
			if err != nil {
				return nil, err
			}
			rule.Members = append(rule.Members, child)
		}
	case typ.HasContent():
		if raw.Content == nil {
			return nil, fmt.Errorf("%s: %s needs content", path, raw.Type)
		}
		child, err := convert(raw.Content, path+".content")
		if err != nil {
			return nil, err
		}
		rule.Content = child
	}
	return rule, nil
}
