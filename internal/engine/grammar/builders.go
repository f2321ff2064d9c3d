package grammar

// Constructors mirroring the grammar DSL, used to assemble rule trees in code.

func Blank() *Rule { return &Rule{Type: TypeBlank} }

func Str(value string) *Rule { return &Rule{Type: TypeString, Value: TextValue(value)} }

func Pattern(value string) *Rule { return &Rule{Type: TypePattern, Value: TextValue(value)} }

func PatternWithFlags(value, flags string) *Rule {
	return &Rule{Type: TypePattern, Value: TextValue(value), Flags: flags}
}

func Sym(name string) *Rule { return &Rule{Type: TypeSymbol, Name: name} }

func Seq(members ...*Rule) *Rule { return &Rule{Type: TypeSeq, Members: members} }

func Choice(members ...*Rule) *Rule { return &Rule{Type: TypeChoice, Members: members} }

func Repeat(content *Rule) *Rule { return &Rule{Type: TypeRepeat, Content: content} }

func Repeat1(content *Rule) *Rule { return &Rule{Type: TypeRepeat1, Content: content} }

func Prec(level int, content *Rule) *Rule {
	return &Rule{Type: TypePrec, Value: IntValue(level), Content: content}
}

func PrecLeft(level int, content *Rule) *Rule {
	return &Rule{Type: TypePrecLeft, Value: IntValue(level), Content: content}
}

func PrecRight(level int, content *Rule) *Rule {
	return &Rule{Type: TypePrecRight, Value: IntValue(level), Content: content}
}

func PrecDynamic(level int, content *Rule) *Rule {
	return &Rule{Type: TypePrecDynamic, Value: IntValue(level), Content: content}
}

// PrecNamed wraps content with a named precedence declared in Grammar.Precedences.
func PrecNamed(kind RuleType, name string, content *Rule) *Rule {
	return &Rule{Type: kind, Value: TextValue(name), Content: content}
}

func Field(name string, content *Rule) *Rule {
	return &Rule{Type: TypeField, Name: name, Content: content}
}

func Alias(value string, named bool, content *Rule) *Rule {
	return &Rule{Type: TypeAlias, Value: TextValue(value), Named: named, Content: content}
}

func Token(content *Rule) *Rule { return &Rule{Type: TypeToken, Content: content} }

func ImmediateToken(content *Rule) *Rule { return &Rule{Type: TypeImmediateToken, Content: content} }

func Reserved(context string, content *Rule) *Rule {
	return &Rule{Type: TypeReserved, Context: context, Content: content}
}
