package catalog

import "strings"

// Alias is one of the single letter selector targets (@e, @a, ...).
type Alias struct {
	Name    string
	Doc     string
	Aliases []string
}

// Detail renders the alternative spellings accepted for the alias.
func (a Alias) Detail() string {
	return "Aliases: " + strings.Join(a.Aliases, ", ")
}

// Aliases are the five selector shorthands, in display order.
var Aliases = []Alias{
	{Name: "e", Doc: "Targets all entities", Aliases: []string{"all", "any", "entity", "entities"}},
	{Name: "a", Doc: "Targets all players", Aliases: []string{"players", "everyone", "allplayers"}},
	{Name: "p", Doc: "Targets the nearest player", Aliases: []string{"closest", "nearest", "player"}},
	{Name: "r", Doc: "Targets a random player (or entity if provided [type=?])", Aliases: []string{"random"}},
	{Name: "s", Doc: "Targets the executing entity", Aliases: []string{"this", "self", "me"}},
}

// Param is a key accepted inside a selector's bracket list.
type Param struct {
	Name string
	Doc  string
}

// SelectorParams are offered after `[` or `,` inside `@x[...]`.
var SelectorParams = []Param{
	{Name: "gamemode", Doc: "Selects players set to the specified gamemode. Can be an index (like until 1.12) or gamemode name"},
	{Name: "tag", Doc: "Selects entities with the specified tag"},
	{Name: "tags", Doc: "Selects entities with the specified tag list inside [ ]"},
}

// Keyword is a top-level statement snippet.
type Keyword struct {
	Name    string
	Snippet string
	Doc     string
}

// Keywords are offered outside of any selector context.
var Keywords = []Keyword{
	{Name: "objective", Snippet: "objective ${1:name}", Doc: "Creates a new objective to use on entities."},
	{Name: "const", Snippet: "const ${2:name} = ${1:value}", Doc: "Creates a constant entry in the `Consts` objective that is assigned on load and cannot be changed."},
	{Name: "tick", Snippet: "tick {\n\t$0\n}", Doc: "The main function. Called every tick at the start of the server loop."},
	{Name: "function", Snippet: "function ${1:name} {\n\t$0\n}", Doc: "A function block. Can be called by a selector or from the server (through tick)"},
}
