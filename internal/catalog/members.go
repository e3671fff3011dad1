package catalog

// Member describes an operation that can follow a selector, as in
// `@p.title("hi")`.
type Member struct {
	Name    string
	Snippet string // snippet template, takes precedence over Insert
	Insert  string // plain insertion text
	Doc     string
	Usage   string // call signature shown by signature help
	Params  []Param
}

// InsertText returns the text to insert and whether it is a snippet.
func (m Member) InsertText() (string, bool) {
	if m.Snippet != "" {
		return m.Snippet, true
	}
	if m.Insert != "" {
		return m.Insert, false
	}
	return m.Name, false
}

const enchantments = "aqua_affinity,bane_of_arthropods,blast_protection,channeling,binding_curse,vanishing_curse,depth_strider,efficiency,feather_falling,fire_aspect,fire_protection,flame,fortune,frost_walker,impaling,infinity,knockback,looting,loyalty,luck_of_the_sea,lure,mending,multishot,piercing,power,projectile_protection,protection,punch,quick_charge,respiration,riptide,sharpness,silk_touch,smite,sweeping,thorns,unbreaking"

// Members is the selector member table in display order.
var Members = []Member{
	{
		Name:    "effect",
		Snippet: "effect($1) $0",
		Doc:     "Adds / removes an effect from the entity",
		Usage:   "effect(effect, seconds, amplifier)",
		Params: []Param{
			{Name: "effect", Doc: "effect id, or `clear` to remove every effect"},
			{Name: "seconds", Doc: "duration in seconds"},
			{Name: "amplifier", Doc: "effect level, starting at 0"},
		},
	},
	{
		Name:    "grant",
		Snippet: "grant(${1|only,from,until,all| $0})",
		Doc:     "Grants a player a specified advancement, a range of advancements or all.",
		Usage:   "grant(mode advancement)",
		Params: []Param{
			{Name: "mode", Doc: "one of only, from, until, all"},
			{Name: "advancement", Doc: "advancement id (omitted for all)"},
		},
	},
	{
		Name:    "revoke",
		Snippet: "revoke(${1|only,from,until,all| $0})",
		Doc:     "Removes from a player a specified advancement, a range of advancements or all.",
		Usage:   "revoke(mode advancement)",
		Params: []Param{
			{Name: "mode", Doc: "one of only, from, until, all"},
			{Name: "advancement", Doc: "advancement id (omitted for all)"},
		},
	},
	{
		Name:    "clear",
		Snippet: "clear($0)",
		Doc:     "Clears from the player inventory the specified item",
		Usage:   "clear(item, count)",
		Params: []Param{
			{Name: "item", Doc: "item id; empty clears the whole inventory"},
			{Name: "count", Doc: "maximum number of items to remove"},
		},
	},
	{
		Name:    "title",
		Snippet: "title($0)",
		Doc:     "Displays a title for a player",
		Usage:   "title(text)",
		Params:  []Param{{Name: "text", Doc: "string or JSON text component"}},
	},
	{
		Name:    "subtitle",
		Snippet: "subtitle($0)",
		Doc:     "Displays a sub title for a player",
		Usage:   "subtitle(text)",
		Params:  []Param{{Name: "text", Doc: "string or JSON text component"}},
	},
	{
		Name:    "action",
		Snippet: "action($0)",
		Doc:     "Displays a message above the player's hotbar",
		Usage:   "action(text)",
		Params:  []Param{{Name: "text", Doc: "string or JSON text component"}},
	},
	{
		Name:    "titleTimes",
		Snippet: "titleTimes(${1:10},${2:70},${3:20})",
		Doc:     "Changes the title duration parameters (fade in, stay, fade out)",
		Usage:   "titleTimes(fadeIn, stay, fadeOut)",
		Params: []Param{
			{Name: "fadeIn", Doc: "ticks to fade in"},
			{Name: "stay", Doc: "ticks to stay on screen"},
			{Name: "fadeOut", Doc: "ticks to fade out"},
		},
	},
	{
		Name: "nbt",
		Doc:  "Modifies or queries the entity's nbt data",
	},
	{
		Name:    "gamemode",
		Snippet: "gamemode = ${1|survival,creative,spectator,adventure|}",
		Doc:     "Changes the player's gamemode",
	},
	{
		Name:    "enchant",
		Snippet: "enchant(${1|" + enchantments + "|})",
		Doc:     "Adds an enchantment to the tool the player is holding",
		Usage:   "enchant(enchantment, level)",
		Params: []Param{
			{Name: "enchantment", Doc: "enchantment id"},
			{Name: "level", Doc: "enchantment level, defaults to 1"},
		},
	},
	{
		Name:    "tag",
		Snippet: "tag($0)",
		Doc:     "Adds a tag to an entity, to be targeted in a selector using @e[tag=<tag>]",
		Usage:   "tag(name)",
		Params:  []Param{{Name: "name", Doc: "tag to add"}},
	},
	{
		Name:    "untag",
		Snippet: "untag($0)",
		Doc:     "Removes a tag from an entity",
		Usage:   "untag(name)",
		Params:  []Param{{Name: "name", Doc: "tag to remove"}},
	},
	{
		Name: "xp",
		Doc:  "Adds, changes or queries the player's experience",
	},
	{
		Name: "spawn",
		Doc:  "Sets the player's spawn point",
	},
	{
		Name:   "kill",
		Insert: "kill()",
		Doc:    "Removes the entity/s selected by this selector.",
		Usage:  "kill()",
	},
	{
		Name:    "tp",
		Snippet: "tp($0)",
		Doc:     "Teleports the entity to the specified location",
		Usage:   "tp(destination)",
		Params:  []Param{{Name: "destination", Doc: "coordinates or a selector to teleport to"}},
	},
	{
		Name:    "tellraw",
		Snippet: "tellraw($0)",
		Doc:     "Sends a formatted JSON message to the player",
		Usage:   "tellraw(message)",
		Params:  []Param{{Name: "message", Doc: "JSON text component"}},
	},
	{
		Name:    "give",
		Snippet: "give($0)",
		Doc:     "Inserts an item to a player's inventory",
		Usage:   "give(item, count)",
		Params: []Param{
			{Name: "item", Doc: "item id, optionally with nbt"},
			{Name: "count", Doc: "number of items, defaults to 1"},
		},
	},
}

var membersByName = func() map[string]int {
	idx := make(map[string]int, len(Members))
	for i, m := range Members {
		idx[m.Name] = i
	}
	return idx
}()

// LookupMember finds a member descriptor by exact name.
func LookupMember(name string) (Member, bool) {
	i, ok := membersByName[name]
	if !ok {
		return Member{}, false
	}
	return Members[i], true
}
