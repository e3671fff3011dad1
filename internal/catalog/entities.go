package catalog

import "strings"

// Entities lists the entity type ids offered after `@`.
var Entities = []string{
	"item", "xp_orb", "area_effect_cloud", "elder_guardian", "wither_skeleton",
	"stray", "egg", "leash_knot", "painting", "arrow", "snowball", "fireball",
	"small_fireball", "ender_pearl", "eye_of_ender_signal", "potion",
	"xp_bottle", "item_frame", "wither_skull", "tnt", "falling_block",
	"fireworks_rocket", "husk", "spectral_arrow", "shulker_bullet",
	"dragon_fireball", "zombie_villager", "skeleton_horse", "zombie_horse",
	"armor_stand", "donkey", "mule", "evocation_fangs", "evocation_illager",
	"vex", "vindication_illager", "illusion_illager", "commandblock_minecart",
	"boat", "minecart", "chest_minecart", "furnace_minecart", "tnt_minecart",
	"hopper_minecart", "spawner_minecart", "creeper", "skeleton", "spider",
	"giant", "zombie", "slime", "ghast", "zombie_pigman", "enderman",
	"cave_spider", "silverfish", "blaze", "magma_cube", "ender_dragon",
	"wither", "bat", "witch", "endermite", "guardian", "shulker", "pig",
	"sheep", "cow", "chicken", "squid", "wolf", "mooshroom", "snowman",
	"ocelot", "villager_golem", "horse", "rabbit", "polar_bear", "llama",
	"llama_spit", "parrot", "villager", "ender_crystal",
}

// irregularPlurals maps the naive plural ("<name>s", underscores replaced by
// spaces) to the form shown to users.
var irregularPlurals = map[string]string{
	"endermans":        "endermen",
	"evocation fangss": "evocation fangs",
	"sheeps":           "sheep",
	"vexs":             "vexes",
	"snowmans":         "snowmen",
	"wolfs":            "wolves",
	"silverfishs":      "silverfishes",
	"witchs":           "witches",
	"tnts":             "tnt",
	"rabbits":          "rabbi",
}

// Pluralize returns the human readable plural of an entity id.
func Pluralize(entity string) string {
	plural := strings.ReplaceAll(entity, "_", " ") + "s"
	if override, ok := irregularPlurals[plural]; ok {
		return override
	}
	return plural
}

// EntityDoc is the completion documentation for an entity target.
func EntityDoc(entity string) string {
	return "Targets all " + Pluralize(entity) + ". (Translates to @e[type=" + entity + "])"
}
