// Global mglock config.
package config

// Name of the tool.
const Name = "mglock"

// Prompt printed by REPL.
const Prompt = Name + "> "

// Default port the lock REPL server listens on.
const DefaultPort = 8336

// Separator between the names in a resource path, e.g. "db/orders/page7".
const ResourceSeparator = "/"

// The deepest a resource may sit in the hierarchy.
const MaxHierarchyDepth = 4

// Names of the hierarchy levels, root first.
var LevelNames = [MaxHierarchyDepth]string{"database", "table", "page", "record"}

// Return prompt if requested, else "".
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}
