// Package cli implements the lsx command line.
//
// Every command loads the configuration, builds a Host (plugin registry,
// dispatcher, logger and optional metrics), runs plugin discovery and
// shuts the host down when it returns.
//
// # Commands
//
// ls: list a directory with the fields enabled plugins contribute
//
//	lsx ls ~/src --view default
//
// plugins: manage discovered plugins
//
//	lsx plugins list
//	lsx plugins enable git
//	lsx plugins disable git
//	lsx plugins actions git
//	lsx plugins clean --remove-files
//	lsx plugins use      # interactive picker
//	lsx plugins watch    # evict plugins whose files are deleted
//
// plugin: run one action of an enabled plugin
//
//	lsx plugin git status
//
// When a plugin action fails, its message is printed exactly as the plugin
// reported it and the exit code is 1.
package cli
