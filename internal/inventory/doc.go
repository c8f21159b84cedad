// Package inventory lists and resolves content inside a configuration tree:
// commands/*.md, agents/*.md, skills/<name>/, hooks.json and mcp.json.
package inventory
