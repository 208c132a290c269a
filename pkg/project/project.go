package project

// Project metadata reported to MCP clients and language servers
const (
	Name    = "codedoc-mcp"
	Version = "0.1.0"
)
