package results

// AcceptRenamesToolResult represents the result of the accept_renames tool
type AcceptRenamesToolResult struct {
	Message   string                `json:"message"`
	Arguments AcceptRenamesToolArgs `json:"arguments"`
	Applied   int                   `json:"applied"`
	Skipped   int                   `json:"skipped"`
	Files     []string              `json:"files,omitempty"`
	Warnings  []string              `json:"warnings,omitempty"`
}

// AcceptRenamesToolArgs represents the input arguments for the accept_renames tool
type AcceptRenamesToolArgs struct {
	Indexes []int          `json:"indexes,omitempty"`
	Anchors []SymbolAnchor `json:"anchors,omitempty"`
	Scope   string         `json:"scope"`
}

// RejectRenamesToolResult represents the result of the reject_renames tool
type RejectRenamesToolResult struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}
