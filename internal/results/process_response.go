package results

// ProcessResponseToolResult represents the result of the process_response tool
type ProcessResponseToolResult struct {
	Message     string                  `json:"message"`
	Arguments   ProcessResponseToolArgs `json:"arguments"`
	SessionID   string                  `json:"session_id,omitempty"`
	MergedText  string                  `json:"merged_text"`
	RenameCount int                     `json:"rename_count"`
	NoChange    bool                    `json:"no_change,omitempty"`
	Applied     bool                    `json:"applied,omitempty"`
	Diff        string                  `json:"diff,omitempty"`
}

// ProcessResponseToolArgs echoes the arguments that identify the reviewed region
type ProcessResponseToolArgs struct {
	FilePath  string          `json:"file_path"`
	Selection *SelectionRange `json:"selection,omitempty"`
}

// SelectionRange is a region of a file in 1-indexed display coordinates
type SelectionRange struct {
	StartLine      int `json:"start_line"`
	StartCharacter int `json:"start_character"`
	EndLine        int `json:"end_line"`
	EndCharacter   int `json:"end_character"`
}
