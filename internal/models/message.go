package models

// Message types exchanged over a session websocket.
const (
	TypeInterpret = "interpret"
	TypeJournal   = "journal"
	TypeEntry     = "entry"
	TypeStats     = "stats"
	TypeAnalysis  = "analysis"
	TypeError     = "error"
)

// Error kinds reported in ErrorPayload.Kind.
const (
	ErrorKindTransport      = "transport"
	ErrorKindConfiguration  = "configuration"
	ErrorKindInvalidRequest = "invalid_request"
	ErrorKindNotFound       = "not_found"
)

// Request is a client frame. Fields beyond ID and Type depend on Type.
type Request struct {
	ID       string `json:"id"`
	Type     string `json:"type" validate:"required,oneof=interpret journal entry stats"`
	Dream    string `json:"dream,omitempty" validate:"required_if=Type interpret"`
	EntryID  string `json:"entryId,omitempty" validate:"required_if=Type entry"`
	Symbols  int    `json:"symbols,omitempty" validate:"gte=0"`
	Emotions int    `json:"emotions,omitempty" validate:"gte=0"`
}

// Response is a server frame answering the Request with the same ID.
type Response struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Analysis *AnalysisResult `json:"analysis,omitempty"`
	Entries  []JournalEntry  `json:"entries,omitempty"`
	Entry    *JournalEntry   `json:"entry,omitempty"`
	Stats    *JournalStats   `json:"stats,omitempty"`
	Error    *ErrorPayload   `json:"error,omitempty"`
}

// AnalysisResult is the outcome of one interpretation. Entry is nil when the
// reply had no recognizable sections and was therefore not saved.
type AnalysisResult struct {
	Raw        string        `json:"raw"`
	Structured bool          `json:"structured"`
	Sections   Sections      `json:"sections,omitempty"`
	Entry      *JournalEntry `json:"entry,omitempty"`
}

// ErrorPayload describes a failed request. The session stays usable.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
