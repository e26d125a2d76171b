package constants

// Source identifies the channel a transaction was captured through.
type Source string

const (
	SourceBot    Source = "bot"    // receipt photo via the messaging bot
	SourceManual Source = "manual" // typed in by the user
	SourceEmail  Source = "email"  // reserved
)
