// Package session keeps the externally owned conversation state between
// turns: message history, the discovered system profile and the caller's
// identity. Orchestrators only read it; callers load a context before a turn
// and save it back afterwards.
package session
