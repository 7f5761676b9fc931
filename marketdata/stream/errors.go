package stream

import "errors"

var (
	// ErrEmptySymbol is returned by Start when the symbol is blank.
	ErrEmptySymbol = errors.New("empty symbol")

	// errSymbolChanged signals that the desired symbol no longer matches
	// the one this session was opened for. It tears the session down
	// without reconnecting and is never surfaced to the caller.
	errSymbolChanged = errors.New("desired symbol changed")
)
