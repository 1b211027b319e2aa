package parse

import (
	"fmt"

	"tlog.app/go/loc"
)

type (
	// FatalError aborts a parse.
	// It means the grammar or its callbacks are misconfigured,
	// an ordinary mismatch is reported by Result.Success instead.
	FatalError struct {
		Kind FatalKind
		Msg  string
		PC   loc.PC
	}

	FatalKind uint8
)

const (
	TreeDepthLimit FatalKind = iota + 1
	NodeHitLimit
	UDTContract
	LookBehind
	MissingCallback
	BadOpcode
	BadWindow
)

func newFatal(k FatalKind, f string, args ...any) *FatalError {
	return &FatalError{
		Kind: k,
		Msg:  fmt.Sprintf(f, args...),
		PC:   loc.Caller(1),
	}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Msg)
}

func (k FatalKind) String() string {
	switch k {
	case TreeDepthLimit:
		return "tree depth limit"
	case NodeHitLimit:
		return "node hit limit"
	case UDTContract:
		return "udt contract"
	case LookBehind:
		return "look behind"
	case MissingCallback:
		return "missing callback"
	case BadOpcode:
		return "bad opcode"
	case BadWindow:
		return "bad window"
	}

	return fmt.Sprintf("FatalKind(%d)", k)
}
