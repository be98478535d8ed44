package sorter

import "errors"

// Error kinds surfaced at the facade boundary. Leaf-package sentinels
// (metadata.ErrDocumentRead, condition.ErrSyntax, git.ErrGitOperation, ...)
// are wrapped into one of these at the point they cross into this package,
// so callers only ever need errors.Is against the six values below.
var (
	// ErrFileAccess is I/O or format failure at a document boundary.
	ErrFileAccess = errors.New("file access error")
	// ErrConditionSyntax is malformed condition text or an unsafe path
	// argument to a condition predicate.
	ErrConditionSyntax = errors.New("condition syntax error")
	// ErrCyclicInteraction is a hard sort failure: the graph could not be
	// made acyclic. Wraps a *graph.CyclicInteraction.
	ErrCyclicInteraction = errors.New("cyclic interaction detected")
	// ErrGitState is a masterlist repository missing or in an unexpected
	// state.
	ErrGitState = errors.New("git state error")
	// ErrInvalidArgument is an empty URL/branch, a duplicate plugin add, or
	// similar caller misuse.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLogic is an unrecognised game kind or other condition the caller
	// should never be able to reach.
	ErrLogic = errors.New("internal logic error")
)
