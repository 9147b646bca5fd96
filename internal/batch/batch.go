// Package batch composes many logical operations into as few remote
// invocations as possible. Consecutive commands are embedded into a single
// aggregated script executed once, guarded so one operation's failure
// never aborts the ones after it (best-effort continuation, not
// transactional). Transfers keep their submission position but run as
// individual invocations.
package batch

import (
	"fmt"

	"github.com/natefield/sshmux/internal/errors"
)

// Kind is the type of one logical operation.
type Kind int

const (
	// Command runs a remote command string.
	Command Kind = iota
	// TransferTo pushes a local path to the remote.
	TransferTo
	// TransferFrom pulls a remote path to the local side.
	TransferFrom
)

func (k Kind) String() string {
	switch k {
	case TransferTo:
		return "transfer-to"
	case TransferFrom:
		return "transfer-from"
	default:
		return "command"
	}
}

// Operation is one logical step of a batch. Ephemeral: it exists only for
// the duration of one batch execution.
type Operation struct {
	Kind        Kind
	Command     string // Kind == Command
	Source      string // transfer kinds
	Destination string // transfer kinds
	Label       string // description for diagnostics
}

// Describe returns the operation's label, falling back to its payload.
func (op Operation) Describe() string {
	if op.Label != "" {
		return op.Label
	}
	if op.Kind == Command {
		return op.Command
	}
	return fmt.Sprintf("%s %s -> %s", op.Kind, op.Source, op.Destination)
}

// Batch is an ordered list of operations, consumed exactly once.
type Batch struct {
	ID  string
	ops []Operation
}

// New creates an empty batch with the given id.
func New(id string) *Batch {
	return &Batch{ID: id}
}

// Add appends an operation.
func (b *Batch) Add(op Operation) {
	b.ops = append(b.ops, op)
}

// AddCommand appends a command operation.
func (b *Batch) AddCommand(label, command string) {
	b.Add(Operation{Kind: Command, Command: command, Label: label})
}

// AddTransfer appends a transfer operation.
func (b *Batch) AddTransfer(label string, kind Kind, source, destination string) {
	b.Add(Operation{Kind: kind, Source: source, Destination: destination, Label: label})
}

// Operations returns the operations in submission order.
func (b *Batch) Operations() []Operation {
	return b.ops
}

// Len returns the number of operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Validate rejects batches that cannot execute.
func (b *Batch) Validate() error {
	if len(b.ops) == 0 {
		return errors.New(errors.ErrBatch,
			"Batch has no operations",
			"Add at least one command or transfer before executing")
	}
	for i, op := range b.ops {
		switch op.Kind {
		case Command:
			if op.Command == "" {
				return errors.New(errors.ErrBatch,
					fmt.Sprintf("Operation %d has an empty command", i+1),
					"Every command operation needs a command string")
			}
		case TransferTo, TransferFrom:
			if op.Source == "" || op.Destination == "" {
				return errors.New(errors.ErrBatch,
					fmt.Sprintf("Operation %d is missing source or destination", i+1),
					"Transfer operations need both source and destination")
			}
		}
	}
	return nil
}
