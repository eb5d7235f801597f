// Package calltrace extracts value transfers hidden inside contract calls from
// struct-log execution traces (debug_traceTransaction with the default
// tracer).
package calltrace

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// OpCall is the only opcode that moves value to another account with an
// explicit amount argument.
const OpCall = "CALL"

// minCallStack is the exclusive lower bound on the first CALL's stack size.
const minCallStack = 2

// ErrMalformedTrace is returned when a trace has the expected shape but its
// stack words cannot be decoded.
var ErrMalformedTrace = errors.New("malformed trace")

// Options are the tracer options used to request a trace that carries stacks
// but no memory or storage snapshots.
type Options struct {
	DisableMemory  bool `json:"disableMemory"`
	DisableStorage bool `json:"disableStorage"`
	DisableStack   bool `json:"disableStack"`
}

// DefaultOptions keeps only the stack, which is all Decode needs.
var DefaultOptions = Options{
	DisableMemory:  true,
	DisableStorage: true,
	DisableStack:   false,
}

// StructLog is one executed opcode of a struct-log trace.
type StructLog struct {
	Pc      uint64   `json:"pc"`              // program counter
	Op      string   `json:"op"`              // opcode name, e.g. "CALL"
	Gas     uint64   `json:"gas"`             // gas left before the opcode
	GasCost uint64   `json:"gasCost"`         // gas charged by the opcode
	Depth   int      `json:"depth"`           // call depth, 1 for the top frame
	Error   string   `json:"error,omitempty"` // execution error, if any
	Stack   []string `json:"stack"`           // stack words, bottom first
}

// Trace is a struct-log trace. Failed is nil when the node did not report an
// execution status.
type Trace struct {
	Failed      *bool       `json:"failed"`      // whether execution reverted
	Gas         uint64      `json:"gas"`         // gas used by the transaction
	ReturnValue string      `json:"returnValue"` // hex return data
	StructLogs  []StructLog `json:"structLogs"`  // executed opcodes in order
}

// Matcher reports whether a prefix-less lowercase address is watched.
type Matcher interface {
	IsWatchedTrimmed(trimmed string) bool
}

// Transfer is the value movement found in a trace. Recipient has no 0x
// prefix and is lowercase. Value is in the smallest unit.
type Transfer struct {
	Recipient string
	Value     *big.Int
}

// Decode returns the value and recipient of the last CALL in trace when the
// recipient is watched. Traces of failed or unknown status, traces without
// CALL steps, traces whose first CALL has too short a stack and calls to
// unwatched accounts all yield ok == false with a nil error.
//
// The CALL stack is read from the top: value at len-3 and target at len-2.
func Decode(trace Trace, m Matcher) (Transfer, bool, error) {
	if trace.Failed == nil || *trace.Failed {
		return Transfer{}, false, nil
	}

	var first, last *StructLog
	for i := range trace.StructLogs {
		if trace.StructLogs[i].Op != OpCall {
			continue
		}
		if first == nil {
			first = &trace.StructLogs[i]
		}
		last = &trace.StructLogs[i]
	}

	if first == nil || len(first.Stack) <= minCallStack {
		return Transfer{}, false, nil
	}

	stack := last.Stack
	if len(stack) <= minCallStack {
		return Transfer{}, false, fmt.Errorf("%w: last CALL at pc %d has %d stack entries", ErrMalformedTrace, last.Pc, len(stack))
	}

	value, err := parseWord(stack[len(stack)-3])
	if err != nil {
		return Transfer{}, false, fmt.Errorf("%w: call value: %w", ErrMalformedTrace, err)
	}

	target, err := parseWord(stack[len(stack)-2])
	if err != nil {
		return Transfer{}, false, fmt.Errorf("%w: call target: %w", ErrMalformedTrace, err)
	}

	recipient := strings.ToLower(common.BigToAddress(target).Hex()[2:])
	if !m.IsWatchedTrimmed(recipient) {
		return Transfer{}, false, nil
	}

	return Transfer{Recipient: recipient, Value: value}, true, nil
}

// parseWord decodes a stack word. Nodes emit words either as 0x-prefixed
// minimal hex or as unprefixed 64-character hex.
func parseWord(word string) (*big.Int, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(word, "0x"), "0X")
	if digits == "" {
		return nil, fmt.Errorf("empty stack word %q", word)
	}

	v, ok := new(big.Int).SetString(digits, 16)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid stack word %q", word)
	}

	return v, nil
}
