// Package assert provides runtime invariant checks that can be compiled
// out. A failing check reports the condition text together with the source
// file, line and function it came from, and aborts by panicking with the
// [*Failure].
//
// Checks are enabled by default and removed by building with the noassert
// tag, in which case [That] and [Thatf] reduce to no-ops. Condition
// expressions are still evaluated at the call site, so they should be free
// of side effects; guard expensive ones with [On]:
//
//	if assert.On {
//		assert.That(expensiveCheck(), "tree is balanced")
//	}
package assert

import (
	"fmt"
	"io"
	"os"
	"runtime"
)

// output is where failure reports are written before panicking.
var output io.Writer = os.Stderr

// A Failure describes one failed assertion. It is the panic value of a
// failing check.
type Failure struct {
	Text string // the condition text as given
	File string
	Line int
	Func string
}

// Error implements the error interface for a [*Failure].
func (f *Failure) Error() string {
	return fmt.Sprintf("assertion %q failed: file %q, line %d, function %q",
		f.Text, f.File, f.Line, f.Func)
}

// That checks cond and, with checks enabled, aborts with a report naming
// text when it does not hold. With checks disabled it does nothing.
func That(cond bool, text string) {
	if !On || cond {
		return
	}

	fail(text)
}

// Thatf is [That] with a format string for the condition text.
func Thatf(cond bool, format string, args ...any) {
	if !On || cond {
		return
	}

	fail(fmt.Sprintf(format, args...))
}

func fail(text string) {
	f := &Failure{
		Text: text,
		File: "?",
		Func: "?",
	}

	if pc, file, line, ok := runtime.Caller(2); ok {
		f.File = file
		f.Line = line

		if fn := runtime.FuncForPC(pc); fn != nil {
			f.Func = fn.Name()
		}
	}

	fmt.Fprintln(output, f.Error())
	panic(f)
}
