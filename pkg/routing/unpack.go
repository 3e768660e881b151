package routing

import (
	"errors"
	"fmt"

	"github.com/azybler/tripch/pkg/graph"
)

const maxUnpackDepth = 4096

// ErrUnpackDepth is returned for shortcuts nested deeper than any build
// could produce.
var ErrUnpackDepth = errors.New("shortcut nesting too deep")

// Unpack expands shortcut payloads into the primitive payloads they
// summarize, preserving travel order. Uses an explicit stack to avoid
// recursion.
func Unpack(payloads []graph.Payload) ([]graph.Payload, error) {
	type item struct {
		p     graph.Payload
		depth int
	}

	stack := make([]item, 0, len(payloads))
	for i := len(payloads) - 1; i >= 0; i-- {
		stack = append(stack, item{payloads[i], 0})
	}

	var out []graph.Payload
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sc, ok := it.p.(graph.Shortcut)
		if !ok {
			out = append(out, it.p)
			continue
		}
		if it.depth >= maxUnpackDepth {
			return nil, fmt.Errorf("%w: exceeds %d", ErrUnpackDepth, maxUnpackDepth)
		}
		// Push parts in reverse so the first part is expanded first.
		for i := len(sc.Parts) - 1; i >= 0; i-- {
			stack = append(stack, item{sc.Parts[i], it.depth + 1})
		}
	}
	return out, nil
}
