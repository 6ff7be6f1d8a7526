package sink

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/stripcast/internal/pixel"
)

// Composite fans a frame out to its children concurrently. Children are
// leaves or Sampled views; composites do not nest.
type Composite struct {
	children []Sink
}

func NewComposite(children ...Sink) (*Composite, error) {
	c := &Composite{}
	for _, s := range children {
		if err := c.Add(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (*Composite) sink() {}

// Write completes only after every child has finished. The first failure is
// returned; the remaining children still run to completion.
func (c *Composite) Write(ctx context.Context, frame []pixel.RGB) error {
	if len(c.children) == 1 {
		return c.children[0].Write(ctx, frame)
	}
	var g errgroup.Group
	for _, s := range c.children {
		s := s
		g.Go(func() error { return s.Write(ctx, frame) })
	}
	return g.Wait()
}

// Add appends a child.
func (c *Composite) Add(s Sink) error {
	if _, ok := s.(*Composite); ok {
		return fmt.Errorf("%w: composite inside composite", ErrInvalidNesting)
	}
	c.children = append(c.children, s)
	return nil
}

// Remove detaches every child for which match returns true and hands them
// back unclosed.
func (c *Composite) Remove(match func(Sink) bool) []Sink {
	var removed []Sink
	kept := c.children[:0]
	for _, s := range c.children {
		if match(s) {
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(c.children); i++ {
		c.children[i] = nil
	}
	c.children = kept
	return removed
}

func (c *Composite) Children() []Sink { return c.children }

// Close closes every child and returns the first failure.
func (c *Composite) Close() error {
	var first error
	for _, s := range c.children {
		if err := s.Close(); err != nil && first == nil {
			first = fmt.Errorf("close %s: %w", s, err)
		}
	}
	return first
}

func (c *Composite) String() string {
	names := make([]string, len(c.children))
	for i, s := range c.children {
		names[i] = s.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}
