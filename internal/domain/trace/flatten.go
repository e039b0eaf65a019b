package trace

import (
	"fmt"
	"strconv"

	m "github.com/mouse-blink/pbox/internal/model"
)

// loopStack tracks the iteration counter of every active loop level.
type loopStack struct {
	iters []int
	ids   []string
}

func (s *loopStack) empty() bool {
	return len(s.iters) == 0
}

func (s *loopStack) push(id string) {
	s.ids = append(s.ids, id)
	s.iters = append(s.iters, 0)
}

func (s *loopStack) pop() {
	s.ids = s.ids[:len(s.ids)-1]
	s.iters = s.iters[:len(s.iters)-1]
}

func (s *loopStack) increment() {
	if !s.empty() {
		s.iters[len(s.iters)-1]++
	}
}

func (s *loopStack) counters() string {
	parts := make([]string, len(s.iters))
	for i, n := range s.iters {
		parts[i] = strconv.Itoa(n)
	}

	return m.JoinPath(parts)
}

// bringTo emits fillers until the innermost counter reaches count.
func (s *loopStack) bringTo(out []m.Env, count int) []m.Env {
	if s.empty() {
		return out
	}

	top := len(s.iters) - 1
	for s.iters[top] < count {
		out = append(out, m.Env{
			Kind:   m.EnvFiller,
			Iter:   s.counters(),
			LoopID: s.ids[top],
		})
		s.iters[top]++
	}

	return out
}

// Flatten replaces loop begin/end markers with one environment per loop
// iteration, inserting fillers for iterations where the line did not run.
// A sequence without markers is returned as is.
func Flatten(envs []m.Env) ([]m.Env, error) {
	var stack loopStack

	out := make([]m.Env, 0, len(envs))

	for i, env := range envs {
		switch env.Kind {
		case m.EnvBeginLoop:
			if !stack.empty() {
				if n, ok := component(env.MarkerPath(), 2); ok {
					out = stack.bringTo(out, n)
				}
			}

			stack.push(env.LoopID)
		case m.EnvEndLoop:
			if stack.empty() {
				return nil, fmt.Errorf("environment %d: %w", i, ErrUnbalancedLoop)
			}

			if n, ok := component(env.MarkerPath(), 1); ok {
				out = stack.bringTo(out, n)
			}

			stack.pop()
			stack.increment()
		default:
			n, _ := component(env.IterPath(), 1)
			out = stack.bringTo(out, n)
			out = append(out, env)
			stack.increment()
		}
	}

	return out, nil
}

// component parses the path element fromEnd positions from the end. An
// empty path reads as zero.
func component(path []string, fromEnd int) (int, bool) {
	if len(path) == 0 {
		return 0, fromEnd == 1
	}

	if len(path) < fromEnd {
		return 0, false
	}

	n, err := strconv.Atoi(path[len(path)-fromEnd])
	if err != nil {
		return 0, false
	}

	return n, true
}
