package actions

import "context"

// Answer is the pass-through action: it returns its argument unchanged. It
// doubles as the dispatch fallback for unrecognized action names.
type Answer struct{}

func (Answer) Name() string { return NameAnswer }

func (Answer) Description() string {
	return "Answer directly when no tool is necessary. The argument is the answer itself."
}

func (Answer) Run(_ context.Context, argument string) (string, error) {
	return argument, nil
}
