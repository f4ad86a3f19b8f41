package aliasing

import "fmt"

// SemanticError reports a problem with a compiled alias spec that
// only shows up once the whole expression and calc list are known --
// as opposed to a plain syntax error, which the config parser catches
// line by line.
type SemanticError struct {
	Reason     string
	LineNumber int
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("line %d: %s", e.LineNumber, e.Reason)
}
