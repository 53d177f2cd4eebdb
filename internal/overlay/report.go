package overlay

import "fmt"

func formatReport(queries, misses, errors int) string {
	return fmt.Sprintf("queries=%d misses=%d errs=%d", queries, misses, errors)
}
