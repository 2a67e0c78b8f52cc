package common

import "fmt"

// Connection is a candidate duplicate pair: the positions I and J of two
// concepts in one concept list. Discovered connections have I < J,
// externally supplied ones may come in any order.
type Connection struct {
	I int
	J int
}

func (c Connection) String() string {
	return fmt.Sprintf("%d,%d", c.I, c.J)
}

// Check verifies that both indices address a list of n concepts.
func (c Connection) Check(n int) error {
	if c.I < 0 || c.I >= n || c.J < 0 || c.J >= n {
		return fmt.Errorf("%w: %s with %d concepts", ErrConnectionOutOfRange, c, n)
	}
	return nil
}

// CheckConnections verifies every connection before any is used. The error
// names the position of the first bad connection.
func CheckConnections(cnxs []Connection, n int) error {
	for k, c := range cnxs {
		if err := c.Check(n); err != nil {
			return fmt.Errorf("connection %d: %w", k, err)
		}
	}
	return nil
}
