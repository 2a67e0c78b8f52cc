package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/OFFIS-RIT/idisk/backend/pkg/graph"
)

// ErrGraphNotEmpty is returned when a schema is applied to a populated
// graph.
var ErrGraphNotEmpty = errors.New("neo4j: graph is not empty")

var _ graph.Schema = (*Client)(nil)

// NodeProperties returns the property names of the first node labelled
// with the uppercased label. ok is false when no such node exists.
func (c *Client) NodeProperties(ctx context.Context, label string) (map[string]struct{}, bool, error) {
	query := fmt.Sprintf("MATCH (n:%s) RETURN keys(n) AS props LIMIT 1", quote(strings.ToUpper(label)))
	return c.firstKeys(ctx, query)
}

// RelationshipProperties returns the property names of the first
// relationship of the uppercased type name.
func (c *Client) RelationshipProperties(ctx context.Context, name string) (map[string]struct{}, bool, error) {
	query := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN keys(r) AS props LIMIT 1", quote(strings.ToUpper(name)))
	return c.firstKeys(ctx, query)
}

func (c *Client) firstKeys(ctx context.Context, query string) (map[string]struct{}, bool, error) {
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		raw, _ := records[0].Get("props")
		return raw, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to query schema: %w", err)
	}
	if out == nil {
		return nil, false, nil
	}
	return keySet(out), true, nil
}

func keySet(raw any) map[string]struct{} {
	props := make(map[string]struct{})
	list, _ := raw.([]any)
	for _, v := range list {
		if s, ok := v.(string); ok {
			props[s] = struct{}{}
		}
	}
	return props
}

// ApplySchema runs the statements of a Cypher schema file, separated by
// semicolons, against an empty graph.
func (c *Client) ApplySchema(ctx context.Context, cypher string) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, "MATCH (n) RETURN count(n) AS n", nil)
	if err != nil {
		return fmt.Errorf("failed to count nodes: %w", err)
	}
	record, err := res.Single(ctx)
	if err != nil {
		return fmt.Errorf("failed to count nodes: %w", err)
	}
	if n, _ := record.Get("n"); n != int64(0) {
		return ErrGraphNotEmpty
	}

	for _, stmt := range splitStatements(cypher) {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func splitStatements(cypher string) []string {
	var out []string
	for _, part := range strings.Split(cypher, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
