package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountLookup resolves a child id while folding a composite tree.
type AccountLookup func(ctx context.Context, id string) (Account, error)

// AggregateBalance folds the balances of every leaf under root. A leaf
// returns its own balance. Cycles are reported as invalid input instead of
// recursing forever.
func AggregateBalance(ctx context.Context, root Account, lookup AccountLookup) (decimal.Decimal, error) {
	return aggregate(ctx, root, lookup, map[string]struct{}{})
}

func aggregate(ctx context.Context, node Account, lookup AccountLookup, path map[string]struct{}) (decimal.Decimal, error) {
	if !node.IsComposite() {
		return node.Balance, nil
	}
	if _, seen := path[node.ID]; seen {
		return decimal.Zero, NewError(CodeInvalidInput, "account hierarchy contains a cycle at %s", node.ID)
	}
	path[node.ID] = struct{}{}
	defer delete(path, node.ID)

	total := decimal.Zero
	for _, childID := range node.Children {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, err
		}
		child, err := lookup(ctx, childID)
		if err != nil {
			return decimal.Zero, err
		}
		sum, err := aggregate(ctx, child, lookup, path)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(sum)
	}
	return total, nil
}

// WouldCycle reports whether attaching childID under parentID would make
// parentID reachable from itself.
func WouldCycle(ctx context.Context, parentID string, childID string, lookup AccountLookup) (bool, error) {
	if parentID == childID {
		return true, nil
	}
	stack := []string{childID}
	visited := map[string]struct{}{}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == parentID {
			return true, nil
		}
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}

		node, err := lookup(ctx, id)
		if err != nil {
			return false, err
		}
		stack = append(stack, node.Children...)
	}
	return false, nil
}
