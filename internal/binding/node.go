package binding

// Node is one position in the binding tree. A node with children is a
// branch; a node without children is a leaf carrying an optional action.
// Attaching an action to a branch is discouraged but tolerated: the action is
// ignored while the branch has children to descend into.
//
// Trees are immutable once built. Configuration reload builds a fresh tree
// and swaps it in whole; nothing mutates a published node.
type Node struct {
	Action   *Action
	Children map[string]*Node
}

// NewBranch returns a branch node with the given children.
func NewBranch(children map[string]*Node) *Node {
	return &Node{Children: children}
}

// NewLeaf returns a leaf node carrying the given action.
func NewLeaf(action Action) *Node {
	return &Node{Action: &action}
}

// NewEmptyLeaf returns a leaf node with no action.
func NewEmptyLeaf() *Node {
	return &Node{}
}

// IsLeaf reports whether the node has no children. A branch configured with
// zero children is treated as a leaf before traversal, not as an unmatched
// branch.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Child looks up a direct child by canonical key token.
func (n *Node) Child(token string) (*Node, bool) {
	c, ok := n.Children[token]
	return c, ok
}

// WalkPath follows the given token path from n and returns the node it lands
// on. Returns nil if any step is missing. An empty path returns n itself.
func (n *Node) WalkPath(path []string) *Node {
	cur := n
	for _, tok := range path {
		next, ok := cur.Children[tok]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Len returns the number of leaves reachable from n, counting a leaf with or
// without an action as one. Used for reload logging.
func (n *Node) Len() int {
	if n.IsLeaf() {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += c.Len()
	}
	return total
}
