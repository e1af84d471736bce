package markov

const (
	// StartToken is the reserved empty token that roots every sequence.
	StartToken = ""
	// EndMarker is the reserved token that marks the end of a sequence.
	EndMarker = "."
)

// Node is a single entry of the frequency trie. Weight counts how many times
// training traversed the path ending at this node, and Terminal counts how
// many sequences ended directly after it.
type Node struct {
	Weight   int
	Terminal int
	Children map[string]*Node
}

// newNode returns an empty node with weight 0.
func newNode() *Node {
	return &Node{Children: make(map[string]*Node)}
}

// Child returns the child for token, or nil if it does not exist.
func (n *Node) Child(token string) *Node {
	if n == nil {
		return nil
	}
	return n.Children[token]
}

// Increment adds one to the node's weight.
func (n *Node) Increment() {
	n.Weight++
}

// lookup walks path from n without creating anything. It returns nil as soon
// as a level is missing.
func (n *Node) lookup(path ...string) *Node {
	cur := n
	for _, token := range path {
		cur = cur.Child(token)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// ensure walks path from n, creating missing nodes with weight 0, and returns
// the node at the end of it.
func (n *Node) ensure(path ...string) *Node {
	cur := n
	for _, token := range path {
		next, ok := cur.Children[token]
		if !ok {
			next = newNode()
			cur.Children[token] = next
		}
		cur = next
	}
	return cur
}

// walk visits every node below n depth first. path is reused between calls,
// so fn must copy it if it needs to keep it.
func (n *Node) walk(path []string, fn func(path []string, node *Node)) {
	for token, child := range n.Children {
		p := append(path, token)
		fn(p, child)
		child.walk(p, fn)
	}
}
