// Package tree provides rooted phylogenetic trees with Newick I/O.
package tree

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// parserMode is a state of the Newick parser.
type parserMode int

const (
	// normal identifies label tokens.
	normal parserMode = iota
	// length identifies a branch length token (after ':').
	length
)

// Tree is a rooted phylogenetic tree. It embeds the root node and
// caches node arrays and the post-order traversal.
type Tree struct {
	*Node
	nNodes    int
	nodes     []*Node
	nodeOrder []*Node
}

// ClearCache clears all the cached values (e.g. after a manual
// modification of the topology).
func (tree *Tree) ClearCache() {
	tree.nNodes = 0
	tree.nodes = nil
	tree.nodeOrder = nil
}

// NNodes returns the total number of nodes.
func (tree *Tree) NNodes() int {
	if tree.nNodes == 0 {
		tree.nNodes = tree.NSubNodes()
	}
	return tree.nNodes
}

// Nodes returns a slice of all the nodes, indexed by node ID.
func (tree *Tree) Nodes() []*Node {
	if tree.nodes == nil {
		tree.nodes = make([]*Node, tree.NNodes())
		for node := range tree.Walker(nil) {
			tree.nodes[node.ID] = node
		}
	}
	return tree.nodes
}

// Terminals returns a channel with all the leaf nodes.
func (tree *Tree) Terminals() <-chan *Node {
	return tree.Walker(func(node *Node) bool {
		return node.IsTerminal()
	})
}

// NonTerminals returns a channel with all the internal nodes.
func (tree *Tree) NonTerminals() <-chan *Node {
	return tree.Walker(func(node *Node) bool {
		return !node.IsTerminal()
	})
}

// NLeaves returns the number of leaves.
func (tree *Tree) NLeaves() (i int) {
	for range tree.Terminals() {
		i++
	}
	return
}

// Walker returns a channel with all the nodes matching the filter.
func (tree *Tree) Walker(filter func(*Node) bool) <-chan *Node {
	ch := make(chan *Node, tree.NNodes())
	tree.Walk(ch, filter)
	close(ch)
	return ch
}

// NodeOrder returns internal nodes in post-order, i.e. every node
// comes after all of its children; the root comes last.
func (tree *Tree) NodeOrder() []*Node {
	if tree.nodeOrder == nil {
		tree.nodeOrder = make([]*Node, 0, tree.NNodes())
		computed := make(map[*Node]bool, tree.NNodes())
		awaiting := make(chan *Node, tree.NNodes()*2)
		for node := range tree.Terminals() {
			computed[node] = true
			awaiting <- node.Parent
		}

		for node := range awaiting {
			if node == nil {
				break
			}
			if computed[node] {
				continue
			}
			allComputed := true
			for _, childNode := range node.ChildNodes() {
				if !computed[childNode] {
					allComputed = false
					break
				}
			}
			if !allComputed {
				awaiting <- node
			} else {
				tree.nodeOrder = append(tree.nodeOrder, node)
				computed[node] = true
				awaiting <- node.Parent
			}
		}
	}
	return tree.nodeOrder
}

// Copy creates an independent copy of the tree.
func (tree *Tree) Copy() (newTree *Tree) {
	nNodes := tree.NNodes()
	newTree = &Tree{
		nNodes:    nNodes,
		nodes:     make([]*Node, nNodes),
		nodeOrder: make([]*Node, len(tree.NodeOrder())),
	}

	for i, node := range tree.Nodes() {
		if i != node.ID {
			panic("node id mismatch")
		}
		newTree.nodes[i] = node.Copy()
	}

	// Rewire node/parent connections.
	for i, node := range tree.Nodes() {
		newNode := newTree.nodes[i]
		for _, child := range node.ChildNodes() {
			newNode.AddChild(newTree.nodes[child.ID])
		}
	}

	for i, node := range tree.NodeOrder() {
		newTree.nodeOrder[i] = newTree.nodes[node.ID]
	}

	newTree.Node = newTree.nodes[0]

	return
}

// LeafNames returns leaf labels, ordered by leaf ID.
func (tree *Tree) LeafNames() []string {
	names := make([]string, tree.NLeaves())
	for node := range tree.Terminals() {
		names[node.LeafID] = node.Name
	}
	return names
}

// Validate checks the tree invariants: unique non-empty leaf labels
// and finite non-negative branch lengths.
func (tree *Tree) Validate() error {
	seen := make(map[string]bool, tree.NLeaves())
	for node := range tree.Walker(nil) {
		if node.IsTerminal() {
			if node.Name == "" {
				return fmt.Errorf("leaf #%d has no label", node.ID)
			}
			if seen[node.Name] {
				return fmt.Errorf("duplicate leaf label <%s>", node.Name)
			}
			seen[node.Name] = true
		}
		if node.IsRoot() {
			continue
		}
		if node.BranchLength < 0 {
			return fmt.Errorf("negative branch length at node #%d (%v)",
				node.ID, node.BranchLength)
		}
		if math.IsInf(node.BranchLength, 0) || math.IsNaN(node.BranchLength) {
			return fmt.Errorf("non-finite branch length at node #%d", node.ID)
		}
	}
	return nil
}

// Node is a node of a phylogenetic tree.
type Node struct {
	// Name is a leaf label or an internal node label.
	Name string
	// BranchLength is the length of the branch leading to the node.
	BranchLength float64
	// Support is a support value parsed from an internal node label.
	Support float64
	// HasSupport is true if a support value is present.
	HasSupport bool
	// Parent is the parent node (nil for the root).
	Parent *Node
	// ID is a unique node identifier, root has ID=0.
	ID int
	// LeafID is a unique leaf identifier (leaves only).
	LeafID int

	childNodes []*Node
}

// NewNode creates a new node.
func NewNode(parent *Node, nodeID int) *Node {
	return &Node{Parent: parent, ID: nodeID}
}

// Copy creates a copy of the node with no parent and no children.
func (node *Node) Copy() *Node {
	return &Node{
		Name:         node.Name,
		BranchLength: node.BranchLength,
		Support:      node.Support,
		HasSupport:   node.HasSupport,
		childNodes:   make([]*Node, 0, len(node.childNodes)),
		ID:           node.ID,
		LeafID:       node.LeafID,
	}
}

// AddChild adds a child node.
func (node *Node) AddChild(subNode *Node) {
	subNode.Parent = node
	node.childNodes = append(node.childNodes, subNode)
}

// ChildNodes returns the child nodes.
func (node *Node) ChildNodes() []*Node {
	return node.childNodes
}

// Walk sends the node and all its descendants (pre-order) to the
// channel; filter can be nil.
func (node *Node) Walk(ch chan *Node, filter func(*Node) bool) {
	if filter == nil || filter(node) {
		ch <- node
	}
	for _, child := range node.childNodes {
		child.Walk(ch, filter)
	}
}

// NSubNodes returns the number of nodes in the subtree, including the
// node itself.
func (node *Node) NSubNodes() (size int) {
	for _, child := range node.childNodes {
		size += child.NSubNodes()
	}
	return size + 1
}

// IsRoot returns true if the node has no parent.
func (node *Node) IsRoot() bool {
	return node.Parent == nil
}

// IsTerminal returns true if the node has no children.
func (node *Node) IsTerminal() bool {
	return len(node.childNodes) == 0
}

// String returns the subtree in Newick notation (';' appended for the
// root).
func (node *Node) String() (s string) {
	if node.IsTerminal() {
		return fmt.Sprintf("%s:%0.6f", node.Name, node.BranchLength)
	}
	s += "("
	for i, child := range node.childNodes {
		s += child.String()
		if i != len(node.childNodes)-1 {
			s += ","
		}
	}
	s += fmt.Sprintf("):%0.6f", node.BranchLength)
	if node.IsRoot() {
		s += ";"
	}
	return s
}

// IDString returns the subtree in Newick-like notation with node IDs
// instead of branch lengths.
func (node *Node) IDString() (s string) {
	if node.IsTerminal() {
		return fmt.Sprintf("%s#%d", node.Name, node.ID)
	}
	s += "("
	for i, child := range node.childNodes {
		s += child.IDString()
		if i != len(node.childNodes)-1 {
			s += ","
		}
	}
	s += fmt.Sprintf(")#%d", node.ID)
	if node.IsRoot() {
		s += ";"
	}
	return s
}

// LongString returns a detailed one-line description of the node.
func (node *Node) LongString() (s string) {
	s = "<"
	if node.Parent == nil {
		s += "root, "
	}
	if node.Name != "" {
		s += "name=" + node.Name + ", "
	}
	s += fmt.Sprintf("ID=%v, BranchLength=%v", node.ID, node.BranchLength)
	if node.IsTerminal() {
		s += fmt.Sprintf(", LeafID=%v", node.LeafID)
	}
	if node.HasSupport {
		s += fmt.Sprintf(", Support=%v", node.Support)
	}
	s += ">"
	return
}

// FullString returns an indented multiline representation of the
// subtree.
func (node *Node) FullString() string {
	return strings.TrimSpace(node.prefixString(""))
}

func (node *Node) prefixString(prefix string) (s string) {
	s = prefix + node.LongString() + "\n"
	for _, child := range node.childNodes {
		s += child.prefixString(prefix + "    ")
	}
	return
}

// isSpecial returns true for Newick delimiter characters.
func isSpecial(c rune) bool {
	switch c {
	case '(', ')', ':', ';', ',':
		return true
	}
	return false
}

// newickSplit is a bufio.SplitFunc returning Newick delimiters as
// one-character tokens and everything else as words.
func newickSplit(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	// Skip leading spaces; and return 1-char tokens.
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if isSpecial(r) {
			return start + width, data[start : start+width], nil
		}
		if !unicode.IsSpace(r) {
			break
		}
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// Scan until space or special character.
	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if unicode.IsSpace(r) || isSpecial(r) {
			return i, data[start:i], nil
		}
	}
	// If we're at EOF, we have a final, non-empty, non-terminated word. Return it.
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	// Request more data.
	return 0, nil, nil
}

// ParseNewick parses a tree in Newick format. Labels after a closing
// bracket belong to the internal node; a numeric internal label is
// stored as a support value.
func ParseNewick(rd io.Reader) (tree *Tree, err error) {
	scanner := bufio.NewScanner(rd)

	scanner.Split(newickSplit)

	nodeID := 0
	leafID := 0

	node := NewNode(nil, nodeID)
	tree = &Tree{Node: node}
	nodeID++

	mode := normal

	for scanner.Scan() {
		text := scanner.Text()
		switch text {
		case "(":
			subNode := NewNode(nil, nodeID)
			nodeID++
			node.AddChild(subNode)
			node = subNode

		case ",":
			if node.Parent == nil {
				return nil, errors.New("top level comma mismatch")
			}
			subNode := NewNode(nil, nodeID)
			nodeID++

			node.Parent.AddChild(subNode)
			node = subNode

		case ")":
			if node.Parent == nil {
				return nil, errors.New("brackets mismatch")
			}
			node = node.Parent
		case ":":
			mode = length
		case ";":
			if err = tree.Validate(); err != nil {
				return nil, err
			}
			return tree, nil
		default:
			switch mode {
			case length:
				l, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, err
				}
				node.BranchLength = l
				mode = normal
			default:
				node.Name = text
				if node.IsTerminal() {
					node.LeafID = leafID
					leafID++
				} else if s, err := strconv.ParseFloat(text, 64); err == nil {
					node.Support = s
					node.HasSupport = true
				}
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}

	if err = tree.Validate(); err != nil {
		return nil, err
	}
	return tree, nil
}
