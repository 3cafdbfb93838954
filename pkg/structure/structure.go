// Package structure describes HL7 v2 abstract message structures and checks
// a segment sequence against them.
package structure

import (
	"fmt"
	"strings"

	"github.com/gofhir/hl7v2/pkg/issue"
)

// Policy decides how out-of-order segments are reported.
type Policy int

// Ordering policies.
const (
	// Strict reports out-of-order segments as errors.
	Strict Policy = iota
	// Advisory reports out-of-order segments as warnings.
	Advisory
)

func (p Policy) String() string {
	if p == Advisory {
		return "advisory"
	}
	return "strict"
}

// ParsePolicy parses "strict" or "advisory".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "advisory":
		return Advisory, nil
	default:
		return Strict, fmt.Errorf("unknown ordering policy %q", s)
	}
}

// Node is one element of a structure: a segment when ID is set, otherwise a
// named group of child nodes.
type Node struct {
	ID       string
	Name     string
	Required bool
	Repeat   bool
	Children []Node
}

// Seg returns an optional, non-repeating segment node.
func Seg(id string) Node { return Node{ID: id} }

// Group returns an optional, non-repeating group node.
func Group(name string, children ...Node) Node {
	return Node{Name: name, Children: children}
}

// Req marks a node required.
func Req(n Node) Node {
	n.Required = true
	return n
}

// Many marks a node repeating.
func Many(n Node) Node {
	n.Repeat = true
	return n
}

// first returns the id of the first segment a node can start with.
func (n *Node) first() string {
	if n.ID != "" {
		return n.ID
	}
	for i := range n.Children {
		if n.Children[i].Required {
			return n.Children[i].first()
		}
	}
	if len(n.Children) > 0 {
		return n.Children[0].first()
	}
	return ""
}

func (n *Node) collect(set map[string]bool) {
	if n.ID != "" {
		set[n.ID] = true
		return
	}
	for i := range n.Children {
		n.Children[i].collect(set)
	}
}

// Structure is an abstract message structure such as ADT_A01.
type Structure struct {
	ID     string
	Policy Policy
	Nodes  []Node
	ids    map[string]bool
}

// New builds a structure. The node tree must not be modified afterwards.
func New(id string, policy Policy, nodes ...Node) *Structure {
	s := &Structure{ID: id, Policy: policy, Nodes: nodes, ids: make(map[string]bool)}
	for i := range nodes {
		nodes[i].collect(s.ids)
	}
	return s
}

// WithPolicy returns a copy of s using policy p.
func (s *Structure) WithPolicy(p Policy) *Structure {
	c := *s
	c.Policy = p
	return &c
}

// Contains reports whether id appears anywhere in the structure.
func (s *Structure) Contains(id string) bool { return s.ids[id] }

// Skeleton returns the ids of the required top-level segments and the
// anchors of required top-level groups, in order.
func (s *Structure) Skeleton() []string {
	var out []string
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for i := range nodes {
			n := &nodes[i]
			if !n.Required {
				continue
			}
			if n.ID != "" {
				out = append(out, n.ID)
				continue
			}
			walk(n.Children)
		}
	}
	walk(s.Nodes)
	return out
}

// Labels returns the address label of each segment: the id for the first
// occurrence and "ID(n)" for later ones.
func Labels(ids []string) []string {
	seen := make(map[string]int, len(ids))
	out := make([]string, len(ids))
	for i, id := range ids {
		seen[id]++
		if seen[id] == 1 {
			out[i] = id
		} else {
			out[i] = fmt.Sprintf("%s(%d)", id, seen[id])
		}
	}
	return out
}

// Check matches a segment id sequence against the structure. Segments are
// consumed greedily; required nodes that cannot be matched are reported
// missing, segments that cannot be placed are reported out of order under
// the structure's policy, and segments foreign to the structure are reported
// as unexpected (information for Z segments).
func (s *Structure) Check(ids []string) []issue.Issue {
	c := &checker{s: s, labels: Labels(ids), seen: make(map[string]bool)}
	for i, id := range ids {
		if s.Contains(id) {
			c.ids = append(c.ids, id)
			c.at = append(c.at, i)
			continue
		}
		iss := issue.New(issue.DiagMessageUnexpected, map[string]any{"id": id, "structure": s.ID}, c.labels[i])
		if strings.HasPrefix(id, "Z") {
			iss.Severity = issue.SeverityInformation
		}
		c.out = append(c.out, iss)
	}

	pos := 0
	for i := 0; i < len(s.Nodes); {
		n := &s.Nodes[i]
		if p, ok := c.node(n, pos); ok {
			pos = p
			i++
			continue
		}
		if !n.Required || pos >= len(c.ids) || containsAny(s.Nodes[i+1:], c.ids[pos]) {
			if n.Required {
				c.missing(n)
			}
			i++
			continue
		}
		c.misplaced(pos)
		pos++
	}
	for ; pos < len(c.ids); pos++ {
		c.misplaced(pos)
	}
	return c.result()
}

func containsAny(nodes []Node, id string) bool {
	set := make(map[string]bool)
	for i := range nodes {
		nodes[i].collect(set)
	}
	return set[id]
}

type missingEntry struct {
	id    string
	index int
}

type checker struct {
	s      *Structure
	ids    []string
	at     []int
	labels []string
	seen   map[string]bool
	out    []issue.Issue
	absent []missingEntry
	placed map[string]bool
}

// node consumes n at pos and reports whether anything was consumed.
func (c *checker) node(n *Node, pos int) (int, bool) {
	if n.ID != "" {
		count := 0
		for pos < len(c.ids) && c.ids[pos] == n.ID {
			if count > 0 && !n.Repeat {
				c.out = append(c.out, issue.New(issue.DiagMessageSegmentRepeated,
					map[string]any{"id": n.ID, "structure": c.s.ID}, c.labels[c.at[pos]]))
			}
			c.seen[n.ID] = true
			count++
			pos++
		}
		return pos, count > 0
	}
	consumed := false
	for {
		p, ok := c.group(n, pos)
		if !ok {
			break
		}
		consumed = true
		pos = p
		if !n.Repeat {
			break
		}
	}
	return pos, consumed
}

// group matches one occurrence of a group. Issues raised inside a group that
// consumed nothing are discarded.
func (c *checker) group(n *Node, pos int) (int, bool) {
	start, mark, absent := pos, len(c.out), len(c.absent)
	for i := range n.Children {
		ch := &n.Children[i]
		if p, ok := c.node(ch, pos); ok {
			pos = p
			continue
		}
		if ch.Required {
			c.missing(ch)
		}
	}
	if pos == start {
		c.out = c.out[:mark]
		c.absent = c.absent[:absent]
		return start, false
	}
	return pos, true
}

func (c *checker) missing(n *Node) {
	id := n.first()
	c.absent = append(c.absent, missingEntry{id: id, index: len(c.out)})
	c.out = append(c.out, issue.New(issue.DiagMessageSegmentMissing, map[string]any{"id": id, "structure": c.s.ID}))
}

func (c *checker) misplaced(pos int) {
	id := c.ids[pos]
	addr := c.labels[c.at[pos]]
	if c.placed == nil {
		c.placed = make(map[string]bool)
	}
	c.placed[id] = true
	if c.seen[id] && !c.s.Repeats(id) {
		c.out = append(c.out, issue.New(issue.DiagMessageSegmentRepeated, map[string]any{"id": id, "structure": c.s.ID}, addr))
		return
	}
	iss := issue.New(issue.DiagMessageSegmentOrder, map[string]any{"id": id, "structure": c.s.ID}, addr)
	if c.s.Policy == Advisory {
		iss.Severity = issue.SeverityWarning
	}
	c.out = append(c.out, iss)
}

// Repeats reports whether id may occur more than once: it repeats itself or
// sits inside a repeating group.
func (s *Structure) Repeats(id string) bool {
	var walk func(nodes []Node, inRepeat bool) bool
	walk = func(nodes []Node, inRepeat bool) bool {
		for i := range nodes {
			n := &nodes[i]
			if n.ID == id && (n.Repeat || inRepeat) {
				return true
			}
			if n.ID == "" && walk(n.Children, inRepeat || n.Repeat) {
				return true
			}
		}
		return false
	}
	return walk(s.Nodes, false)
}

// result drops "missing" issues for segments that were present but misplaced.
func (c *checker) result() []issue.Issue {
	if len(c.placed) == 0 {
		return c.out
	}
	drop := make(map[int]bool)
	for _, m := range c.absent {
		if c.placed[m.id] {
			drop[m.index] = true
		}
	}
	out := c.out[:0:0]
	for i, iss := range c.out {
		if !drop[i] {
			out = append(out, iss)
		}
	}
	return out
}
