package reminisce

import (
	"encoding/json"
	"hash/fnv"
	"strconv"
	"strings"
)

// EdgeInvolves is the single edge type of the memory graph.
const EdgeInvolves = "involves"

// Node is one vertex of the memory graph: an activity, a person, or a
// memory, carrying its originating record as an attribute bag.
type Node struct {
	ID    string
	Type  NodeType
	Attrs map[string]any

	// searchText is the node's record serialized as lowercase JSON,
	// precomputed once so the substring scorer never re-marshals.
	searchText string
}

// SearchText returns the node's serialized content used for keyword matching.
func (n *Node) SearchText() string { return n.searchText }

// Edge is a directed, typed connection. The same endpoint pair may be
// connected once per co-occurrence in the records.
type Edge struct {
	From string
	To   string
	Type string
}

// MemoryGraph is the heterogeneous directed multigraph built once per
// agent from the patient records. It is never mutated after Build and is
// safe for concurrent reads.
type MemoryGraph struct {
	nodes map[string]*Node
	order []string
	edges []Edge
}

func newMemoryGraph() *MemoryGraph {
	return &MemoryGraph{nodes: make(map[string]*Node)}
}

// addNode inserts a node if absent and returns it. The first occurrence
// of an id wins; later co-occurrences only add edges.
func (g *MemoryGraph) addNode(id string, typ NodeType, record any) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	attrs, text := attrBag(record)
	n := &Node{ID: id, Type: typ, Attrs: attrs, searchText: text}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// addEdge connects two existing nodes. Edges to absent endpoints are
// silently dropped, which keeps the no-orphan-edge invariant by
// construction.
func (g *MemoryGraph) addEdge(from, to string) bool {
	if _, ok := g.nodes[from]; !ok {
		return false
	}
	if _, ok := g.nodes[to]; !ok {
		return false
	}
	g.edges = append(g.edges, Edge{From: from, To: to, Type: EdgeInvolves})
	return true
}

// Node looks up a node by id.
func (g *MemoryGraph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order. Deterministic for identical
// input records.
func (g *MemoryGraph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns the edge multiset in insertion order.
func (g *MemoryGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesFrom returns the outgoing edges of a node.
func (g *MemoryGraph) EdgesFrom(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// NodeCount reports the number of nodes.
func (g *MemoryGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount reports the number of edges.
func (g *MemoryGraph) EdgeCount() int { return len(g.edges) }

// BuildMemoryGraph transforms the three patient records into the memory
// graph. Every activity becomes an activity node plus person nodes and
// involves edges for its participants. Every interview memory becomes a
// memory node with involves edges to people that already exist as nodes;
// a person named only in a memory gets no node and no edge. The build is
// deterministic for identical records.
func BuildMemoryGraph(rec *PatientRecords) *MemoryGraph {
	g := newMemoryGraph()

	for i := range rec.Routine.Activities {
		a := &rec.Routine.Activities[i]
		activityID := "activity_" + a.Label
		g.addNode(activityID, NodeActivity, a)

		for _, p := range a.Participants {
			personID := "person_" + p.Name
			g.addNode(personID, NodePerson, p)
			g.addEdge(activityID, personID)
		}
	}

	for _, iv := range rec.Story.Interviews {
		for i := range iv.Memories {
			m := &iv.Memories[i]
			memoryID := "memory_" + memoryKey(m)
			g.addNode(memoryID, NodeMemory, m)

			for _, name := range m.People {
				// No forward creation: the edge is skipped unless the
				// person already surfaced through the routine.
				g.addEdge(memoryID, "person_"+name)
			}
		}
	}

	return g
}

// memoryKey derives the stable identifier part of a memory node id: the
// record's explicit id when present, otherwise FNV-1a of the description
// text. FNV-1a is platform-independent, so the fallback is identical
// across runs and machines.
func memoryKey(m *Memory) string {
	if m.ID != "" {
		return string(m.ID)
	}
	h := fnv.New64a()
	h.Write([]byte(m.Description))
	return strconv.FormatUint(h.Sum64(), 10)
}

// attrBag serializes a record into a generic attribute map plus the
// lowercase JSON text used for substring matching. Struct field order
// makes the text deterministic.
func attrBag(record any) (map[string]any, string) {
	data, err := json.Marshal(record)
	if err != nil {
		return map[string]any{}, ""
	}
	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		attrs = map[string]any{}
	}
	return attrs, strings.ToLower(string(data))
}
