package pipeline

import "time"

// Result holds the evaluated screen for a range of sessions
type Result struct {
	Screen   Filter
	Sessions []time.Time
	Entities []string

	offset   int // lookback sessions preceding Sessions[0]
	width    int
	nodes    map[string][]bool
	root     *explainNode
	sessions map[string]int // session key -> index into Sessions
	entities map[string]int // code -> column
}

// explainNode mirrors the screen tree with each node's memo key computed once
type explainNode struct {
	key      string
	kind     Kind
	operands []*explainNode
	mask     *explainNode
}

func newExplainNode(f Filter) *explainNode {
	n := &explainNode{key: f.String(), kind: f.Kind}
	for _, op := range f.Operands {
		n.operands = append(n.operands, newExplainNode(op))
	}
	if f.Mask != nil {
		n.mask = newExplainNode(*f.Mask)
	}
	return n
}

func newResult(screen Filter, frame *Frame, offset int, nodes map[string][]bool) *Result {
	r := &Result{
		Screen:   screen,
		Sessions: frame.sessions[offset:],
		Entities: frame.entities,
		offset:   offset,
		width:    len(frame.entities),
		nodes:    nodes,
		root:     newExplainNode(screen),
		sessions: make(map[string]int, len(frame.sessions)-offset),
		entities: make(map[string]int, len(frame.entities)),
	}
	for i, s := range r.Sessions {
		r.sessions[SessionKey(s)] = i
	}
	for i, code := range r.Entities {
		r.entities[code] = i
	}
	return r
}

func (r *Result) cell(session time.Time, entity string) (int, bool) {
	s, ok := r.sessions[SessionKey(session)]
	if !ok {
		return 0, false
	}
	e, ok := r.entities[entity]
	if !ok {
		return 0, false
	}
	return (r.offset+s)*r.width + e, true
}

// Passes reports whether entity passes the screen on session
// Unknown sessions or entities never pass.
func (r *Result) Passes(session time.Time, entity string) bool {
	i, ok := r.cell(session, entity)
	if !ok {
		return false
	}
	return r.nodes[r.root.key][i]
}

// Selected returns the entities passing the screen on session, sorted by code
func (r *Result) Selected(session time.Time) []string {
	selected := make([]string, 0)

	s, ok := r.sessions[SessionKey(session)]
	if !ok {
		return selected
	}
	vals := r.nodes[r.root.key]
	base := (r.offset + s) * r.width
	for e, code := range r.Entities {
		if vals[base+e] {
			selected = append(selected, code)
		}
	}
	return selected
}

// Count returns the number of entities passing on session
func (r *Result) Count(session time.Time) int {
	return len(r.Selected(session))
}

// Explain returns the first failing conjunct for entity on session, or ""
// when the entity passes
func (r *Result) Explain(session time.Time, entity string) string {
	i, ok := r.cell(session, entity)
	if !ok {
		return "not in frame"
	}
	return r.explain(r.root, i)
}

func (r *Result) explain(n *explainNode, i int) string {
	vals, ok := r.nodes[n.key]
	if ok && vals[i] {
		return ""
	}

	switch n.kind {
	case KindAnd:
		for _, op := range n.operands {
			if reason := r.explain(op, i); reason != "" {
				return reason
			}
		}
	case KindAll:
		// 마스크에서 걸러진 종목은 마스크 사유를 우선
		if n.mask != nil {
			if reason := r.explain(n.mask, i); reason != "" {
				return reason
			}
		}
	}
	return n.key
}
