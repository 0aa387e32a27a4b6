package category

// A small Aho-Corasick automaton over lowercased UTF-8 bytes.
// Each node carries a fixed 256-way transition table to keep the hot loop free of map lookups

type acNode struct {
	trans  [256]int32 // next state or -1
	fail   int32
	output []int // category ids ending at this node
}

type automaton struct {
	nodes []acNode
}

func newAutomaton() *automaton {
	a := &automaton{nodes: make([]acNode, 0, 64)}
	a.addNode()
	return a
}

func (a *automaton) addNode() int32 {
	var n acNode
	for i := range n.trans {
		n.trans[i] = -1
	}
	a.nodes = append(a.nodes, n)
	return int32(len(a.nodes) - 1)
}

// add inserts pat and tags its end state with id; duplicate (pat, id) pairs are stored once
func (a *automaton) add(pat []byte, id int) {
	if len(pat) == 0 {
		return
	}
	var state int32
	for _, b := range pat {
		nxt := a.nodes[state].trans[b]
		if nxt == -1 {
			nxt = a.addNode()
			a.nodes[state].trans[b] = nxt
		}
		state = nxt
	}
	for _, have := range a.nodes[state].output {
		if have == id {
			return
		}
	}
	a.nodes[state].output = append(a.nodes[state].output, id)
}

// build computes failure links breadth-first and merges outputs along them
func (a *automaton) build() {
	q := make([]int32, 0, len(a.nodes))
	for b := range 256 {
		if s := a.nodes[0].trans[b]; s != -1 {
			a.nodes[s].fail = 0
			q = append(q, s)
		}
	}
	for qi := 0; qi < len(q); qi++ {
		r := q[qi]
		for b := range 256 {
			s := a.nodes[r].trans[b]
			if s == -1 {
				continue
			}
			q = append(q, s)

			f := a.nodes[r].fail
			for f != 0 && a.nodes[f].trans[b] == -1 {
				f = a.nodes[f].fail
			}
			if nxt := a.nodes[f].trans[b]; nxt != -1 && nxt != s {
				a.nodes[s].fail = nxt
			} else {
				a.nodes[s].fail = 0
			}
			a.nodes[s].output = mergeIDs(a.nodes[s].output, a.nodes[a.nodes[s].fail].output)
		}
	}
}

// scan walks text and calls hit for every category id whose keyword ends at the current byte
// Scanning stops when hit returns false
func (a *automaton) scan(text string, hit func(id int) bool) {
	var state int32
	for i := 0; i < len(text); i++ {
		b := text[i]
		for state != 0 && a.nodes[state].trans[b] == -1 {
			state = a.nodes[state].fail
		}
		if nxt := a.nodes[state].trans[b]; nxt != -1 {
			state = nxt
		}
		for _, id := range a.nodes[state].output {
			if !hit(id) {
				return
			}
		}
	}
}

func mergeIDs(dst, src []int) []int {
outer:
	for _, id := range src {
		for _, have := range dst {
			if have == id {
				continue outer
			}
		}
		dst = append(dst, id)
	}
	return dst
}
