package core

import "fmt"

// NodeSnapshot is a serializable view of one committed node, used by the
// inspector and by tests for golden comparisons.
type NodeSnapshot struct {
	Kind      string            `json:"kind"`
	Tag       string            `json:"tag,omitempty"`
	Component string            `json:"component,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	Key       string            `json:"key,omitempty"`
	Props     map[string]string `json:"props,omitempty"`
	Text      string            `json:"text,omitempty"`
	Mixins    []string          `json:"mixins,omitempty"`
	Exiting   bool              `json:"exiting,omitempty"`
	Children  []NodeSnapshot    `json:"children,omitempty"`
}

// Snapshot captures the committed tree. Exiting children appear after their
// live siblings with Exiting set.
func (t *Tree) Snapshot() NodeSnapshot {
	return NodeSnapshot{
		Kind:     "root",
		Children: snapshotChildren(t.holder),
	}
}

func snapshotChildren(n *treeNode) []NodeSnapshot {
	if len(n.children) == 0 && len(n.exiting) == 0 {
		return nil
	}
	out := make([]NodeSnapshot, 0, len(n.children)+len(n.exiting))
	for _, c := range n.children {
		out = append(out, snapshotNode(c, false))
	}
	for _, e := range n.exiting {
		out = append(out, snapshotNode(e.node, true))
	}
	return out
}

func snapshotNode(n *treeNode, exiting bool) NodeSnapshot {
	snap := NodeSnapshot{
		Kind:    n.desc.Kind.String(),
		Exiting: exiting,
	}
	if k := n.desc.Key; k != nil {
		snap.Key = fmt.Sprint(k)
	}

	switch n.desc.Kind {
	case KindText:
		snap.Text = n.desc.Text

	case KindElement:
		snap.Tag = n.desc.Tag
		if len(n.desc.Props) > 0 {
			snap.Props = make(map[string]string, len(n.desc.Props))
			for name, v := range n.desc.Props {
				snap.Props[name] = fmt.Sprint(v)
			}
		}
		for _, b := range n.bindings {
			if b.use.Factory != nil {
				snap.Mixins = append(snap.Mixins, b.use.Factory.Name())
			}
		}
		snap.Children = snapshotChildren(n)

	case KindFragment:
		snap.Children = snapshotChildren(n)

	case KindComponent:
		snap.Component = descLabel(n.desc)
		if n.inst != nil {
			snap.Instance = n.inst.id
		}
		if n.child != nil {
			snap.Children = []NodeSnapshot{snapshotNode(n.child, false)}
		}
		for _, e := range n.exiting {
			snap.Children = append(snap.Children, snapshotNode(e.node, true))
		}
	}
	return snap
}
